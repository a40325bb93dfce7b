package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const (
	UserContextKey   = "userID"
	SellerContextKey = "sellerID"
)

// Auth validates bearer tokens for user- and seller-facing routes.
type Auth struct {
	secret []byte
}

func NewAuth(jwtSecret string) *Auth {
	return &Auth{secret: []byte(jwtSecret)}
}

// RequireUser accepts tokens with typ "user" and stores the subject id.
func (a *Auth) RequireUser() gin.HandlerFunc {
	return a.require("user", UserContextKey)
}

// RequireSeller accepts tokens with typ "seller" and stores the subject id.
func (a *Auth) RequireSeller() gin.HandlerFunc {
	return a.require("seller", SellerContextKey)
}

func (a *Auth) require(tokenType, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := a.parse(strings.TrimPrefix(header, "Bearer "), tokenType)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		c.Set(contextKey, sub)
		c.Next()
	}
}

func (a *Auth) parse(tokenStr, expectedType string) (jwt.MapClaims, error) {
	if len(a.secret) == 0 {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
		return nil, fmt.Errorf("invalid token type")
	}
	return claims, nil
}

func GetUserID(c *gin.Context) (string, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("user ID not found in context")
}

func GetSellerID(c *gin.Context) (string, error) {
	if val, ok := c.Get(SellerContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("seller ID not found in context")
}
