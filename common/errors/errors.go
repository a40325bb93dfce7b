package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an application error carrying the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string.
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error.
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewValidation reports bad or missing input the client can correct.
func NewValidation(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

// NewNotFound reports a missing session, order or product.
func NewNotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

// NewAuth reports an authorization failure.
func NewAuth(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

// NewSignature reports a webhook signature mismatch. Handlers must
// short-circuit on it before touching any persistence.
func NewSignature(err error) *Error {
	return New(http.StatusBadRequest, "Webhook signature verification failed", err)
}

// NewInternal reports an unclassified infrastructure failure. Webhook
// handlers returning it rely on the processor's own redelivery.
func NewInternal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// Common error values
var (
	ErrBadRequest     = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized   = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden      = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound       = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer = New(http.StatusInternalServerError, "Internal server error", nil)
)

// HandleError writes err to w as JSON with the matching status code.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *Error
	if e, ok := err.(*Error); ok {
		appErr = e
	} else {
		appErr = New(http.StatusInternalServerError, "Internal server error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Code)
	w.Write([]byte(appErr.JSON()))
}

// ErrorMiddleware converts errors attached to the gin context into
// JSON responses.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			var appErr *Error
			if e, ok := err.(*Error); ok {
				appErr = e
			} else {
				appErr = New(http.StatusInternalServerError, "Internal server error", err)
			}

			c.JSON(appErr.Code, appErr)
			c.Abort()
		}
	}
}
