package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/agrigrocer/marketplace-backend/common/errors"
	"github.com/agrigrocer/marketplace-backend/services/order-service/cart"
	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
	"github.com/agrigrocer/marketplace-backend/services/order-service/repository"
)

// Manager creates, reuses and verifies payment sessions.
type Manager struct {
	store  Store
	shops  repository.ShopRepository
	logger *zap.Logger
	ttl    time.Duration
}

func NewManager(store Store, shops repository.ShopRepository, logger *zap.Logger) *Manager {
	return &Manager{
		store:  store,
		shops:  shops,
		logger: logger,
		ttl:    DefaultTTL,
	}
}

// CreateOrReuse starts a checkout session for the given cart. If the user
// already has a live session for an identical cart the existing session id
// is returned as-is (TTL untouched); a live session for a different cart
// is deleted first so one user never holds two contradictory sessions.
func (m *Manager) CreateOrReuse(ctx context.Context, userID string, items []models.CartItem, selectedAddressID string, coupon *models.SessionCoupon) (string, *apperrors.Error) {
	if len(items) == 0 {
		return "", apperrors.NewValidation("Cart is empty or invalid!")
	}

	normalized := cart.Normalize(items)

	existingID, existing, err := m.store.FindByUser(ctx, userID)
	if err != nil {
		return "", apperrors.NewInternal("Failed to scan payment sessions", err)
	}
	if existing != nil {
		if cart.Normalize(existing.Cart) == normalized {
			m.logger.Info("Reusing payment session",
				zap.String("session_id", existingID),
				zap.String("user_id", userID),
			)
			return existingID, nil
		}
		if err := m.store.Delete(ctx, existingID); err != nil {
			return "", apperrors.NewInternal("Failed to delete stale payment session", err)
		}
	}

	sellers, serr := m.resolveSellers(ctx, items)
	if serr != nil {
		return "", serr
	}

	// The session total is the undiscounted cart sum; coupon accounting
	// happens once, at materialization.
	var totalAmount float64
	for _, item := range items {
		totalAmount += float64(item.Quantity) * item.SalePrice
	}

	sessionID := uuid.NewString()
	payload := &models.PaymentSession{
		UserID:            userID,
		Cart:              items,
		Sellers:           sellers,
		TotalAmount:       totalAmount,
		ShippingAddressID: selectedAddressID,
		Coupon:            coupon,
	}

	if err := m.store.Save(ctx, sessionID, payload, m.ttl); err != nil {
		return "", apperrors.NewInternal("Failed to store payment session", err)
	}

	m.logger.Info("Payment session created",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.Int("items", len(items)),
		zap.Float64("total", totalAmount),
	)
	return sessionID, nil
}

// Verify returns the session payload as-is, without renewing its TTL.
func (m *Manager) Verify(ctx context.Context, sessionID string) (*models.PaymentSession, *apperrors.Error) {
	if sessionID == "" {
		return nil, apperrors.NewValidation("Session ID is required")
	}

	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, apperrors.NewInternal("Failed to read payment session", err)
	}
	if s == nil {
		return nil, apperrors.NewNotFound("Session not found or expired")
	}
	return s, nil
}

func (m *Manager) resolveSellers(ctx context.Context, items []models.CartItem) ([]models.SellerRef, *apperrors.Error) {
	seen := make(map[string]bool)
	shopIDs := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item.ShopID] {
			seen[item.ShopID] = true
			shopIDs = append(shopIDs, item.ShopID)
		}
	}

	shops, err := m.shops.FindByIDs(ctx, shopIDs)
	if err != nil {
		return nil, apperrors.NewInternal("Failed to resolve shops", err)
	}

	sellers := make([]models.SellerRef, 0, len(shops))
	for _, shop := range shops {
		sellers = append(sellers, models.SellerRef{
			ShopID:          shop.ID,
			SellerID:        shop.SellerID,
			StripeAccountID: shop.StripeAccountID,
		})
	}
	return sellers, nil
}
