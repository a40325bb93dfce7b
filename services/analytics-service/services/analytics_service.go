package services

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrigrocer/marketplace-backend/services/analytics-service/models"
)

// Only these actions mutate analytics. Anything else on the topic is noise
// from newer producers and gets dropped.
var validActions = map[string]bool{
	"product_view":         true,
	"add_to_cart":          true,
	"remove_from_cart":     true,
	"add_to_wishlist":      true,
	"remove_from_wishlist": true,
}

// maxUserActions caps the per-user action log so the row stays bounded.
const maxUserActions = 100

// Store persists aggregated analytics.
type Store interface {
	ApplyProductEvent(ctx context.Context, event models.UserEvent) error
	AppendUserAction(ctx context.Context, event models.UserEvent) error
}

type AnalyticsService struct {
	store  Store
	logger *zap.Logger
}

func NewAnalyticsService(store Store, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{store: store, logger: logger}
}

// ProcessBatch applies a drained batch of events. Failures are logged and
// skipped; one bad event must not stall the stream.
func (s *AnalyticsService) ProcessBatch(ctx context.Context, events []models.UserEvent) {
	for _, event := range events {
		if !validActions[event.Action] {
			s.logger.Debug("Skipping unknown action", zap.String("action", event.Action))
			continue
		}
		if event.UserID == "" || event.ProductID == "" {
			continue
		}

		if err := s.store.ApplyProductEvent(ctx, event); err != nil {
			s.logger.Warn("Failed to update product analytics",
				zap.String("product_id", event.ProductID),
				zap.Error(err),
			)
		}
		if err := s.store.AppendUserAction(ctx, event); err != nil {
			s.logger.Warn("Failed to append user action",
				zap.String("user_id", event.UserID),
				zap.Error(err),
			)
		}
	}
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) ApplyProductEvent(ctx context.Context, event models.UserEvent) error {
	column, delta := counterFor(event.Action)
	if column == "" {
		return nil
	}

	row := models.ProductAnalytics{
		ProductID:    event.ProductID,
		ShopID:       event.ShopID,
		LastViewedAt: time.Now(),
	}
	// A removal for a product never seen before inserts a zeroed row.
	if delta > 0 {
		switch column {
		case "views":
			row.Views = delta
		case "cart_adds":
			row.CartAdds = delta
		case "wishlist_adds":
			row.WishlistAdds = delta
		}
	}

	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			column:           gorm.Expr("GREATEST("+column+" + ?, 0)", delta),
			"last_viewed_at": time.Now(),
		}),
	}).Create(&row).Error
}

func (g *GormStore) AppendUserAction(ctx context.Context, event models.UserEvent) error {
	var ua models.UserAnalytics
	err := g.db.WithContext(ctx).First(&ua, "user_id = ?", event.UserID).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}
	ua.UserID = event.UserID
	ua.LastVisited = time.Now()
	ua.Actions = append(ua.Actions, models.UserAction{
		ProductID: event.ProductID,
		ShopID:    event.ShopID,
		Action:    event.Action,
		Timestamp: event.Timestamp,
	})
	if len(ua.Actions) > maxUserActions {
		ua.Actions = ua.Actions[len(ua.Actions)-maxUserActions:]
	}
	return g.db.WithContext(ctx).Save(&ua).Error
}

// counterFor maps an action to the counter column it moves and by how much.
func counterFor(action string) (string, int) {
	switch action {
	case "product_view":
		return "views", 1
	case "add_to_cart":
		return "cart_adds", 1
	case "remove_from_cart":
		return "cart_adds", -1
	case "add_to_wishlist":
		return "wishlist_adds", 1
	case "remove_from_wishlist":
		return "wishlist_adds", -1
	}
	return "", 0
}
