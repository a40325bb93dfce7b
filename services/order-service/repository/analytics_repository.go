package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
)

// AnalyticsRepository records purchase actions against the per-product
// and per-user aggregates.
type AnalyticsRepository interface {
	RecordPurchase(ctx context.Context, userID, productID, shopID string, quantity int) error
}

type GormAnalyticsRepository struct {
	db *gorm.DB
}

func NewGormAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

func (r *GormAnalyticsRepository) RecordPurchase(ctx context.Context, userID, productID, shopID string, quantity int) error {
	now := time.Now()

	// Upsert: create with purchases=quantity, or increment the existing
	// counter.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"purchases": gorm.Expr("product_analytics.purchases + ?", quantity),
			}),
		}).
		Create(&models.ProductAnalytics{
			ProductID:    productID,
			ShopID:       shopID,
			Purchases:    quantity,
			LastViewedAt: now,
		}).Error
	if err != nil {
		return err
	}

	// Read-modify-append for the user action log. The small race window
	// between concurrent orders from the same user is an accepted
	// limitation of this log, not a correctness requirement.
	action := models.UserAction{
		ProductID: productID,
		ShopID:    shopID,
		Action:    "purchase",
		Timestamp: now.UnixMilli(),
	}

	var existing models.UserAnalytics
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&existing)
	if result.Error != nil {
		if result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}
		return r.db.WithContext(ctx).Create(&models.UserAnalytics{
			UserID:      userID,
			LastVisited: now,
			Actions:     []models.UserAction{action},
		}).Error
	}

	existing.LastVisited = now
	existing.Actions = append(existing.Actions, action)
	return r.db.WithContext(ctx).Save(&existing).Error
}
