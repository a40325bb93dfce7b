package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// CreateWithItems persists an order and its items in one transaction.
	CreateWithItems(ctx context.Context, order *models.Order) error
	FindByShopID(ctx context.Context, shopID string) ([]models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error)
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) CreateWithItems(ctx context.Context, order *models.Order) error {
	// gorm cascades the Items association inside the same transaction.
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) FindByShopID(ctx context.Context, shopID string) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("shop_id = ?", shopID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		return tx.Model(&order).Updates(map[string]interface{}{
			"delivery_status": status,
			"updated_at":      time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
