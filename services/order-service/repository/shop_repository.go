package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
)

// ShopRepository resolves shops to their sellers and processor accounts.
type ShopRepository interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Shop, error)
	FindBySellerID(ctx context.Context, sellerID string) (*models.Shop, error)
}

type GormShopRepository struct {
	db *gorm.DB
}

func NewGormShopRepository(db *gorm.DB) ShopRepository {
	return &GormShopRepository{db: db}
}

func (r *GormShopRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Shop, error) {
	var shops []models.Shop
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&shops).Error; err != nil {
		return nil, err
	}
	return shops, nil
}

func (r *GormShopRepository) FindBySellerID(ctx context.Context, sellerID string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}
