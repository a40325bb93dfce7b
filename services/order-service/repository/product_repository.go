package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
)

// ProductRepository covers the product-side effects of a sale.
type ProductRepository interface {
	// RegisterSale decrements stock and increments total sales for a
	// product in a single UPDATE with SQL expressions. The data store
	// applies both increments atomically, so concurrent orders against
	// the same product never lose updates.
	RegisterSale(ctx context.Context, productID string, quantity int) error
	FindByIDs(ctx context.Context, ids []string) ([]models.Product, error)
}

type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) ProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) RegisterSale(ctx context.Context, productID string, quantity int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]interface{}{
			"stock":       gorm.Expr("stock - ?", quantity),
			"total_sales": gorm.Expr("total_sales + ?", quantity),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("product %s not found", productID)
	}
	return nil
}

func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
