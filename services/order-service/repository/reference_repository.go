package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type AddressRepository interface {
	FindByID(ctx context.Context, id string) (*models.Address, error)
}

type DiscountCodeRepository interface {
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type GormAddressRepository struct{ db *gorm.DB }

func NewGormAddressRepository(db *gorm.DB) AddressRepository {
	return &GormAddressRepository{db: db}
}

func (r *GormAddressRepository) FindByID(ctx context.Context, id string) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&address).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

type GormDiscountCodeRepository struct{ db *gorm.DB }

func NewGormDiscountCodeRepository(db *gorm.DB) DiscountCodeRepository {
	return &GormDiscountCodeRepository{db: db}
}

func (r *GormDiscountCodeRepository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var dc models.DiscountCode
	if err := r.db.WithContext(ctx).Where("discount_code = ?", code).First(&dc).Error; err != nil {
		return nil, err
	}
	return &dc, nil
}

type GormNotificationRepository struct{ db *gorm.DB }

func NewGormNotificationRepository(db *gorm.DB) NotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}
