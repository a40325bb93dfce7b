package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
)

func TestDiscountForPercentage(t *testing.T) {
	coupon := &models.SessionCoupon{DiscountedProductID: "p1", DiscountPercent: 20}
	items := []models.CartItem{{ID: "p1", Quantity: 2, SalePrice: 10}}

	assert.Equal(t, 4.0, coupon.DiscountFor(items))
}

func TestDiscountForFlatAmount(t *testing.T) {
	coupon := &models.SessionCoupon{DiscountedProductID: "p1", DiscountAmount: 3}
	items := []models.CartItem{{ID: "p1", Quantity: 5, SalePrice: 10}}

	assert.Equal(t, 3.0, coupon.DiscountFor(items))
}

func TestDiscountForFirstMatchOnly(t *testing.T) {
	coupon := &models.SessionCoupon{DiscountedProductID: "p1", DiscountPercent: 10}
	items := []models.CartItem{
		{ID: "p1", Quantity: 1, SalePrice: 10},
		{ID: "p1", Quantity: 4, SalePrice: 10},
	}

	// One discount per order, never per matching line.
	assert.Equal(t, 1.0, coupon.DiscountFor(items))
}

func TestDiscountForNoMatch(t *testing.T) {
	coupon := &models.SessionCoupon{DiscountedProductID: "p9", DiscountPercent: 50}
	items := []models.CartItem{{ID: "p1", Quantity: 2, SalePrice: 10}}

	assert.Equal(t, 0.0, coupon.DiscountFor(items))
}

func TestDiscountForNilCoupon(t *testing.T) {
	var coupon *models.SessionCoupon

	assert.Equal(t, 0.0, coupon.DiscountFor([]models.CartItem{{ID: "p1", Quantity: 1, SalePrice: 10}}))
}
