package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
	"github.com/agrigrocer/marketplace-backend/services/order-service/services"
)

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		name      string
		current   string
		requested string
		ok        bool
	}{
		{"forward one step", "Ordered", "Packed", true},
		{"forward skip", "Ordered", "Delivered", true},
		{"same status", "Shipped", "Shipped", true},
		{"backward", "Packed", "Ordered", false},
		{"backward from delivered", "Delivered", "Shipped", false},
		{"unknown requested", "Ordered", "Returned", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			serr := services.ValidateTransition(tc.current, tc.requested)
			if tc.ok {
				assert.Nil(t, serr)
			} else {
				assert.NotNil(t, serr)
				assert.Equal(t, 400, serr.Code)
			}
		})
	}
}

type deliveryOrderRepo struct {
	fakeOrderRepo
	findErr error
}

func (f *deliveryOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.fakeOrderRepo.FindByID(ctx, id)
}

func seedOrder(repo *deliveryOrderRepo, shopID, status string) uuid.UUID {
	order := &models.Order{ShopID: shopID, DeliveryStatus: status}
	_ = repo.CreateWithItems(context.Background(), order)
	return order.ID
}

func deliveryShops() *fakeShopRepo {
	return &fakeShopRepo{shops: map[string]models.Shop{
		"s1": {ID: "s1", SellerID: "seller-1"},
		"s2": {ID: "s2", SellerID: "seller-2"},
	}}
}

func TestUpdateStatusHappyPath(t *testing.T) {
	repo := &deliveryOrderRepo{}
	svc := services.NewDeliveryService(repo, deliveryShops(), zap.NewNop())
	orderID := seedOrder(repo, "s1", "Packed")

	updated, serr := svc.UpdateStatus(context.Background(), "seller-1", orderID, "Delivered")

	assert.Nil(t, serr)
	assert.Equal(t, "Delivered", updated.DeliveryStatus)
}

func TestUpdateStatusRejectsBackwardMove(t *testing.T) {
	repo := &deliveryOrderRepo{}
	svc := services.NewDeliveryService(repo, deliveryShops(), zap.NewNop())
	orderID := seedOrder(repo, "s1", "Packed")

	_, serr := svc.UpdateStatus(context.Background(), "seller-1", orderID, "Ordered")

	assert.NotNil(t, serr)
	assert.Equal(t, 400, serr.Code)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := &deliveryOrderRepo{}
	svc := services.NewDeliveryService(repo, deliveryShops(), zap.NewNop())
	orderID := seedOrder(repo, "s1", "Ordered")

	_, serr := svc.UpdateStatus(context.Background(), "seller-1", orderID, "Lost")

	assert.NotNil(t, serr)
	assert.Equal(t, 400, serr.Code)
	assert.Equal(t, "Invalid delivery status.", serr.Message)
}

func TestUpdateStatusOrderNotFound(t *testing.T) {
	repo := &deliveryOrderRepo{findErr: gorm.ErrRecordNotFound}
	svc := services.NewDeliveryService(repo, deliveryShops(), zap.NewNop())

	_, serr := svc.UpdateStatus(context.Background(), "seller-1", uuid.New(), "Packed")

	assert.NotNil(t, serr)
	assert.Equal(t, 404, serr.Code)
}

func TestUpdateStatusEnforcesOwnership(t *testing.T) {
	repo := &deliveryOrderRepo{}
	svc := services.NewDeliveryService(repo, deliveryShops(), zap.NewNop())
	orderID := seedOrder(repo, "s1", "Ordered")

	_, serr := svc.UpdateStatus(context.Background(), "seller-2", orderID, "Packed")

	assert.NotNil(t, serr)
	assert.Equal(t, 403, serr.Code)
}
