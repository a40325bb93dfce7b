package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/agrigrocer/marketplace-backend/common/errors"
	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
	"github.com/agrigrocer/marketplace-backend/services/order-service/repository"
)

// deliveryStatuses lists the fulfillment states in strict forward order.
var deliveryStatuses = []string{
	"Ordered",
	"Packed",
	"Shipped",
	"Out for Delivery",
	"Delivered",
}

func statusIndex(status string) int {
	for i, s := range deliveryStatuses {
		if s == status {
			return i
		}
	}
	return -1
}

// ValidateTransition enforces the forward-only progression: a requested
// status is accepted only when its index is at or past the current one.
// Forward skips (Ordered straight to Delivered) are allowed; backward
// moves and unrecognized statuses are not.
func ValidateTransition(current, requested string) *apperrors.Error {
	reqIdx := statusIndex(requested)
	if reqIdx < 0 {
		return apperrors.NewValidation("Invalid delivery status.")
	}
	curIdx := statusIndex(current)
	if curIdx > reqIdx {
		return apperrors.NewValidation("Delivery status cannot move backwards.")
	}
	return nil
}

// DeliveryService applies delivery-status updates for a seller's orders.
type DeliveryService struct {
	orders repository.OrderRepository
	shops  repository.ShopRepository
	logger *zap.Logger
}

func NewDeliveryService(orders repository.OrderRepository, shops repository.ShopRepository, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{orders: orders, shops: shops, logger: logger}
}

// UpdateStatus transitions one order's delivery status on behalf of a
// seller. Only the shop-owning seller may transition their own orders.
func (s *DeliveryService) UpdateStatus(ctx context.Context, sellerID string, orderID uuid.UUID, requested string) (*models.Order, *apperrors.Error) {
	if requested == "" {
		return nil, apperrors.NewValidation("Missing Order ID or deliveryStatus.")
	}
	if statusIndex(requested) < 0 {
		return nil, apperrors.NewValidation("Invalid delivery status.")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NewNotFound("Order not found!")
		}
		return nil, apperrors.NewInternal("Failed to fetch order", err)
	}

	shop, err := s.shops.FindBySellerID(ctx, sellerID)
	if err != nil || shop.ID != order.ShopID {
		return nil, apperrors.New(403, "You do not own this order", nil)
	}

	if verr := ValidateTransition(order.DeliveryStatus, requested); verr != nil {
		return nil, verr
	}

	updated, err := s.orders.UpdateDeliveryStatus(ctx, orderID, requested)
	if err != nil {
		return nil, apperrors.NewInternal("Failed to update delivery status", err)
	}

	s.logger.Info("Delivery status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", order.DeliveryStatus),
		zap.String("to", requested),
	)
	updated.DeliveryStatus = requested
	return updated, nil
}
