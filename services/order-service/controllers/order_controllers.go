package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/agrigrocer/marketplace-backend/services/order-service/middleware"
	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
	"github.com/agrigrocer/marketplace-backend/services/order-service/payments"
	"github.com/agrigrocer/marketplace-backend/services/order-service/repository"
	"github.com/agrigrocer/marketplace-backend/services/order-service/services"
	"github.com/agrigrocer/marketplace-backend/services/order-service/session"
)

type OrderController struct {
	Sessions      *session.Manager
	Payments      payments.Processor
	Materializer  *services.Materializer
	Delivery      *services.DeliveryService
	Orders        repository.OrderRepository
	Shops         repository.ShopRepository
	Products      repository.ProductRepository
	Users         repository.UserRepository
	Addresses     repository.AddressRepository
	DiscountCodes repository.DiscountCodeRepository
	Logger        *zap.Logger
}

type createSessionRequest struct {
	Cart              []models.CartItem     `json:"cart"`
	SelectedAddressID string                `json:"selectedAddressId"`
	Coupon            *models.SessionCoupon `json:"coupon"`
}

// CreatePaymentSession starts (or idempotently reuses) a checkout session.
func (oc *OrderController) CreatePaymentSession(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	sessionID, serr := oc.Sessions.CreateOrReuse(c.Request.Context(), userID, req.Cart, req.SelectedAddressID, req.Coupon)
	if serr != nil {
		c.JSON(serr.Code, gin.H{"error": serr.Message})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"sessionId": sessionID})
}

// VerifyPaymentSession returns the session payload or 404 once expired.
func (oc *OrderController) VerifyPaymentSession(c *gin.Context) {
	sessionID := c.Query("sessionId")

	sess, serr := oc.Sessions.Verify(c.Request.Context(), sessionID)
	if serr != nil {
		c.JSON(serr.Code, gin.H{"error": serr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "session": sess})
}

type createIntentRequest struct {
	Amount                float64 `json:"amount" binding:"required,gt=0"`
	SellerStripeAccountID string  `json:"sellerStripeAccountId" binding:"required"`
	SessionID             string  `json:"sessionId" binding:"required"`
}

// CreatePaymentIntent asks the processor for a charge intent against the
// seller's connected account and hands back the client secret.
func (oc *OrderController) CreatePaymentIntent(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	clientSecret, err := oc.Payments.CreateIntent(c.Request.Context(), req.Amount, req.SellerStripeAccountID, req.SessionID, userID)
	if err != nil {
		// Surface the processor's own message (invalid account,
		// missing capabilities) to the caller.
		oc.Logger.Error("Payment intent creation failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clientSecret": clientSecret})
}

// CreateOrder is the payment processor's webhook endpoint. Signature
// verification runs over the raw request body before anything else.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		c.String(http.StatusBadRequest, "Missing Stripe signature")
		return
	}

	rawBody, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "Unreadable request body")
		return
	}

	event, err := oc.Payments.VerifyEvent(rawBody, sigHeader)
	if err != nil {
		oc.Logger.Warn("Webhook signature verification failed", zap.Error(err))
		c.String(http.StatusBadRequest, "Webhook signature verification failed")
		return
	}

	if serr := oc.Materializer.HandleEvent(c.Request.Context(), event); serr != nil {
		// 5xx tells the processor to redeliver; that is the only retry
		// mechanism in this system.
		c.JSON(serr.Code, gin.H{"error": serr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// GetSellerOrders lists the authenticated seller's shop orders, newest
// first, with buyer summaries attached.
func (oc *OrderController) GetSellerOrders(c *gin.Context) {
	sellerID, err := middleware.GetSellerID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	shop, err := oc.Shops.FindBySellerID(c.Request.Context(), sellerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shop not found for seller"})
		return
	}

	orders, err := oc.Orders.FindByShopID(c.Request.Context(), shop.ID)
	if err != nil {
		oc.Logger.Error("Failed to fetch seller orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	type sellerOrder struct {
		models.Order
		User *models.User `json:"user,omitempty"`
	}

	result := make([]sellerOrder, 0, len(orders))
	for _, order := range orders {
		entry := sellerOrder{Order: order}
		if user, err := oc.Users.FindByID(c.Request.Context(), order.UserID); err == nil {
			entry.User = user
		}
		result = append(result, entry)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orders": result})
}

// GetOrderDetails returns a single order with its address, coupon and
// product summaries resolved.
func (oc *OrderController) GetOrderDetails(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID format"})
		return
	}

	ctx := c.Request.Context()
	order, err := oc.Orders.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found with the id!"})
			return
		}
		oc.Logger.Error("Failed to fetch order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	var shippingAddress *models.Address
	if order.ShippingAddressID != nil {
		if addr, err := oc.Addresses.FindByID(ctx, *order.ShippingAddressID); err == nil {
			shippingAddress = addr
		}
	}

	var coupon *models.DiscountCode
	if order.CouponCode != "" {
		if dc, err := oc.DiscountCodes.FindByCode(ctx, order.CouponCode); err == nil {
			coupon = dc
		}
	}

	productIDs := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	productMap := make(map[string]models.Product)
	if products, err := oc.Products.FindByIDs(ctx, productIDs); err == nil {
		for _, p := range products {
			productMap[p.ID] = p
		}
	}

	type detailedItem struct {
		models.OrderItem
		Product *models.Product `json:"product,omitempty"`
	}
	items := make([]detailedItem, 0, len(order.Items))
	for _, item := range order.Items {
		entry := detailedItem{OrderItem: item}
		if p, ok := productMap[item.ProductID]; ok {
			cp := p
			entry.Product = &cp
		}
		items = append(items, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order": gin.H{
			"id":                order.ID,
			"userId":            order.UserID,
			"shopId":            order.ShopID,
			"total":             order.Total,
			"status":            order.Status,
			"deliveryStatus":    order.DeliveryStatus,
			"createdAt":         order.CreatedAt,
			"updatedAt":         order.UpdatedAt,
			"items":             items,
			"shippingAddressId": shippingAddress,
			"couponCode":        coupon,
		},
	})
}

type updateStatusRequest struct {
	DeliveryStatus string `json:"deliveryStatus"`
}

// UpdateDeliveryStatus moves an order forward through the fulfillment
// states on behalf of the owning seller.
func (oc *OrderController) UpdateDeliveryStatus(c *gin.Context) {
	sellerID, err := middleware.GetSellerID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Order ID or deliveryStatus."})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DeliveryStatus == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing Order ID or deliveryStatus."})
		return
	}

	order, serr := oc.Delivery.UpdateStatus(c.Request.Context(), sellerID, orderID, req.DeliveryStatus)
	if serr != nil {
		c.JSON(serr.Code, gin.H{"error": serr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Delivery status updated successfully.",
		"order":   order,
	})
}
