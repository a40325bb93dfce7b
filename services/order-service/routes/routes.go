package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/agrigrocer/marketplace-backend/services/order-service/controllers"
	"github.com/agrigrocer/marketplace-backend/services/order-service/middleware"
)

func RegisterOrderRoutes(r *gin.Engine, oc *controllers.OrderController, auth *middleware.Auth) {
	api := r.Group("/order/api")

	api.POST("/create-payment-session", auth.RequireUser(), oc.CreatePaymentSession)
	api.GET("/verifying-payment-session", auth.RequireUser(), oc.VerifyPaymentSession)
	api.POST("/create-payment-intent", auth.RequireUser(), oc.CreatePaymentIntent)

	// Webhook endpoint: no auth middleware, the Stripe signature over the
	// raw body is the authentication.
	api.POST("/create-order", oc.CreateOrder)

	api.GET("/get-seller-orders", auth.RequireSeller(), oc.GetSellerOrders)
	api.GET("/get-order-details/:id", auth.RequireUser(), oc.GetOrderDetails)
	api.PUT("/update-status/:orderId", auth.RequireSeller(), oc.UpdateDeliveryStatus)
}
