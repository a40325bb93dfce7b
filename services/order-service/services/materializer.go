package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	apperrors "github.com/agrigrocer/marketplace-backend/common/errors"
	awspkg "github.com/agrigrocer/marketplace-backend/pkg/aws"
	"github.com/agrigrocer/marketplace-backend/services/order-service/email"
	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
	"github.com/agrigrocer/marketplace-backend/services/order-service/repository"
	"github.com/agrigrocer/marketplace-backend/services/order-service/session"
)

// OrderCreatedEvent is the fan-out payload published after an order is
// materialized.
type OrderCreatedEvent struct {
	OrderID   string  `json:"order_id"`
	UserID    string  `json:"user_id"`
	ShopID    string  `json:"shop_id"`
	Total     float64 `json:"total"`
	SessionID string  `json:"session_id"`
}

// Materializer converts a successful payment event into durable orders
// plus side effects: stock decrement, analytics, notifications, email.
// It is driven by the payment processor's webhook and must apply each
// event's effect exactly once.
type Materializer struct {
	sessions      session.Store
	orders        repository.OrderRepository
	products      repository.ProductRepository
	shops         repository.ShopRepository
	users         repository.UserRepository
	analytics     repository.AnalyticsRepository
	notifications repository.NotificationRepository
	ledger        repository.EventLedger
	emails        email.Dispatcher
	sns           awspkg.SNSPublisher
	snsTopicArn   string
	publicBaseURL string
	logger        *zap.Logger
}

type MaterializerConfig struct {
	Sessions      session.Store
	Orders        repository.OrderRepository
	Products      repository.ProductRepository
	Shops         repository.ShopRepository
	Users         repository.UserRepository
	Analytics     repository.AnalyticsRepository
	Notifications repository.NotificationRepository
	Ledger        repository.EventLedger
	Emails        email.Dispatcher
	SNS           awspkg.SNSPublisher
	SNSTopicArn   string
	PublicBaseURL string
	Logger        *zap.Logger
}

func NewMaterializer(cfg MaterializerConfig) *Materializer {
	return &Materializer{
		sessions:      cfg.Sessions,
		orders:        cfg.Orders,
		products:      cfg.Products,
		shops:         cfg.Shops,
		users:         cfg.Users,
		analytics:     cfg.Analytics,
		notifications: cfg.Notifications,
		ledger:        cfg.Ledger,
		emails:        cfg.Emails,
		sns:           cfg.SNS,
		snsTopicArn:   cfg.SNSTopicArn,
		publicBaseURL: cfg.PublicBaseURL,
		logger:        cfg.Logger,
	}
}

// HandleEvent processes one signature-verified webhook event. Returning a
// non-nil error with a 5xx code makes the processor redeliver the event;
// anything acknowledged here is final.
func (m *Materializer) HandleEvent(ctx context.Context, event stripe.Event) *apperrors.Error {
	if event.Type != "payment_intent.succeeded" {
		m.logger.Info("Ignoring webhook event", zap.String("event_type", string(event.Type)))
		return nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return apperrors.NewValidation("Malformed payment intent payload")
	}

	sessionID := pi.Metadata["sessionId"]
	userID := pi.Metadata["userId"]
	if sessionID == "" || userID == "" {
		m.logger.Warn("Payment intent missing correlation metadata",
			zap.String("event_id", event.ID),
		)
		return nil
	}

	// Idempotency ledger first: the insert is atomic, so a redelivered
	// event (or a concurrent duplicate delivery) becomes a no-op before
	// any side effect runs.
	first, err := m.ledger.MarkProcessed(ctx, event.ID)
	if err != nil {
		return apperrors.NewInternal("Failed to record webhook event", err)
	}
	if !first {
		m.logger.Info("Skipping already-processed webhook event",
			zap.String("event_id", event.ID),
		)
		return nil
	}

	// Atomic delete-and-fetch: at most one delivery can claim the session.
	sess, err := m.sessions.Consume(ctx, sessionID)
	if err != nil {
		m.forget(ctx, event.ID)
		return apperrors.NewInternal("Failed to consume payment session", err)
	}
	if sess == nil {
		// Natural expiry means an abandoned checkout, not a failure.
		m.logger.Warn("Session data expired or missing, skipping order creation",
			zap.String("session_id", sessionID),
		)
		return nil
	}

	shopGroups := groupByShop(sess.Cart)

	createdOrders := make([]*models.Order, 0, len(shopGroups))
	for shopID, items := range shopGroups {
		order, serr := m.materializeShopOrder(ctx, userID, shopID, items, sess)
		if serr != nil {
			// Persistence failed: drop the ledger entry so the
			// processor's redelivery is not skipped.
			m.forget(ctx, event.ID)
			return serr
		}
		createdOrders = append(createdOrders, order)
	}

	// Everything below is best-effort; sub-failures never roll back
	// orders or fail the webhook.
	m.dispatchSideEffects(ctx, sessionID, userID, sess, shopGroups, createdOrders)

	m.logger.Info("Payment event materialized",
		zap.String("event_id", event.ID),
		zap.String("session_id", sessionID),
		zap.Int("orders", len(createdOrders)),
	)
	return nil
}

// materializeShopOrder creates one order for a shop group: persisted
// order+items, then per-item stock decrement and analytics.
func (m *Materializer) materializeShopOrder(ctx context.Context, userID, shopID string, items []models.CartItem, sess *models.PaymentSession) (*models.Order, *apperrors.Error) {
	var orderTotal float64
	for _, item := range items {
		orderTotal += float64(item.Quantity) * item.SalePrice
	}
	discount := sess.Coupon.DiscountFor(items)
	orderTotal -= discount

	order := &models.Order{
		UserID:         userID,
		ShopID:         shopID,
		Total:          orderTotal,
		Status:         "Paid",
		DeliveryStatus: "Ordered",
	}
	if discount > 0 {
		order.CouponCode = sess.Coupon.Code
	}
	if sess.ShippingAddressID != "" {
		addr := sess.ShippingAddressID
		order.ShippingAddressID = &addr
	}

	order.Items = make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			ProductID:       item.ID,
			Quantity:        item.Quantity,
			Price:           item.SalePrice,
			SelectedOptions: item.SelectedOptions,
		})
	}

	if err := m.orders.CreateWithItems(ctx, order); err != nil {
		return nil, apperrors.NewInternal("Failed to persist order", err)
	}

	for _, item := range items {
		if err := m.products.RegisterSale(ctx, item.ID, item.Quantity); err != nil {
			return nil, apperrors.NewInternal("Failed to update product stock", err)
		}

		// Analytics are not part of the persistence contract; a failed
		// update is logged and the order stands.
		if err := m.analytics.RecordPurchase(ctx, userID, item.ID, shopID, item.Quantity); err != nil {
			m.logger.Warn("Failed to record purchase analytics",
				zap.String("product_id", item.ID),
				zap.Error(err),
			)
		}
	}

	return order, nil
}

func (m *Materializer) dispatchSideEffects(ctx context.Context, sessionID, userID string, sess *models.PaymentSession, shopGroups map[string][]models.CartItem, orders []*models.Order) {
	trackingURL := fmt.Sprintf("%s/order/%s", m.publicBaseURL, sessionID)

	var userName, userEmail string
	if user, err := m.users.FindByID(ctx, userID); err == nil {
		userName = user.Name
		userEmail = user.Email
	} else {
		m.logger.Warn("Failed to load user for notifications", zap.Error(err))
	}

	if userEmail != "" && m.emails != nil {
		job := email.Job{
			To:          userEmail,
			Name:        userName,
			OrderRef:    sessionID,
			TotalAmount: sess.TotalAmount - sess.Coupon.DiscountFor(sess.Cart),
			TrackingURL: trackingURL,
		}
		if err := m.emails.Enqueue(ctx, job); err != nil {
			m.logger.Warn("Failed to enqueue confirmation email", zap.Error(err))
		}
	}

	m.notifySellers(ctx, userID, shopGroups, trackingURL)

	adminNote := &models.Notification{
		Title:        "📦 Platform Order Alert",
		Message:      fmt.Sprintf("A new order was placed by %s", userName),
		CreatorID:    userID,
		ReceiverID:   "admin",
		RedirectLink: trackingURL,
	}
	if err := m.notifications.Create(ctx, adminNote); err != nil {
		m.logger.Warn("Failed to create admin notification", zap.Error(err))
	}

	if m.sns != nil && m.snsTopicArn != "" {
		for _, order := range orders {
			payload, _ := json.Marshal(OrderCreatedEvent{
				OrderID:   order.ID.String(),
				UserID:    userID,
				ShopID:    order.ShopID,
				Total:     order.Total,
				SessionID: sessionID,
			})
			if err := m.sns.Publish(ctx, m.snsTopicArn, payload); err != nil {
				m.logger.Warn("SNS publish failed", zap.Error(err))
			}
		}
	}
}

func (m *Materializer) notifySellers(ctx context.Context, userID string, shopGroups map[string][]models.CartItem, trackingURL string) {
	shopIDs := make([]string, 0, len(shopGroups))
	for shopID := range shopGroups {
		shopIDs = append(shopIDs, shopID)
	}

	shops, err := m.shops.FindByIDs(ctx, shopIDs)
	if err != nil {
		m.logger.Warn("Failed to resolve shops for notifications", zap.Error(err))
		return
	}

	for _, shop := range shops {
		productTitle := "new item"
		if items := shopGroups[shop.ID]; len(items) > 0 && items[0].ID != "" {
			productTitle = items[0].ID
		}

		note := &models.Notification{
			Title:        "🛒 New Order Received",
			Message:      fmt.Sprintf("A customer just ordered %s from your shop.", productTitle),
			CreatorID:    userID,
			ReceiverID:   shop.SellerID,
			RedirectLink: trackingURL,
		}
		if err := m.notifications.Create(ctx, note); err != nil {
			m.logger.Warn("Failed to create seller notification",
				zap.String("shop_id", shop.ID),
				zap.Error(err),
			)
		}
	}
}

func (m *Materializer) forget(ctx context.Context, eventID string) {
	if err := m.ledger.Forget(ctx, eventID); err != nil {
		m.logger.Error("Failed to release webhook event from ledger",
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}
}

func groupByShop(items []models.CartItem) map[string][]models.CartItem {
	groups := make(map[string][]models.CartItem)
	for _, item := range items {
		groups[item.ShopID] = append(groups[item.ShopID], item)
	}
	return groups
}
