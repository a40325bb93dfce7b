package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"

	"github.com/agrigrocer/marketplace-backend/services/order-service/email"
	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
	"github.com/agrigrocer/marketplace-backend/services/order-service/services"
)

// ---- fakes ----

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.PaymentSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*models.PaymentSession)}
}

func (f *fakeSessionStore) Save(_ context.Context, id string, s *models.PaymentSession, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id] = s
	return nil
}

func (f *fakeSessionStore) Get(_ context.Context, id string) (*models.PaymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id], nil
}

func (f *fakeSessionStore) FindByUser(_ context.Context, userID string) (string, *models.PaymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID {
			return id, s, nil
		}
	}
	return "", nil, nil
}

func (f *fakeSessionStore) Consume(_ context.Context, id string) (*models.PaymentSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	delete(f.sessions, id)
	return s, nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders []*models.Order
}

func (f *fakeOrderRepo) CreateWithItems(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = uuid.New()
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeOrderRepo) FindByShopID(_ context.Context, shopID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, o := range f.orders {
		if o.ShopID == shopID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, errors.New("record not found")
}

func (f *fakeOrderRepo) UpdateDeliveryStatus(_ context.Context, id uuid.UUID, status string) (*models.Order, error) {
	o, err := f.FindByID(context.Background(), id)
	if err != nil {
		return nil, err
	}
	o.DeliveryStatus = status
	return o, nil
}

func (f *fakeOrderRepo) byShop(shopID string) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ShopID == shopID {
			return o
		}
	}
	return nil
}

type fakeProductRepo struct {
	mu      sync.Mutex
	stock   map[string]int
	failFor string
}

func (f *fakeProductRepo) RegisterSale(_ context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if productID == f.failFor {
		return errors.New("update failed")
	}
	if f.stock[productID] < quantity {
		return fmt.Errorf("no stock row updated for product %s", productID)
	}
	f.stock[productID] -= quantity
	return nil
}

func (f *fakeProductRepo) FindByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	return nil, nil
}

type fakeShopRepo struct {
	shops map[string]models.Shop
}

func (f *fakeShopRepo) FindByIDs(_ context.Context, ids []string) ([]models.Shop, error) {
	var out []models.Shop
	for _, id := range ids {
		if s, ok := f.shops[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeShopRepo) FindBySellerID(_ context.Context, sellerID string) (*models.Shop, error) {
	for _, s := range f.shops {
		if s.SellerID == sellerID {
			return &s, nil
		}
	}
	return nil, errors.New("record not found")
}

type fakeUserRepo struct{}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, Name: "Test User", Email: "user@example.com"}, nil
}

type fakeAnalyticsRepo struct {
	mu        sync.Mutex
	purchases map[string]int
}

func (f *fakeAnalyticsRepo) RecordPurchase(_ context.Context, userID, productID, shopID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purchases == nil {
		f.purchases = make(map[string]int)
	}
	f.purchases[productID] += quantity
	return nil
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	notes []*models.Notification
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, n)
	return nil
}

type fakeLedger struct {
	mu        sync.Mutex
	processed map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{processed: make(map[string]bool)}
}

func (f *fakeLedger) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.processed[eventID] {
		return false, nil
	}
	f.processed[eventID] = true
	return true, nil
}

func (f *fakeLedger) Forget(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.processed, eventID)
	return nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []email.Job
}

func (f *fakeDispatcher) Enqueue(_ context.Context, job email.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeSNS struct {
	mu        sync.Mutex
	published [][]byte
}

func (f *fakeSNS) Publish(_ context.Context, _ string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, message)
	return nil
}

// ---- harness ----

type harness struct {
	sessions      *fakeSessionStore
	orders        *fakeOrderRepo
	products      *fakeProductRepo
	notifications *fakeNotificationRepo
	analytics     *fakeAnalyticsRepo
	ledger        *fakeLedger
	emails        *fakeDispatcher
	sns           *fakeSNS
	materializer  *services.Materializer
}

func newHarness() *harness {
	h := &harness{
		sessions: newFakeSessionStore(),
		orders:   &fakeOrderRepo{},
		products: &fakeProductRepo{stock: map[string]int{"p1": 10, "p2": 10}},
		notifications: &fakeNotificationRepo{},
		analytics:     &fakeAnalyticsRepo{},
		ledger:        newFakeLedger(),
		emails:        &fakeDispatcher{},
		sns:           &fakeSNS{},
	}
	h.materializer = services.NewMaterializer(services.MaterializerConfig{
		Sessions:  h.sessions,
		Orders:    h.orders,
		Products:  h.products,
		Shops: &fakeShopRepo{shops: map[string]models.Shop{
			"s1": {ID: "s1", SellerID: "seller-1", StripeAccountID: "acct_1"},
			"s2": {ID: "s2", SellerID: "seller-2", StripeAccountID: "acct_2"},
		}},
		Users:         &fakeUserRepo{},
		Analytics:     h.analytics,
		Notifications: h.notifications,
		Ledger:        h.ledger,
		Emails:        h.emails,
		SNS:           h.sns,
		SNSTopicArn:   "arn:aws:sns:eu-west-2:000000000000:order-events",
		PublicBaseURL: "http://localhost:3000",
		Logger:        zap.NewNop(),
	})
	return h
}

func (h *harness) saveSession(id string, sess *models.PaymentSession) {
	_ = h.sessions.Save(context.Background(), id, sess, 10*time.Minute)
}

func paymentEvent(eventID, sessionID, userID string) stripe.Event {
	raw, _ := json.Marshal(map[string]interface{}{
		"id": "pi_123",
		"metadata": map[string]string{
			"sessionId": sessionID,
			"userId":    userID,
		},
	})
	return stripe.Event{
		ID:   eventID,
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: raw},
	}
}

func twoShopSession() *models.PaymentSession {
	return &models.PaymentSession{
		UserID: "u1",
		Cart: []models.CartItem{
			{ID: "p1", Quantity: 2, SalePrice: 10, ShopID: "s1"},
			{ID: "p2", Quantity: 1, SalePrice: 5, ShopID: "s2"},
		},
		TotalAmount:       25,
		ShippingAddressID: "addr-1",
	}
}

// ---- tests ----

func TestHandleEventSplitsCartByShop(t *testing.T) {
	h := newHarness()
	h.saveSession("sess-1", twoShopSession())

	serr := h.materializer.HandleEvent(context.Background(), paymentEvent("evt_1", "sess-1", "u1"))
	assert.Nil(t, serr)

	assert.Len(t, h.orders.orders, 2)

	o1 := h.orders.byShop("s1")
	assert.NotNil(t, o1)
	assert.Equal(t, 20.0, o1.Total)
	assert.Equal(t, "Paid", o1.Status)
	assert.Equal(t, "Ordered", o1.DeliveryStatus)
	assert.Len(t, o1.Items, 1)
	assert.Equal(t, "p1", o1.Items[0].ProductID)

	o2 := h.orders.byShop("s2")
	assert.NotNil(t, o2)
	assert.Equal(t, 5.0, o2.Total)

	// Stock moved for both products.
	assert.Equal(t, 8, h.products.stock["p1"])
	assert.Equal(t, 9, h.products.stock["p2"])

	// Session consumed.
	assert.Empty(t, h.sessions.sessions)

	// Side effects fanned out: email, seller+admin notifications, SNS.
	assert.Len(t, h.emails.jobs, 1)
	assert.Equal(t, "user@example.com", h.emails.jobs[0].To)
	assert.Len(t, h.notifications.notes, 3)
	assert.Len(t, h.sns.published, 2)
}

func TestHandleEventAppliesCouponOnce(t *testing.T) {
	h := newHarness()
	sess := twoShopSession()
	sess.Coupon = &models.SessionCoupon{
		Code:                "SAVE20",
		DiscountedProductID: "p1",
		DiscountPercent:     20,
	}
	h.saveSession("sess-1", sess)

	serr := h.materializer.HandleEvent(context.Background(), paymentEvent("evt_1", "sess-1", "u1"))
	assert.Nil(t, serr)

	// 10 x 2 at 20% off takes 4 off the s1 order only.
	o1 := h.orders.byShop("s1")
	assert.Equal(t, 16.0, o1.Total)
	assert.Equal(t, "SAVE20", o1.CouponCode)

	o2 := h.orders.byShop("s2")
	assert.Equal(t, 5.0, o2.Total)
	assert.Equal(t, "", o2.CouponCode)
}

func TestHandleEventIsIdempotent(t *testing.T) {
	h := newHarness()
	h.saveSession("sess-1", twoShopSession())
	ctx := context.Background()

	assert.Nil(t, h.materializer.HandleEvent(ctx, paymentEvent("evt_1", "sess-1", "u1")))
	assert.Nil(t, h.materializer.HandleEvent(ctx, paymentEvent("evt_1", "sess-1", "u1")))

	assert.Len(t, h.orders.orders, 2)
	assert.Equal(t, 8, h.products.stock["p1"])
}

func TestHandleEventConcurrentDuplicates(t *testing.T) {
	h := newHarness()
	h.saveSession("sess-1", twoShopSession())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.materializer.HandleEvent(context.Background(), paymentEvent("evt_1", "sess-1", "u1"))
		}()
	}
	wg.Wait()

	assert.Len(t, h.orders.orders, 2)
	assert.Equal(t, 8, h.products.stock["p1"])
	assert.Equal(t, 9, h.products.stock["p2"])
}

func TestHandleEventExpiredSessionIsAcknowledged(t *testing.T) {
	h := newHarness()

	serr := h.materializer.HandleEvent(context.Background(), paymentEvent("evt_1", "gone", "u1"))

	assert.Nil(t, serr)
	assert.Empty(t, h.orders.orders)
	assert.Empty(t, h.emails.jobs)
}

func TestHandleEventIgnoresOtherEventTypes(t *testing.T) {
	h := newHarness()
	h.saveSession("sess-1", twoShopSession())

	event := paymentEvent("evt_1", "sess-1", "u1")
	event.Type = "payment_intent.payment_failed"

	serr := h.materializer.HandleEvent(context.Background(), event)

	assert.Nil(t, serr)
	assert.Empty(t, h.orders.orders)
	assert.Len(t, h.sessions.sessions, 1)
}

func TestHandleEventMissingMetadataIsAcknowledged(t *testing.T) {
	h := newHarness()

	raw, _ := json.Marshal(map[string]interface{}{"id": "pi_123"})
	event := stripe.Event{
		ID:   "evt_1",
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: raw},
	}

	serr := h.materializer.HandleEvent(context.Background(), event)

	assert.Nil(t, serr)
	assert.Empty(t, h.orders.orders)
	// No ledger entry either: nothing to protect.
	assert.Empty(t, h.ledger.processed)
}

func TestHandleEventStockFailureIsRetryable(t *testing.T) {
	h := newHarness()
	h.products.failFor = "p1"
	h.saveSession("sess-1", &models.PaymentSession{
		UserID:      "u1",
		Cart:        []models.CartItem{{ID: "p1", Quantity: 2, SalePrice: 10, ShopID: "s1"}},
		TotalAmount: 20,
	})

	serr := h.materializer.HandleEvent(context.Background(), paymentEvent("evt_1", "sess-1", "u1"))

	assert.NotNil(t, serr)
	assert.Equal(t, 500, serr.Code)
	// Ledger entry released so the processor's redelivery is handled.
	assert.False(t, h.ledger.processed["evt_1"])
}
