package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is one buyer order against one shop. Multi-seller carts produce
// one Order per shop. Immutable after creation except DeliveryStatus and
// UpdatedAt.
type Order struct {
	ID                uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID            string             `gorm:"not null;index" json:"userId"`
	ShopID            string             `gorm:"not null;index" json:"shopId"`
	Total             float64            `gorm:"not null" json:"total"`
	Status            string             `gorm:"type:varchar(20);not null" json:"status"`
	DeliveryStatus    string             `gorm:"type:varchar(30);not null;default:'Ordered'" json:"deliveryStatus"`
	ShippingAddressID *string            `json:"shippingAddressId,omitempty"`
	CouponCode        string             `gorm:"type:varchar(64)" json:"couponCode,omitempty"`
	Items             []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt         time.Time          `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time          `gorm:"autoUpdateTime" json:"updatedAt"`
}

// OrderItem is owned exclusively by one Order.
type OrderItem struct {
	ID              uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"orderId"`
	ProductID       string             `gorm:"not null" json:"productId"`
	Quantity        int                `gorm:"not null" json:"quantity"`
	Price           float64            `gorm:"not null" json:"price"`
	SelectedOptions map[string]*string `gorm:"serializer:json" json:"selectedOptions"`
}

type Product struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	ShopID     string    `gorm:"not null;index" json:"shopId"`
	Title      string    `json:"title"`
	SalePrice  float64   `json:"sale_price"`
	Stock      int       `gorm:"not null" json:"stock"`
	TotalSales int       `gorm:"not null;default:0" json:"totalSales"`
	Images     string    `json:"images"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type Shop struct {
	ID              string `gorm:"primaryKey" json:"id"`
	Name            string `json:"name"`
	SellerID        string `gorm:"not null;index" json:"sellerId"`
	StripeAccountID string `json:"stripeId"`
}

type User struct {
	ID     string `gorm:"primaryKey" json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

type Address struct {
	ID      string `gorm:"primaryKey" json:"id"`
	UserID  string `gorm:"index" json:"userId"`
	Label   string `json:"label"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// DiscountCode is a seller-issued coupon definition.
type DiscountCode struct {
	ID                  string  `gorm:"primaryKey" json:"id"`
	DiscountCode        string  `gorm:"type:varchar(64);uniqueIndex" json:"discountCode"`
	DiscountType        string  `gorm:"type:varchar(20)" json:"discountType"`
	DiscountValue       float64 `json:"discountValue"`
	DiscountedProductID string  `json:"discountedProductId"`
}

// ProductAnalytics aggregates per-product action counters. Updated, not
// replaced, on each purchase.
type ProductAnalytics struct {
	ProductID    string    `gorm:"primaryKey" json:"productId"`
	ShopID       string    `json:"shopId"`
	Purchases    int       `gorm:"not null;default:0" json:"purchases"`
	Views        int       `gorm:"not null;default:0" json:"views"`
	CartAdds     int       `gorm:"not null;default:0" json:"cartAdds"`
	WishlistAdds int       `gorm:"not null;default:0" json:"wishlistAdds"`
	LastViewedAt time.Time `json:"lastViewedAt"`
}

// UserAction is one entry in a user's append-only action log.
type UserAction struct {
	ProductID string `json:"productId"`
	ShopID    string `json:"shopId"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
}

type UserAnalytics struct {
	UserID      string       `gorm:"primaryKey" json:"userId"`
	LastVisited time.Time    `json:"lastVisited"`
	Actions     []UserAction `gorm:"serializer:json" json:"actions"`
}

type Notification struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	CreatorID    string    `json:"creatorId"`
	ReceiverID   string    `gorm:"index" json:"receiverId"`
	RedirectLink string    `json:"redirect_link"`
	Read         bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// ProcessedEvent is the webhook idempotency ledger: one row per payment
// processor event id that has been applied.
type ProcessedEvent struct {
	EventID     string    `gorm:"primaryKey" json:"eventId"`
	ProcessedAt time.Time `gorm:"autoCreateTime" json:"processedAt"`
}
