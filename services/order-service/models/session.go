package models

// CartItem is one cart line as submitted at checkout. Immutable once
// placed in a payment session.
type CartItem struct {
	ID              string             `json:"id"`
	Quantity        int                `json:"quantity"`
	SalePrice       float64            `json:"sale_price"`
	ShopID          string             `json:"shopId"`
	SelectedOptions map[string]*string `json:"selectedOptions,omitempty"`
}

// SellerRef resolves a shop to its seller and the seller's payment
// processor account.
type SellerRef struct {
	ShopID          string `json:"shopId"`
	SellerID        string `json:"sellerId"`
	StripeAccountID string `json:"stripeId"`
}

// SessionCoupon is the coupon snapshot carried inside a payment session.
type SessionCoupon struct {
	Code                string  `json:"code,omitempty"`
	DiscountedProductID string  `json:"discountedProductId"`
	DiscountPercent     float64 `json:"discountPercent"`
	DiscountAmount      float64 `json:"discountAmount"`
}

// DiscountFor returns the discount this coupon yields against the given
// items: the first item matching the discounted product gets either a
// percentage of its line total or the flat amount. At most one discount
// per order, never one per item.
func (c *SessionCoupon) DiscountFor(items []CartItem) float64 {
	if c == nil || c.DiscountedProductID == "" {
		return 0
	}
	for _, item := range items {
		if item.ID != c.DiscountedProductID {
			continue
		}
		if c.DiscountPercent > 0 {
			return item.SalePrice * float64(item.Quantity) * c.DiscountPercent / 100
		}
		return c.DiscountAmount
	}
	return 0
}

// PaymentSession ties a user's cart snapshot to one checkout attempt.
// Cache-only: it lives in the session store under a 600s TTL and is never
// written to durable storage, so expiry or eviction simply abandons the
// checkout.
type PaymentSession struct {
	UserID            string         `json:"userId"`
	Cart              []CartItem     `json:"cart"`
	Sellers           []SellerRef    `json:"sellers"`
	TotalAmount       float64        `json:"totalAmount"`
	ShippingAddressID string         `json:"shippingAddressId,omitempty"`
	Coupon            *SessionCoupon `json:"coupon,omitempty"`
}
