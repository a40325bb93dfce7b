package models

import "time"

// UserEvent is the wire shape of a single tracked user action arriving on
// the events topic.
type UserEvent struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	ShopID    string `json:"shopId"`
	Action    string `json:"action"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Device    string `json:"device"`
	Timestamp int64  `json:"timestamp"`
}

type ProductAnalytics struct {
	ProductID    string    `gorm:"primaryKey" json:"productId"`
	ShopID       string    `json:"shopId"`
	Purchases    int       `gorm:"not null;default:0" json:"purchases"`
	Views        int       `gorm:"not null;default:0" json:"views"`
	CartAdds     int       `gorm:"not null;default:0" json:"cartAdds"`
	WishlistAdds int       `gorm:"not null;default:0" json:"wishlistAdds"`
	LastViewedAt time.Time `json:"lastViewedAt"`
}

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
