// Package cart provides the canonical cart form used to detect duplicate
// in-flight checkout sessions.
package cart

import (
	"encoding/json"
	"sort"

	"github.com/agrigrocer/marketplace-backend/services/order-service/models"
)

type normalizedItem struct {
	ID              string             `json:"id"`
	Quantity        int                `json:"quantity"`
	SalePrice       float64            `json:"sale_price"`
	ShopID          string             `json:"shopId"`
	SelectedOptions map[string]*string `json:"selectedOptions"`
}

// Normalize produces a canonical, order-independent string form of a cart.
// Two carts with the same content in a different order normalize to the
// same string. The result is used only for equality comparison, never as
// a storage key.
func Normalize(items []models.CartItem) string {
	projected := make([]normalizedItem, 0, len(items))
	for _, item := range items {
		opts := item.SelectedOptions
		if opts == nil {
			opts = map[string]*string{}
		}
		projected = append(projected, normalizedItem{
			ID:              item.ID,
			Quantity:        item.Quantity,
			SalePrice:       item.SalePrice,
			ShopID:          item.ShopID,
			SelectedOptions: opts,
		})
	}

	sort.Slice(projected, func(i, j int) bool {
		return projected[i].ID < projected[j].ID
	})

	// json.Marshal emits map keys sorted, so the encoding is deterministic.
	b, _ := json.Marshal(projected)
	return string(b)
}
