package domain

import "time"

// Product is the catalog entry a cart line points at. The two fulfillment
// flags are the canonical spelling; legacy attribute spellings are folded in
// at the data-access boundary.
type Product struct {
	ID                     string                 `json:"id"`
	Key                    string                 `json:"key"`
	SKU                    string                 `json:"sku"`
	Name                   string                 `json:"name"`
	Description            string                 `json:"description,omitempty"`
	PriceCents             int64                  `json:"priceCents"`
	Currency               string                 `json:"currency"`
	LocalDeliveryAvailable bool                   `json:"isLocalDeliveryAvailable"`
	ShippingAvailable      bool                   `json:"isShippingAvailable"`
	Attributes             map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt              time.Time              `json:"createdAt"`
}
