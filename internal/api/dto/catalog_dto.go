package dto

// ProductRequest payload for product create/update.
type ProductRequest struct {
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceCents      int64  `json:"price_cents"`
	DiscountPercent int    `json:"discount_percent"`
	StockQuantity   int    `json:"stock_quantity"`
	Active          bool   `json:"active"`
}
