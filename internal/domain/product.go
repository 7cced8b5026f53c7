package domain

import "time"

// Product is a catalog item.
type Product struct {
	ID              string
	CategoryID      string
	ManagedBy       string
	Name            string
	Description     string
	PriceCents      int64
	DiscountPercent int
	StockQuantity   int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DiscountCents returns the per-unit discount derived from the percent.
func (p Product) DiscountCents() int64 {
	if p.DiscountPercent <= 0 {
		return 0
	}
	return p.PriceCents * int64(p.DiscountPercent) / 100
}

// InStock reports whether qty units can be ordered.
func (p Product) InStock(qty int) bool {
	return qty > 0 && p.StockQuantity >= qty
}
