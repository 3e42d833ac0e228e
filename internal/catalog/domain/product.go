package domain

import "time"

// Product is a catalog record. Prices are minor currency units (paise).
type Product struct {
	ID          string
	Name        string
	PriceCents  int64
	DiscountPct int
	Quantity    int
	SellerID    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FinalPriceCents is the displayed price after discount.
func (p Product) FinalPriceCents() int64 {
	return p.PriceCents * int64(100-p.DiscountPct) / 100
}
