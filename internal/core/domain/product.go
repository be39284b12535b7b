package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a stock-keeping unit. StockQuantity counts units still
// available; units sitting in carts or sold have already left it.
type Product struct {
	ID                int64
	Name              string
	Price             decimal.Decimal
	StockQuantity     int
	LowStockThreshold int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CanReserve reports whether quantity units can leave the available pool.
func (p *Product) CanReserve(quantity int) bool {
	return p.StockQuantity >= quantity
}

// IsLowStock reports whether stock sits at or below the threshold.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.LowStockThreshold
}
