package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LowStockNotice asks the notification collaborator to tell an operator
// that Product fell to or below its threshold. LowStock lists every
// product currently in that state, ordered by name.
type LowStockNotice struct {
	Product    Product
	LowStock   []Product
	DetectedAt time.Time
}

// SalesReport summarises the sales recorded in [From, To).
type SalesReport struct {
	From      time.Time
	To        time.Time
	Sales     []Sale
	Records   int
	UnitsSold int
	Revenue   decimal.Decimal
}
