package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CancellationWindow bounds how long after SoldAt a sale may be reversed.
const CancellationWindow = time.Hour

// Sale is the permanent record of units bought at checkout.
type Sale struct {
	ID         int64
	UserID     int64
	ProductID  int64
	Quantity   int
	TotalPrice decimal.Decimal
	SoldAt     time.Time
}

// Cancellable reports whether the sale is still inside its window at now.
func (s *Sale) Cancellable(now time.Time) bool {
	return now.Sub(s.SoldAt) <= CancellationWindow
}
