package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID        int64
	UserID    int64
	CreatedAt time.Time
}

// CartItem holds a reservation: Quantity units already debited from the
// product's stock.
type CartItem struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine is a read model joining an item with its product.
type CartLine struct {
	ItemID    int64
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

type CartView struct {
	UserID   int64
	Lines    []CartLine
	Subtotal decimal.Decimal
}
