package port

import (
	"context"
	"errors"
	"time"

	"github.com/rl1809/stockcart/internal/core/domain"
)

// ErrStockGuard is returned by DecrementStock when the guarded update
// would take stock below zero.
var ErrStockGuard = errors.New("stock guard rejected decrement")

// Store is the durable home of products, carts and sales.
type Store interface {
	// InTx runs fn as one atomic unit. The unit commits when fn returns nil
	// and rolls back otherwise; row locks taken through tx are released on
	// return either way.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)

	// ListLowStockProducts returns products at or below their threshold,
	// ordered by name.
	ListLowStockProducts(ctx context.Context) ([]domain.Product, error)

	GetCartView(ctx context.Context, userID int64) (*domain.CartView, error)

	ListSalesByUser(ctx context.Context, userID int64) ([]domain.Sale, error)

	// ListSalesBetween returns sales with from <= sold_at < to.
	ListSalesBetween(ctx context.Context, from, to time.Time) ([]domain.Sale, error)

	// CountSales returns the number of sale records.
	CountSales(ctx context.Context) (int, error)

	// SumUnitsSold returns the summed quantity across all sale records.
	SumUnitsSold(ctx context.Context) (int, error)
}

// Tx exposes guarded read-lock-mutate primitives scoped to one InTx call.
// Lock methods return (nil, nil) when the row does not exist.
type Tx interface {
	LockProduct(ctx context.Context, productID int64) (*domain.Product, error)

	// DecrementStock lowers stock by quantity, returning ErrStockGuard
	// instead of going negative.
	DecrementStock(ctx context.Context, productID int64, quantity int) error

	IncrementStock(ctx context.Context, productID int64, quantity int) error

	LockCart(ctx context.Context, userID int64) (*domain.Cart, error)

	// FindOrCreateCart returns the user's cart locked, creating it if needed.
	FindOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error)

	DeleteCart(ctx context.Context, cartID int64) error

	// FindCartItem reads an item and its owner without locking.
	FindCartItem(ctx context.Context, itemID int64) (*domain.CartItem, int64, error)

	LockCartItem(ctx context.Context, itemID int64) (*domain.CartItem, error)

	LockCartItemByProduct(ctx context.Context, cartID, productID int64) (*domain.CartItem, error)

	ListCartItems(ctx context.Context, cartID int64) ([]domain.CartItem, error)

	LockCartItems(ctx context.Context, cartID int64) ([]domain.CartItem, error)

	CreateCartItem(ctx context.Context, item *domain.CartItem) error

	SetCartItemQuantity(ctx context.Context, itemID int64, quantity int) error

	DeleteCartItem(ctx context.Context, itemID int64) error

	DeleteCartItems(ctx context.Context, cartID int64) error

	CountCartItems(ctx context.Context, cartID int64) (int, error)

	CreateSale(ctx context.Context, sale *domain.Sale) error

	LockSale(ctx context.Context, saleID int64) (*domain.Sale, error)

	DeleteSale(ctx context.Context, saleID int64) error
}
