package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stockcart/internal/adapter/storage"
	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

type recordingHook struct {
	mu    sync.Mutex
	fired []int64
}

func (h *recordingHook) Fire(productID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fired = append(h.fired, productID)
}

func (h *recordingHook) calls() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int64(nil), h.fired...)
}

func newProduct(t *testing.T, store *storage.MemoryAdapter, price string, stock, threshold int) *domain.Product {
	t.Helper()
	p := &domain.Product{
		Name:              "product",
		Price:             decimal.RequireFromString(price),
		StockQuantity:     stock,
		LowStockThreshold: threshold,
	}
	require.NoError(t, store.CreateProduct(context.Background(), p))
	return p
}

func stockOf(t *testing.T, store port.Store, productID int64) int {
	t.Helper()
	p, err := store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.StockQuantity
}

func hasCart(t *testing.T, store port.Store, userID int64) bool {
	t.Helper()
	var found bool
	require.NoError(t, store.InTx(context.Background(), func(tx port.Tx) error {
		cart, err := tx.LockCart(context.Background(), userID)
		found = cart != nil
		return err
	}))
	return found
}

// reserved sums the quantity of productID held in any of users' carts.
func reserved(t *testing.T, store port.Store, productID int64, users ...int64) int {
	t.Helper()
	total := 0
	for _, userID := range users {
		view, err := store.GetCartView(context.Background(), userID)
		require.NoError(t, err)
		for _, line := range view.Lines {
			if line.ProductID == productID {
				total += line.Quantity
			}
		}
	}
	return total
}
