package handler

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/adapter/storage"
	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/core/service"
)

type noopHook struct{}

func (noopHook) Fire(int64) {}

type fixture struct {
	store    *storage.MemoryAdapter
	carts    *service.CartService
	checkout *service.CheckoutService
}

func newFixture(t *testing.T) *fixture {
	store := storage.NewMemoryAdapter()
	return &fixture{
		store:    store,
		carts:    service.NewCartService(store, noopHook{}, zap.NewNop()),
		checkout: service.NewCheckoutService(store, zap.NewNop()),
	}
}

func (f *fixture) product(t *testing.T, price string, stock int) *domain.Product {
	p := &domain.Product{Name: "item", Price: decimal.RequireFromString(price), StockQuantity: stock}
	require.NoError(t, f.store.CreateProduct(context.Background(), p))
	return p
}
