package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/stockcart?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	return db
}

func newMySQLAdapter(t *testing.T) (*MySQLAdapter, *sql.DB) {
	db := getMySQLDB(t)
	t.Cleanup(func() { db.Close() })

	adapter := NewMySQLAdapter(db)
	require.NoError(t, adapter.EnsureSchema(context.Background()))
	return adapter, db
}

func seedProduct(t *testing.T, store interface {
	CreateProduct(context.Context, *domain.Product) error
	DeleteProduct(context.Context, int64) error
}, stock, threshold int) *domain.Product {
	p := &domain.Product{
		Name:              "test-product-" + time.Now().Format("150405.000000000"),
		Price:             decimal.RequireFromString("12.50"),
		StockQuantity:     stock,
		LowStockThreshold: threshold,
	}
	require.NoError(t, store.CreateProduct(context.Background(), p))
	t.Cleanup(func() { store.DeleteProduct(context.Background(), p.ID) })
	return p
}

// testUserID keeps concurrent runs from sharing carts.
func testUserID() int64 {
	return time.Now().UnixNano() % 1_000_000_000
}

func TestMySQL_DecrementStockGuard(t *testing.T) {
	adapter, _ := newMySQLAdapter(t)
	ctx := context.Background()
	product := seedProduct(t, adapter, 5, 1)

	err := adapter.InTx(ctx, func(tx port.Tx) error {
		return tx.DecrementStock(ctx, product.ID, 3)
	})
	require.NoError(t, err)

	err = adapter.InTx(ctx, func(tx port.Tx) error {
		return tx.DecrementStock(ctx, product.ID, 3)
	})
	assert.ErrorIs(t, err, port.ErrStockGuard)

	got, err := adapter.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StockQuantity)
}

func TestMySQL_InTxRollsBackOnError(t *testing.T) {
	adapter, _ := newMySQLAdapter(t)
	ctx := context.Background()
	product := seedProduct(t, adapter, 10, 0)
	boom := errors.New("boom")

	err := adapter.InTx(ctx, func(tx port.Tx) error {
		if err := tx.DecrementStock(ctx, product.ID, 4); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := adapter.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.StockQuantity)
}

func TestMySQL_FindOrCreateCartIsIdempotent(t *testing.T) {
	adapter, db := newMySQLAdapter(t)
	ctx := context.Background()
	userID := testUserID()
	t.Cleanup(func() { db.Exec(`DELETE FROM carts WHERE user_id = ?`, userID) })

	var first, second *domain.Cart
	require.NoError(t, adapter.InTx(ctx, func(tx port.Tx) (err error) {
		first, err = tx.FindOrCreateCart(ctx, userID)
		return err
	}))
	require.NoError(t, adapter.InTx(ctx, func(tx port.Tx) (err error) {
		second, err = tx.FindOrCreateCart(ctx, userID)
		return err
	}))

	assert.Equal(t, first.ID, second.ID)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM carts WHERE user_id = ?`, userID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestMySQL_ConcurrentDecrementNeverOversells(t *testing.T) {
	adapter, _ := newMySQLAdapter(t)
	ctx := context.Background()
	initialStock := 20
	product := seedProduct(t, adapter, initialStock, 0)

	var wg sync.WaitGroup
	var successCount, rejectCount atomic.Int32

	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := adapter.InTx(ctx, func(tx port.Tx) error {
				p, err := tx.LockProduct(ctx, product.ID)
				if err != nil {
					return err
				}
				if !p.CanReserve(1) {
					return port.ErrStockGuard
				}
				return tx.DecrementStock(ctx, product.ID, 1)
			})
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, port.ErrStockGuard) {
				rejectCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(initialStock), successCount.Load())
	assert.Equal(t, int32(40), rejectCount.Load())

	got, err := adapter.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
}

func TestMySQL_CartViewAndSales(t *testing.T) {
	adapter, db := newMySQLAdapter(t)
	ctx := context.Background()
	product := seedProduct(t, adapter, 10, 2)
	userID := testUserID()
	t.Cleanup(func() {
		db.Exec(`DELETE FROM carts WHERE user_id = ?`, userID)
		db.Exec(`DELETE FROM sales WHERE user_id = ?`, userID)
	})

	require.NoError(t, adapter.InTx(ctx, func(tx port.Tx) error {
		cart, err := tx.FindOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		return tx.CreateCartItem(ctx, &domain.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 3})
	}))

	view, err := adapter.GetCartView(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
	assert.True(t, view.Subtotal.Equal(decimal.RequireFromString("37.50")))

	soldAt := time.Now().UTC().Truncate(time.Second)
	sale := &domain.Sale{
		UserID:     userID,
		ProductID:  product.ID,
		Quantity:   3,
		TotalPrice: decimal.RequireFromString("37.50"),
		SoldAt:     soldAt,
	}
	require.NoError(t, adapter.InTx(ctx, func(tx port.Tx) error {
		return tx.CreateSale(ctx, sale)
	}))

	sales, err := adapter.ListSalesByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, sale.ID, sales[0].ID)
	assert.True(t, sales[0].TotalPrice.Equal(sale.TotalPrice))

	between, err := adapter.ListSalesBetween(ctx, soldAt.Add(-time.Minute), soldAt.Add(time.Minute))
	require.NoError(t, err)
	assert.NotEmpty(t, between)
}

func TestMySQL_LowStockListing(t *testing.T) {
	adapter, _ := newMySQLAdapter(t)
	ctx := context.Background()
	low := seedProduct(t, adapter, 2, 5)
	healthy := seedProduct(t, adapter, 50, 5)

	products, err := adapter.ListLowStockProducts(ctx)
	require.NoError(t, err)

	ids := make(map[int64]bool, len(products))
	for _, p := range products {
		ids[p.ID] = true
	}
	assert.True(t, ids[low.ID])
	assert.False(t, ids[healthy.ID])
}
