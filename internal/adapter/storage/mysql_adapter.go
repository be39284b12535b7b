package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

//go:embed schema.sql
var schema string

const (
	productColumns  = `id, name, price, stock_quantity, low_stock_threshold, created_at, updated_at`
	cartItemColumns = `id, cart_id, product_id, quantity, created_at, updated_at`
	saleColumns     = `id, user_id, product_id, quantity, total_price, sold_at`
)

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates the tables when they do not exist yet.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// txOptions runs units at READ COMMITTED so a locking read that finds no
// row takes no gap lock. Two first-time carts or cart items for different
// keys would otherwise share a gap and deadlock on their inserts.
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

func (m *MySQLAdapter) InTx(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, txOptions)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CreateProduct provisions a product row.
func (m *MySQLAdapter) CreateProduct(ctx context.Context, p *domain.Product) error {
	now := time.Now()
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO products (name, price, stock_quantity, low_stock_threshold, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Price, p.StockQuantity, p.LowStockThreshold, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	p.ID, p.CreatedAt, p.UpdatedAt = id, now, now
	return nil
}

func (m *MySQLAdapter) DeleteProduct(ctx context.Context, productID int64) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, productID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	p, err := scanProduct(m.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, productID))
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return p, nil
}

func (m *MySQLAdapter) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE stock_quantity <= low_stock_threshold
		ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query low-stock products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (m *MySQLAdapter) GetCartView(ctx context.Context, userID int64) (*domain.CartView, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT ci.id, p.id, p.name, p.price, ci.quantity
		FROM carts c
		JOIN cart_items ci ON ci.cart_id = c.id
		JOIN products p ON p.id = ci.product_id
		WHERE c.user_id = ?
		ORDER BY ci.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	view := &domain.CartView{UserID: userID, Subtotal: decimal.Zero}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.ItemID, &line.ProductID, &line.Name, &line.UnitPrice, &line.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		view.Lines = append(view.Lines, line)
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
	}
	return view, rows.Err()
}

func (m *MySQLAdapter) ListSalesByUser(ctx context.Context, userID int64) ([]domain.Sale, error) {
	return m.querySales(ctx, `SELECT `+saleColumns+` FROM sales WHERE user_id = ? ORDER BY id`, userID)
}

func (m *MySQLAdapter) ListSalesBetween(ctx context.Context, from, to time.Time) ([]domain.Sale, error) {
	return m.querySales(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE sold_at >= ? AND sold_at < ? ORDER BY sold_at, id`, from, to)
}

func (m *MySQLAdapter) CountSales(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return n, nil
}

func (m *MySQLAdapter) SumUnitsSold(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM sales`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sum sales: %w", err)
	}
	return n, nil
}

func (m *MySQLAdapter) querySales(ctx context.Context, query string, args ...any) ([]domain.Sale, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, *s)
	}
	return sales, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.StockQuantity, &p.LowStockThreshold, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanCartItem(row rowScanner) (*domain.CartItem, error) {
	var item domain.CartItem
	err := row.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var s domain.Sale
	err := row.Scan(&s.ID, &s.UserID, &s.ProductID, &s.Quantity, &s.TotalPrice, &s.SoldAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
