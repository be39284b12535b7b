package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

// mysqlTx locks rows with SELECT ... FOR UPDATE; InnoDB releases them at
// commit or rollback.
type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) LockProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	p, err := scanProduct(t.tx.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, productID))
	if err != nil {
		return nil, fmt.Errorf("lock product: %w", err)
	}
	return p, nil
}

func (t *mysqlTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - ?, updated_at = ?
		WHERE id = ? AND stock_quantity >= ?`,
		quantity, time.Now(), productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrStockGuard
	}
	return nil
}

func (t *mysqlTx) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + ?, updated_at = ?
		WHERE id = ?`,
		quantity, time.Now(), productID,
	)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return nil
}

func (t *mysqlTx) LockCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	var c domain.Cart
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM carts WHERE user_id = ? FOR UPDATE`, userID,
	).Scan(&c.ID, &c.UserID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	return &c, nil
}

// FindOrCreateCart upserts before locking so no locking read ever runs
// against a missing row. A concurrent first add for the same user waits on
// the unique key and then finds the winner's cart.
func (t *mysqlTx) FindOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO carts (user_id, created_at) VALUES (?, ?)
		ON DUPLICATE KEY UPDATE user_id = user_id`,
		userID, time.Now(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert cart: %w", err)
	}

	cart, err := t.LockCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("upsert cart: no row for user %d", userID)
	}
	return cart, nil
}

func (t *mysqlTx) DeleteCart(ctx context.Context, cartID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM carts WHERE id = ?`, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func (t *mysqlTx) FindCartItem(ctx context.Context, itemID int64) (*domain.CartItem, int64, error) {
	var item domain.CartItem
	var ownerID int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at, c.user_id
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id = ?`, itemID,
	).Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("find cart item: %w", err)
	}
	return &item, ownerID, nil
}

func (t *mysqlTx) LockCartItem(ctx context.Context, itemID int64) (*domain.CartItem, error) {
	item, err := scanCartItem(t.tx.QueryRowContext(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE id = ? FOR UPDATE`, itemID))
	if err != nil {
		return nil, fmt.Errorf("lock cart item: %w", err)
	}
	return item, nil
}

func (t *mysqlTx) LockCartItemByProduct(ctx context.Context, cartID, productID int64) (*domain.CartItem, error) {
	item, err := scanCartItem(t.tx.QueryRowContext(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ? AND product_id = ? FOR UPDATE`,
		cartID, productID))
	if err != nil {
		return nil, fmt.Errorf("lock cart item: %w", err)
	}
	return item, nil
}

func (t *mysqlTx) ListCartItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	return t.queryCartItems(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ? ORDER BY id`, cartID)
}

func (t *mysqlTx) LockCartItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	return t.queryCartItems(ctx, `SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ? ORDER BY id FOR UPDATE`, cartID)
}

func (t *mysqlTx) queryCartItems(ctx context.Context, query string, cartID int64) ([]domain.CartItem, error) {
	rows, err := t.tx.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (t *mysqlTx) CreateCartItem(ctx context.Context, item *domain.CartItem) error {
	now := time.Now()
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		item.CartID, item.ProductID, item.Quantity, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("cart item id: %w", err)
	}
	item.ID, item.CreatedAt, item.UpdatedAt = id, now, now
	return nil
}

func (t *mysqlTx) SetCartItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ?, updated_at = ? WHERE id = ?`,
		quantity, time.Now(), itemID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	return nil
}

func (t *mysqlTx) DeleteCartItem(ctx context.Context, itemID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ?`, itemID); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (t *mysqlTx) DeleteCartItems(ctx context.Context, cartID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}
	return nil
}

func (t *mysqlTx) CountCartItems(ctx context.Context, cartID int64) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cart_items WHERE cart_id = ?`, cartID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cart items: %w", err)
	}
	return n, nil
}

func (t *mysqlTx) CreateSale(ctx context.Context, sale *domain.Sale) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO sales (user_id, product_id, quantity, total_price, sold_at)
		VALUES (?, ?, ?, ?, ?)`,
		sale.UserID, sale.ProductID, sale.Quantity, sale.TotalPrice, sale.SoldAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sale id: %w", err)
	}
	sale.ID = id
	return nil
}

func (t *mysqlTx) LockSale(ctx context.Context, saleID int64) (*domain.Sale, error) {
	s, err := scanSale(t.tx.QueryRowContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE id = ? FOR UPDATE`, saleID))
	if err != nil {
		return nil, fmt.Errorf("lock sale: %w", err)
	}
	return s, nil
}

func (t *mysqlTx) DeleteSale(ctx context.Context, saleID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, saleID); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return nil
}
