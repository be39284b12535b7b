package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

// LowStockHook is told about products left at or below their threshold by
// a committed reservation. Fire must not block.
type LowStockHook interface {
	Fire(productID int64)
}

// CartService reserves stock into carts. Every operation takes its locks
// in the same order: cart, products by ascending id, cart items.
type CartService struct {
	store  port.Store
	hook   LowStockHook
	logger *zap.Logger
}

func NewCartService(store port.Store, hook LowStockHook, logger *zap.Logger) *CartService {
	return &CartService{
		store:  store,
		hook:   hook,
		logger: logger,
	}
}

func (s *CartService) AddToCart(ctx context.Context, userID, productID int64, quantity int) (item *domain.CartItem, err error) {
	ctx, span := tracer.Start(ctx, "CartService.AddToCart", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("product.id", productID),
		attribute.Int("quantity", quantity),
	))
	defer func() { observe(span, "add_to_cart", err) }()

	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	var lowStock bool
	err = s.store.InTx(ctx, func(tx port.Tx) error {
		cart, err := tx.FindOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}

		product, err := tx.LockProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		if !product.CanReserve(quantity) {
			return fmt.Errorf("%w: product %d has %d left, requested %d",
				ErrInsufficientStock, productID, product.StockQuantity, quantity)
		}

		existing, err := tx.LockCartItemByProduct(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Quantity += quantity
			if err := tx.SetCartItemQuantity(ctx, existing.ID, existing.Quantity); err != nil {
				return err
			}
			item = existing
		} else {
			item = &domain.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
			if err := tx.CreateCartItem(ctx, item); err != nil {
				return err
			}
		}

		if err := decrementStock(ctx, tx, product, quantity); err != nil {
			return err
		}
		lowStock = product.IsLowStock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if lowStock {
		s.hook.Fire(productID)
	}
	return item, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, cartItemID int64, newQuantity int, userID int64) (item *domain.CartItem, err error) {
	ctx, span := tracer.Start(ctx, "CartService.UpdateQuantity", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("cart_item.id", cartItemID),
		attribute.Int("quantity", newQuantity),
	))
	defer func() { observe(span, "update_quantity", err) }()

	if newQuantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidInput)
	}

	var lowStock bool
	var productID int64
	err = s.store.InTx(ctx, func(tx port.Tx) error {
		cart, found, err := s.ownedItem(ctx, tx, cartItemID, userID)
		if err != nil {
			return err
		}
		if found == nil {
			return fmt.Errorf("%w: cart item %d", ErrUnauthorized, cartItemID)
		}
		productID = found.ProductID

		product, err := tx.LockProduct(ctx, found.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: product %d", ErrNotFound, found.ProductID)
		}

		current, err := tx.LockCartItem(ctx, cartItemID)
		if err != nil {
			return err
		}
		if current == nil || current.CartID != cart.ID {
			return fmt.Errorf("%w: cart item %d", ErrUnauthorized, cartItemID)
		}

		diff := newQuantity - current.Quantity
		switch {
		case diff > 0:
			if !product.CanReserve(diff) {
				return fmt.Errorf("%w: product %d has %d left, requested %d more",
					ErrInsufficientStock, product.ID, product.StockQuantity, diff)
			}
			if err := decrementStock(ctx, tx, product, diff); err != nil {
				return err
			}
			lowStock = product.IsLowStock()
		case diff < 0:
			if err := tx.IncrementStock(ctx, product.ID, -diff); err != nil {
				return err
			}
		}

		if err := tx.SetCartItemQuantity(ctx, current.ID, newQuantity); err != nil {
			return err
		}
		current.Quantity = newQuantity
		item = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if lowStock {
		s.hook.Fire(productID)
	}
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, cartItemID, userID int64) (err error) {
	ctx, span := tracer.Start(ctx, "CartService.RemoveItem", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("cart_item.id", cartItemID),
	))
	defer func() { observe(span, "remove_item", err) }()

	return s.store.InTx(ctx, func(tx port.Tx) error {
		cart, found, err := s.ownedItem(ctx, tx, cartItemID, userID)
		if err != nil {
			return err
		}
		if found == nil {
			return fmt.Errorf("%w: cart item %d", ErrNotFound, cartItemID)
		}

		product, err := tx.LockProduct(ctx, found.ProductID)
		if err != nil {
			return err
		}

		current, err := tx.LockCartItem(ctx, cartItemID)
		if err != nil {
			return err
		}
		if current == nil || current.CartID != cart.ID {
			return fmt.Errorf("%w: cart item %d", ErrNotFound, cartItemID)
		}

		if product != nil {
			if err := tx.IncrementStock(ctx, product.ID, current.Quantity); err != nil {
				return err
			}
		} else {
			s.logger.Warn("product vanished, reservation not restored",
				zap.Int64("productId", current.ProductID),
				zap.Int64("cartItemId", current.ID))
		}

		if err := tx.DeleteCartItem(ctx, current.ID); err != nil {
			return err
		}

		remaining, err := tx.CountCartItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return tx.DeleteCart(ctx, cart.ID)
		}
		return nil
	})
}

func (s *CartService) ClearCart(ctx context.Context, userID int64) (err error) {
	ctx, span := tracer.Start(ctx, "CartService.ClearCart", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer func() { observe(span, "clear_cart", err) }()

	return s.store.InTx(ctx, func(tx port.Tx) error {
		cart, err := tx.LockCart(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return nil
		}

		items, err := tx.ListCartItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		products, err := lockProducts(ctx, tx, items)
		if err != nil {
			return err
		}
		locked, err := tx.LockCartItems(ctx, cart.ID)
		if err != nil {
			return err
		}

		for _, item := range locked {
			if _, ok := products[item.ProductID]; !ok {
				s.logger.Warn("product vanished, reservation not restored",
					zap.Int64("productId", item.ProductID),
					zap.Int64("cartItemId", item.ID))
				continue
			}
			if err := tx.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		if err := tx.DeleteCartItems(ctx, cart.ID); err != nil {
			return err
		}
		return tx.DeleteCart(ctx, cart.ID)
	})
}

func (s *CartService) GetCart(ctx context.Context, userID int64) (*domain.CartView, error) {
	view, err := s.store.GetCartView(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return view, nil
}

// ownedItem resolves cartItemID to an item in userID's locked cart.
// It returns a nil item when the item does not exist and ErrUnauthorized
// when it exists under another user's cart.
func (s *CartService) ownedItem(ctx context.Context, tx port.Tx, cartItemID, userID int64) (*domain.Cart, *domain.CartItem, error) {
	found, ownerID, err := tx.FindCartItem(ctx, cartItemID)
	if err != nil {
		return nil, nil, err
	}
	if found == nil {
		return nil, nil, nil
	}
	if ownerID != userID {
		return nil, nil, fmt.Errorf("%w: cart item %d", ErrUnauthorized, cartItemID)
	}

	cart, err := tx.LockCart(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil || cart.ID != found.CartID {
		return nil, nil, nil
	}
	return cart, found, nil
}

// decrementStock applies a guarded decrement to a product already locked
// and checked by the caller, keeping the in-memory copy in step.
func decrementStock(ctx context.Context, tx port.Tx, product *domain.Product, quantity int) error {
	if err := tx.DecrementStock(ctx, product.ID, quantity); err != nil {
		if errors.Is(err, port.ErrStockGuard) {
			return fmt.Errorf("%w: product %d", ErrInsufficientStock, product.ID)
		}
		return err
	}
	product.StockQuantity -= quantity
	return nil
}
