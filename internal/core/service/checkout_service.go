package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

// CheckoutService turns reserved carts into sales. Stock was debited when
// items entered the cart, so checkout never touches it; only CancelOrder
// gives units back.
type CheckoutService struct {
	store  port.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewCheckoutService(store port.Store, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for sold_at and the
// cancellation window.
func (s *CheckoutService) WithClock(now func() time.Time) *CheckoutService {
	s.now = now
	return s
}

func (s *CheckoutService) ProcessCheckout(ctx context.Context, userID int64) (total decimal.Decimal, err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.ProcessCheckout", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer func() { observe(span, "checkout", err) }()

	var sales []domain.Sale
	err = s.store.InTx(ctx, func(tx port.Tx) error {
		sales = sales[:0]

		cart, err := tx.LockCart(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return ErrEmptyCart
		}

		items, err := tx.ListCartItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		products, err := lockProducts(ctx, tx, items)
		if err != nil {
			return err
		}
		locked, err := tx.LockCartItems(ctx, cart.ID)
		if err != nil {
			return err
		}

		soldAt := s.now()
		sum := decimal.Zero
		for _, item := range locked {
			product, ok := products[item.ProductID]
			if !ok {
				return fmt.Errorf("%w: product %d", ErrProductUnavailable, item.ProductID)
			}

			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			sale := domain.Sale{
				UserID:     userID,
				ProductID:  product.ID,
				Quantity:   item.Quantity,
				TotalPrice: lineTotal,
				SoldAt:     soldAt,
			}
			if err := tx.CreateSale(ctx, &sale); err != nil {
				return err
			}
			sales = append(sales, sale)
			sum = sum.Add(lineTotal)
		}

		if err := tx.DeleteCartItems(ctx, cart.ID); err != nil {
			return err
		}
		if err := tx.DeleteCart(ctx, cart.ID); err != nil {
			return err
		}
		total = sum
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Info("checkout completed",
		zap.Int64("userId", userID),
		zap.Int("sales", len(sales)),
		zap.String("total", total.StringFixed(2)))
	return total, nil
}

func (s *CheckoutService) CancelOrder(ctx context.Context, saleID, userID int64) (err error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.CancelOrder", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("sale.id", saleID),
	))
	defer func() { observe(span, "cancel_order", err) }()

	return s.store.InTx(ctx, func(tx port.Tx) error {
		sale, err := tx.LockSale(ctx, saleID)
		if err != nil {
			return err
		}
		if sale == nil || sale.UserID != userID {
			return fmt.Errorf("%w: sale %d", ErrNotFound, saleID)
		}
		if !sale.Cancellable(s.now()) {
			return fmt.Errorf("%w: sale %d sold at %s", ErrExpired, saleID, sale.SoldAt.Format(time.RFC3339))
		}

		product, err := tx.LockProduct(ctx, sale.ProductID)
		if err != nil {
			return err
		}
		if product != nil {
			if err := tx.IncrementStock(ctx, product.ID, sale.Quantity); err != nil {
				return err
			}
		} else {
			s.logger.Warn("product vanished, cancelled units not restored",
				zap.Int64("productId", sale.ProductID),
				zap.Int64("saleId", sale.ID))
		}

		return tx.DeleteSale(ctx, sale.ID)
	})
}

func (s *CheckoutService) GetUserOrders(ctx context.Context, userID int64) ([]domain.Sale, error) {
	sales, err := s.store.ListSalesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

// SaleCount returns the number of sale records.
func (s *CheckoutService) SaleCount(ctx context.Context) (int, error) {
	n, err := s.store.CountSales(ctx)
	if err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return n, nil
}

// UnitsSold returns the number of units across all sale records.
func (s *CheckoutService) UnitsSold(ctx context.Context) (int, error) {
	n, err := s.store.SumUnitsSold(ctx)
	if err != nil {
		return 0, fmt.Errorf("sum units sold: %w", err)
	}
	return n, nil
}
