package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

const (
	lowStockKeyPrefix = "lowstock:"
	notifyTimeout     = 5 * time.Second
)

type LowStockConfig struct {
	Workers   int
	QueueSize int
	// Cooldown is the minimum spacing between two notices for one product.
	Cooldown time.Duration
}

// LowStockTrigger hands low-stock notices to the publisher off the request
// path. Requests that do not fit in the queue are dropped.
type LowStockTrigger struct {
	store     port.Store
	gate      port.NotificationGate
	publisher port.NotificationPublisher
	cfg       LowStockConfig
	logger    *zap.Logger
	now       func() time.Time

	queue  chan int64
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewLowStockTrigger builds a trigger; gate may be nil to disable the
// cooldown.
func NewLowStockTrigger(store port.Store, gate port.NotificationGate, publisher port.NotificationPublisher, cfg LowStockConfig, logger *zap.Logger) *LowStockTrigger {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	return &LowStockTrigger{
		store:     store,
		gate:      gate,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		queue:     make(chan int64, cfg.QueueSize),
	}
}

// Start launches the worker pool.
func (t *LowStockTrigger) Start() {
	for i := 0; i < t.cfg.Workers; i++ {
		t.wg.Add(1)
		go func(id int) {
			defer t.wg.Done()
			t.workerLoop(id)
		}(i)
	}
	t.logger.Info("low-stock workers started", zap.Int("workers", t.cfg.Workers))
}

func (t *LowStockTrigger) Fire(productID int64) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		lowStockNotifications.WithLabelValues("dropped").Inc()
		return
	}

	select {
	case t.queue <- productID:
	default:
		lowStockNotifications.WithLabelValues("dropped").Inc()
		t.logger.Warn("low-stock queue full, request dropped", zap.Int64("productId", productID))
	}
}

// Close stops intake and waits for queued requests to drain.
func (t *LowStockTrigger) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *LowStockTrigger) workerLoop(id int) {
	for productID := range t.queue {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)

		outcome, err := t.notify(ctx, productID)
		lowStockNotifications.WithLabelValues(outcome).Inc()
		if err != nil {
			t.logger.Error("low-stock notification failed",
				zap.Int("worker", id),
				zap.Int64("productId", productID),
				zap.Error(err))
		} else {
			t.logger.Debug("low-stock request handled",
				zap.Int("worker", id),
				zap.Int64("productId", productID),
				zap.String("outcome", outcome))
		}

		cancel()
	}
}

// notify publishes one notice for productID. The threshold was crossed when
// the request was fired, so only a deleted product is skipped here.
func (t *LowStockTrigger) notify(ctx context.Context, productID int64) (string, error) {
	product, err := t.store.GetProduct(ctx, productID)
	if err != nil {
		return "failed", fmt.Errorf("load product: %w", err)
	}
	if product == nil {
		return "skipped", nil
	}

	key := fmt.Sprintf("%s%d", lowStockKeyPrefix, productID)
	var held bool
	if t.gate != nil && t.cfg.Cooldown > 0 {
		ok, err := t.gate.Acquire(ctx, key, t.cfg.Cooldown)
		if err != nil {
			t.logger.Warn("cooldown gate unavailable, notifying anyway",
				zap.Int64("productId", productID), zap.Error(err))
		} else if !ok {
			return "throttled", nil
		}
		held = ok
	}

	lowStock, err := t.store.ListLowStockProducts(ctx)
	if err != nil {
		t.release(ctx, key, held)
		return "failed", fmt.Errorf("list low-stock products: %w", err)
	}

	notice := domain.LowStockNotice{
		Product:    *product,
		LowStock:   lowStock,
		DetectedAt: t.now(),
	}
	err = t.publisher.PublishLowStock(ctx, notice)
	switch {
	case err == nil:
		return "sent", nil
	case errors.Is(err, port.ErrNoRecipient):
		t.release(ctx, key, held)
		t.logger.Warn("low-stock notice skipped", zap.Int64("productId", productID), zap.Error(err))
		return "skipped", nil
	default:
		t.release(ctx, key, held)
		return "failed", fmt.Errorf("publish: %w", err)
	}
}

// release frees a cooldown key this request acquired but did not use, so
// the next request is not throttled by a notice that never went out.
func (t *LowStockTrigger) release(ctx context.Context, key string, held bool) {
	if !held {
		return
	}
	if err := t.gate.Release(ctx, key); err != nil {
		t.logger.Warn("release cooldown", zap.String("key", key), zap.Error(err))
	}
}
