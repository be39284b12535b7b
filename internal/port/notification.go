package port

import (
	"context"
	"errors"

	"github.com/rl1809/stockcart/internal/core/domain"
)

// ErrNoRecipient is returned by publishers that skipped a notice because no
// valid recipient is configured.
var ErrNoRecipient = errors.New("no valid notification recipient")

// NotificationPublisher hands notices to the outbound messaging system.
// Delivery is the publisher's concern.
type NotificationPublisher interface {
	PublishLowStock(ctx context.Context, notice domain.LowStockNotice) error

	PublishSalesReport(ctx context.Context, report domain.SalesReport) error
}
