package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/core/domain"
)

// LogPublisher writes notices to the log instead of a broker. Used when no
// Kafka brokers are configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishLowStock(ctx context.Context, notice domain.LowStockNotice) error {
	p.logger.Warn("low stock",
		zap.Int64("productId", notice.Product.ID),
		zap.String("product", notice.Product.Name),
		zap.Int("stock", notice.Product.StockQuantity),
		zap.Int("threshold", notice.Product.LowStockThreshold),
		zap.Int("lowStockProducts", len(notice.LowStock)))
	return nil
}

func (p *LogPublisher) PublishSalesReport(ctx context.Context, report domain.SalesReport) error {
	p.logger.Info("daily sales",
		zap.Time("from", report.From),
		zap.Int("records", report.Records),
		zap.Int("units", report.UnitsSold),
		zap.String("revenue", report.Revenue.StringFixed(2)))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
