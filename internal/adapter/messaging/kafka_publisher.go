package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

const (
	EventLowStock    = "inventory.low_stock"
	EventSalesReport = "sales.daily_report"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers          []string
	LowStockTopic    string
	SalesReportTopic string
	BatchTimeout     time.Duration
}

// KafkaPublisher implements port.NotificationPublisher on Kafka topics.
// Notices are addressed to the admin mailbox; with no valid address they
// are skipped with port.ErrNoRecipient.
type KafkaPublisher struct {
	lowStock    messageWriter
	salesReport messageWriter
	recipient   string
	logger      *zap.Logger
}

func NewKafkaPublisher(cfg KafkaConfig, adminAddress string, logger *zap.Logger) *KafkaPublisher {
	return newKafkaPublisher(
		newWriter(cfg, cfg.LowStockTopic),
		newWriter(cfg, cfg.SalesReportTopic),
		adminAddress,
		logger,
	)
}

func newKafkaPublisher(lowStock, salesReport messageWriter, adminAddress string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		lowStock:    lowStock,
		salesReport: salesReport,
		recipient:   adminAddress,
		logger:      logger,
	}
}

func newWriter(cfg KafkaConfig, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
}

type productPayload struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	StockQuantity     int             `json:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold"`
}

type lowStockEvent struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	Recipient  string           `json:"recipient"`
	Product    productPayload   `json:"product"`
	LowStock   []productPayload `json:"low_stock_products"`
	DetectedAt time.Time        `json:"detected_at"`
}

type salePayload struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	SoldAt     time.Time       `json:"sold_at"`
}

type salesReportEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Recipient string          `json:"recipient"`
	Date      string          `json:"date"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Records   int             `json:"records"`
	UnitsSold int             `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
	Sales     []salePayload   `json:"sales"`
}

func (p *KafkaPublisher) PublishLowStock(ctx context.Context, notice domain.LowStockNotice) error {
	recipient, err := p.validRecipient()
	if err != nil {
		return err
	}

	event := lowStockEvent{
		EventID:    uuid.New().String(),
		EventType:  EventLowStock,
		Recipient:  recipient,
		Product:    toProductPayload(notice.Product),
		LowStock:   make([]productPayload, 0, len(notice.LowStock)),
		DetectedAt: notice.DetectedAt,
	}
	for _, product := range notice.LowStock {
		event.LowStock = append(event.LowStock, toProductPayload(product))
	}

	if err := p.write(ctx, p.lowStock, strconv.FormatInt(notice.Product.ID, 10), event); err != nil {
		return fmt.Errorf("write low-stock event: %w", err)
	}

	p.logger.Info("low-stock notice published",
		zap.String("eventId", event.EventID),
		zap.Int64("productId", notice.Product.ID),
		zap.String("product", notice.Product.Name),
		zap.String("recipient", recipient))
	return nil
}

func (p *KafkaPublisher) PublishSalesReport(ctx context.Context, report domain.SalesReport) error {
	recipient, err := p.validRecipient()
	if err != nil {
		return err
	}

	date := report.From.Format(time.DateOnly)
	event := salesReportEvent{
		EventID:   uuid.New().String(),
		EventType: EventSalesReport,
		Recipient: recipient,
		Date:      date,
		From:      report.From,
		To:        report.To,
		Records:   report.Records,
		UnitsSold: report.UnitsSold,
		Revenue:   report.Revenue,
		Sales:     make([]salePayload, 0, len(report.Sales)),
	}
	for _, s := range report.Sales {
		event.Sales = append(event.Sales, salePayload{
			ID:         s.ID,
			UserID:     s.UserID,
			ProductID:  s.ProductID,
			Quantity:   s.Quantity,
			TotalPrice: s.TotalPrice,
			SoldAt:     s.SoldAt,
		})
	}

	if err := p.write(ctx, p.salesReport, date, event); err != nil {
		return fmt.Errorf("write sales report event: %w", err)
	}

	p.logger.Info("sales report published",
		zap.String("eventId", event.EventID),
		zap.String("date", date),
		zap.String("recipient", recipient))
	return nil
}

// Close closes the underlying Kafka writers.
func (p *KafkaPublisher) Close() error {
	errLow := p.lowStock.Close()
	errReport := p.salesReport.Close()
	if errLow != nil {
		return errLow
	}
	return errReport
}

func (p *KafkaPublisher) write(ctx context.Context, w messageWriter, key string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value})
}

func (p *KafkaPublisher) validRecipient() (string, error) {
	if p.recipient == "" {
		return "", fmt.Errorf("%w: admin address not set", port.ErrNoRecipient)
	}
	addr, err := mail.ParseAddress(p.recipient)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", port.ErrNoRecipient, p.recipient, err)
	}
	return addr.Address, nil
}

func toProductPayload(p domain.Product) productPayload {
	return productPayload{
		ID:                p.ID,
		Name:              p.Name,
		Price:             p.Price,
		StockQuantity:     p.StockQuantity,
		LowStockThreshold: p.LowStockThreshold,
	}
}
