package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/rl1809/stockcart/internal/core/service")

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockcart",
		Name:      "operations_total",
		Help:      "Cart and checkout operations by outcome.",
	}, []string{"operation", "result"})

	lowStockNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stockcart",
		Name:      "low_stock_notifications_total",
		Help:      "Low-stock trigger requests by outcome.",
	}, []string{"outcome"})
)

// observe records the outcome of operation on span and in metrics, then
// ends the span.
func observe(span trace.Span, operation string, err error) {
	operationsTotal.WithLabelValues(operation, errorKind(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
