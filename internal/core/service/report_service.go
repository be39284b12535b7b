package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

type ReportService struct {
	store     port.Store
	publisher port.NotificationPublisher
	loc       *time.Location
	logger    *zap.Logger
}

func NewReportService(store port.Store, publisher port.NotificationPublisher, loc *time.Location, logger *zap.Logger) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		store:     store,
		publisher: publisher,
		loc:       loc,
		logger:    logger,
	}
}

// DailySales summarises the sales recorded on day's calendar date.
func (s *ReportService) DailySales(ctx context.Context, day time.Time) (*domain.SalesReport, error) {
	d := day.In(s.loc)
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	sales, err := s.store.ListSalesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}

	report := &domain.SalesReport{
		From:    from,
		To:      to,
		Sales:   sales,
		Records: len(sales),
		Revenue: decimal.Zero,
	}
	for _, sale := range sales {
		report.UnitsSold += sale.Quantity
		report.Revenue = report.Revenue.Add(sale.TotalPrice)
	}
	return report, nil
}

func (s *ReportService) PublishDailySales(ctx context.Context, day time.Time) (*domain.SalesReport, error) {
	report, err := s.DailySales(ctx, day)
	if err != nil {
		return nil, err
	}
	if err := s.publisher.PublishSalesReport(ctx, *report); err != nil {
		return nil, fmt.Errorf("publish sales report: %w", err)
	}

	s.logger.Info("daily sales report published",
		zap.Time("from", report.From),
		zap.Int("records", report.Records),
		zap.Int("units", report.UnitsSold),
		zap.String("revenue", report.Revenue.StringFixed(2)))
	return report, nil
}
