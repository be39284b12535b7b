package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/app"
	"github.com/rl1809/stockcart/internal/config"
	"github.com/rl1809/stockcart/internal/platform/observability"
)

const runTimeout = time.Minute

// sales_report publishes the daily sales summary for one calendar day,
// yesterday by default. Meant to run from cron shortly after midnight; a
// failed run exits non-zero.
func main() {
	date := flag.String("date", "", "day to report, YYYY-MM-DD (default yesterday)")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(config.ServiceName+"-report", cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	err = run(ctx, cfg, logger, *date, time.Now())
	cancel()

	if err != nil {
		logger.Error("daily sales report failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, date string, now time.Time) error {
	day, err := reportDay(date, cfg.Location(), now)
	if err != nil {
		return err
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer container.Shutdown()

	if _, err := container.Reports.PublishDailySales(ctx, day); err != nil {
		return err
	}
	return nil
}

// reportDay resolves -date in loc, defaulting to the day before now.
func reportDay(date string, loc *time.Location, now time.Time) (time.Time, error) {
	if date == "" {
		return now.In(loc).AddDate(0, 0, -1), nil
	}
	day, err := time.ParseInLocation(time.DateOnly, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid -date %q: %w", date, err)
	}
	return day, nil
}
