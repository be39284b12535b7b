package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/stockcart/internal/app"
	"github.com/rl1809/stockcart/internal/config"
	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/core/service"
)

const (
	initialStock  = 20
	totalRequests = 50
)

type productCreator interface {
	CreateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, productID int64) error
}

func main() {
	driver := flag.String("driver", config.DriverMemory, "store driver: memory or mysql")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Store.Driver = *driver
	cfg.Store.Seed = nil
	cfg.Kafka.Brokers = nil

	ctx := context.Background()
	container, err := app.NewContainer(ctx, cfg, zap.NewNop())
	if err != nil {
		log.Fatalf("failed to build container: %v", err)
	}
	defer container.Shutdown()
	container.Trigger.Start()

	creator, ok := container.Store.(productCreator)
	if !ok {
		log.Fatalf("store %T cannot provision products", container.Store)
	}
	product := &domain.Product{
		Name:              fmt.Sprintf("stress-%d", time.Now().UnixNano()),
		Price:             decimal.RequireFromString("9.99"),
		StockQuantity:     initialStock,
		LowStockThreshold: 5,
	}
	if err := creator.CreateProduct(ctx, product); err != nil {
		log.Fatalf("failed to create product: %v", err)
	}
	defer creator.DeleteProduct(ctx, product.ID)

	// Counters
	var successCount, soldOutCount, errorCount atomic.Int32

	// Spawn concurrent requests, one user each
	baseUser := time.Now().UnixNano() % 1_000_000_000
	var g errgroup.Group
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		userID := baseUser + int64(i)
		g.Go(func() error {
			_, err := container.Carts.AddToCart(ctx, userID, product.ID, 1)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				errorCount.Add(1)
			}
			return nil
		})
	}
	g.Wait()
	elapsed := time.Since(start)

	// Give the reserved units back so a MySQL run leaves no carts behind.
	for i := 0; i < totalRequests; i++ {
		container.Carts.ClearCart(ctx, baseUser+int64(i))
	}

	success, soldOut, failed := successCount.Load(), soldOutCount.Load(), errorCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Store:            %s\n", cfg.Store.Driver)
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Reserved:         %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Errors:           %d\n", failed)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && soldOut == totalRequests-initialStock {
		fmt.Printf("PASS: exactly %d reservations succeeded, %d sold out\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: expected %d reserved/%d sold out, got %d/%d (%d errors)\n",
			initialStock, totalRequests-initialStock, success, soldOut, failed)
	}

	p, err := container.Store.GetProduct(ctx, product.ID)
	if err != nil || p == nil {
		fmt.Printf("FAIL: could not reload product: %v\n", err)
		return
	}
	if p.StockQuantity == initialStock {
		fmt.Println("PASS: stock fully restored after clearing carts")
	} else {
		fmt.Printf("FAIL: expected stock %d after clearing carts, got %d\n", initialStock, p.StockQuantity)
	}
}
