package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/stockcart/internal/adapter/messaging"
	"github.com/rl1809/stockcart/internal/adapter/storage"
	"github.com/rl1809/stockcart/internal/config"
	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/core/service"
	"github.com/rl1809/stockcart/internal/port"
)

type publisher interface {
	port.NotificationPublisher
	Close() error
}

// Container owns the infrastructure clients and the services built on
// them.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Store     port.Store
	Gate      port.NotificationGate
	Publisher port.NotificationPublisher

	Trigger  *service.LowStockTrigger
	Carts    *service.CartService
	Checkout *service.CheckoutService
	Reports  *service.ReportService

	db        *sql.DB
	redis     *redis.Client
	publisher publisher
}

func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	if err := c.setupStore(ctx); err != nil {
		c.Shutdown()
		return nil, err
	}
	if err := c.setupGate(ctx); err != nil {
		c.Shutdown()
		return nil, err
	}
	c.setupPublisher()

	c.Trigger = service.NewLowStockTrigger(c.Store, c.Gate, c.Publisher, service.LowStockConfig{
		Workers:   cfg.Notifications.Workers,
		QueueSize: cfg.Notifications.QueueSize,
		Cooldown:  cfg.Notifications.Cooldown,
	}, logger.Named("low-stock"))
	c.Carts = service.NewCartService(c.Store, c.Trigger, logger.Named("cart"))
	c.Checkout = service.NewCheckoutService(c.Store, logger.Named("checkout"))
	c.Reports = service.NewReportService(c.Store, c.Publisher, cfg.Location(), logger.Named("report"))

	return c, nil
}

func (c *Container) setupStore(ctx context.Context) error {
	switch c.Config.Store.Driver {
	case config.DriverMemory:
		mem := storage.NewMemoryAdapter()
		for _, seed := range c.Config.Store.Seed {
			p := &domain.Product{
				Name:              seed.Name,
				Price:             decimal.RequireFromString(seed.Price),
				StockQuantity:     seed.Stock,
				LowStockThreshold: seed.LowStockThreshold,
			}
			if err := mem.CreateProduct(ctx, p); err != nil {
				return fmt.Errorf("seed product %s: %w", seed.Name, err)
			}
		}
		c.Store = mem
		c.Logger.Info("using memory store", zap.Int("products", len(c.Config.Store.Seed)))
		return nil

	case config.DriverMySQL:
		db, err := sql.Open("mysql", c.Config.MySQL.DSN)
		if err != nil {
			return fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(c.Config.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(c.Config.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(c.Config.MySQL.ConnMaxLifetime)
		c.db = db

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping mysql: %w", err)
		}

		adapter := storage.NewMySQLAdapter(db)
		if c.Config.MySQL.AutoMigrate {
			if err := adapter.EnsureSchema(ctx); err != nil {
				return err
			}
		}
		c.Store = adapter
		c.Logger.Info("connected to mysql")
		return nil
	}
	return fmt.Errorf("unknown store driver %q", c.Config.Store.Driver)
}

func (c *Container) setupGate(ctx context.Context) error {
	if c.Config.Redis.Addr == "" {
		c.Logger.Warn("redis not configured, low-stock cooldown disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		PoolSize: c.Config.Redis.PoolSize,
	})
	c.redis = rdb
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	c.Gate = storage.NewRedisAdapter(rdb)
	c.Logger.Info("connected to redis")
	return nil
}

func (c *Container) setupPublisher() {
	if len(c.Config.Kafka.Brokers) == 0 {
		c.Logger.Warn("kafka not configured, notifications go to the log")
		c.publisher = messaging.NewLogPublisher(c.Logger.Named("notify"))
	} else {
		c.publisher = messaging.NewKafkaPublisher(messaging.KafkaConfig{
			Brokers:          c.Config.Kafka.Brokers,
			LowStockTopic:    c.Config.Kafka.LowStockTopic,
			SalesReportTopic: c.Config.Kafka.SalesReportTopic,
			BatchTimeout:     c.Config.Kafka.BatchTimeout,
		}, c.Config.Notifications.AdminAddress, c.Logger.Named("notify"))
	}
	c.Publisher = c.publisher
}

// Shutdown stops the trigger workers and releases every client. Safe to
// call on a partially built container.
func (c *Container) Shutdown() {
	if c.Trigger != nil {
		c.Trigger.Close()
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			c.Logger.Error("close publisher", zap.Error(err))
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.Logger.Error("close redis", zap.Error(err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.Logger.Error("close mysql", zap.Error(err))
		}
	}
}
