package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	ServiceName = "stockcart"

	EnvConfigPath = "STOCKCART_CONFIG"

	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	LogLevel      string              `yaml:"log_level"`
	HTTPAddr      string              `yaml:"http_addr"`
	GRPCAddr      string              `yaml:"grpc_addr"`
	Store         StoreConfig         `yaml:"store"`
	MySQL         MySQLConfig         `yaml:"mysql"`
	Redis         RedisConfig         `yaml:"redis"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Report        ReportConfig        `yaml:"report"`
	Otel          OtelConfig          `yaml:"otel"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	// Seed provisions products into the memory store at startup.
	Seed []SeedProduct `yaml:"seed"`
}

type SeedProduct struct {
	Name              string `yaml:"name"`
	Price             string `yaml:"price"`
	Stock             int    `yaml:"stock"`
	LowStockThreshold int    `yaml:"low_stock_threshold"`
}

type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type KafkaConfig struct {
	Brokers          []string      `yaml:"brokers"`
	LowStockTopic    string        `yaml:"low_stock_topic"`
	SalesReportTopic string        `yaml:"sales_report_topic"`
	BatchTimeout     time.Duration `yaml:"batch_timeout"`
}

type NotificationsConfig struct {
	AdminAddress string        `yaml:"admin_address"`
	Workers      int           `yaml:"workers"`
	QueueSize    int           `yaml:"queue_size"`
	Cooldown     time.Duration `yaml:"cooldown"`
}

type ReportConfig struct {
	Timezone string `yaml:"timezone"`
}

type OtelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
		Store:    StoreConfig{Driver: DriverMySQL},
		MySQL: MySQLConfig{
			DSN:             "root:root@tcp(localhost:3306)/stockcart?parseTime=true",
			MaxOpenConns:    100,
			MaxIdleConns:    20,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			PoolSize: 20,
		},
		Kafka: KafkaConfig{
			LowStockTopic:    "notifications.low-stock",
			SalesReportTopic: "notifications.sales-report",
			BatchTimeout:     10 * time.Millisecond,
		},
		Notifications: NotificationsConfig{
			Workers:   2,
			QueueSize: 1000,
			Cooldown:  15 * time.Minute,
		},
		Report: ReportConfig{Timezone: "UTC"},
	}
}

// Load reads the YAML file at path over the defaults (an empty path skips
// the file), applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by STOCKCART_CONFIG, if any.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

func (c *Config) applyEnv() {
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.HTTPAddr, "HTTP_ADDR")
	setString(&c.GRPCAddr, "GRPC_ADDR")
	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.MySQL.DSN, "MYSQL_DSN")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Notifications.AdminAddress, "ADMIN_EMAIL")
	setString(&c.Otel.Endpoint, "OTEL_ENDPOINT")

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = c.Kafka.Brokers[:0]
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Kafka.Brokers = append(c.Kafka.Brokers, b)
			}
		}
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverMySQL:
		if c.MySQL.DSN == "" {
			errs = append(errs, errors.New("mysql.dsn is required for the mysql store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be %q or %q", c.Store.Driver, DriverMySQL, DriverMemory))
	}

	for i, p := range c.Store.Seed {
		if p.Name == "" || p.Stock < 0 || p.LowStockThreshold < 0 {
			errs = append(errs, fmt.Errorf("store.seed[%d]: name required, stock and threshold non-negative", i))
		}
		if _, err := decimal.NewFromString(p.Price); err != nil {
			errs = append(errs, fmt.Errorf("store.seed[%d].price: %w", i, err))
		}
	}

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr cannot be empty"))
	}
	if c.Notifications.Workers < 1 {
		errs = append(errs, errors.New("notifications.workers must be at least 1"))
	}
	if c.Notifications.QueueSize < 1 {
		errs = append(errs, errors.New("notifications.queue_size must be at least 1"))
	}
	if c.Notifications.Cooldown < 0 {
		errs = append(errs, errors.New("notifications.cooldown cannot be negative"))
	}
	if len(c.Kafka.Brokers) > 0 && (c.Kafka.LowStockTopic == "" || c.Kafka.SalesReportTopic == "") {
		errs = append(errs, errors.New("kafka topics cannot be empty when brokers are set"))
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("report.timezone: %w", err))
	}

	return errors.Join(errs...)
}

// Location returns the report timezone; Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Report.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
