// config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"order-pipeline"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	StoreDriver         string        `envconfig:"STORE_DRIVER" default:"mongo"`
	MongoURI            string        `envconfig:"MONGO_URI" default:"mongodb://host.docker.internal:27017"`
	MongoDBName         string        `envconfig:"MONGO_DB_NAME" default:"order_pipeline"`
	MongoConnectTimeout time.Duration `envconfig:"MONGO_CONNECT_TIMEOUT" default:"10s"`

	CatalogURL     string        `envconfig:"CATALOG_URL" default:"http://host.docker.internal:8001"`
	CatalogTimeout time.Duration `envconfig:"CATALOG_TIMEOUT" default:"3s"`

	// Empty disables event publishing and the order_placed consumer.
	RabbitURL         string `envconfig:"RABBIT_URL"`
	AutoStartTracking bool   `envconfig:"AUTO_START_TRACKING" default:"false"`

	// Empty keeps Idempotency-Key records in process with the memory driver and
	// disables replay with mongo.
	RedisURL       string        `envconfig:"REDIS_URL"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	// Empty disables authentication.
	AuthJWTSecret string `envconfig:"AUTH_JWT_SECRET"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	StageAdvanceAttempts int `envconfig:"STAGE_ADVANCE_ATTEMPTS" default:"5"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.CatalogTimeout <= 0 {
		return fmt.Errorf("CATALOG_TIMEOUT must be positive")
	}
	if c.StageAdvanceAttempts < 1 {
		return fmt.Errorf("STAGE_ADVANCE_ATTEMPTS must be at least 1")
	}
	c.CatalogURL = strings.TrimRight(c.CatalogURL, "/")
	return nil
}

func (c *Config) EventsEnabled() bool      { return c.RabbitURL != "" }
func (c *Config) IdempotencyEnabled() bool { return c.RedisURL != "" }
func (c *Config) AuthEnabled() bool        { return c.AuthJWTSecret != "" }
func (c *Config) TracingEnabled() bool     { return c.OTLPEndpoint != "" }
