package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`

	Capacity int    `envconfig:"PARKING_CAPACITY" default:"6"`
	Currency string `envconfig:"PARKING_CURRENCY" default:"TL"`

	StoreDriver         string        `envconfig:"STORE_DRIVER" default:"file"`
	LedgerPath          string        `envconfig:"LEDGER_PATH" default:"parking_fees.json"`
	LedgerFsync         bool          `envconfig:"LEDGER_FSYNC" default:"true"`
	LedgerMaxTries      uint          `envconfig:"LEDGER_APPEND_MAX_TRIES" default:"3"`
	LedgerRetryInterval time.Duration `envconfig:"LEDGER_RETRY_INTERVAL" default:"50ms"`
	DatabaseURL         string        `envconfig:"DATABASE_URL"`

	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"parking-ledger-service"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"http://localhost:4318"`
}

// Load reads an optional .env file and then the process environment. Values
// already set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("PARKING_CAPACITY must be positive, got %d", c.Capacity)
	}
	switch c.StoreDriver {
	case StoreDriverFile:
		if c.LedgerPath == "" {
			return errors.New("LEDGER_PATH is required for the file store")
		}
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
