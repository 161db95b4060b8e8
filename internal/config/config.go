package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config is resolved from flags first, then environment variables on top.
type Config struct {
	RunAddress   string `env:"RUN_ADDRESS"`
	AuthUser     string `env:"AUTH_USER"`
	AuthPassword string `env:"AUTH_PASSWORD"`

	DatabaseDSN   string `env:"DATABASE_DSN"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	BackendAddress string        `env:"BACKEND_ADDRESS"`
	BackendToken   string        `env:"BACKEND_TOKEN"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT"`

	RefreshInterval time.Duration `env:"REFRESH_INTERVAL"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC"`
}

func New() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port to run the admin API")
	flag.StringVar(&cfg.AuthUser, "u", "admin", "basic auth user for mutating endpoints")
	flag.StringVar(&cfg.AuthPassword, "p", "admin", "basic auth password for mutating endpoints")
	flag.StringVar(&cfg.DatabaseDSN, "d", "", "postgres DSN for audit and outbox storage")
	flag.StringVar(&cfg.MigrationsDir, "m", "migrations", "goose migrations directory")
	flag.StringVar(&cfg.BackendAddress, "b", "http://localhost:8000", "order backend base URL")
	flag.StringVar(&cfg.BackendToken, "t", "", "bearer token for the order backend")
	flag.DurationVar(&cfg.BackendTimeout, "backend-timeout", 10*time.Second, "order backend request timeout")
	flag.DurationVar(&cfg.RefreshInterval, "refresh-interval", 5*time.Minute, "order snapshot auto refresh period")
	flag.StringVar(&cfg.KafkaTopic, "kafka-topic", "admin-audit", "kafka topic for relayed audit events")
	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if len(cfg.KafkaBrokers) == 0 {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	return cfg, nil
}
