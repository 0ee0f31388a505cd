package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration shared by the API server and the CLI.
type Config struct {
	Addr            string        `env:"CALC_ADDR" envDefault:":8080"`
	ServiceName     string        `env:"OTEL_SERVICE_NAME" envDefault:"transcript-calculator"`
	ShutdownTimeout time.Duration `env:"CALC_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	Slot            string        `env:"CALC_SLOT" envDefault:"default"`

	Log       Log
	Telemetry Telemetry
	Store     Store
	Sessions  Sessions
}

// Sessions bounds the API server's live sessions. Zero disables a limit.
type Sessions struct {
	IdleTimeout   time.Duration `env:"CALC_SESSION_IDLE_TIMEOUT" envDefault:"30m"`
	SweepInterval time.Duration `env:"CALC_SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	Max           int           `env:"CALC_MAX_SESSIONS" envDefault:"1000"`
}

type Log struct {
	Level       string `env:"CALC_LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"CALC_LOG_DEVELOPMENT" envDefault:"false"`
}

// Telemetry toggles the OTLP exporters. They read their endpoints from the
// standard OTEL_EXPORTER_OTLP_* variables.
type Telemetry struct {
	Traces  bool `env:"CALC_OTLP_TRACES" envDefault:"false"`
	Metrics bool `env:"CALC_OTLP_METRICS" envDefault:"false"`
	Logs    bool `env:"CALC_OTLP_LOGS" envDefault:"false"`
}

// Store selects the last-value store.
type Store struct {
	Driver        string        `env:"CALC_STORE" envDefault:"memory"`
	Path          string        `env:"CALC_STORE_PATH" envDefault:".calc"`
	RedisAddr     string        `env:"CALC_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"CALC_REDIS_PASSWORD"`
	RedisDB       int           `env:"CALC_REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"CALC_REDIS_PREFIX" envDefault:"calc:last:"`
	RedisTTL      time.Duration `env:"CALC_REDIS_TTL" envDefault:"0s"`
}

// Load reads .env when present and parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads environment variables from .env when present.
// Existing process environment variables are not overridden.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
