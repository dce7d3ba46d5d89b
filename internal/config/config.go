// Package config loads process configuration from the environment, layered
// over struct defaults, mirroring the teacher's env/v11-driven Config.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

// Config holds all process configuration, populated from environment
// variables with a BRANCHGRAPH_ prefix plus an optional .env file.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"local"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Database      DatabaseConfig
	Server        ServerConfig
	Events        EventsConfig
	Observability OtelConfig
	Admin         AdminConfig
	Schema        SchemaConfig
}

// SchemaConfig points the Schema Cache at the descriptor file maintained by
// the external Schema Loader (spec §4.3 — the core never parses schema
// files itself, it only reloads this path on change).
type SchemaConfig struct {
	DescriptorPath string `env:"SCHEMA_DESCRIPTOR_PATH" envDefault:"schema.yaml"`
}

// DatabaseConfig holds the graph store's PostgreSQL connection settings —
// the "connection URL, credentials, database name" environment inputs named
// in spec §6.
type DatabaseConfig struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"branchgraph"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"branchgraph"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// ServerConfig holds the thin facade's HTTP listener settings.
type ServerConfig struct {
	Port            int           `env:"SERVER_PORT" envDefault:"8080"`
	Address         string        `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// EventsConfig tunes the Event Emitter's write-behind queue (spec §4.8).
type EventsConfig struct {
	BufferCapacity int           `env:"EVENTS_BUFFER_CAPACITY" envDefault:"4096"`
	FlushInterval  time.Duration `env:"EVENTS_FLUSH_INTERVAL" envDefault:"250ms"`
}

// AdminConfig carries the external-runner-only bootstrap inputs named in
// spec §6. InitialPasswordSeed is loaded here only; nothing in this
// repository reads it.
type AdminConfig struct {
	InitialPasswordSeed string `env:"ADMIN_INITIAL_PASSWORD_SEED" envDefault:""`
}

// Load reads configuration from environment variables, an optional
// .env/.env.local pair, and struct defaults. A missing required field — none
// are currently required, all have defaults — would surface as a Fatal-kind
// startup error, never a panic.
func Load(log *slog.Logger) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := &Config{}
	opts := env.Options{Prefix: "BRANCHGRAPH_"}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Server.Port),
		slog.String("db_host", cfg.Database.Host),
	)

	return cfg, nil
}
