// Package config loads flowsim configuration from a YAML file, FLOWSIM_*
// environment variables and built-in defaults, in decreasing priority.
package config

import (
	"fmt"
	"time"

	"dario.cat/mergo"
)

// Config is the root configuration.
type Config struct {
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Approval   ApprovalConfig   `mapstructure:"approval" yaml:"approval"`
	Catalog    CatalogConfig    `mapstructure:"catalog" yaml:"catalog"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing" yaml:"tracing"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=memory sqlite mysql postgres"`
	// DSN is the file path for sqlite and the connection string otherwise.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// SimulationConfig bounds the simulated step delay.
type SimulationConfig struct {
	MinDelay time.Duration `mapstructure:"min_delay" yaml:"min_delay" validate:"min=0"`
	MaxDelay time.Duration `mapstructure:"max_delay" yaml:"max_delay" validate:"min=0"`
}

// ApprovalConfig chooses how approval steps are decided.
//
// Modes: always (approve everything), random (approve with probability
// Rate, seeded by Seed), reject (reject everything), llm (ask Provider).
type ApprovalConfig struct {
	Mode     string  `mapstructure:"mode" yaml:"mode" validate:"oneof=always random reject llm"`
	Rate     float64 `mapstructure:"rate" yaml:"rate" validate:"min=0,max=1"`
	Seed     int64   `mapstructure:"seed" yaml:"seed"`
	Provider string  `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=anthropic openai google"`
	Model    string  `mapstructure:"model" yaml:"model"`
	APIKey   string  `mapstructure:"api_key" yaml:"api_key,omitempty"`

	// Timeout and Retries bound each llm decision.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
	Retries int           `mapstructure:"retries" yaml:"retries" validate:"min=0,max=10"`
}

// CatalogConfig points at an optional HCL automation catalog. When File is
// empty the built-in catalog is used.
type CatalogConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// TracingConfig enables OpenTelemetry spans for simulation events.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Driver: "memory"},
		Simulation: SimulationConfig{
			MinDelay: 500 * time.Millisecond,
			MaxDelay: time.Second,
		},
		Approval: ApprovalConfig{Mode: "always", Rate: 0.9, Seed: 1, Timeout: 30 * time.Second, Retries: 2},
		Server:   ServerConfig{Addr: ":8080"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Override copies the non-zero fields of o over cfg. Zero values in o (an
// empty string, a zero duration, false) leave cfg unchanged, so callers
// can pass only the fields a command-line flag actually set.
func (cfg *Config) Override(o Config) error {
	if err := mergo.Merge(cfg, o, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to apply overrides: %w", err)
	}
	return nil
}
