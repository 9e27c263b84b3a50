package server

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envPrefix is the prefix shared by all configuration environment variables,
// e.g. MESSENGER_PORT or MESSENGER_TOKEN_SECRET.
const envPrefix = "messenger"

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string        `envconfig:"PORT" default:":8080"`
	TokenSecret     string        `envconfig:"TOKEN_SECRET"`
	TokenValidity   time.Duration `envconfig:"TOKEN_VALIDITY" default:"24h"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize  int64         `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	SendBufferSize  int           `envconfig:"SEND_BUFFER_SIZE" default:"256"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// LoadConfig reads configuration from MESSENGER_* environment variables,
// falling back to defaults for anything unset, and sanitizes the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading configuration: %w", err)
	}
	return sanitizeConfig(cfg), nil
}

// DefaultConfig returns a sanitized configuration without consulting the
// environment. Used by tests and as a baseline for embedding callers.
func DefaultConfig() Config {
	return sanitizeConfig(Config{
		Port:            ":8080",
		TokenValidity:   24 * time.Hour,
		AllowedOrigins:  []string{"http://localhost:8080"},
		MaxMessageSize:  4096,
		SendBufferSize:  256,
		ShutdownTimeout: 10 * time.Second,
	})
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}

	if cfg.TokenValidity <= 0 {
		cfg.TokenValidity = 24 * time.Hour
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 256
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return cfg
}
