package server

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
)

const (
	defaultListenAddr      = "127.0.0.1:8080"
	defaultMaxMessageSize  = 4096
	defaultRefillInterval  = time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultLogLevel        = "INFO"
	defaultOrigin          = "http://localhost:8081"
)

// Config holds the relay settings. Fields tagged with env are read from the
// process environment by LoadConfig.
type Config struct {
	// ListenAddr is the TCP address of the line relay.
	ListenAddr string `env:"LISTEN_ADDR,default=127.0.0.1:8080"`
	// HTTPAddr enables the health routes and the WebSocket gateway when set.
	HTTPAddr string `env:"HTTP_ADDR"`
	// OriginList is the comma separated form of AllowedOrigins.
	OriginList      string        `env:"ALLOWED_ORIGINS,default=http://localhost:8081"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	RateLimitBurst  int           `env:"RATE_LIMIT_BURST,default=0"`
	RateLimitRefill time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`

	// AllowedOrigins lists the origins accepted by the WebSocket gateway.
	// "*" accepts any origin.
	AllowedOrigins []string
}

// RateLimitConfig defines the parameters for per-peer message rate limiting.
// A zero Burst disables limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// RateLimit returns the rate limiting parameters of the configuration.
func (c Config) RateLimit() RateLimitConfig {
	return RateLimitConfig{Burst: c.RateLimitBurst, RefillInterval: c.RateLimitRefill}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := sanitizeConfig(Config{AllowedOrigins: []string{defaultOrigin}})
	return &cfg
}

// LoadConfig reads the configuration from environment variables and falls
// back to defaults for anything unset or invalid.
func LoadConfig() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("server config: %w", err)
	}
	if cfg.OriginList != "" {
		cfg.AllowedOrigins = parseOrigins(cfg.OriginList)
	}
	return sanitizeConfig(cfg), nil
}

func sanitizeConfig(cfg Config) Config {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.RateLimitBurst < 0 {
		cfg.RateLimitBurst = 0
	}
	if cfg.RateLimitRefill <= 0 {
		cfg.RateLimitRefill = defaultRefillInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
