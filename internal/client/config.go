package client

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
)

const (
	defaultServerAddress = "127.0.0.1:8080"
	defaultReadTimeout   = 15 * time.Second
	defaultDialTimeout   = 5 * time.Second
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=127.0.0.1:8080"`
	// ReadTimeout bounds the silence tolerated by the receive path.
	// Zero disables it.
	ReadTimeout time.Duration `env:"READ_TIMEOUT,default=15s"`
	DialTimeout time.Duration `env:"DIAL_TIMEOUT,default=5s"`
	LogLevel    string        `env:"LOG_LEVEL,default=WARN"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		ServerAddress: defaultServerAddress,
		ReadTimeout:   defaultReadTimeout,
		DialTimeout:   defaultDialTimeout,
		LogLevel:      "WARN",
	}
}

// LoadConfig reads the client configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("client config: %w", err)
	}
	return sanitizeConfig(cfg), nil
}

func sanitizeConfig(cfg Config) Config {
	if cfg.ServerAddress == "" {
		cfg.ServerAddress = defaultServerAddress
	}
	if cfg.ReadTimeout < 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return cfg
}
