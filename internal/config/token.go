package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

// TokenConfig holds configuration for the local API bearer token.
type TokenConfig struct {
	Secret    string
	TTLHours  int
	Generated bool // Secret was generated for this process
}

// NewTokenConfig creates a token configuration from environment variables.
// It reads API_TOKEN_SECRET (generated when unset) and API_TOKEN_TTL_HOURS (default: 24).
func NewTokenConfig() (*TokenConfig, error) {
	cfg := &TokenConfig{Secret: os.Getenv("API_TOKEN_SECRET")}
	if cfg.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Secret = secret
		cfg.Generated = true
	}

	ttl := os.Getenv("API_TOKEN_TTL_HOURS")
	if ttl == "" {
		ttl = "24"
	}
	hours, err := strconv.Atoi(ttl)
	if err != nil {
		return nil, fmt.Errorf("invalid API_TOKEN_TTL_HOURS: %v", err)
	}
	cfg.TTLHours = hours

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize validates the configuration.
func (c *TokenConfig) normalize() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("API_TOKEN_SECRET must be at least 16 characters")
	}
	if c.TTLHours < 1 {
		return fmt.Errorf("API_TOKEN_TTL_HOURS must be at least 1 hour, got: %d", c.TTLHours)
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
