package config

import (
	"fmt"
	"os"
	"strconv"
)

// JWTConfig holds configuration for JWT token generation and validation.
type JWTConfig struct {
	Secret          string `json:"secret,omitempty" yaml:"secret,omitempty"`
	ExpirationHours int    `json:"expiration_hours,omitempty" yaml:"expiration_hours,omitempty" validate:"gte=0"`
}

// NewJWTConfig creates a JWT configuration from environment variables.
// It reads JWT_SECRET (required) and JWT_EXPIRATION_HOURS (default: 24).
func NewJWTConfig() (*JWTConfig, error) {
	cfg := JWTConfig{Secret: os.Getenv("JWT_SECRET"), ExpirationHours: 24}
	if v := os.Getenv("JWT_EXPIRATION_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %v", err)
		}
		cfg.ExpirationHours = hours
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Check reports whether the configuration can sign and verify tokens. The serve
// command calls it; offline commands never need a secret.
func (c *JWTConfig) Check() error {
	if c.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required but not set")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
