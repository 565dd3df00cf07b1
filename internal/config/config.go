// Package config provides configuration loading and validation for the report agent.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/session-report/internal/llm"
)

// Store kinds
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config represents the agent configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults, environment variables or CLI flags.
type Config struct {
	Generator GeneratorConfig `json:"generator" yaml:"generator"`
	Retry     RetryConfig     `json:"retry" yaml:"retry"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Auth      JWTConfig       `json:"auth" yaml:"auth"`

	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print detailed debug information
}

// GeneratorConfig selects the text-generation provider
type GeneratorConfig struct {
	Provider    string  `json:"provider,omitempty" yaml:"provider,omitempty" validate:"omitempty,oneof=gemini openai"`
	Model       string  `json:"model,omitempty" yaml:"model,omitempty"`                           // Overrides the advanced-tier model
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"` // OpenAI-compatible endpoint
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Temperature float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" validate:"gte=0,lte=2"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" validate:"gte=0"`
}

// RetryConfig bounds generator calls
type RetryConfig struct {
	MaxAttempts    int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" validate:"gte=0,lte=10"`
	BackoffMillis  int `json:"backoff_ms,omitempty" yaml:"backoff_ms,omitempty" validate:"gte=0"`
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"gte=0"`
}

// StoreConfig selects where sessions and generation records live
type StoreConfig struct {
	Kind        string `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=postgres sqlite memory"`
	DatabaseURL string `json:"database_url,omitempty" yaml:"database_url,omitempty"` // PostgreSQL connection URL
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string   `json:"addr,omitempty" yaml:"addr,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
	// RequestsPerMinute caps report triggers per client; 0 uses the limiter defaults
	RequestsPerMinute int `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty" validate:"gte=0"`
}

// Default returns the configuration used when nothing else is provided
func Default() Config {
	return Config{
		Generator: GeneratorConfig{
			Provider:    string(llm.ProviderGemini),
			Temperature: 0.2,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			BackoffMillis:  1000,
			TimeoutSeconds: 180,
		},
		Store: StoreConfig{
			Kind:       StoreSQLite,
			SQLitePath: "session_reports.db",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Auth: JWTConfig{
			ExpirationHours: 24,
		},
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from environment variables. lookup is os.LookupEnv outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
		*dst = n
		return nil
	}

	str("REPORT_GENERATOR_PROVIDER", &c.Generator.Provider)
	str("REPORT_GENERATOR_MODEL", &c.Generator.Model)
	str("REPORT_GENERATOR_BASE_URL", &c.Generator.BaseURL)
	switch llm.Provider(c.Generator.Provider) {
	case llm.ProviderOpenAI:
		str("OPENAI_API_KEY", &c.Generator.APIKey)
	default:
		str("GEMINI_API_KEY", &c.Generator.APIKey)
	}
	str("REPORT_GENERATOR_API_KEY", &c.Generator.APIKey)

	str("REPORT_STORE", &c.Store.Kind)
	str("DATABASE_URL", &c.Store.DatabaseURL)
	str("SQLITE_PATH", &c.Store.SQLitePath)
	str("REPORT_SERVER_ADDR", &c.Server.Addr)
	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}
	str("JWT_SECRET", &c.Auth.Secret)

	for key, dst := range map[string]*int{
		"REPORT_RETRY_MAX_ATTEMPTS":    &c.Retry.MaxAttempts,
		"REPORT_RETRY_BACKOFF_MS":      &c.Retry.BackoffMillis,
		"REPORT_RETRY_TIMEOUT_SECONDS": &c.Retry.TimeoutSeconds,
		"JWT_EXPIRATION_HOURS":         &c.Auth.ExpirationHours,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
// Note: This doesn't check for the API key or JWT secret since only some commands need them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.Store.Kind == StorePostgres && c.Store.DatabaseURL == "" {
		return fmt.Errorf("config error: 'store.database_url' is required for the postgres store")
	}
	if c.Store.Kind == StoreSQLite && c.Store.SQLitePath == "" {
		return fmt.Errorf("config error: 'store.sqlite_path' is required for the sqlite store")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
// This is used to apply config file values over built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	mergeString(&result.Generator.Provider, defaults.Generator.Provider)
	mergeString(&result.Generator.Model, defaults.Generator.Model)
	mergeString(&result.Generator.BaseURL, defaults.Generator.BaseURL)
	mergeString(&result.Generator.APIKey, defaults.Generator.APIKey)
	if result.Generator.Temperature == 0 {
		result.Generator.Temperature = defaults.Generator.Temperature
	}
	mergeInt(&result.Generator.MaxTokens, defaults.Generator.MaxTokens)

	mergeInt(&result.Retry.MaxAttempts, defaults.Retry.MaxAttempts)
	mergeInt(&result.Retry.BackoffMillis, defaults.Retry.BackoffMillis)
	mergeInt(&result.Retry.TimeoutSeconds, defaults.Retry.TimeoutSeconds)

	mergeString(&result.Store.Kind, defaults.Store.Kind)
	mergeString(&result.Store.DatabaseURL, defaults.Store.DatabaseURL)
	mergeString(&result.Store.SQLitePath, defaults.Store.SQLitePath)

	mergeString(&result.Server.Addr, defaults.Server.Addr)
	if len(result.Server.AllowedOrigins) == 0 {
		result.Server.AllowedOrigins = defaults.Server.AllowedOrigins
	}
	mergeInt(&result.Server.RequestsPerMinute, defaults.Server.RequestsPerMinute)

	mergeString(&result.Auth.Secret, defaults.Auth.Secret)
	mergeInt(&result.Auth.ExpirationHours, defaults.Auth.ExpirationHours)

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// RetryPolicy converts the retry section into the generator retry policy
func (c *Config) RetryPolicy() llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		BackoffStep: time.Duration(c.Retry.BackoffMillis) * time.Millisecond,
		Timeout:     time.Duration(c.Retry.TimeoutSeconds) * time.Second,
	}
}

// LLMConfig builds the generator configuration for the selected provider
func (c *Config) LLMConfig() *llm.Config {
	var cfg *llm.Config
	switch llm.Provider(c.Generator.Provider) {
	case llm.ProviderOpenAI:
		cfg = llm.DefaultOpenAIConfig()
	default:
		cfg = llm.DefaultGeminiConfig()
	}
	if c.Generator.Model != "" {
		cfg = cfg.WithModel(llm.TierAdvanced, c.Generator.Model)
	}
	if c.Generator.BaseURL != "" {
		cfg.BaseURL = c.Generator.BaseURL
	}
	if c.Generator.Temperature > 0 {
		cfg.Temperature = c.Generator.Temperature
	}
	if c.Generator.MaxTokens > 0 {
		cfg.MaxTokens = c.Generator.MaxTokens
	}
	return cfg
}

func mergeString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func mergeInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
