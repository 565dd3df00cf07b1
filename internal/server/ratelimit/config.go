package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// Rule limits one method on a family of paths. Pattern segments equal to "*" match any
// single path segment, so "/sessions/*/report" shares one bucket across all sessions.
type Rule struct {
	Pattern string
	Method  string
	Limit   int           // Maximum requests per window (0 = unlimited)
	Window  time.Duration // Time window
	Burst   int           // Bucket capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTTL         time.Duration // Buckets unused for this long are dropped
	Allowlist       map[string]bool
	Denylist        map[string]bool
	Rules           []Rule
}

// DefaultConfig returns the limits used when no environment overrides are set
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Allowlist:       map[string]bool{},
		Denylist:        map[string]bool{},
		Rules:           DefaultRules(0),
	}
}

// DefaultRules returns the per-endpoint limits. triggersPerMinute overrides the report
// trigger limit when positive.
func DefaultRules(triggersPerMinute int) []Rule {
	trigger := Rule{Pattern: "/sessions/*/report", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5}
	if triggersPerMinute > 0 {
		trigger = Rule{Pattern: trigger.Pattern, Method: trigger.Method, Limit: triggersPerMinute, Window: time.Minute}
	}
	return []Rule{
		// Generation calls a paid model endpoint
		trigger,
		// Status polling
		{Pattern: "/sessions/*/report", Method: "GET", Limit: 120, Window: time.Minute, Burst: 20},
		{Pattern: "/health", Method: "GET", Limit: 0},
	}
}

// LoadConfig builds a configuration from DefaultConfig and RATE_LIMIT_* variables.
// lookup is os.LookupEnv outside tests.
func LoadConfig(lookup func(string) (string, bool), triggersPerMinute int) *Config {
	cfg := DefaultConfig()
	cfg.Rules = DefaultRules(triggersPerMinute)

	if v, ok := lookup("RATE_LIMIT_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}
	if v, ok := lookup("RATE_LIMIT_DEFAULT_LIMIT"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DefaultLimit = n
		}
	}
	for key, dst := range map[string]*time.Duration{
		"RATE_LIMIT_DEFAULT_WINDOW":   &cfg.DefaultWindow,
		"RATE_LIMIT_CLEANUP_INTERVAL": &cfg.CleanupInterval,
	} {
		if v, ok := lookup(key); ok {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				*dst = d
			}
		}
	}
	if v, ok := lookup("RATE_LIMIT_ALLOWLIST"); ok {
		cfg.Allowlist = parseIPList(v)
	}
	if v, ok := lookup("RATE_LIMIT_DENYLIST"); ok {
		cfg.Denylist = parseIPList(v)
	}
	return cfg
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
