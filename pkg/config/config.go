// Package config provides unified configuration for the chatbridge gateway.
//
// Configuration is loaded in layers:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (CHATBRIDGE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the chatbridge gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Provider      ProviderConfig      `yaml:"provider"`
	Stream        StreamConfig        `yaml:"stream"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// ProviderConfig selects and configures the inference backend.
type ProviderConfig struct {
	// Type is "responses", "openaicompat" or "ollama".
	Type           string        `yaml:"type"`
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	APIKeyFile     string        `yaml:"api_key_file"`
	DefaultModel   string        `yaml:"default_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	ImageModel     string        `yaml:"image_model"`
	Timeout        time.Duration `yaml:"timeout"` // 0 = no timeout
}

// StreamConfig tunes stream aggregation.
type StreamConfig struct {
	CaptureReasoning    bool `yaml:"capture_reasoning"`
	RepairToolArguments bool `yaml:"repair_tool_arguments"`
}

// StorageConfig selects the result store.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // memory store bound, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`
	MaxConns       int32  `yaml:"max_conns"` // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"` // "none", "apikey" or "jwt"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"`
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key.
type APIKeyConfig struct {
	Key         string `yaml:"key" json:"key"`
	KeyFile     string `yaml:"key_file" json:"key_file"`
	Subject     string `yaml:"subject" json:"subject"`
	TenantID    string `yaml:"tenant_id" json:"tenant_id"`
	ServiceTier string `yaml:"service_tier" json:"service_tier"`
}

// JWTConfig configures bearer JWT verification.
type JWTConfig struct {
	Issuer       string `yaml:"issuer"`
	Audience     string `yaml:"audience"`
	Secret       string `yaml:"secret"`
	SecretFile   string `yaml:"secret_file"`
	JWKSURL      string `yaml:"jwks_url"`
	SubjectClaim string `yaml:"subject_claim"`
	TenantClaim  string `yaml:"tenant_claim"`
	ScopesClaim  string `yaml:"scopes_claim"`
	TierClaim    string `yaml:"tier_claim"`
}

// RateLimitConfig limits requests per caller and minute. Zero disables it.
type RateLimitConfig struct {
	RequestsPerMinute int            `yaml:"requests_per_minute"`
	Tiers             map[string]int `yaml:"tiers"`
}

// LoggingConfig controls the log level and debug categories. The
// CHATBRIDGE_LOG_LEVEL and CHATBRIDGE_DEBUG variables take precedence.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: INFO
	Debug  string `yaml:"debug"`  // comma separated categories
	Format string `yaml:"format"` // "text" or "json"
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus endpoint settings. With Port 0 metrics are
// served on the API listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
	Port    int    `yaml:"port"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			MaxBodySize:     10 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Provider: ProviderConfig{
			Type: "openaicompat",
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
