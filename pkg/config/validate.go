package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks required fields and enumerations. All problems are
// reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxBodySize <= 0 {
		add("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize)
	}

	switch c.Provider.Type {
	case "responses", "openaicompat":
		if c.Provider.BaseURL == "" {
			add("provider.base_url is required for provider.type %q", c.Provider.Type)
		}
	case "ollama":
		// base_url defaults to the local daemon
	default:
		add("provider.type must be \"responses\", \"openaicompat\" or \"ollama\", got %q", c.Provider.Type)
	}
	if c.Provider.BaseURL != "" {
		if u, err := url.Parse(c.Provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("provider.base_url must be an absolute URL, got %q", c.Provider.BaseURL)
		}
	}
	if c.Provider.Timeout < 0 {
		add("provider.timeout must not be negative")
	}

	switch c.Storage.Type {
	case "memory":
		if c.Storage.MaxSize < 0 {
			add("storage.max_size must not be negative, got %d", c.Storage.MaxSize)
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			add("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\"")
		}
	default:
		add("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type)
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			add("auth.api_keys must not be empty when auth.type is \"apikey\"")
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" && k.KeyFile == "" {
				add("auth.api_keys[%d]: key or key_file is required", i)
			}
			if k.Subject == "" {
				add("auth.api_keys[%d].subject is required", i)
			}
		}
	case "jwt":
		j := c.Auth.JWT
		if j.Secret == "" && j.SecretFile == "" && j.JWKSURL == "" {
			add("auth.jwt requires secret, secret_file or jwks_url")
		}
	default:
		add("auth.type must be \"none\", \"apikey\" or \"jwt\", got %q", c.Auth.Type)
	}
	if c.Auth.RateLimit.RequestsPerMinute < 0 {
		add("auth.rate_limit.requests_per_minute must not be negative")
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "", "TRACE", "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		add("logging.level must be TRACE, DEBUG, INFO, WARN or ERROR, got %q", c.Logging.Level)
	}

	m := c.Observability.Metrics
	if m.Enabled && !strings.HasPrefix(m.Path, "/") {
		add("observability.metrics.path must start with \"/\", got %q", m.Path)
	}
	if m.Port < 0 || m.Port > 65535 || (m.Port != 0 && m.Port == c.Server.Port) {
		add("observability.metrics.port must be 0 or a free port other than server.port, got %d", m.Port)
	}

	return errors.Join(errs...)
}
