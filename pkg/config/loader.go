package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const envPrefix = "CHATBRIDGE_"

// Load builds the configuration from defaults, the config file, the
// environment and secret files, then validates it.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// discoverConfigFile returns the first of: configPath, CHATBRIDGE_CONFIG,
// ./config.yaml, /etc/chatbridge/config.yaml. An explicit path is returned
// even when it does not exist so the read fails loudly.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p
	}
	for _, p := range []string{"config.yaml", "/etc/chatbridge/config.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// loadYAMLFile merges the file into cfg; absent keys keep their values.
// Unknown keys are rejected. An empty file is accepted.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func envString(name string, dst *string) {
	if v := os.Getenv(envPrefix + name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring non-numeric environment value", "var", envPrefix+name, "value", v)
		return
	}
	*dst = n
}

func envBool(name string, dst *bool) {
	v := os.Getenv(envPrefix + name)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("ignoring non-boolean environment value", "var", envPrefix+name, "value", v)
		return
	}
	*dst = b
}

// applyEnvOverrides maps CHATBRIDGE_* variables onto cfg.
func applyEnvOverrides(cfg *Config) {
	envInt("PORT", &cfg.Server.Port)

	envString("PROVIDER", &cfg.Provider.Type)
	envString("BASE_URL", &cfg.Provider.BaseURL)
	envString("API_KEY", &cfg.Provider.APIKey)
	envString("MODEL", &cfg.Provider.DefaultModel)
	envString("EMBEDDING_MODEL", &cfg.Provider.EmbeddingModel)
	envString("IMAGE_MODEL", &cfg.Provider.ImageModel)

	envBool("CAPTURE_REASONING", &cfg.Stream.CaptureReasoning)
	envBool("REPAIR_TOOL_ARGUMENTS", &cfg.Stream.RepairToolArguments)

	envString("STORAGE", &cfg.Storage.Type)
	envInt("STORAGE_SIZE", &cfg.Storage.MaxSize)
	envString("POSTGRES_DSN", &cfg.Storage.Postgres.DSN)

	envString("AUTH_TYPE", &cfg.Auth.Type)
	envString("JWT_SECRET", &cfg.Auth.JWT.Secret)
	envString("JWT_ISSUER", &cfg.Auth.JWT.Issuer)
	envString("JWT_AUDIENCE", &cfg.Auth.JWT.Audience)
	envString("JWT_JWKS_URL", &cfg.Auth.JWT.JWKSURL)

	envInt("METRICS_PORT", &cfg.Observability.Metrics.Port)

	// CHATBRIDGE_API_KEYS holds a JSON array of key entries.
	if v := os.Getenv(envPrefix + "API_KEYS"); v != "" {
		var keys []APIKeyConfig
		if err := json.Unmarshal([]byte(v), &keys); err != nil {
			slog.Warn("ignoring malformed "+envPrefix+"API_KEYS", "error", err)
		} else if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}
}

// resolveFileReferences fills empty secret fields from their _file
// counterpart. An explicit value wins over the file.
func resolveFileReferences(cfg *Config) error {
	refs := []struct {
		name string
		file string
		dst  *string
	}{
		{"provider.api_key_file", cfg.Provider.APIKeyFile, &cfg.Provider.APIKey},
		{"storage.postgres.dsn_file", cfg.Storage.Postgres.DSNFile, &cfg.Storage.Postgres.DSN},
		{"auth.jwt.secret_file", cfg.Auth.JWT.SecretFile, &cfg.Auth.JWT.Secret},
	}
	for i := range cfg.Auth.APIKeys {
		k := &cfg.Auth.APIKeys[i]
		refs = append(refs, struct {
			name string
			file string
			dst  *string
		}{fmt.Sprintf("auth.api_keys[%d].key_file", i), k.KeyFile, &k.Key})
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.dst != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.name, err)
		}
		*ref.dst = val
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
