package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rhuss/chatbridge/pkg/auth"
	"github.com/rhuss/chatbridge/pkg/auth/apikey"
	"github.com/rhuss/chatbridge/pkg/auth/jwt"
	"github.com/rhuss/chatbridge/pkg/config"
	"github.com/rhuss/chatbridge/pkg/engine"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/provider/ollama"
	"github.com/rhuss/chatbridge/pkg/provider/openaicompat"
	"github.com/rhuss/chatbridge/pkg/provider/responses"
	"github.com/rhuss/chatbridge/pkg/storage/memory"
	"github.com/rhuss/chatbridge/pkg/storage/postgres"
	"github.com/rhuss/chatbridge/pkg/transport"
)

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	pc := provider.Config{
		BaseURL:          cfg.Provider.BaseURL,
		APIKey:           cfg.Provider.APIKey,
		Timeout:          cfg.Provider.Timeout,
		EmbeddingModel:   cfg.Provider.EmbeddingModel,
		ImageModel:       cfg.Provider.ImageModel,
		CaptureReasoning: cfg.Stream.CaptureReasoning,
	}
	switch cfg.Provider.Type {
	case "responses":
		return responses.New(pc)
	case "openaicompat":
		return openaicompat.New(pc)
	case "ollama":
		return ollama.New(pc)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Provider.Type)
	}
}

// buildStore returns nil when results are not kept.
func buildStore(ctx context.Context, cfg *config.Config) (transport.ResultStore, error) {
	switch cfg.Storage.Type {
	case "memory":
		slog.Info("storage enabled", "type", "memory", "max_size", cfg.Storage.MaxSize)
		return memory.New(cfg.Storage.MaxSize), nil
	case "postgres":
		s, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("storage enabled", "type", "postgres")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

func buildEngine(cfg *config.Config, p provider.Provider, store transport.ResultStore) (*engine.Engine, error) {
	return engine.New(p, store, engine.Config{
		DefaultModel:        cfg.Provider.DefaultModel,
		CaptureReasoning:    cfg.Stream.CaptureReasoning,
		RepairToolArguments: cfg.Stream.RepairToolArguments,
	})
}

// buildAuth returns the auth middleware, or nil for auth type "none".
func buildAuth(cfg *config.Config) (func(http.Handler) http.Handler, error) {
	chain := &auth.Chain{Default: auth.No}

	switch cfg.Auth.Type {
	case "none":
		if cfg.Auth.RateLimit.RequestsPerMinute == 0 && len(cfg.Auth.RateLimit.Tiers) == 0 {
			return nil, nil
		}
		chain.Default = auth.Yes
	case "apikey":
		entries := make([]apikey.Entry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			id := auth.Identity{Subject: k.Subject, ServiceTier: k.ServiceTier}
			if k.TenantID != "" {
				id.Metadata = map[string]string{"tenant_id": k.TenantID}
			}
			entries = append(entries, apikey.Entry{Key: k.Key, Identity: id})
		}
		chain.Authenticators = append(chain.Authenticators, apikey.New(entries))
	case "jwt":
		j := cfg.Auth.JWT
		a, err := jwt.New(jwt.Config{
			Issuer:       j.Issuer,
			Audience:     j.Audience,
			Secret:       []byte(j.Secret),
			JWKSURL:      j.JWKSURL,
			SubjectClaim: j.SubjectClaim,
			TenantClaim:  j.TenantClaim,
			ScopesClaim:  j.ScopesClaim,
			TierClaim:    j.TierClaim,
		})
		if err != nil {
			return nil, err
		}
		chain.Authenticators = append(chain.Authenticators, a)
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Auth.Type)
	}

	var limiter auth.RateLimiter
	if rl := cfg.Auth.RateLimit; rl.RequestsPerMinute > 0 || len(rl.Tiers) > 0 {
		limiter = auth.NewWindowLimiter(rl.Tiers, rl.RequestsPerMinute)
	}

	bypass := auth.DefaultBypassPaths
	if m := cfg.Observability.Metrics; m.Enabled && m.Port == 0 && m.Path != "/metrics" {
		bypass = append([]string{m.Path}, bypass...)
	}
	slog.Info("auth enabled", "type", cfg.Auth.Type, "rate_limit", limiter != nil)
	return auth.Middleware(chain, limiter, bypass), nil
}
