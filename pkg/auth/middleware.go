package auth

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/debug"
	"github.com/rhuss/chatbridge/pkg/observability"
	"github.com/rhuss/chatbridge/pkg/storage"
	"github.com/rhuss/chatbridge/pkg/transport"
)

// DefaultBypassPaths skip authentication.
var DefaultBypassPaths = []string{"/healthz", "/readyz", "/metrics"}

// Middleware authenticates every request not in bypass. Rejections are
// written as API errors and counted by reason. limiter may be nil.
func Middleware(chain *Chain, limiter RateLimiter, bypass []string) func(http.Handler) http.Handler {
	bypass = slices.Clone(bypass)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(bypass, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			res := chain.Authenticate(r.Context(), r)
			if res.Decision != Yes || res.Identity == nil {
				reason := "missing"
				if _, ok := BearerToken(r); ok {
					reason = "invalid"
				}
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", res.Err,
				)
				observability.AuthRejectedTotal.WithLabelValues(reason).Inc()
				transport.WriteAPIError(w, api.NewUnauthorizedError("authentication required"))
				return
			}

			id := res.Identity
			if id.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				transport.WriteAPIError(w, api.NewServerError("internal authentication error"))
				return
			}
			debug.Log("auth", "authenticated", "subject", id.Subject, "path", r.URL.Path)

			if limiter != nil {
				if err := limiter.Allow(r.Context(), id); err != nil {
					slog.Warn("rate limit exceeded", "subject", id.Subject, "tier", id.ServiceTier)
					observability.AuthRejectedTotal.WithLabelValues("rate_limited").Inc()
					transport.WriteAPIError(w, api.NewTooManyRequestsError("rate limit exceeded"))
					return
				}
			}

			ctx := SetIdentity(r.Context(), id)
			if tenant := id.TenantID(); tenant != "" {
				ctx = storage.SetTenant(ctx, tenant)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
