// Package jwt authenticates bearer tokens that are signed JWTs.
//
// Tokens are verified with an HMAC secret (HS256/384/512), with RSA keys
// from a JWKS endpoint (RS256/384/512), or with either when both are
// configured. Issuer and audience are checked when set.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rhuss/chatbridge/pkg/auth"
	"github.com/rhuss/chatbridge/pkg/debug"
)

// Config configures the JWT authenticator.
type Config struct {
	Issuer   string
	Audience string

	// Secret verifies HMAC signed tokens.
	Secret []byte

	// JWKSURL serves the RSA keys for RSA signed tokens.
	JWKSURL  string
	CacheTTL time.Duration

	SubjectClaim string // default "sub"
	TenantClaim  string // default "tenant_id"
	ScopesClaim  string // default "scope"; space separated or array
	TierClaim    string // optional

	HTTPClient *http.Client
}

func (c *Config) applyDefaults() {
	if c.SubjectClaim == "" {
		c.SubjectClaim = "sub"
	}
	if c.TenantClaim == "" {
		c.TenantClaim = "tenant_id"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
}

// Authenticator verifies JWT bearer tokens.
type Authenticator struct {
	config  Config
	methods []string
	jwks    *jwksCache
}

// New creates an authenticator. At least one of Secret and JWKSURL is
// required.
func New(cfg Config) (*Authenticator, error) {
	if len(cfg.Secret) == 0 && cfg.JWKSURL == "" {
		return nil, errors.New("jwt: a secret or a JWKS URL is required")
	}
	cfg.applyDefaults()

	a := &Authenticator{config: cfg}
	if len(cfg.Secret) > 0 {
		a.methods = append(a.methods, "HS256", "HS384", "HS512")
	}
	if cfg.JWKSURL != "" {
		a.methods = append(a.methods, "RS256", "RS384", "RS512")
		a.jwks = newJWKSCache(cfg.JWKSURL, cfg.CacheTTL, cfg.HTTPClient)
	}
	return a, nil
}

// Authenticate abstains without a bearer token, votes No for any token
// that fails verification and Yes with the token's identity otherwise.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	raw, ok := auth.BearerToken(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if raw == "" {
		return auth.Result{Decision: auth.No, Err: errors.New("empty bearer token")}
	}

	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		return a.key(ctx, t)
	}, a.parserOptions()...)
	if err != nil {
		debug.Log("auth", "JWT rejected", "error", err)
		return auth.Result{Decision: auth.No, Err: fmt.Errorf("invalid JWT: %w", err)}
	}

	subject := claimString(claims, a.config.SubjectClaim)
	if subject == "" {
		return auth.Result{Decision: auth.No, Err: fmt.Errorf("JWT missing %q claim", a.config.SubjectClaim)}
	}

	id := &auth.Identity{
		Subject:  subject,
		Scopes:   claimList(claims, a.config.ScopesClaim),
		Metadata: map[string]string{},
	}
	if tenant := claimString(claims, a.config.TenantClaim); tenant != "" {
		id.Metadata["tenant_id"] = tenant
	}
	if a.config.TierClaim != "" {
		id.ServiceTier = claimString(claims, a.config.TierClaim)
	}
	return auth.Result{Decision: auth.Yes, Identity: id}
}

// key selects the verification key for t's signing method.
func (a *Authenticator) key(ctx context.Context, t *jwtlib.Token) (any, error) {
	switch t.Method.(type) {
	case *jwtlib.SigningMethodHMAC:
		if len(a.config.Secret) == 0 {
			return nil, errors.New("HMAC tokens are not accepted")
		}
		return a.config.Secret, nil
	case *jwtlib.SigningMethodRSA:
		if a.jwks == nil {
			return nil, errors.New("RSA tokens are not accepted")
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token missing kid header")
		}
		return a.jwks.key(ctx, kid)
	default:
		return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
	}
}

func (a *Authenticator) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods(a.methods),
		jwtlib.WithExpirationRequired(),
	}
	if a.config.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(a.config.Issuer))
	}
	if a.config.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(a.config.Audience))
	}
	return opts
}

func claimString(claims jwtlib.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// claimList reads a claim holding either "a b c" or ["a","b","c"].
func claimList(claims jwtlib.MapClaims, key string) []string {
	switch v := claims[key].(type) {
	case string:
		if f := strings.Fields(v); len(f) > 0 {
			return f
		}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
