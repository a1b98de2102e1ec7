// Package apikey authenticates bearer tokens against a static set of API
// keys. Only SHA-256 hashes of the keys are held in memory.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"maps"
	"net/http"

	"github.com/rhuss/chatbridge/pkg/auth"
)

// Entry binds a plaintext key to the identity it authenticates.
type Entry struct {
	Key      string
	Identity auth.Identity
}

type hashedEntry struct {
	hash     [sha256.Size]byte
	identity auth.Identity
}

// Authenticator checks bearer tokens against known key hashes.
type Authenticator struct {
	entries []hashedEntry
}

// New hashes the keys of entries. Entries with an empty key are ignored.
func New(entries []Entry) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		a.entries = append(a.entries, hashedEntry{
			hash:     sha256.Sum256([]byte(e.Key)),
			identity: e.Identity,
		})
	}
	return a
}

// Len returns the number of configured keys.
func (a *Authenticator) Len() int { return len(a.entries) }

// Authenticate abstains without a bearer token and votes No for unknown
// keys. Every entry is compared so the lookup time does not depend on
// which key matched.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	token, ok := auth.BearerToken(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if token == "" {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	sum := sha256.Sum256([]byte(token))
	match := -1
	for i, e := range a.entries {
		if subtle.ConstantTimeCompare(sum[:], e.hash[:]) == 1 {
			match = i
		}
	}
	if match < 0 {
		return auth.Result{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	id := a.entries[match].identity
	id.Metadata = maps.Clone(id.Metadata)
	return auth.Result{Decision: auth.Yes, Identity: &id}
}
