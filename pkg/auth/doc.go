// Package auth authenticates gateway callers.
//
// Authenticators vote Yes (identity found), No (credentials present but
// invalid) or Abstain (not their credential type). A Chain asks each in
// turn and falls back to its Default when everyone abstains, so "no auth"
// is simply an empty chain with Default Yes.
//
// Middleware runs the chain per request, applies the optional rate limiter
// and puts the caller's tenant into the context for result store scoping.
package auth
