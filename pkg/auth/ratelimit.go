package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter decides whether an authenticated caller may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, id *Identity) error
}

// WindowLimiter allows a fixed number of requests per subject and service
// tier in each one-minute window. A limit of zero or less is unlimited.
type WindowLimiter struct {
	tiers      map[string]int
	defaultRPM int
	now        func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	start time.Time
	count int
}

// NewWindowLimiter creates a limiter. tiers maps service tier to requests
// per minute; other tiers get defaultRPM.
func NewWindowLimiter(tiers map[string]int, defaultRPM int) *WindowLimiter {
	return &WindowLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		now:        time.Now,
		windows:    make(map[string]*window),
	}
}

// Allow counts the request and returns ErrTooManyRequests once the
// caller's window is exhausted.
func (l *WindowLimiter) Allow(_ context.Context, id *Identity) error {
	tier := id.ServiceTier
	if tier == "" {
		tier = "default"
	}
	limit, ok := l.tiers[tier]
	if !ok {
		limit = l.defaultRPM
	}
	if limit <= 0 {
		return nil
	}

	key := tier + "/" + id.Subject
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	win, ok := l.windows[key]
	if !ok || now.Sub(win.start) >= time.Minute {
		l.windows[key] = &window{start: now, count: 1}
		return nil
	}
	win.count++
	if win.count > limit {
		return ErrTooManyRequests
	}
	return nil
}
