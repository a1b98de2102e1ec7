package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/rhuss/chatbridge/pkg/api"
)

// RequestID ensures the context carries a request ID, keeping one set by
// the HTTP adapter from X-Request-ID.
func RequestID() Middleware {
	return func(next ChatHandler) ChatHandler {
		return ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.CreateChat(ctx, req, w)
		})
	}
}

// NewRequestID returns a random 32-character hex ID.
func NewRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
