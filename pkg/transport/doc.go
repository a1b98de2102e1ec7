// Package transport defines the handler contracts and the middleware chain
// between the chatbridge HTTP gateway and the engine.
//
// ChatHandler is the one operation every deployment has: turn a
// ChatRequest into either a complete ChatResponse or a sequence of stream
// events written to a ResponseWriter. ResultStore is optional and backs the
// result retrieval endpoints.
//
// Middleware wraps a ChatHandler. The built-ins recover panics, assign a
// request ID and log each request with log/slog. The HTTP adapter lives in
// the transport/http subpackage.
package transport
