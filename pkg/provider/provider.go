package provider

import (
	"context"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/stream"
)

// Provider abstracts an LLM inference backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "responses", "ollama").
	Name() string

	// Capabilities returns what this provider supports.
	Capabilities() Capabilities

	// Chat performs non-streaming inference.
	Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error)

	// Stream starts streaming inference. The returned Source yields
	// decoded events; the caller must close it.
	Stream(ctx context.Context, req *api.ChatRequest) (stream.Source, error)

	// Embed computes embeddings for the request inputs.
	Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error)

	// ListModels returns available models from the backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Close releases provider resources.
	Close() error
}

// ImageGenerator is implemented by providers that can generate images.
// The engine checks for it with a type assertion.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, req *api.ImageRequest) (*api.ImageResponse, error)
}
