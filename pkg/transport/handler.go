package transport

import (
	"context"

	"github.com/rhuss/chatbridge/pkg/api"
)

// ChatHandler processes one chat request. Non-streaming requests end with a
// single WriteResponse call; streaming requests emit events through
// WriteEvent, ending with a terminal event.
type ChatHandler interface {
	CreateChat(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error
}

// ChatHandlerFunc adapts an ordinary function to ChatHandler.
type ChatHandlerFunc func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error

// CreateChat calls f(ctx, req, w).
func (f ChatHandlerFunc) CreateChat(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
	return f(ctx, req, w)
}

// Embedder computes embeddings. Optional; without it the embeddings
// endpoint is not served.
type Embedder interface {
	Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error)
}

// ImageGenerator generates images from a prompt. Optional like Embedder.
type ImageGenerator interface {
	GenerateImages(ctx context.Context, req *api.ImageRequest) (*api.ImageResponse, error)
}

// ModelLister lists the models the backend offers.
type ModelLister interface {
	ListModels(ctx context.Context) (*api.ModelList, error)
}

// ListOptions controls pagination, filtering and ordering for ListResults.
type ListOptions struct {
	After  string // Cursor: return results after this ID.
	Before string // Cursor: return results before this ID.
	Limit  int    // Maximum number of results (default 20, max 100).
	Model  string // Only results produced by this model.
	Order  string // "asc" or "desc" (default "desc").
}

// Normalize applies the default limit and order.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.Limit > 100 {
		o.Limit = 100
	}
	if o.Order != "asc" {
		o.Order = "desc"
	}
	return o
}

// ResultList is one page of stored results.
type ResultList struct {
	Object  string              `json:"object"`
	Data    []*api.ChatResponse `json:"data"`
	HasMore bool                `json:"has_more"`
	FirstID string              `json:"first_id"`
	LastID  string              `json:"last_id"`
}

// ResultStore persists final chat results.
type ResultStore interface {
	// SaveResult stores a final response. Saving an existing ID fails with
	// storage.ErrConflict.
	SaveResult(ctx context.Context, resp *api.ChatResponse) error

	// GetResult returns a stored response or storage.ErrNotFound.
	GetResult(ctx context.Context, id string) (*api.ChatResponse, error)

	// DeleteResult removes a stored response or returns storage.ErrNotFound.
	DeleteResult(ctx context.Context, id string) error

	// ListResults returns a page of results for the tenant in ctx.
	ListResults(ctx context.Context, opts ListOptions) (*ResultList, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

// ResponseWriter abstracts streaming and non-streaming output.
//
// WriteEvent and WriteResponse are mutually exclusive on one writer, and
// no event may follow a terminal one.
type ResponseWriter interface {
	WriteEvent(ctx context.Context, event api.StreamEvent) error
	WriteResponse(ctx context.Context, resp *api.ChatResponse) error
	Flush() error
}
