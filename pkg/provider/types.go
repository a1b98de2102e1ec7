package provider

import "time"

// Capabilities declares what features the backend supports. The engine
// uses them to reject requests early.
type Capabilities struct {
	Streaming   bool
	ToolCalling bool
	Vision      bool
	Reasoning   bool
	Embeddings  bool
	Images      bool

	// MaxContextWindow is the maximum token count (0 = unknown).
	MaxContextWindow int
}

// ModelInfo holds information about a model served by the provider.
type ModelInfo struct {
	ID      string    `json:"id"`
	OwnedBy string    `json:"owned_by,omitempty"`
	Size    int64     `json:"size,omitempty"`
	Created time.Time `json:"created,omitempty"`
}

// Config holds the settings shared by the HTTP-based adapters.
type Config struct {
	// BaseURL is the backend URL without the API path
	// (e.g., "https://api.openai.com/v1" or "http://localhost:11434").
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds a single HTTP exchange. Zero means no timeout,
	// which is what streaming callers usually want.
	Timeout time.Duration

	// EmbeddingModel is used when an embedding request names no model.
	EmbeddingModel string

	// ImageModel is used when an image request names no model.
	ImageModel string

	// CaptureReasoning asks backends that can summarize their reasoning
	// to do so.
	CaptureReasoning bool
}
