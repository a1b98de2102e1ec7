package api

import (
	"encoding/json"
	"strings"
)

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// MessageRole represents the role of a message sender.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ContentPart is one part of multimodal user content. Type is "text" or
// "image"; images carry either a URL or base64 Data with a MediaType.
type ContentPart struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	Data      string `json:"data,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// Message is a single conversation turn.
//
// Plain text goes in Content. Parts is used instead when the message mixes
// text and images. Assistant messages may carry the ToolCalls the model
// requested; tool messages answer one of them via ToolCallID.
type Message struct {
	Role       MessageRole      `json:"role"`
	Content    string           `json:"content,omitempty"`
	Parts      []ContentPart    `json:"parts,omitempty"`
	ToolCalls  []ToolInvocation `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

// HasImages reports whether the message carries image content.
func (m Message) HasImages() bool {
	for _, p := range m.Parts {
		if p.Type == "image" {
			return true
		}
	}
	return false
}

// Text returns the message text, joining text parts when Content is empty.
func (m Message) Text() string {
	if m.Content != "" || len(m.Parts) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Tools
// ---------------------------------------------------------------------------

// ToolSpec describes a function the model may call.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      bool            `json:"strict,omitempty"`
}

// ToolChoice controls tool selection. Mode is "auto", "none" or
// "required"; a non-empty Name forces that specific function.
type ToolChoice struct {
	Mode string `json:"mode,omitempty"`
	Name string `json:"name,omitempty"`
}

// ToolInvocation is a complete tool call requested by the model. Arguments
// is the raw JSON argument document exactly as the provider produced it
// (or as repaired, when argument repair is enabled).
type ToolInvocation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ---------------------------------------------------------------------------
// Request
// ---------------------------------------------------------------------------

// ChatRequest is the provider-agnostic chat request.
type ChatRequest struct {
	Model       string      `json:"model"`
	Messages    []Message   `json:"messages"`
	Tools       []ToolSpec  `json:"tools,omitempty"`
	ToolChoice  *ToolChoice `json:"tool_choice,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
	TopP        *float64    `json:"top_p,omitempty"`
	MaxTokens   *int        `json:"max_tokens,omitempty"`
	Stop        []string    `json:"stop,omitempty"`
	User        string      `json:"user,omitempty"`

	// ReasoningEffort is passed through to reasoning models ("low",
	// "medium", "high"). Empty leaves the provider default.
	ReasoningEffort string `json:"reasoning_effort,omitempty"`

	// ReturnReasoning asks for reasoning text to be captured and returned
	// in ChatResponse.Reasoning.
	ReturnReasoning bool `json:"return_reasoning,omitempty"`

	// Stream selects SSE output at the gateway. Providers ignore it; the
	// engine picks Chat or Stream explicitly.
	Stream bool `json:"stream,omitempty"`
}

// ---------------------------------------------------------------------------
// Response
// ---------------------------------------------------------------------------

// FinishReason classifies why generation stopped.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonToolExecution FinishReason = "tool_execution"
	FinishReasonContentFilter FinishReason = "content_filter"
	FinishReasonOther         FinishReason = "other"
)

// TokenUsage holds token counters reported by the provider.
type TokenUsage struct {
	InputTokens       int `json:"input_tokens"`
	OutputTokens      int `json:"output_tokens"`
	TotalTokens       int `json:"total_tokens"`
	CachedInputTokens int `json:"cached_input_tokens,omitempty"`
	ReasoningTokens   int `json:"reasoning_tokens,omitempty"`
}

// ChatResponse is the final result of one chat turn.
//
// Text and Reasoning are nil when the model produced none, never pointers
// to an empty string, so a single nil check distinguishes "no output" from
// "empty output". A ChatResponse is not mutated after it has been handed
// to a caller.
type ChatResponse struct {
	ID           string           `json:"id"`
	Model        string           `json:"model,omitempty"`
	Text         *string          `json:"text"`
	Reasoning    *string          `json:"reasoning,omitempty"`
	ToolCalls    []ToolInvocation `json:"tool_calls"`
	FinishReason FinishReason     `json:"finish_reason"`
	Usage        *TokenUsage      `json:"usage,omitempty"`
	CreatedAt    int64            `json:"created_at,omitempty"`
}

// HasToolCalls reports whether the response requests tool execution.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// TextOrEmpty returns the response text, or "" when there is none.
func (r *ChatResponse) TextOrEmpty() string {
	if r == nil || r.Text == nil {
		return ""
	}
	return *r.Text
}

// MarshalJSON keeps tool_calls an array, never null.
func (r ChatResponse) MarshalJSON() ([]byte, error) {
	type alias ChatResponse
	a := alias(r)
	if a.ToolCalls == nil {
		a.ToolCalls = []ToolInvocation{}
	}
	return json.Marshal(a)
}

// ---------------------------------------------------------------------------
// Embeddings
// ---------------------------------------------------------------------------

// EmbeddingRequest asks the provider to embed one or more input strings.
type EmbeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions *int     `json:"dimensions,omitempty"`
}

// Embedding is the vector for one input, in request order.
type Embedding struct {
	Index  int       `json:"index"`
	Vector []float32 `json:"vector"`
}

// EmbeddingResponse holds the vectors for an EmbeddingRequest.
type EmbeddingResponse struct {
	Model      string      `json:"model"`
	Embeddings []Embedding `json:"embeddings"`
	Usage      *TokenUsage `json:"usage,omitempty"`
}

// ---------------------------------------------------------------------------
// Images
// ---------------------------------------------------------------------------

// ImageRequest asks the provider to generate images from a prompt.
type ImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n,omitempty"`
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`

	// ResponseFormat is "url" or "b64_json". Empty leaves the provider
	// default.
	ResponseFormat string `json:"response_format,omitempty"`
}

// GeneratedImage is one generated image. Exactly one of URL and B64JSON
// is set.
type GeneratedImage struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ImageResponse holds the images for an ImageRequest.
type ImageResponse struct {
	Created int64            `json:"created"`
	Model   string           `json:"model,omitempty"`
	Images  []GeneratedImage `json:"images"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Model describes one model offered by the configured provider.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// ModelList is the body of GET /v1/models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
