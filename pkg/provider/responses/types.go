// Package responses implements a provider adapter for backends that serve
// the OpenAI Responses API (/v1/responses). Requests use the Responses
// wire format; streamed SSE events are classified into stream events.
package responses

import "encoding/json"

// --- Request types ---

// responsesRequest is the wire format for POST /v1/responses.
type responsesRequest struct {
	Model           string           `json:"model"`
	Instructions    string           `json:"instructions,omitempty"`
	Input           []inputItem      `json:"input"`
	Tools           []responsesTool  `json:"tools,omitempty"`
	ToolChoice      any              `json:"tool_choice,omitempty"`
	Store           bool             `json:"store"`
	Stream          bool             `json:"stream,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	TopP            *float64         `json:"top_p,omitempty"`
	MaxOutputTokens *int             `json:"max_output_tokens,omitempty"`
	User            string           `json:"user,omitempty"`
	Reasoning       *reasoningConfig `json:"reasoning,omitempty"`
}

// reasoningConfig selects reasoning effort and summaries.
type reasoningConfig struct {
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// inputItem is one element of the request input array.
type inputItem struct {
	Type      string      `json:"type"`
	Role      string      `json:"role,omitempty"`
	Content   []inputPart `json:"content,omitempty"`
	CallID    string      `json:"call_id,omitempty"`
	Name      string      `json:"name,omitempty"`
	Arguments string      `json:"arguments,omitempty"`
	Output    *string     `json:"output,omitempty"`
}

// inputPart is a content part of an input message.
type inputPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// responsesTool is a tool definition in the Responses API format.
type responsesTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	Strict      bool            `json:"strict,omitempty"`
}

// --- Response types ---

// responsesResponse is the wire format returned by POST /v1/responses (non-streaming).
type responsesResponse struct {
	ID                string             `json:"id"`
	Object            string             `json:"object"`
	CreatedAt         int64              `json:"created_at"`
	Status            string             `json:"status"`
	Model             string             `json:"model"`
	Output            []responsesItem    `json:"output"`
	Usage             *responsesUsage    `json:"usage,omitempty"`
	Error             *responsesError    `json:"error,omitempty"`
	IncompleteDetails *incompleteDetails `json:"incomplete_details,omitempty"`
}

// responsesItem represents an output item (message, function_call, reasoning).
type responsesItem struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status,omitempty"`
	Role      string          `json:"role,omitempty"`
	Content   []responsesPart `json:"content,omitempty"`
	Summary   []responsesPart `json:"summary,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
}

// responsesPart is a content part within an output item.
type responsesPart struct {
	Type string `json:"type"` // "output_text", "reasoning_text", "summary_text", "refusal"
	Text string `json:"text,omitempty"`
}

// responsesUsage holds token usage from the backend.
type responsesUsage struct {
	InputTokens        int `json:"input_tokens"`
	OutputTokens       int `json:"output_tokens"`
	TotalTokens        int `json:"total_tokens"`
	InputTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details,omitempty"`
	OutputTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details,omitempty"`
}

// responsesError is the error format in Responses API responses.
type responsesError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type incompleteDetails struct {
	Reason string `json:"reason"`
}

// SSE event type strings from the Responses API.
const (
	eventResponseCreated    = "response.created"
	eventResponseCompleted  = "response.completed"
	eventResponseFailed     = "response.failed"
	eventResponseIncomplete = "response.incomplete"
	eventOutputItemAdded    = "response.output_item.added"
	eventTextDelta          = "response.output_text.delta"
	eventFuncCallArgsDelta  = "response.function_call_arguments.delta"
	eventFuncCallArgsDone   = "response.function_call_arguments.done"
	eventReasoningDelta     = "response.reasoning_text.delta"
	eventReasoningSummary   = "response.reasoning_summary_text.delta"
	eventError              = "error"
)
