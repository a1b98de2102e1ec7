package api

// StreamEventType identifies the type of an outbound server-sent event.
type StreamEventType string

const (
	EventChatCreated     StreamEventType = "response.created"
	EventOutputTextDelta StreamEventType = "response.output_text.delta"
	EventChatCompleted   StreamEventType = "response.completed"
	EventError           StreamEventType = "error"
)

// StreamEvent is one server-sent event written by the gateway while a chat
// turn streams. Exactly one of Delta, Response or Error is set, depending
// on Type.
type StreamEvent struct {
	Type           StreamEventType `json:"type"`
	SequenceNumber int             `json:"sequence_number"`
	ChatID         string          `json:"chat_id,omitempty"`
	Delta          string          `json:"delta,omitempty"`
	Response       *ChatResponse   `json:"response,omitempty"`
	Error          *APIError       `json:"error,omitempty"`
}

// IsTerminal reports whether no further events follow this one.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventChatCompleted || e.Type == EventError
}
