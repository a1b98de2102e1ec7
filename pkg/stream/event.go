package stream

import "github.com/rhuss/chatbridge/pkg/api"

// Event is one classified unit of provider output. The set of event types
// is closed; Processor.Push switches over all of them.
type Event interface {
	// Kind returns a stable name used in logs and metrics.
	Kind() string
	event()
}

// Created announces the provider-side stream. Both fields are optional.
type Created struct {
	StreamID string
	Model    string
}

// TextDelta carries a fragment of visible output text.
type TextDelta struct {
	Text string
}

// ReasoningDelta carries a fragment of reasoning (thinking) text.
type ReasoningDelta struct {
	Text string
}

// ToolCallStarted opens a tool call. ItemID keys the call for the rest of
// the stream; CallID is the identifier the model uses to match results.
type ToolCallStarted struct {
	ItemID string
	CallID string
	Name   string
}

// ToolCallArgumentDelta carries a fragment of a tool call's JSON arguments.
type ToolCallArgumentDelta struct {
	ItemID   string
	Fragment string
}

// ToolCallArgumentDone closes a tool call with its complete arguments.
type ToolCallArgumentDone struct {
	ItemID    string
	Arguments string
}

// Completed ends the stream successfully. Status is the provider's raw
// finish status ("completed", "stop", "length", ...).
type Completed struct {
	Status string
	Usage  *api.TokenUsage
}

// Failed ends the stream with a provider-reported failure.
type Failed struct {
	Code    string
	Details string
}

// ErrorEvent ends the stream with a provider error message.
type ErrorEvent struct {
	Code    string
	Message string
}

// Incomplete ends the stream early, for example on a token limit.
type Incomplete struct {
	Reason string
	Usage  *api.TokenUsage
}

// Unrecognized stands in for a wire message no decoder understood.
type Unrecognized struct {
	Type string
}

func (Created) Kind() string               { return "created" }
func (TextDelta) Kind() string             { return "text_delta" }
func (ReasoningDelta) Kind() string        { return "reasoning_delta" }
func (ToolCallStarted) Kind() string       { return "tool_call_started" }
func (ToolCallArgumentDelta) Kind() string { return "tool_call_argument_delta" }
func (ToolCallArgumentDone) Kind() string  { return "tool_call_argument_done" }
func (Completed) Kind() string             { return "completed" }
func (Failed) Kind() string                { return "failed" }
func (ErrorEvent) Kind() string            { return "error" }
func (Incomplete) Kind() string            { return "incomplete" }
func (Unrecognized) Kind() string          { return "unrecognized" }

func (Created) event()               {}
func (TextDelta) event()             {}
func (ReasoningDelta) event()        {}
func (ToolCallStarted) event()       {}
func (ToolCallArgumentDelta) event() {}
func (ToolCallArgumentDone) event()  {}
func (Completed) event()             {}
func (Failed) event()                {}
func (ErrorEvent) event()            {}
func (Incomplete) event()            {}
func (Unrecognized) event()          {}

// IsTerminal reports whether ev ends the stream.
func IsTerminal(ev Event) bool {
	switch ev.(type) {
	case Completed, Failed, ErrorEvent, Incomplete:
		return true
	}
	return false
}
