package stream

import (
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
)

// FinishReason maps a raw provider status to a FinishReason. Any completed
// tool call forces FinishReasonToolExecution.
func FinishReason(status string, hasToolCalls bool) api.FinishReason {
	if hasToolCalls {
		return api.FinishReasonToolExecution
	}
	switch status {
	case "completed", "stop":
		return api.FinishReasonStop
	case "incomplete", "length", "max_output_tokens":
		return api.FinishReasonLength
	case "content_filter":
		return api.FinishReasonContentFilter
	default:
		return api.FinishReasonOther
	}
}

// assemble builds the final response from the accumulated state. It fails
// with an empty-response error when there is no text, no reasoning and no
// completed tool call.
func (a *Accumulator) assemble(id, model string) (*api.ChatResponse, error) {
	if len(a.pending) > 0 {
		a.logger.Warn("stream ended with unfinished tool calls, dropping them", "count", len(a.pending))
	}

	text := api.StringPtr(a.text.String())
	reasoning := api.StringPtr(a.reasoning.String())

	if text == nil && reasoning == nil && len(a.completed) == 0 {
		return nil, api.NewEmptyResponseError()
	}

	var calls []api.ToolInvocation
	if len(a.completed) > 0 {
		calls = make([]api.ToolInvocation, len(a.completed))
		copy(calls, a.completed)
	}

	return &api.ChatResponse{
		ID:           id,
		Model:        model,
		Text:         text,
		Reasoning:    reasoning,
		ToolCalls:    calls,
		FinishReason: FinishReason(a.status, len(calls) > 0),
		Usage:        a.usage,
		CreatedAt:    time.Now().Unix(),
	}, nil
}
