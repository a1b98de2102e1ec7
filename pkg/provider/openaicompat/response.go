package openaicompat

import (
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/stream"
)

// TranslateResponse converts a ChatCompletionResponse into a ChatResponse.
// Only choices[0] is used. A response without text, reasoning or tool
// calls yields an empty-response error.
func TranslateResponse(resp *ChatCompletionResponse) (*api.ChatResponse, error) {
	if len(resp.Choices) == 0 {
		return nil, api.NewEmptyResponseError()
	}
	choice := resp.Choices[0]

	out := &api.ChatResponse{
		ID:        resp.ID,
		Model:     resp.Model,
		Text:      api.StringPtr(ExtractContentString(choice.Message.Content)),
		Usage:     TranslateUsage(resp.Usage),
		CreatedAt: time.Now().Unix(),
	}
	if choice.Message.ReasoningContent != nil {
		out.Reasoning = api.StringPtr(*choice.Message.ReasoningContent)
	}

	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = api.NewCallID()
		}
		out.ToolCalls = append(out.ToolCalls, api.ToolInvocation{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if out.Text == nil && out.Reasoning == nil && len(out.ToolCalls) == 0 {
		return nil, api.NewEmptyResponseError()
	}

	out.FinishReason = stream.FinishReason(MapFinishStatus(choice.FinishReason), len(out.ToolCalls) > 0)
	return out, nil
}

// MapFinishStatus converts a Chat Completions finish_reason into the
// status vocabulary of the stream core.
func MapFinishStatus(reason string) string {
	switch reason {
	case "stop", "tool_calls", "function_call":
		return "completed"
	case "length":
		return "incomplete"
	case "content_filter":
		return "content_filter"
	case "":
		return "completed"
	default:
		return reason
	}
}

// TranslateUsage converts Chat Completions usage, or returns nil.
func TranslateUsage(u *ChatUsage) *api.TokenUsage {
	if u == nil {
		return nil
	}
	usage := &api.TokenUsage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	if u.PromptTokensDetails != nil {
		usage.CachedInputTokens = u.PromptTokensDetails.CachedTokens
	}
	if u.CompletionTokensDetails != nil {
		usage.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return usage
}

// ExtractContentString returns message content as plain text. Content is
// either a string or a list of parts; text parts are concatenated.
func ExtractContentString(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var s string
		for _, p := range v {
			if m, ok := p.(map[string]any); ok && m["type"] == "text" {
				if t, ok := m["text"].(string); ok {
					s += t
				}
			}
		}
		return s
	default:
		return ""
	}
}
