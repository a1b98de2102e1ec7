package responses

import (
	"strings"
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/provider/openaicompat"
	"github.com/rhuss/chatbridge/pkg/stream"
)

// translateRequest converts a ChatRequest to the Responses API wire format.
// System messages are joined into instructions. store is always false:
// results are persisted by the gateway, not the backend.
func translateRequest(req *api.ChatRequest, streaming, captureReasoning bool) *responsesRequest {
	rr := &responsesRequest{
		Model:           req.Model,
		Store:           false,
		Stream:          streaming,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxOutputTokens: req.MaxTokens,
		User:            req.User,
	}

	var instructions []string
	for _, msg := range req.Messages {
		switch msg.Role {
		case api.RoleSystem:
			instructions = append(instructions, msg.Text())

		case api.RoleUser:
			rr.Input = append(rr.Input, inputItem{
				Type:    "message",
				Role:    "user",
				Content: userParts(msg),
			})

		case api.RoleAssistant:
			if text := msg.Text(); text != "" {
				rr.Input = append(rr.Input, inputItem{
					Type:    "message",
					Role:    "assistant",
					Content: []inputPart{{Type: "output_text", Text: text}},
				})
			}
			for _, tc := range msg.ToolCalls {
				rr.Input = append(rr.Input, inputItem{
					Type:      "function_call",
					CallID:    tc.ID,
					Name:      tc.Name,
					Arguments: tc.Arguments,
				})
			}

		case api.RoleTool:
			output := msg.Text()
			rr.Input = append(rr.Input, inputItem{
				Type:   "function_call_output",
				CallID: msg.ToolCallID,
				Output: &output,
			})
		}
	}
	rr.Instructions = strings.Join(instructions, "\n\n")

	for _, t := range provider.NormalizeTools(req.Tools) {
		rr.Tools = append(rr.Tools, responsesTool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
			Strict:      t.Strict,
		})
	}

	if tc := req.ToolChoice; tc != nil {
		if tc.Name != "" {
			rr.ToolChoice = map[string]string{"type": "function", "name": tc.Name}
		} else if tc.Mode != "" {
			rr.ToolChoice = tc.Mode
		}
	}

	wantSummary := captureReasoning && req.ReturnReasoning
	if req.ReasoningEffort != "" || wantSummary {
		rr.Reasoning = &reasoningConfig{Effort: req.ReasoningEffort}
		if wantSummary {
			rr.Reasoning.Summary = "auto"
		}
	}

	return rr
}

func userParts(msg api.Message) []inputPart {
	if len(msg.Parts) == 0 {
		return []inputPart{{Type: "input_text", Text: msg.Content}}
	}
	parts := make([]inputPart, 0, len(msg.Parts))
	for _, p := range msg.Parts {
		switch p.Type {
		case "text":
			parts = append(parts, inputPart{Type: "input_text", Text: p.Text})
		case "image":
			parts = append(parts, inputPart{Type: "input_image", ImageURL: openaicompat.ImageURL(p)})
		}
	}
	return parts
}

// translateResponse converts a non-streaming Responses API response. It
// applies the same outcome rules as the stream core: failed and
// incomplete responses become errors, and a response without output is
// an empty-response error.
func translateResponse(resp *responsesResponse, returnReasoning bool) (*api.ChatResponse, error) {
	switch resp.Status {
	case "failed":
		code, msg := "", "response failed"
		if resp.Error != nil {
			code, msg = resp.Error.Code, resp.Error.Message
		}
		return nil, api.NewProviderError(code, msg)
	case "incomplete":
		reason := "unknown"
		if resp.IncompleteDetails != nil {
			reason = resp.IncompleteDetails.Reason
		}
		return nil, api.NewIncompleteError(reason)
	}

	var text, reasoning strings.Builder
	var calls []api.ToolInvocation
	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			for _, p := range item.Content {
				if p.Type == "output_text" {
					text.WriteString(p.Text)
				}
			}
		case "function_call":
			calls = append(calls, api.ToolInvocation{ID: item.CallID, Name: item.Name, Arguments: item.Arguments})
		case "reasoning":
			if !returnReasoning {
				continue
			}
			for _, p := range item.Content {
				reasoning.WriteString(p.Text)
			}
			if len(item.Content) == 0 {
				for _, p := range item.Summary {
					reasoning.WriteString(p.Text)
				}
			}
		}
	}

	out := &api.ChatResponse{
		ID:        resp.ID,
		Model:     resp.Model,
		Text:      api.StringPtr(text.String()),
		Reasoning: api.StringPtr(reasoning.String()),
		ToolCalls: calls,
		Usage:     translateUsage(resp.Usage),
		CreatedAt: resp.CreatedAt,
	}
	if out.CreatedAt == 0 {
		out.CreatedAt = time.Now().Unix()
	}
	if out.Text == nil && out.Reasoning == nil && len(calls) == 0 {
		return nil, api.NewEmptyResponseError()
	}
	out.FinishReason = stream.FinishReason(resp.Status, len(calls) > 0)
	return out, nil
}

func translateUsage(u *responsesUsage) *api.TokenUsage {
	if u == nil {
		return nil
	}
	usage := &api.TokenUsage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
	}
	if u.InputTokensDetails != nil {
		usage.CachedInputTokens = u.InputTokensDetails.CachedTokens
	}
	if u.OutputTokensDetails != nil {
		usage.ReasoningTokens = u.OutputTokensDetails.ReasoningTokens
	}
	return usage
}
