package openaicompat

import (
	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/provider"
)

// TranslateRequest converts a ChatRequest into a ChatCompletionRequest
// suitable for the /v1/chat/completions endpoint.
func TranslateRequest(req *api.ChatRequest, stream bool) ChatCompletionRequest {
	cr := ChatCompletionRequest{
		Model:           req.Model,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		MaxTokens:       req.MaxTokens,
		Stop:            req.Stop,
		N:               1,
		Stream:          stream,
		User:            req.User,
		ReasoningEffort: req.ReasoningEffort,
	}

	// Usage arrives in a trailing chunk only when asked for.
	if stream {
		cr.StreamOptions = &ChatStreamOptions{IncludeUsage: true}
	}

	for _, m := range req.Messages {
		cr.Messages = append(cr.Messages, translateMessage(m))
	}

	for _, t := range provider.NormalizeTools(req.Tools) {
		cr.Tools = append(cr.Tools, ChatTool{
			Type: "function",
			Function: ChatFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
				Strict:      t.Strict,
			},
		})
	}

	if tc := req.ToolChoice; tc != nil {
		if tc.Name != "" {
			cr.ToolChoice = map[string]any{
				"type":     "function",
				"function": map[string]string{"name": tc.Name},
			}
		} else if tc.Mode != "" {
			cr.ToolChoice = tc.Mode
		}
	}

	return cr
}

func translateMessage(m api.Message) ChatMessage {
	cm := ChatMessage{
		Role:       string(m.Role),
		ToolCallID: m.ToolCallID,
		Name:       m.Name,
	}

	if len(m.Parts) > 0 {
		parts := make([]ChatContentPart, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch p.Type {
			case "text":
				parts = append(parts, ChatContentPart{Type: "text", Text: p.Text})
			case "image":
				parts = append(parts, ChatContentPart{Type: "image_url", ImageURL: &ChatImageURL{URL: ImageURL(p)}})
			}
		}
		cm.Content = parts
	} else if m.Content != "" || len(m.ToolCalls) == 0 {
		cm.Content = m.Content
	}

	for _, tc := range m.ToolCalls {
		cm.ToolCalls = append(cm.ToolCalls, ChatToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: ChatFunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return cm
}

// ImageURL returns the URL for an image part, building a data URI for
// inline base64 data.
func ImageURL(p api.ContentPart) string {
	if p.URL != "" {
		return p.URL
	}
	mediaType := p.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return "data:" + mediaType + ";base64," + p.Data
}
