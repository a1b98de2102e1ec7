package openaicompat

import (
	"encoding/json"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
)

func TestTranslateResponse(t *testing.T) {
	raw := `{
		"id": "chatcmpl-1",
		"model": "m",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": null,
				"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "lookup", "arguments": "{\"q\":\"x\"}"}}]},
			"finish_reason": "tool_calls"
		}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15,
			"prompt_tokens_details": {"cached_tokens": 4},
			"completion_tokens_details": {"reasoning_tokens": 2}}
	}`
	var resp ChatCompletionResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}

	out, err := TranslateResponse(&resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != nil {
		t.Errorf("text = %q, want nil", *out.Text)
	}
	if out.FinishReason != api.FinishReasonToolExecution {
		t.Errorf("finish reason = %q", out.FinishReason)
	}
	if len(out.ToolCalls) != 1 || out.ToolCalls[0].ID != "call_1" {
		t.Errorf("tool calls = %+v", out.ToolCalls)
	}
	want := api.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, CachedInputTokens: 4, ReasoningTokens: 2}
	if out.Usage == nil || *out.Usage != want {
		t.Errorf("usage = %+v, want %+v", out.Usage, want)
	}
}

func TestTranslateResponse_Empty(t *testing.T) {
	_, err := TranslateResponse(&ChatCompletionResponse{Choices: []ChatChoice{{Message: ChatMessage{Content: ""}}}})
	if !api.IsType(err, api.ErrorTypeEmptyResponse) {
		t.Errorf("err = %v, want empty response", err)
	}
	_, err = TranslateResponse(&ChatCompletionResponse{})
	if !api.IsType(err, api.ErrorTypeEmptyResponse) {
		t.Errorf("err = %v, want empty response", err)
	}
}

func TestMapFinishStatus(t *testing.T) {
	tests := map[string]string{
		"stop":           "completed",
		"tool_calls":     "completed",
		"length":         "incomplete",
		"content_filter": "content_filter",
		"":               "completed",
		"eos":            "eos",
	}
	for in, want := range tests {
		if got := MapFinishStatus(in); got != want {
			t.Errorf("MapFinishStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractContentString(t *testing.T) {
	var parts any
	_ = json.Unmarshal([]byte(`[{"type":"text","text":"a"},{"type":"image_url"},{"type":"text","text":"b"}]`), &parts)
	if got := ExtractContentString(parts); got != "ab" {
		t.Errorf("parts = %q", got)
	}
	if got := ExtractContentString(nil); got != "" {
		t.Errorf("nil = %q", got)
	}
}
