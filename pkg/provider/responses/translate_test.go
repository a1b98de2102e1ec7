package responses

import (
	"encoding/json"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
)

func TestTranslateRequest(t *testing.T) {
	maxTokens := 256
	req := &api.ChatRequest{
		Model: "gpt-x",
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: "be brief"},
			{Role: api.RoleSystem, Content: "answer in French"},
			{Role: api.RoleUser, Content: "weather?"},
			{Role: api.RoleAssistant, ToolCalls: []api.ToolInvocation{{ID: "call_1", Name: "weather", Arguments: `{"city":"Paris"}`}}},
			{Role: api.RoleTool, ToolCallID: "call_1", Content: "sunny"},
		},
		Tools:           []api.ToolSpec{{Name: "weather"}},
		ToolChoice:      &api.ToolChoice{Mode: "auto"},
		MaxTokens:       &maxTokens,
		ReasoningEffort: "low",
		ReturnReasoning: true,
	}

	rr := translateRequest(req, true, true)

	if rr.Instructions != "be brief\n\nanswer in French" {
		t.Errorf("instructions = %q", rr.Instructions)
	}
	if rr.Store {
		t.Error("store must be false")
	}
	if len(rr.Input) != 3 {
		t.Fatalf("input items = %d, want 3", len(rr.Input))
	}
	if rr.Input[1].Type != "function_call" || rr.Input[1].CallID != "call_1" {
		t.Errorf("function call item = %+v", rr.Input[1])
	}
	if rr.Input[2].Type != "function_call_output" || rr.Input[2].Output == nil || *rr.Input[2].Output != "sunny" {
		t.Errorf("function output item = %+v", rr.Input[2])
	}
	if rr.MaxOutputTokens == nil || *rr.MaxOutputTokens != 256 {
		t.Error("max_output_tokens not mapped")
	}
	if rr.Reasoning == nil || rr.Reasoning.Effort != "low" || rr.Reasoning.Summary != "auto" {
		t.Errorf("reasoning = %+v", rr.Reasoning)
	}
	if rr.ToolChoice != "auto" {
		t.Errorf("tool_choice = %#v", rr.ToolChoice)
	}

	rr = translateRequest(req, false, false)
	if rr.Reasoning == nil || rr.Reasoning.Summary != "" {
		t.Errorf("summary requested without capture: %+v", rr.Reasoning)
	}
}

func TestTranslateResponse(t *testing.T) {
	raw := `{
		"id": "resp_1", "status": "completed", "model": "gpt-x", "created_at": 1700000000,
		"output": [
			{"type": "reasoning", "id": "rs_1", "summary": [{"type": "summary_text", "text": "thought"}]},
			{"type": "message", "id": "msg_1", "role": "assistant", "content": [{"type": "output_text", "text": "Hello"}]},
			{"type": "function_call", "id": "fc_1", "call_id": "call_1", "name": "lookup", "arguments": "{}"}
		],
		"usage": {"input_tokens": 3, "output_tokens": 4, "total_tokens": 7}
	}`
	var resp responsesResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}

	out, err := translateResponse(&resp, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.TextOrEmpty() != "Hello" {
		t.Errorf("text = %q", out.TextOrEmpty())
	}
	if out.Reasoning == nil || *out.Reasoning != "thought" {
		t.Errorf("reasoning = %v", out.Reasoning)
	}
	if out.FinishReason != api.FinishReasonToolExecution {
		t.Errorf("finish reason = %q", out.FinishReason)
	}
	if out.Usage.TotalTokens != 7 || out.CreatedAt != 1700000000 {
		t.Errorf("usage/created = %+v/%d", out.Usage, out.CreatedAt)
	}

	out, _ = translateResponse(&resp, false)
	if out.Reasoning != nil {
		t.Error("reasoning returned without request")
	}
}

func TestTranslateResponse_Outcomes(t *testing.T) {
	_, err := translateResponse(&responsesResponse{Status: "failed", Error: &responsesError{Code: "x", Message: "boom"}}, false)
	if apiErr, ok := api.AsAPIError(err); !ok || apiErr.Type != api.ErrorTypeProviderError || apiErr.Message != "boom" {
		t.Errorf("failed: err = %v", err)
	}

	_, err = translateResponse(&responsesResponse{Status: "incomplete", IncompleteDetails: &incompleteDetails{Reason: "content_filter"}}, false)
	if !api.IsType(err, api.ErrorTypeIncomplete) {
		t.Errorf("incomplete: err = %v", err)
	}

	_, err = translateResponse(&responsesResponse{Status: "completed"}, false)
	if !api.IsType(err, api.ErrorTypeEmptyResponse) {
		t.Errorf("empty: err = %v", err)
	}
}
