package openaicompat

import (
	"encoding/json"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
)

func TestTranslateRequest(t *testing.T) {
	temp := 0.5
	req := &api.ChatRequest{
		Model: "m",
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: "be brief"},
			{Role: api.RoleUser, Parts: []api.ContentPart{
				{Type: "text", Text: "what is this?"},
				{Type: "image", Data: "aGk=", MediaType: "image/jpeg"},
			}},
			{Role: api.RoleAssistant, ToolCalls: []api.ToolInvocation{{ID: "call_1", Name: "lookup", Arguments: `{}`}}},
			{Role: api.RoleTool, ToolCallID: "call_1", Content: "42"},
		},
		Tools:       []api.ToolSpec{{Name: "lookup"}},
		ToolChoice:  &api.ToolChoice{Name: "lookup"},
		Temperature: &temp,
	}

	cr := TranslateRequest(req, true)

	if !cr.Stream || cr.StreamOptions == nil || !cr.StreamOptions.IncludeUsage {
		t.Error("streaming request should ask for usage")
	}
	if len(cr.Messages) != 4 {
		t.Fatalf("messages = %d", len(cr.Messages))
	}
	parts, ok := cr.Messages[1].Content.([]ChatContentPart)
	if !ok || len(parts) != 2 || parts[1].ImageURL.URL != "data:image/jpeg;base64,aGk=" {
		t.Errorf("multimodal content = %#v", cr.Messages[1].Content)
	}
	if cr.Messages[2].Content != nil {
		t.Errorf("assistant tool-call message content = %#v, want nil", cr.Messages[2].Content)
	}
	if cr.Messages[3].ToolCallID != "call_1" {
		t.Error("tool call id not carried")
	}
	if len(cr.Tools) != 1 || cr.Tools[0].Type != "function" || len(cr.Tools[0].Function.Parameters) == 0 {
		t.Errorf("tools = %+v", cr.Tools)
	}

	data, _ := json.Marshal(cr.ToolChoice)
	if string(data) != `{"function":{"name":"lookup"},"type":"function"}` {
		t.Errorf("tool_choice = %s", data)
	}
}

func TestTranslateRequest_ModeToolChoice(t *testing.T) {
	req := &api.ChatRequest{Model: "m", Messages: []api.Message{{Role: api.RoleUser, Content: "x"}},
		ToolChoice: &api.ToolChoice{Mode: "required"}}
	cr := TranslateRequest(req, false)
	if cr.ToolChoice != "required" {
		t.Errorf("tool_choice = %#v", cr.ToolChoice)
	}
	if cr.StreamOptions != nil {
		t.Error("non-streaming request should not set stream_options")
	}
}
