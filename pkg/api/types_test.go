package api

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestChatResponse_MarshalNullText(t *testing.T) {
	resp := ChatResponse{
		ID:           "chat_1",
		ToolCalls:    nil,
		FinishReason: FinishReasonToolExecution,
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"text":null`) {
		t.Errorf("expected null text, got %s", s)
	}
	if !strings.Contains(s, `"tool_calls":[]`) {
		t.Errorf("expected empty tool_calls array, got %s", s)
	}
}

func TestChatResponse_Helpers(t *testing.T) {
	var nilResp *ChatResponse
	if nilResp.HasToolCalls() || nilResp.TextOrEmpty() != "" {
		t.Error("nil response helpers should be zero-valued")
	}

	resp := &ChatResponse{
		Text:      StringPtr("hi"),
		ToolCalls: []ToolInvocation{{ID: "c1", Name: "f", Arguments: "{}"}},
	}
	if !resp.HasToolCalls() {
		t.Error("HasToolCalls = false")
	}
	if resp.TextOrEmpty() != "hi" {
		t.Errorf("TextOrEmpty = %q", resp.TextOrEmpty())
	}
}

func TestStringPtr_EmptyIsNil(t *testing.T) {
	if StringPtr("") != nil {
		t.Error("StringPtr(\"\") should be nil")
	}
	if p := StringPtr("x"); p == nil || *p != "x" {
		t.Error("StringPtr(\"x\") mismatch")
	}
}

func TestMessage_Text(t *testing.T) {
	m := Message{Role: RoleUser, Parts: []ContentPart{
		{Type: "text", Text: "look at "},
		{Type: "image", URL: "http://x/y.png"},
		{Type: "text", Text: "this"},
	}}
	if got := m.Text(); got != "look at this" {
		t.Errorf("Text() = %q", got)
	}
	if !m.HasImages() {
		t.Error("HasImages = false")
	}
}

func TestNewChatID(t *testing.T) {
	id := NewChatID()
	if !ValidateChatID(id) {
		t.Errorf("generated id %q does not validate", id)
	}
	if NewChatID() == id {
		t.Error("ids should differ")
	}
	if !strings.HasPrefix(NewCallID(), "call_") {
		t.Error("call id prefix")
	}
}
