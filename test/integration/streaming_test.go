package integration

import (
	"bufio"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
)

// streamChat posts a streaming chat and returns the parsed events.
func streamChat(t *testing.T, body map[string]any) []api.StreamEvent {
	t.Helper()
	resp := postJSON(t, testEnv.BaseURL()+"/v1/chat", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body: %s", resp.StatusCode, readBody(t, resp))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}
	return parseSSEEvents(t, resp)
}

func parseSSEEvents(t *testing.T, resp *http.Response) []api.StreamEvent {
	t.Helper()
	defer resp.Body.Close()

	var events []api.StreamEvent
	sawDone := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			sawDone = true
			continue
		}
		var ev api.StreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("parsing event %q: %v", data, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if !sawDone {
		t.Error("stream did not end with [DONE]")
	}
	return events
}

// verifyEventSequence checks the created-first, terminal-last shape and
// contiguous sequence numbers.
func verifyEventSequence(t *testing.T, events []api.StreamEvent) {
	t.Helper()
	if len(events) < 2 {
		t.Fatalf("expected at least 2 events, got %d", len(events))
	}
	if events[0].Type != api.EventChatCreated {
		t.Errorf("first event = %q, want %q", events[0].Type, api.EventChatCreated)
	}
	if !api.ValidateChatID(events[0].ChatID) {
		t.Errorf("created event chat_id = %q", events[0].ChatID)
	}
	for i, ev := range events {
		if ev.SequenceNumber != i {
			t.Errorf("event %d has sequence_number %d", i, ev.SequenceNumber)
		}
		if i < len(events)-1 && ev.IsTerminal() {
			t.Errorf("terminal event %q at position %d of %d", ev.Type, i, len(events))
		}
	}
	if !events[len(events)-1].IsTerminal() {
		t.Errorf("last event %q is not terminal", events[len(events)-1].Type)
	}
}

func deltas(events []api.StreamEvent) []string {
	var out []string
	for _, ev := range events {
		if ev.Type == api.EventOutputTextDelta {
			out = append(out, ev.Delta)
		}
	}
	return out
}

func TestStreamingTextDeltas(t *testing.T) {
	events := streamChat(t, chatRequest("Hello", true))
	verifyEventSequence(t, events)

	got := deltas(events)
	want := []string{"Hello", " from", " the", " mock", " backend."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("deltas = %q, want %q", got, want)
	}

	final := events[len(events)-1]
	if final.Type != api.EventChatCompleted || final.Response == nil {
		t.Fatalf("final event = %+v", final)
	}
	if got := final.Response.TextOrEmpty(); got != "Hello from the mock backend." {
		t.Errorf("final text = %q", got)
	}
	if final.Response.ID != events[0].ChatID {
		t.Errorf("final id %q != created id %q", final.Response.ID, events[0].ChatID)
	}
	if final.Response.Usage == nil || final.Response.Usage.TotalTokens != 17 {
		t.Errorf("usage = %+v", final.Response.Usage)
	}
}

func TestStreamingResultIsStored(t *testing.T) {
	events := streamChat(t, chatRequest("Hello", true))
	id := events[0].ChatID

	resp := getURL(t, testEnv.BaseURL()+"/v1/chat/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET stored result: %d %s", resp.StatusCode, readBody(t, resp))
	}
	var stored api.ChatResponse
	decodeJSON(t, resp, &stored)
	if stored.ID != id || stored.TextOrEmpty() != "Hello from the mock backend." {
		t.Errorf("stored = %+v", stored)
	}
}

func TestStreamingToolCall(t *testing.T) {
	req := chatRequest("What's the weather in Berlin?", true)
	req["tools"] = []map[string]any{{
		"name":       "get_weather",
		"parameters": map[string]any{"type": "object"},
	}}

	events := streamChat(t, req)
	verifyEventSequence(t, events)

	if d := deltas(events); len(d) != 0 {
		t.Errorf("tool call stream produced text deltas %q", d)
	}
	final := events[len(events)-1].Response
	if final == nil {
		t.Fatalf("final event = %+v", events[len(events)-1])
	}
	if len(final.ToolCalls) != 1 {
		t.Fatalf("tool calls = %+v", final.ToolCalls)
	}
	call := final.ToolCalls[0]
	if call.ID != "call_weather_1" || call.Name != "get_weather" {
		t.Errorf("call = %+v", call)
	}
	if call.Arguments != `{"location": "Berlin"}` {
		t.Errorf("arguments = %q", call.Arguments)
	}
	if final.FinishReason != api.FinishReasonToolExecution {
		t.Errorf("finish_reason = %q", final.FinishReason)
	}
}

func TestStreamingReasoning(t *testing.T) {
	req := chatRequest("think first", true)
	req["return_reasoning"] = true

	events := streamChat(t, req)
	verifyEventSequence(t, events)

	if got := strings.Join(deltas(events), ""); got != "Done thinking." {
		t.Errorf("deltas = %q, reasoning must not leak into text deltas", got)
	}
	final := events[len(events)-1].Response
	if final == nil || reasoningOf(final) != "Let me consider." {
		t.Errorf("final = %+v", final)
	}
}

func TestStreamingReasoningOmittedByDefault(t *testing.T) {
	events := streamChat(t, chatRequest("think first", true))
	final := events[len(events)-1].Response
	if final == nil {
		t.Fatalf("final event = %+v", events[len(events)-1])
	}
	if final.Reasoning != nil {
		t.Errorf("reasoning = %q, want omitted", *final.Reasoning)
	}
}

func TestStreamingTruncated(t *testing.T) {
	events := streamChat(t, chatRequest("please truncate", true))
	verifyEventSequence(t, events)

	final := events[len(events)-1].Response
	if final == nil || final.FinishReason != api.FinishReasonLength {
		t.Errorf("final = %+v", final)
	}
}

func TestStreamingBackendError(t *testing.T) {
	events := streamChat(t, chatRequest("boom", true))
	verifyEventSequence(t, events)

	if got := deltas(events); len(got) != 1 || got[0] != "partial" {
		t.Errorf("deltas before failure = %q", got)
	}
	last := events[len(events)-1]
	if last.Type != api.EventError || last.Error == nil {
		t.Fatalf("last event = %+v", last)
	}
	if last.Error.Type != api.ErrorTypeProviderError || last.Error.Message != "backend exploded" {
		t.Errorf("error = %+v", last.Error)
	}
}
