package openaicompat

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/stream"
)

// collectEvents drains a ChunkSource built from the given SSE text.
func collectEvents(t *testing.T, sse string) []stream.Event {
	t.Helper()
	src := NewChunkSource(io.NopCloser(strings.NewReader(sse)))
	defer src.Close()

	var events []stream.Event
	for {
		ev, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, ev)
	}
}

func sseLines(chunks ...string) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString("data: " + c + "\n\n")
	}
	return b.String()
}

func TestChunkSource_Text(t *testing.T) {
	events := collectEvents(t, sseLines(
		`{"id":"c1","model":"m","choices":[{"index":0,"delta":{"role":"assistant"}}]}`,
		`{"id":"c1","model":"m","choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
		`{"id":"c1","model":"m","choices":[{"index":0,"delta":{"content":"lo"}}]}`,
		`{"id":"c1","model":"m","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		`{"id":"c1","model":"m","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
		`[DONE]`,
	))

	want := []stream.Event{
		stream.Created{StreamID: "c1", Model: "m"},
		stream.TextDelta{Text: "Hel"},
		stream.TextDelta{Text: "lo"},
		stream.Completed{Status: "completed", Usage: &api.TokenUsage{InputTokens: 5, OutputTokens: 2, TotalTokens: 7}},
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events =\n%#v\nwant\n%#v", events, want)
	}
}

func TestChunkSource_ToolCallsFlushedInIndexOrder(t *testing.T) {
	events := collectEvents(t, sseLines(
		`{"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_b","type":"function","function":{"name":"second","arguments":""}}]}}]}`,
		`{"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_a","type":"function","function":{"name":"first","arguments":"{\"x\""}}]}}]}`,
		`{"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":":1}"}}]}}]}`,
		`{"id":"c2","choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"function":{"arguments":"{}"}}]}}]}`,
		`{"id":"c2","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
		`[DONE]`,
	))

	want := []stream.Event{
		stream.Created{StreamID: "c2"},
		stream.ToolCallStarted{ItemID: "tool_1", CallID: "call_b", Name: "second"},
		stream.ToolCallStarted{ItemID: "tool_0", CallID: "call_a", Name: "first"},
		stream.ToolCallArgumentDelta{ItemID: "tool_0", Fragment: `{"x"`},
		stream.ToolCallArgumentDelta{ItemID: "tool_0", Fragment: `:1}`},
		stream.ToolCallArgumentDelta{ItemID: "tool_1", Fragment: `{}`},
		stream.ToolCallArgumentDone{ItemID: "tool_0", Arguments: `{"x":1}`},
		stream.ToolCallArgumentDone{ItemID: "tool_1", Arguments: `{}`},
		stream.Completed{Status: "completed"},
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events =\n%#v\nwant\n%#v", events, want)
	}
}

func TestChunkSource_EndToEndWithProcessor(t *testing.T) {
	sse := sseLines(
		`{"id":"c3","choices":[{"index":0,"delta":{"reasoning_content":"hmm"}}]}`,
		`{"id":"c3","choices":[{"index":0,"delta":{"content":"Let me check."}}]}`,
		`{"id":"c3","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"lookup","arguments":"{\"q\":\"x\"}"}}]}}]}`,
		`{"id":"c3","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}}`,
		`[DONE]`,
	)
	c := stream.NewCollector()
	stream.Run(context.Background(), NewChunkSource(io.NopCloser(strings.NewReader(sse))), c, stream.WithReasoning(true))

	resp, err := c.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TextOrEmpty() != "Let me check." {
		t.Errorf("text = %q", resp.TextOrEmpty())
	}
	if resp.Reasoning == nil || *resp.Reasoning != "hmm" {
		t.Errorf("reasoning = %v", resp.Reasoning)
	}
	if resp.FinishReason != api.FinishReasonToolExecution {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Arguments != `{"q":"x"}` {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestChunkSource_LengthMapsToIncompleteStatus(t *testing.T) {
	events := collectEvents(t, sseLines(
		`{"id":"c4","choices":[{"index":0,"delta":{"content":"abc"}}]}`,
		`{"id":"c4","choices":[{"index":0,"delta":{},"finish_reason":"length"}]}`,
		`[DONE]`,
	))
	last := events[len(events)-1]
	if c, ok := last.(stream.Completed); !ok || c.Status != "incomplete" {
		t.Errorf("last event = %#v, want Completed{incomplete}", last)
	}
}

func TestChunkSource_ErrorChunk(t *testing.T) {
	events := collectEvents(t, sseLines(
		`{"id":"c5","choices":[{"index":0,"delta":{"content":"a"}}]}`,
		`{"error":{"message":"model overloaded","type":"server_error","code":"overloaded"}}`,
	))
	last := events[len(events)-1]
	want := stream.ErrorEvent{Code: "overloaded", Message: "model overloaded"}
	if last != want {
		t.Errorf("last event = %#v, want %#v", last, want)
	}
}

func TestChunkSource_MalformedChunkSkipped(t *testing.T) {
	events := collectEvents(t, sseLines(
		`{not json`,
		`{"id":"c6","choices":[{"index":0,"delta":{"content":"ok"},"finish_reason":"stop"}]}`,
		`[DONE]`,
	))
	if len(events) != 3 {
		t.Fatalf("events = %#v", events)
	}
}

func TestChunkSource_TruncatedStream(t *testing.T) {
	events := collectEvents(t, sseLines(
		`{"id":"c7","choices":[{"index":0,"delta":{"content":"cut"}}]}`,
	))
	for _, ev := range events {
		if stream.IsTerminal(ev) {
			t.Fatalf("unexpected terminal event %#v", ev)
		}
	}
}
