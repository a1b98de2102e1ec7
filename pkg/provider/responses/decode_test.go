package responses

import (
	"reflect"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/stream"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name  string
		event string
		data  string
		want  stream.Event
	}{
		{
			name:  "created",
			event: "response.created",
			data:  `{"type":"response.created","response":{"id":"resp_1","model":"gpt-x","status":"in_progress"}}`,
			want:  stream.Created{StreamID: "resp_1", Model: "gpt-x"},
		},
		{
			name:  "text delta",
			event: "response.output_text.delta",
			data:  `{"item_id":"msg_1","output_index":0,"delta":"Hel"}`,
			want:  stream.TextDelta{Text: "Hel"},
		},
		{
			name: "type from payload when event line missing",
			data: `{"type":"response.output_text.delta","delta":"lo"}`,
			want: stream.TextDelta{Text: "lo"},
		},
		{
			name:  "reasoning text",
			event: "response.reasoning_text.delta",
			data:  `{"delta":"step 1"}`,
			want:  stream.ReasoningDelta{Text: "step 1"},
		},
		{
			name:  "reasoning summary",
			event: "response.reasoning_summary_text.delta",
			data:  `{"delta":"summary"}`,
			want:  stream.ReasoningDelta{Text: "summary"},
		},
		{
			name:  "function call added",
			event: "response.output_item.added",
			data:  `{"item":{"type":"function_call","id":"fc_1","call_id":"call_1","name":"lookup","arguments":""}}`,
			want:  stream.ToolCallStarted{ItemID: "fc_1", CallID: "call_1", Name: "lookup"},
		},
		{
			name:  "message item added is not a tool call",
			event: "response.output_item.added",
			data:  `{"item":{"type":"message","id":"msg_1"}}`,
			want:  stream.Unrecognized{Type: "response.output_item.added:message"},
		},
		{
			name:  "arguments delta",
			event: "response.function_call_arguments.delta",
			data:  `{"item_id":"fc_1","delta":"{\"q\""}`,
			want:  stream.ToolCallArgumentDelta{ItemID: "fc_1", Fragment: `{"q"`},
		},
		{
			name:  "arguments done",
			event: "response.function_call_arguments.done",
			data:  `{"item_id":"fc_1","arguments":"{\"q\":\"x\"}"}`,
			want:  stream.ToolCallArgumentDone{ItemID: "fc_1", Arguments: `{"q":"x"}`},
		},
		{
			name:  "completed with usage details",
			event: "response.completed",
			data: `{"response":{"id":"resp_1","status":"completed","usage":{"input_tokens":10,"output_tokens":5,"total_tokens":15,
				"input_tokens_details":{"cached_tokens":2},"output_tokens_details":{"reasoning_tokens":3}}}}`,
			want: stream.Completed{Status: "completed", Usage: &api.TokenUsage{
				InputTokens: 10, OutputTokens: 5, TotalTokens: 15, CachedInputTokens: 2, ReasoningTokens: 3}},
		},
		{
			name:  "completed without usage",
			event: "response.completed",
			data:  `{"response":{"status":"completed","usage":null}}`,
			want:  stream.Completed{Status: "completed"},
		},
		{
			name:  "failed",
			event: "response.failed",
			data:  `{"response":{"status":"failed","error":{"code":"rate_limit_exceeded","message":"rate limited"}}}`,
			want:  stream.Failed{Code: "rate_limit_exceeded", Details: "rate limited"},
		},
		{
			name:  "incomplete",
			event: "response.incomplete",
			data:  `{"response":{"status":"incomplete","incomplete_details":{"reason":"max_output_tokens"}}}`,
			want:  stream.Incomplete{Reason: "max_output_tokens"},
		},
		{
			name:  "error event",
			event: "error",
			data:  `{"type":"error","code":"server_error","message":"upstream exploded"}`,
			want:  stream.ErrorEvent{Code: "server_error", Message: "upstream exploded"},
		},
		{
			name:  "nested error event",
			event: "error",
			data:  `{"error":{"code":"bad","message":"nested"}}`,
			want:  stream.ErrorEvent{Code: "bad", Message: "nested"},
		},
		{
			name:  "unknown event",
			event: "response.in_progress",
			data:  `{}`,
			want:  stream.Unrecognized{Type: "response.in_progress"},
		},
		{
			name:  "invalid json",
			event: "response.output_text.delta",
			data:  `{"delta":`,
			want:  stream.Unrecognized{Type: "response.output_text.delta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeEvent(tt.event, []byte(tt.data))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decodeEvent() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
