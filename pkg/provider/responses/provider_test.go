package responses

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/stream"
)

// mockStreamingServer returns a server that answers /v1/responses with the
// given SSE body for streaming requests.
func mockStreamingServer(t *testing.T, sse string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req responsesRequest
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "decode: "+err.Error(), http.StatusBadRequest)
			return
		}
		if !req.Stream {
			http.Error(w, "expected stream", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sse)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func runStream(t *testing.T, srv *httptest.Server, opts ...stream.Option) (*api.ChatResponse, []string, error) {
	t.Helper()
	p, err := New(provider.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	req := &api.ChatRequest{Model: "gpt-x", Messages: []api.Message{{Role: api.RoleUser, Content: "hi"}}}
	c := stream.NewCollector()
	stream.Start(context.Background(), func(ctx context.Context) (stream.Source, error) {
		return p.Stream(ctx, req)
	}, c, opts...)

	resp, err := c.Wait(context.Background())
	return resp, c.Partials(), err
}

func TestProvider_StreamText(t *testing.T) {
	srv := mockStreamingServer(t, `event: response.created
data: {"type":"response.created","response":{"id":"resp_1","model":"gpt-x"}}

event: response.in_progress
data: {"type":"response.in_progress"}

event: response.output_text.delta
data: {"type":"response.output_text.delta","delta":"Hel"}

event: response.output_text.delta
data: {"type":"response.output_text.delta","delta":"lo"}

event: response.completed
data: {"type":"response.completed","response":{"id":"resp_1","status":"completed","usage":{"input_tokens":5,"output_tokens":2,"total_tokens":7}}}

`)

	resp, partials, err := runStream(t, srv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ID != "resp_1" || resp.TextOrEmpty() != "Hello" || resp.FinishReason != api.FinishReasonStop {
		t.Errorf("resp = %+v", resp)
	}
	if len(partials) != 2 {
		t.Errorf("partials = %v", partials)
	}
}

func TestProvider_StreamToolCall(t *testing.T) {
	srv := mockStreamingServer(t, `event: response.output_item.added
data: {"item":{"type":"function_call","id":"fc_1","call_id":"call_1","name":"lookup"}}

event: response.function_call_arguments.delta
data: {"item_id":"fc_1","delta":"{\"q\":"}

event: response.function_call_arguments.delta
data: {"item_id":"fc_1","delta":"\"x\"}"}

event: response.function_call_arguments.done
data: {"item_id":"fc_1","arguments":"{\"q\":\"x\"}"}

event: response.completed
data: {"response":{"status":"completed"}}

`)

	resp, _, err := runStream(t, srv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != nil {
		t.Errorf("text = %q, want nil", *resp.Text)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "call_1" || resp.ToolCalls[0].Arguments != `{"q":"x"}` {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}
	if resp.FinishReason != api.FinishReasonToolExecution {
		t.Errorf("finish reason = %q", resp.FinishReason)
	}
}

func TestProvider_StreamFailed(t *testing.T) {
	srv := mockStreamingServer(t, `event: response.output_text.delta
data: {"delta":"partial"}

event: response.failed
data: {"response":{"status":"failed","error":{"code":"rate_limit_exceeded","message":"rate limited"}}}

`)

	resp, partials, err := runStream(t, srv)
	if resp != nil {
		t.Errorf("unexpected response %+v", resp)
	}
	apiErr, ok := api.AsAPIError(err)
	if !ok || apiErr.Type != api.ErrorTypeProviderError || apiErr.Message != "rate limited" {
		t.Errorf("err = %v", err)
	}
	if len(partials) != 1 || partials[0] != "partial" {
		t.Errorf("partials = %v", partials)
	}
}

func TestProvider_StreamTruncated(t *testing.T) {
	srv := mockStreamingServer(t, `event: response.output_text.delta
data: {"delta":"cut off"}

`)

	_, _, err := runStream(t, srv)
	if !api.IsType(err, api.ErrorTypeServerError) {
		t.Errorf("err = %v, want server error for missing terminal event", err)
	}
}

func TestProvider_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"resp_2","status":"completed","model":"gpt-x","output":[{"type":"message","content":[{"type":"output_text","text":"pong"}]}]}`)
	}))
	defer srv.Close()

	p, _ := New(provider.Config{BaseURL: srv.URL})
	resp, err := p.Chat(context.Background(), &api.ChatRequest{Model: "gpt-x", Messages: []api.Message{{Role: api.RoleUser, Content: "ping"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TextOrEmpty() != "pong" {
		t.Errorf("text = %q", resp.TextOrEmpty())
	}
}
