package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/storage"
	"github.com/rhuss/chatbridge/pkg/storage/memory"
	"github.com/rhuss/chatbridge/pkg/stream"
	"github.com/rhuss/chatbridge/pkg/transport"
)

// mockProvider implements provider.Provider for testing.
type mockProvider struct {
	caps     provider.Capabilities
	response *api.ChatResponse
	err      error
	streamFn func(ctx context.Context, req *api.ChatRequest) (stream.Source, error)
	models   []provider.ModelInfo

	mu      sync.Mutex
	lastReq *api.ChatRequest
}

func (m *mockProvider) Name() string                        { return "mock" }
func (m *mockProvider) Capabilities() provider.Capabilities { return m.caps }

func (m *mockProvider) Chat(_ context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	resp := *m.response
	return &resp, nil
}

func (m *mockProvider) Stream(ctx context.Context, req *api.ChatRequest) (stream.Source, error) {
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	if m.streamFn != nil {
		return m.streamFn(ctx, req)
	}
	return nil, api.NewServerError("streaming not configured in mock")
}

func (m *mockProvider) Embed(_ context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	out := &api.EmbeddingResponse{Model: "embed"}
	for i := range req.Input {
		out.Embeddings = append(out.Embeddings, api.Embedding{Index: i, Vector: []float32{float32(i)}})
	}
	return out, nil
}

func (m *mockProvider) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return m.models, nil
}

func (m *mockProvider) Close() error { return nil }

func fullCaps() provider.Capabilities {
	return provider.Capabilities{Streaming: true, ToolCalling: true, Reasoning: true, Embeddings: true}
}

// mockWriter captures what the engine writes.
type mockWriter struct {
	mu       sync.Mutex
	response *api.ChatResponse
	events   []api.StreamEvent
	failAt   int // fail the nth WriteEvent (1-based), 0 never
}

func (w *mockWriter) WriteResponse(_ context.Context, resp *api.ChatResponse) error {
	w.response = resp
	return nil
}

func (w *mockWriter) WriteEvent(_ context.Context, ev api.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAt > 0 && len(w.events)+1 == w.failAt {
		return errors.New("client went away")
	}
	w.events = append(w.events, ev)
	return nil
}

func (w *mockWriter) Flush() error { return nil }

var _ transport.ResponseWriter = (*mockWriter)(nil)

func userRequest(model string) *api.ChatRequest {
	return &api.ChatRequest{Model: model, Messages: []api.Message{{Role: api.RoleUser, Content: "Hi"}}}
}

func textStream(ctx context.Context, _ *api.ChatRequest) (stream.Source, error) {
	return stream.Events(
		stream.Created{StreamID: "resp_upstream", Model: "m-1"},
		stream.TextDelta{Text: "Hello"},
		stream.TextDelta{Text: " world"},
		stream.Completed{Status: "completed", Usage: &api.TokenUsage{InputTokens: 2, OutputTokens: 2, TotalTokens: 4}},
	), nil
}

func TestNew_NilProvider(t *testing.T) {
	if _, err := New(nil, nil, Config{}); err == nil {
		t.Fatal("expected error for nil provider")
	}
}

func TestChat_DefaultModelAndStore(t *testing.T) {
	mp := &mockProvider{
		caps:     fullCaps(),
		response: &api.ChatResponse{ID: "upstream", Text: api.StringPtr("Hello"), Reasoning: api.StringPtr("hmm"), FinishReason: api.FinishReasonStop},
	}
	store := memory.New(0)
	eng, _ := New(mp, store, Config{DefaultModel: "default-m"})

	ctx := storage.SetTenant(context.Background(), "acme")
	resp, err := eng.Chat(ctx, userRequest(""))
	if err != nil {
		t.Fatal(err)
	}
	if mp.lastReq.Model != "default-m" {
		t.Errorf("provider saw model %q", mp.lastReq.Model)
	}
	if !api.ValidateChatID(resp.ID) || resp.Model != "default-m" || resp.CreatedAt == 0 {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Reasoning != nil {
		t.Error("reasoning should be dropped when not requested")
	}
	if _, err := store.GetResult(ctx, resp.ID); err != nil {
		t.Errorf("result not stored under tenant: %v", err)
	}
}

func TestChat_Validation(t *testing.T) {
	eng, _ := New(&mockProvider{caps: provider.Capabilities{}}, nil, Config{})

	_, err := eng.Chat(context.Background(), userRequest(""))
	if apiErr, ok := api.AsAPIError(err); !ok || apiErr.Param != "model" {
		t.Errorf("missing model: %v", err)
	}

	req := userRequest("m")
	req.Tools = []api.ToolSpec{{Name: "lookup"}}
	_, err = eng.Chat(context.Background(), req)
	if apiErr, ok := api.AsAPIError(err); !ok || apiErr.Param != "tools" {
		t.Errorf("unsupported tools: %v", err)
	}
}

func TestChat_ProviderError(t *testing.T) {
	mp := &mockProvider{caps: fullCaps(), err: api.NewProviderError("rate_limit", "slow down")}
	eng, _ := New(mp, nil, Config{})
	_, err := eng.Chat(context.Background(), userRequest("m"))
	if !api.IsType(err, api.ErrorTypeProviderError) {
		t.Errorf("err = %v", err)
	}
}

func TestStreamChat(t *testing.T) {
	mp := &mockProvider{caps: fullCaps(), streamFn: textStream}
	store := memory.New(0)
	eng, _ := New(mp, store, Config{})

	c := stream.NewCollector()
	id, err := eng.StreamChat(context.Background(), userRequest("m-1"), c)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if resp.ID != id {
		t.Errorf("resp.ID = %q, want %q", resp.ID, id)
	}
	if resp.TextOrEmpty() != "Hello world" || resp.FinishReason != api.FinishReasonStop {
		t.Errorf("resp = %+v", resp)
	}
	if !mp.lastReq.Stream {
		t.Error("provider request should be marked as streaming")
	}
	if _, err := store.GetResult(context.Background(), id); err != nil {
		t.Errorf("stream result not stored: %v", err)
	}
}

func TestStreamChat_ValidationIsSynchronous(t *testing.T) {
	eng, _ := New(&mockProvider{caps: fullCaps()}, nil, Config{})
	called := false
	_, err := eng.StreamChat(context.Background(), &api.ChatRequest{Model: "m"}, stream.HandlerFuncs{
		Error: func(error) { called = true },
	})
	if !api.IsType(err, api.ErrorTypeInvalidRequest) {
		t.Errorf("err = %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if called {
		t.Error("handler must not be called for invalid requests")
	}
}

func TestStreamChat_ToolCallsWithRepair(t *testing.T) {
	mp := &mockProvider{caps: fullCaps(), streamFn: func(ctx context.Context, _ *api.ChatRequest) (stream.Source, error) {
		return stream.Events(
			stream.ToolCallStarted{ItemID: "i1", CallID: "call_1", Name: "lookup"},
			stream.ToolCallArgumentDone{ItemID: "i1", Arguments: `{"q": "x"`},
			stream.Completed{Status: "completed"},
		), nil
	}}
	eng, _ := New(mp, nil, Config{RepairToolArguments: true})

	c := stream.NewCollector()
	if _, err := eng.StreamChat(context.Background(), userRequest("m"), c); err != nil {
		t.Fatal(err)
	}
	resp, err := c.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Arguments != `{"q": "x"}` {
		t.Errorf("tool calls = %+v", resp.ToolCalls)
	}
	if resp.FinishReason != api.FinishReasonToolExecution {
		t.Errorf("finish = %s", resp.FinishReason)
	}
}

func TestCreateChat_Streaming(t *testing.T) {
	eng, _ := New(&mockProvider{caps: fullCaps(), streamFn: textStream}, nil, Config{})

	req := userRequest("m-1")
	req.Stream = true
	w := &mockWriter{}
	if err := eng.CreateChat(context.Background(), req, w); err != nil {
		t.Fatal(err)
	}

	var types []api.StreamEventType
	for _, ev := range w.events {
		types = append(types, ev.Type)
	}
	want := []api.StreamEventType{api.EventChatCreated, api.EventOutputTextDelta, api.EventOutputTextDelta, api.EventChatCompleted}
	if len(types) != len(want) {
		t.Fatalf("events = %v", types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, types[i], want[i])
		}
	}
	if w.events[0].ChatID == "" || w.events[0].ChatID != w.events[3].Response.ID {
		t.Errorf("created id %q does not match result id", w.events[0].ChatID)
	}
}

func TestCreateChat_StreamFailure(t *testing.T) {
	mp := &mockProvider{caps: fullCaps(), streamFn: func(ctx context.Context, _ *api.ChatRequest) (stream.Source, error) {
		return stream.Events(
			stream.TextDelta{Text: "par"},
			stream.Failed{Code: "server_error", Details: "backend exploded"},
		), nil
	}}
	eng, _ := New(mp, nil, Config{})

	req := userRequest("m")
	req.Stream = true
	w := &mockWriter{}
	err := eng.CreateChat(context.Background(), req, w)
	if !api.IsType(err, api.ErrorTypeProviderError) {
		t.Fatalf("err = %v", err)
	}
	if len(w.events) != 2 {
		t.Errorf("events = %+v", w.events)
	}
}

func TestCreateChat_WriteFailureCancelsStream(t *testing.T) {
	events := make(chan stream.Event)
	mp := &mockProvider{caps: fullCaps(), streamFn: func(ctx context.Context, _ *api.ChatRequest) (stream.Source, error) {
		return stream.NewChannelSource(events, nil), nil
	}}
	eng, _ := New(mp, nil, Config{})

	req := userRequest("m")
	req.Stream = true
	w := &mockWriter{failAt: 2}

	done := make(chan error, 1)
	go func() { done <- eng.CreateChat(context.Background(), req, w) }()

	events <- stream.TextDelta{Text: "a"}

	select {
	case err := <-done:
		if err == nil || err.Error() != "client went away" {
			t.Errorf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("CreateChat did not return after the write failed")
	}
}

func TestCreateChat_NonStreaming(t *testing.T) {
	mp := &mockProvider{caps: fullCaps(), response: &api.ChatResponse{Text: api.StringPtr("ok"), FinishReason: api.FinishReasonStop}}
	eng, _ := New(mp, nil, Config{})
	w := &mockWriter{}
	if err := eng.CreateChat(context.Background(), userRequest("m"), w); err != nil {
		t.Fatal(err)
	}
	if w.response == nil || w.response.TextOrEmpty() != "ok" || len(w.events) != 0 {
		t.Errorf("writer = %+v", w)
	}
}

func TestEmbedAndModels(t *testing.T) {
	mp := &mockProvider{caps: fullCaps(), models: []provider.ModelInfo{
		{ID: "a", OwnedBy: "org", Created: time.Unix(1700000000, 0)},
		{ID: "b"},
	}}
	eng, _ := New(mp, nil, Config{})

	emb, err := eng.Embed(context.Background(), &api.EmbeddingRequest{Input: []string{"x", "y"}})
	if err != nil || len(emb.Embeddings) != 2 {
		t.Errorf("Embed = %+v, %v", emb, err)
	}
	if _, err := eng.Embed(context.Background(), &api.EmbeddingRequest{}); !api.IsType(err, api.ErrorTypeInvalidRequest) {
		t.Errorf("empty input: %v", err)
	}

	list, err := eng.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if list.Object != "list" || len(list.Data) != 2 || list.Data[0].Created != 1700000000 || list.Data[1].Created != 0 {
		t.Errorf("models = %+v", list)
	}
}

// imageProvider adds image generation to mockProvider.
type imageProvider struct {
	*mockProvider
}

func (imageProvider) GenerateImages(_ context.Context, req *api.ImageRequest) (*api.ImageResponse, error) {
	return &api.ImageResponse{Model: req.Model, Images: []api.GeneratedImage{{URL: "https://img.test/1.png"}}}, nil
}

func TestGenerateImages(t *testing.T) {
	imageCaps := fullCaps()
	imageCaps.Images = true

	tests := []struct {
		name     string
		provider provider.Provider
		req      *api.ImageRequest
		wantErr  bool
	}{
		{"generated", imageProvider{&mockProvider{caps: imageCaps}}, &api.ImageRequest{Prompt: "a cat"}, false},
		{"empty prompt", imageProvider{&mockProvider{caps: imageCaps}}, &api.ImageRequest{}, true},
		{"capability off", imageProvider{&mockProvider{caps: fullCaps()}}, &api.ImageRequest{Prompt: "a cat"}, true},
		{"no generator", &mockProvider{caps: imageCaps}, &api.ImageRequest{Prompt: "a cat"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _ := New(tt.provider, nil, Config{})
			resp, err := eng.GenerateImages(context.Background(), tt.req)
			if tt.wantErr {
				if !api.IsType(err, api.ErrorTypeInvalidRequest) {
					t.Errorf("err = %v, want invalid_request", err)
				}
				return
			}
			if err != nil || len(resp.Images) != 1 {
				t.Errorf("GenerateImages = %+v, %v", resp, err)
			}
		})
	}
}
