package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/provider/openaicompat"
	"github.com/rhuss/chatbridge/pkg/stream"
)

// DefaultBaseURL is where a local Ollama server listens by default.
const DefaultBaseURL = "http://localhost:11434"

// Provider talks to an Ollama server.
type Provider struct {
	client *openaicompat.Client
	cfg    provider.Config
}

var _ provider.Provider = (*Provider)(nil)

// New creates an Ollama provider. An empty base URL selects DefaultBaseURL.
func New(cfg provider.Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Provider{
		client: openaicompat.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout),
		cfg:    cfg,
	}, nil
}

func (p *Provider) Name() string { return "ollama" }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Streaming:   true,
		ToolCalling: true,
		Vision:      true,
		Reasoning:   true,
		Embeddings:  true,
	}
}

// Chat calls /api/chat with stream=false.
func (p *Provider) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	var resp chatChunk
	if err := p.client.PostJSON(ctx, "/api/chat", translateRequest(req, false, p.cfg.CaptureReasoning), &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, api.NewProviderError("", resp.Error)
	}

	out := &api.ChatResponse{
		ID:        api.NewChatID(),
		Model:     resp.Model,
		Text:      api.StringPtr(resp.Message.Content),
		Usage:     usageFrom(&resp),
		CreatedAt: time.Now().Unix(),
	}
	if req.ReturnReasoning {
		out.Reasoning = api.StringPtr(resp.Message.Thinking)
	}
	for _, tc := range resp.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = api.NewCallID()
		}
		out.ToolCalls = append(out.ToolCalls, api.ToolInvocation{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: argumentsString(tc.Function.Arguments),
		})
	}
	if out.Text == nil && out.Reasoning == nil && len(out.ToolCalls) == 0 {
		return nil, api.NewEmptyResponseError()
	}
	out.FinishReason = stream.FinishReason(doneStatus(resp.DoneReason), len(out.ToolCalls) > 0)
	return out, nil
}

// Stream calls /api/chat with stream=true.
func (p *Provider) Stream(ctx context.Context, req *api.ChatRequest) (stream.Source, error) {
	httpResp, err := p.client.PostStream(ctx, "/api/chat", translateRequest(req, true, p.cfg.CaptureReasoning))
	if err != nil {
		return nil, err
	}
	return newLineSource(httpResp.Body), nil
}

// Embed calls /api/embed.
func (p *Provider) Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.EmbeddingModel
	}
	if model == "" {
		return nil, api.NewInvalidRequestError("model", "no embedding model configured")
	}

	var resp embedResponse
	if err := p.client.PostJSON(ctx, "/api/embed", embedRequest{Model: model, Input: req.Input, Dimensions: req.Dimensions}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(req.Input) {
		return nil, api.NewServerError(fmt.Sprintf("backend returned %d embeddings for %d inputs", len(resp.Embeddings), len(req.Input)))
	}

	out := &api.EmbeddingResponse{Model: model}
	for i, v := range resp.Embeddings {
		out.Embeddings = append(out.Embeddings, api.Embedding{Index: i, Vector: v})
	}
	if resp.PromptEvalCount > 0 {
		out.Usage = &api.TokenUsage{InputTokens: resp.PromptEvalCount, TotalTokens: resp.PromptEvalCount}
	}
	return out, nil
}

// ListModels calls /api/tags.
func (p *Provider) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	var resp tagsResponse
	if err := p.client.GetJSON(ctx, "/api/tags", &resp); err != nil {
		return nil, err
	}
	models := make([]provider.ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		info := provider.ModelInfo{ID: m.Name, Size: m.Size, OwnedBy: "local"}
		if i := strings.Index(m.Name, "/"); i > 0 {
			info.OwnedBy = m.Name[:i]
		}
		if t, err := time.Parse(time.RFC3339Nano, m.ModifiedAt); err == nil {
			info.Created = t
		}
		models = append(models, info)
	}
	return models, nil
}

func (p *Provider) Close() error {
	return p.client.Close()
}
