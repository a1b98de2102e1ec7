package responses

import (
	"context"
	"fmt"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/provider/openaicompat"
	"github.com/rhuss/chatbridge/pkg/stream"
)

const responsesPath = "/v1/responses"

// Provider implements provider.Provider for backends that support the
// OpenAI Responses API. HTTP plumbing and error mapping are shared with
// the Chat Completions adapter.
type Provider struct {
	client *openaicompat.Client
	cfg    provider.Config
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Responses API provider.
func New(cfg provider.Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("responses: base URL is required")
	}
	return &Provider{
		client: openaicompat.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout),
		cfg:    cfg,
	}, nil
}

func (p *Provider) Name() string { return "responses" }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		Streaming:   true,
		ToolCalling: true,
		Vision:      true,
		Reasoning:   true,
		Embeddings:  true,
		Images:      true,
	}
}

// Chat performs non-streaming inference via POST /v1/responses.
func (p *Provider) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	var resp responsesResponse
	body := translateRequest(req, false, p.cfg.CaptureReasoning)
	if err := p.client.PostJSON(ctx, responsesPath, body, &resp); err != nil {
		return nil, err
	}
	return translateResponse(&resp, req.ReturnReasoning)
}

// Stream performs streaming inference via POST /v1/responses with stream=true.
func (p *Provider) Stream(ctx context.Context, req *api.ChatRequest) (stream.Source, error) {
	body := translateRequest(req, true, p.cfg.CaptureReasoning)
	httpResp, err := p.client.PostStream(ctx, responsesPath, body)
	if err != nil {
		return nil, err
	}
	return newEventSource(httpResp.Body), nil
}

// GenerateImages uses the OpenAI-style /v1/images/generations endpoint.
func (p *Provider) GenerateImages(ctx context.Context, req *api.ImageRequest) (*api.ImageResponse, error) {
	return openaicompat.GenerateImages(ctx, p.client, req, p.cfg.ImageModel)
}

// Embed uses the OpenAI-style /v1/embeddings endpoint.
func (p *Provider) Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	return openaicompat.Embed(ctx, p.client, req, p.cfg.EmbeddingModel)
}

// ListModels queries the backend's /v1/models endpoint.
func (p *Provider) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return openaicompat.ListModels(ctx, p.client)
}

func (p *Provider) Close() error {
	return p.client.Close()
}
