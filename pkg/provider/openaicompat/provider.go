package openaicompat

import (
	"context"
	"fmt"
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/stream"
)

// Provider talks to a Chat Completions backend.
type Provider struct {
	client *Client
	cfg    provider.Config
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Chat Completions provider.
func New(cfg provider.Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: base URL is required")
	}
	return &Provider{
		client: NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout),
		cfg:    cfg,
	}, nil
}

func (p *Provider) Name() string { return "openaicompat" }

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

// Chat performs a non-streaming chat completion.
func (p *Provider) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	var resp ChatCompletionResponse
	if err := p.client.PostJSON(ctx, "/v1/chat/completions", TranslateRequest(req, false), &resp); err != nil {
		return nil, err
	}
	out, err := TranslateResponse(&resp)
	if err != nil {
		return nil, err
	}
	if !req.ReturnReasoning {
		out.Reasoning = nil
	}
	return out, nil
}

// Stream starts a streaming chat completion.
func (p *Provider) Stream(ctx context.Context, req *api.ChatRequest) (stream.Source, error) {
	httpResp, err := p.client.PostStream(ctx, "/v1/chat/completions", TranslateRequest(req, true))
	if err != nil {
		return nil, err
	}
	return NewChunkSource(httpResp.Body), nil
}

// Embed calls /v1/embeddings.
func (p *Provider) Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	return Embed(ctx, p.client, req, p.cfg.EmbeddingModel)
}

// GenerateImages calls /v1/images/generations.
func (p *Provider) GenerateImages(ctx context.Context, req *api.ImageRequest) (*api.ImageResponse, error) {
	return GenerateImages(ctx, p.client, req, p.cfg.ImageModel)
}

// ListModels queries /v1/models.
func (p *Provider) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	return ListModels(ctx, p.client)
}

func (p *Provider) Close() error {
	return p.client.Close()
}

// Embed calls the OpenAI-style /v1/embeddings endpoint. defaultModel is
// used when the request names none.
func Embed(ctx context.Context, c *Client, req *api.EmbeddingRequest, defaultModel string) (*api.EmbeddingResponse, error) {
	model := req.Model
	if model == "" {
		model = defaultModel
	}
	if model == "" {
		return nil, api.NewInvalidRequestError("model", "no embedding model configured")
	}

	var resp EmbeddingResponse
	body := EmbeddingRequest{Model: model, Input: req.Input, Dimensions: req.Dimensions, EncodingFormat: "float"}
	if err := c.PostJSON(ctx, "/v1/embeddings", body, &resp); err != nil {
		return nil, err
	}

	out := &api.EmbeddingResponse{Model: resp.Model, Usage: TranslateUsage(resp.Usage)}
	if out.Model == "" {
		out.Model = model
	}
	for _, d := range resp.Data {
		out.Embeddings = append(out.Embeddings, api.Embedding{Index: d.Index, Vector: d.Embedding})
	}
	return out, nil
}

// GenerateImages calls the OpenAI-style /v1/images/generations endpoint.
// defaultModel is used when the request names none; with neither, the
// backend picks its own default.
func GenerateImages(ctx context.Context, c *Client, req *api.ImageRequest, defaultModel string) (*api.ImageResponse, error) {
	body := ImageRequest{
		Model:          req.Model,
		Prompt:         req.Prompt,
		N:              req.N,
		Size:           req.Size,
		Quality:        req.Quality,
		ResponseFormat: req.ResponseFormat,
	}
	if body.Model == "" {
		body.Model = defaultModel
	}

	var resp ImageResponse
	if err := c.PostJSON(ctx, "/v1/images/generations", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, api.NewEmptyResponseError()
	}

	out := &api.ImageResponse{Created: resp.Created, Model: body.Model, Images: make([]api.GeneratedImage, 0, len(resp.Data))}
	for _, d := range resp.Data {
		out.Images = append(out.Images, api.GeneratedImage{URL: d.URL, B64JSON: d.B64JSON, RevisedPrompt: d.RevisedPrompt})
	}
	return out, nil
}

// ListModels queries the OpenAI-style /v1/models endpoint.
func ListModels(ctx context.Context, c *Client) ([]provider.ModelInfo, error) {
	var resp ChatModelsResponse
	if err := c.GetJSON(ctx, "/v1/models", &resp); err != nil {
		return nil, err
	}

	models := make([]provider.ModelInfo, 0, len(resp.Data))
	for _, m := range resp.Data {
		info := provider.ModelInfo{ID: m.ID, OwnedBy: m.OwnedBy}
		if m.Created > 0 {
			info.Created = time.Unix(m.Created, 0).UTC()
		}
		models = append(models, info)
	}
	return models, nil
}
