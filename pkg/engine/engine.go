package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/observability"
	"github.com/rhuss/chatbridge/pkg/provider"
	"github.com/rhuss/chatbridge/pkg/storage"
	"github.com/rhuss/chatbridge/pkg/transport"
)

// Engine dispatches chat, embedding and model requests to one provider.
type Engine struct {
	provider provider.Provider
	store    transport.ResultStore
	cfg      Config
	logger   *slog.Logger
}

var (
	_ transport.ChatHandler    = (*Engine)(nil)
	_ transport.Embedder       = (*Engine)(nil)
	_ transport.ModelLister    = (*Engine)(nil)
	_ transport.ImageGenerator = (*Engine)(nil)
)

// New creates an Engine. The provider must not be nil; the store may be.
func New(p provider.Provider, store transport.ResultStore, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, errors.New("engine: provider must not be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		provider: p,
		store:    store,
		cfg:      cfg,
		logger:   logger.With("provider", p.Name()),
	}, nil
}

// Provider returns the configured provider.
func (e *Engine) Provider() provider.Provider {
	return e.provider
}

// prepare applies the default model and validates req.
func (e *Engine) prepare(req *api.ChatRequest) error {
	if req.Model == "" {
		req.Model = e.cfg.DefaultModel
	}
	if apiErr := api.ValidateRequest(req, e.cfg.validation()); apiErr != nil {
		return apiErr
	}
	if apiErr := provider.ValidateCapabilities(e.provider.Capabilities(), req); apiErr != nil {
		return apiErr
	}
	return nil
}

// Chat runs a non-streaming chat turn.
func (e *Engine) Chat(ctx context.Context, req *api.ChatRequest) (*api.ChatResponse, error) {
	if err := e.prepare(req); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := e.provider.Chat(ctx, req)
	observability.RecordProviderCall(e.provider.Name(), req.Model, err, time.Since(start))
	if err != nil {
		if ctx.Err() != nil && !api.IsCancelled(err) {
			err = api.NewCancelledError("request cancelled: " + ctx.Err().Error())
		}
		return nil, err
	}

	// Results live in the gateway's ID space regardless of the provider's.
	resp.ID = api.NewChatID()
	if resp.Model == "" {
		resp.Model = req.Model
	}
	if resp.CreatedAt == 0 {
		resp.CreatedAt = time.Now().Unix()
	}
	if !e.wantReasoning(req) {
		resp.Reasoning = nil
	}

	observability.RecordResult(e.provider.Name(), resp)
	e.save(ctx, resp)
	return resp, nil
}

// Embed computes embeddings with the provider.
func (e *Engine) Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	if len(req.Input) == 0 {
		return nil, api.NewInvalidRequestError("input", "input must contain at least one string")
	}
	if !e.provider.Capabilities().Embeddings {
		return nil, api.NewInvalidRequestError("model", "the configured provider does not support embeddings")
	}

	start := time.Now()
	resp, err := e.provider.Embed(ctx, req)
	observability.RecordProviderCall(e.provider.Name(), req.Model, err, time.Since(start))
	return resp, err
}

// GenerateImages generates images with the provider. The provider's
// configured image model applies when the request names none.
func (e *Engine) GenerateImages(ctx context.Context, req *api.ImageRequest) (*api.ImageResponse, error) {
	if apiErr := api.ValidateImageRequest(req); apiErr != nil {
		return nil, apiErr
	}
	gen, ok := e.provider.(provider.ImageGenerator)
	if !ok || !e.provider.Capabilities().Images {
		return nil, api.NewInvalidRequestError("model", "the configured provider does not support image generation")
	}

	start := time.Now()
	resp, err := gen.GenerateImages(ctx, req)
	observability.RecordProviderCall(e.provider.Name(), req.Model, err, time.Since(start))
	return resp, err
}

// ListModels lists the provider's models.
func (e *Engine) ListModels(ctx context.Context) (*api.ModelList, error) {
	models, err := e.provider.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	list := &api.ModelList{Object: "list", Data: make([]api.Model, 0, len(models))}
	for _, m := range models {
		model := api.Model{ID: m.ID, Object: "model", OwnedBy: m.OwnedBy}
		if !m.Created.IsZero() {
			model.Created = m.Created.Unix()
		}
		list.Data = append(list.Data, model)
	}
	return list, nil
}

// CreateChat serves a gateway request: a single JSON response, or a
// stream of events ending in response.completed. A failure after the
// first event is returned for the transport to report as an error event.
func (e *Engine) CreateChat(ctx context.Context, req *api.ChatRequest, w transport.ResponseWriter) error {
	if !req.Stream {
		resp, err := e.Chat(ctx, req)
		if err != nil {
			return err
		}
		return w.WriteResponse(ctx, resp)
	}
	return e.streamTo(ctx, req, w)
}

func (e *Engine) wantReasoning(req *api.ChatRequest) bool {
	return e.cfg.CaptureReasoning || req.ReturnReasoning
}

// save persists resp. Persistence failures are logged and do not fail the
// request. The save outlives a cancelled request context but keeps its
// tenant.
func (e *Engine) save(ctx context.Context, resp *api.ChatResponse) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := e.store.SaveResult(ctx, resp); err != nil {
		e.logger.Warn("failed to store result", "id", resp.ID, "tenant", storage.GetTenant(ctx), "error", err)
	}
}
