package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/storage"
	"github.com/rhuss/chatbridge/pkg/transport"
)

// Adapter routes gateway requests to a ChatHandler and an optional
// ResultStore.
//
// When the ChatHandler also implements transport.Embedder,
// transport.ImageGenerator or transport.ModelLister, the matching endpoints
// are served.
type Adapter struct {
	chat     transport.ChatHandler
	store    transport.ResultStore // nil if stateless
	embedder transport.Embedder
	images   transport.ImageGenerator
	models   transport.ModelLister
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// RouteMiddleware wraps the router directly, so r.Pattern is set once
	// the wrapped handler returns. Metrics middleware belongs here.
	RouteMiddleware []func(http.Handler) http.Handler
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{MaxBodySize: 10 << 20}
}

// NewAdapter creates an adapter. Middleware wraps chat in the given order.
func NewAdapter(chat transport.ChatHandler, store transport.ResultStore, cfg Config, middlewares ...transport.Middleware) *Adapter {
	a := &Adapter{
		store:    store,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}
	if e, ok := chat.(transport.Embedder); ok {
		a.embedder = e
	}
	if g, ok := chat.(transport.ImageGenerator); ok {
		a.images = g
	}
	if m, ok := chat.(transport.ModelLister); ok {
		a.models = m
	}
	if len(middlewares) > 0 {
		chat = transport.Chain(middlewares...)(chat)
	}
	a.chat = chat

	a.mux.HandleFunc("POST /v1/chat", a.handleCreateChat)
	a.mux.HandleFunc("GET /v1/chat/{id}", a.handleGetResult)
	a.mux.HandleFunc("GET /v1/chat", a.handleListResults)
	a.mux.HandleFunc("DELETE /v1/chat/{id}", a.handleDeleteResult)
	a.mux.HandleFunc("POST /v1/embeddings", a.handleEmbeddings)
	a.mux.HandleFunc("POST /v1/images/generations", a.handleImages)
	a.mux.HandleFunc("GET /v1/models", a.handleListModels)
	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)

	return a
}

// Handler returns the adapter's http.Handler.
func (a *Adapter) Handler() http.Handler {
	var h http.Handler = a.mux
	for i := len(a.config.RouteMiddleware) - 1; i >= 0; i-- {
		h = a.config.RouteMiddleware[i](h)
	}
	return httpRequestIDMiddleware(h)
}

// InFlight returns the registry of running streams.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// httpRequestIDMiddleware moves X-Request-ID into the context, generating
// one when absent, and echoes it on the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

// decodeJSON decodes a size-limited JSON body into v, writing the error
// response itself when it fails.
func (a *Adapter) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && ct != "application/json" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()),
			http.StatusBadRequest,
		)
		return false
	}
	return true
}

// handleCreateChat handles POST /v1/chat.
func (a *Adapter) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}

	if !req.Stream {
		rw := newSSEResponseWriter(w, nil)
		if err := a.chat.CreateChat(r.Context(), &req, rw); err != nil {
			writeHandlerError(w, rw, err)
		}
		return
	}

	// Streams are registered under their chat ID so DELETE can stop them.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var registeredID string
	rw := newSSEResponseWriter(w, func(id string) {
		registeredID = id
		a.inflight.Register(id, cancel)
	})

	err := a.chat.CreateChat(ctx, &req, rw)
	if registeredID != "" {
		a.inflight.Remove(registeredID)
	}
	if err != nil {
		writeHandlerError(w, rw, err)
	}
}

// handleGetResult handles GET /v1/chat/{id}.
func (a *Adapter) handleGetResult(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, "result retrieval") {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	resp, err := a.store.GetResult(r.Context(), id)
	if err != nil {
		writeStoreError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteResult handles DELETE /v1/chat/{id}. A running stream with
// that ID is cancelled; otherwise the stored result is deleted.
func (a *Adapter) handleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if a.inflight.Cancel(id) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if !a.requireStore(w, "result deletion") {
		return
	}
	if err := a.store.DeleteResult(r.Context(), id); err != nil {
		writeStoreError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListResults handles GET /v1/chat.
func (a *Adapter) handleListResults(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w, "result listing") {
		return
	}
	opts, apiErr := parseListOptions(r)
	if apiErr != nil {
		transport.WriteErrorResponse(w, apiErr, http.StatusBadRequest)
		return
	}

	list, err := a.store.ListResults(r.Context(), opts)
	if err != nil {
		writeStoreError(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// embeddingBody accepts input as a single string or a list.
type embeddingBody struct {
	Model      string          `json:"model"`
	Input      json.RawMessage `json:"input"`
	Dimensions *int            `json:"dimensions,omitempty"`
}

// handleEmbeddings handles POST /v1/embeddings.
func (a *Adapter) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	if a.embedder == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "embeddings are not available"),
			http.StatusNotImplemented,
		)
		return
	}

	var body embeddingBody
	if !a.decodeJSON(w, r, &body) {
		return
	}
	req := &api.EmbeddingRequest{Model: body.Model, Dimensions: body.Dimensions}
	var single string
	if err := json.Unmarshal(body.Input, &single); err == nil {
		req.Input = []string{single}
	} else if err := json.Unmarshal(body.Input, &req.Input); err != nil {
		transport.WriteAPIError(w, api.NewInvalidRequestError("input", "input must be a string or a list of strings"))
		return
	}

	resp, err := a.embedder.Embed(r.Context(), req)
	if err != nil {
		transport.WriteAPIError(w, asAPIError(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleImages handles POST /v1/images/generations.
func (a *Adapter) handleImages(w http.ResponseWriter, r *http.Request) {
	if a.images == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "image generation is not available"),
			http.StatusNotImplemented,
		)
		return
	}

	var req api.ImageRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	resp, err := a.images.GenerateImages(r.Context(), &req)
	if err != nil {
		transport.WriteAPIError(w, asAPIError(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListModels handles GET /v1/models.
func (a *Adapter) handleListModels(w http.ResponseWriter, r *http.Request) {
	if a.models == nil {
		writeJSON(w, http.StatusOK, api.ModelList{Object: "list", Data: []api.Model{}})
		return
	}
	list, err := a.models.ListModels(r.Context())
	if err != nil {
		transport.WriteAPIError(w, asAPIError(err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *Adapter) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready once the store answers its health check.
func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.store != nil {
		if err := a.store.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *Adapter) requireStore(w http.ResponseWriter, op string) bool {
	if a.store != nil {
		return true
	}
	transport.WriteErrorResponse(w,
		api.NewInvalidRequestError("", op+" is not available (no store configured)"),
		http.StatusNotImplemented,
	)
	return false
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !api.ValidateChatID(id) {
		transport.WriteErrorResponse(w, api.NewInvalidRequestError("id", "malformed chat ID"), http.StatusBadRequest)
		return "", false
	}
	return id, true
}

// parseListOptions reads the pagination query parameters.
func parseListOptions(r *http.Request) (transport.ListOptions, *api.APIError) {
	q := r.URL.Query()
	opts := transport.ListOptions{
		After:  q.Get("after"),
		Before: q.Get("before"),
		Model:  q.Get("model"),
		Order:  q.Get("order"),
	}

	if opts.After != "" && opts.Before != "" {
		return opts, api.NewInvalidRequestError("after", "cannot use both 'after' and 'before' cursors")
	}
	if opts.Order != "" && opts.Order != "asc" && opts.Order != "desc" {
		return opts, api.NewInvalidRequestError("order", "order must be 'asc' or 'desc'")
	}
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			return opts, api.NewInvalidRequestError("limit", "limit must be a positive integer")
		}
		opts.Limit = limit
	}
	return opts.Normalize(), nil
}

func asAPIError(err error) *api.APIError {
	if apiErr, ok := api.AsAPIError(err); ok {
		return apiErr
	}
	return api.NewServerError(err.Error())
}

func writeStoreError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		transport.WriteAPIError(w, api.NewNotFoundError("chat result "+id+" not found"))
		return
	}
	transport.WriteAPIError(w, asAPIError(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeHandlerError reports a handler failure: as an error event when the
// stream has begun, as a JSON error response otherwise.
func writeHandlerError(w http.ResponseWriter, rw *sseResponseWriter, err error) {
	apiErr := asAPIError(err)
	if rw.hasStartedStreaming() {
		rw.WriteEvent(context.Background(), api.StreamEvent{Type: api.EventError, Error: apiErr})
		return
	}
	transport.WriteAPIError(w, apiErr)
}
