package engine

import (
	"context"
	"time"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/observability"
	"github.com/rhuss/chatbridge/pkg/stream"
	"github.com/rhuss/chatbridge/pkg/transport"
)

// StreamChat validates req and starts streaming it. It returns the ID the
// final result will carry; h receives the partial text and exactly one
// outcome on another goroutine. A request that fails validation returns
// the error and h is never called.
func (e *Engine) StreamChat(ctx context.Context, req *api.ChatRequest, h stream.Handler) (string, error) {
	req.Stream = true
	if err := e.prepare(req); err != nil {
		return "", err
	}

	id := api.NewChatID()
	name := e.provider.Name()
	rh := &recordingHandler{
		next:  h,
		e:     e,
		ctx:   ctx,
		model: req.Model,
		start: time.Now(),
	}

	stream.Start(ctx, func(ctx context.Context) (stream.Source, error) {
		return e.provider.Stream(ctx, req)
	}, rh,
		stream.WithResponseID(id),
		stream.WithModel(req.Model),
		stream.WithReasoning(e.wantReasoning(req)),
		stream.WithArgumentRepair(e.cfg.RepairToolArguments),
		stream.WithLogger(e.logger.With("chat_id", id)),
		stream.WithObserver(func(ev stream.Event) {
			observability.StreamEventsTotal.WithLabelValues(name, ev.Kind()).Inc()
		}),
	)
	return id, nil
}

// recordingHandler records metrics and persists the result before handing
// the outcome to the caller's handler.
type recordingHandler struct {
	next  stream.Handler
	e     *Engine
	ctx   context.Context
	model string
	start time.Time
}

func (r *recordingHandler) OnPartialResponse(text string) {
	r.next.OnPartialResponse(text)
}

func (r *recordingHandler) OnCompleteResponse(resp *api.ChatResponse) {
	r.record(nil)
	observability.RecordResult(r.e.provider.Name(), resp)
	r.e.save(r.ctx, resp)
	r.next.OnCompleteResponse(resp)
}

func (r *recordingHandler) OnError(err error) {
	r.record(err)
	r.next.OnError(err)
}

func (r *recordingHandler) record(err error) {
	name := r.e.provider.Name()
	observability.RecordProviderCall(name, r.model, err, time.Since(r.start))
	observability.StreamOutcomesTotal.WithLabelValues(name, observability.Outcome(err)).Inc()
	if err != nil && !api.IsCancelled(err) {
		r.e.logger.Warn("stream failed", "model", r.model, "error", err)
	}
}

// streamTo bridges a stream to a transport.ResponseWriter and blocks until
// the stream has ended.
func (e *Engine) streamTo(ctx context.Context, req *api.ChatRequest, w transport.ResponseWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b := &eventBridge{ctx: ctx, w: w, cancel: cancel, done: make(chan struct{})}

	// created must be written before any delta, so the stream starts only
	// once the ID is known and announced.
	b.mu.Lock()
	id, err := e.StreamChat(ctx, req, b)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	b.writeErr = w.WriteEvent(ctx, api.StreamEvent{Type: api.EventChatCreated, ChatID: id})
	if b.writeErr != nil {
		cancel()
	}
	b.mu.Unlock()

	<-b.done
	if b.writeErr != nil {
		return b.writeErr
	}
	return b.err
}
