package engine

import (
	"context"
	"sync"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/transport"
)

// eventBridge is a stream.Handler writing gateway stream events. A failed
// write cancels the stream; the outcome still arrives and closes done.
type eventBridge struct {
	ctx    context.Context
	w      transport.ResponseWriter
	cancel context.CancelFunc

	mu       sync.Mutex
	writeErr error
	err      error
	done     chan struct{}
}

func (b *eventBridge) write(ev api.StreamEvent) {
	if b.writeErr != nil {
		return
	}
	if err := b.w.WriteEvent(b.ctx, ev); err != nil {
		b.writeErr = err
		b.cancel()
	}
}

func (b *eventBridge) OnPartialResponse(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.write(api.StreamEvent{Type: api.EventOutputTextDelta, Delta: text})
}

func (b *eventBridge) OnCompleteResponse(resp *api.ChatResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.write(api.StreamEvent{Type: api.EventChatCompleted, ChatID: resp.ID, Response: resp})
	close(b.done)
}

func (b *eventBridge) OnError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
	close(b.done)
}
