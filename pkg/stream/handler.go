package stream

import (
	"context"
	"sync"

	"github.com/rhuss/chatbridge/pkg/api"
)

// Handler receives the outcome of one streamed chat turn.
//
// Callbacks run synchronously on the goroutine that applies events and
// must not block for long.
type Handler interface {
	// OnPartialResponse receives each non-empty text fragment in order.
	OnPartialResponse(text string)

	// OnCompleteResponse receives the final result. Called at most once.
	OnCompleteResponse(resp *api.ChatResponse)

	// OnError receives the failure. Called at most once, and never
	// together with OnCompleteResponse.
	OnError(err error)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Partial  func(text string)
	Complete func(resp *api.ChatResponse)
	Error    func(err error)
}

func (f HandlerFuncs) OnPartialResponse(text string) {
	if f.Partial != nil {
		f.Partial(text)
	}
}

func (f HandlerFuncs) OnCompleteResponse(resp *api.ChatResponse) {
	if f.Complete != nil {
		f.Complete(resp)
	}
}

func (f HandlerFuncs) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Collector is a Handler that buffers partial text and lets a caller block
// until the outcome is known.
type Collector struct {
	mu       sync.Mutex
	partials []string
	resp     *api.ChatResponse
	err      error

	once sync.Once
	done chan struct{}
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{done: make(chan struct{})}
}

func (c *Collector) OnPartialResponse(text string) {
	c.mu.Lock()
	c.partials = append(c.partials, text)
	c.mu.Unlock()
}

func (c *Collector) OnCompleteResponse(resp *api.ChatResponse) {
	c.once.Do(func() {
		c.mu.Lock()
		c.resp = resp
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Collector) OnError(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.done)
	})
}

// Done is closed once the outcome is known.
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the outcome is known or ctx ends.
func (c *Collector) Wait(ctx context.Context) (*api.ChatResponse, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resp, c.err
}

// Partials returns a copy of the partial fragments received so far.
func (c *Collector) Partials() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.partials))
	copy(out, c.partials)
	return out
}
