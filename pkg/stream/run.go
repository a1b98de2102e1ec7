package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/rhuss/chatbridge/pkg/api"
)

// Source yields the events of one provider stream. Next returns io.EOF
// when the stream ends. Close releases the underlying connection and is
// called exactly once by Run.
type Source interface {
	Next(ctx context.Context) (Event, error)
	io.Closer
}

// OpenFunc opens a Source. It is called on the goroutine started by Start.
type OpenFunc func(ctx context.Context) (Source, error)

// Run pulls events from src into a new Processor until an outcome has
// been delivered to h. src is closed before Run returns.
//
// A source that ends without a terminal event, or fails to read, yields
// exactly one OnError.
func Run(ctx context.Context, src Source, h Handler, opts ...Option) {
	p := NewProcessor(ctx, h, opts...)
	defer func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("panic closing stream source", "panic", r)
			}
		}()
		if err := src.Close(); err != nil {
			p.logger.Debug("closing stream source", "error", err)
		}
	}()

	for !p.Done() {
		ev, err := next(ctx, src)
		if err != nil {
			p.Fail(sourceError(ctx, err))
			return
		}
		p.Push(ev)
	}
}

// next calls src.Next, converting a panic into an error.
func next(ctx context.Context, src Source) (ev Event, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = api.NewServerError(fmt.Sprintf("panic reading stream: %v", r))
		}
	}()
	return src.Next(ctx)
}

func sourceError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return api.NewCancelledError("request cancelled: " + ctx.Err().Error())
	}
	if errors.Is(err, io.EOF) {
		return api.NewServerError("stream ended without a terminal event")
	}
	if _, ok := api.AsAPIError(err); ok {
		return err
	}
	return fmt.Errorf("stream: read: %w", err)
}

// Start opens a source and runs it on a new goroutine. It returns
// immediately; h is called from that goroutine.
func Start(ctx context.Context, open OpenFunc, handler Handler, opts ...Option) {
	h := &outcomeGuard{next: handler}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic running stream", "panic", r)
				if !h.delivered.Load() {
					h.OnError(api.NewServerError(fmt.Sprintf("panic running stream: %v", r)))
				}
			}
		}()

		src, err := open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				err = api.NewCancelledError("request cancelled: " + ctx.Err().Error())
			}
			h.OnError(err)
			return
		}
		Run(ctx, src, h, opts...)
	}()
}

// outcomeGuard passes at most one outcome to next.
type outcomeGuard struct {
	next      Handler
	delivered atomic.Bool
}

func (g *outcomeGuard) OnPartialResponse(text string) {
	if !g.delivered.Load() {
		g.next.OnPartialResponse(text)
	}
}

func (g *outcomeGuard) OnCompleteResponse(resp *api.ChatResponse) {
	if g.delivered.CompareAndSwap(false, true) {
		g.next.OnCompleteResponse(resp)
	}
}

func (g *outcomeGuard) OnError(err error) {
	if g.delivered.CompareAndSwap(false, true) {
		g.next.OnError(err)
	}
}

// sliceSource replays a fixed list of events.
type sliceSource struct {
	events []Event
	closed bool
}

// Events returns a Source that yields evs in order and then io.EOF.
func Events(evs ...Event) Source {
	return &sliceSource{events: evs}
}

func (s *sliceSource) Next(ctx context.Context) (Event, error) {
	if s.closed {
		return nil, errors.New("stream: source closed")
	}
	if len(s.events) == 0 {
		return nil, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

// ChannelSource adapts a channel of events to Source. A closed channel
// reads as io.EOF. closeFn, when non-nil, is called by Close.
type ChannelSource struct {
	ch      <-chan Event
	closeFn func() error
}

// NewChannelSource creates a ChannelSource reading from ch.
func NewChannelSource(ch <-chan Event, closeFn func() error) *ChannelSource {
	return &ChannelSource{ch: ch, closeFn: closeFn}
}

func (s *ChannelSource) Next(ctx context.Context) (Event, error) {
	select {
	case ev, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *ChannelSource) Close() error {
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}
