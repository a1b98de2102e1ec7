package stream

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/rhuss/chatbridge/pkg/api"
	chatdebug "github.com/rhuss/chatbridge/pkg/debug"
)

// Processor applies the events of one stream to an Accumulator and
// delivers the outcome to a Handler.
//
// Push is safe for concurrent use, but events are applied one at a time
// in the order Push acquires the lock. Once an outcome has been
// delivered, further pushes are ignored.
type Processor struct {
	mu sync.Mutex

	ctx     context.Context
	handler Handler
	acc     *Accumulator
	logger  *slog.Logger
	opts    options

	id    string
	model string
	done  bool
}

// NewProcessor creates a Processor for one request. ctx is checked before
// each event is applied.
func NewProcessor(ctx context.Context, h Handler, opts ...Option) *Processor {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	acc := NewAccumulator(h, o.logger)
	acc.captureReasoning = o.captureReasoning
	acc.repairArguments = o.repairArguments

	return &Processor{
		ctx:     ctx,
		handler: h,
		acc:     acc,
		logger:  o.logger,
		opts:    o,
		id:      o.responseID,
		model:   o.model,
	}
}

// Push applies one event. It never panics and never returns an error:
// failures are delivered through Handler.OnError and halt the processor.
func (p *Processor) Push(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while applying stream event",
				"kind", ev.Kind(), "panic", r, "stack", string(debug.Stack()))
			p.fail(api.NewServerError(fmt.Sprintf("internal error applying %s event", ev.Kind())))
		}
	}()

	if p.done {
		if IsTerminal(ev) {
			p.logger.Warn("terminal event after stream end, ignoring", "kind", ev.Kind())
		} else {
			chatdebug.Log("streaming", "event after stream end, ignoring", "kind", ev.Kind())
		}
		return
	}

	if err := p.ctx.Err(); err != nil {
		p.fail(api.NewCancelledError("request cancelled: " + err.Error()))
		return
	}

	if p.opts.observer != nil {
		p.opts.observer(ev)
	}
	p.apply(ev)
}

func (p *Processor) apply(ev Event) {
	switch e := ev.(type) {
	case Created:
		if p.id == "" {
			p.id = e.StreamID
		}
		if e.Model != "" {
			p.model = e.Model
		}
	case TextDelta:
		p.acc.OnTextDelta(e.Text)
	case ReasoningDelta:
		p.acc.OnReasoningDelta(e.Text)
	case ToolCallStarted:
		p.acc.OnToolCallStarted(e.ItemID, e.CallID, e.Name)
	case ToolCallArgumentDelta:
		p.acc.OnToolCallArgumentDelta(e.ItemID, e.Fragment)
	case ToolCallArgumentDone:
		p.acc.OnToolCallArgumentDone(e.ItemID, e.Arguments)
	case Completed:
		p.complete(e)
	case Failed:
		p.fail(api.NewProviderError(e.Code, e.Details))
	case ErrorEvent:
		p.fail(api.NewProviderError(e.Code, e.Message))
	case Incomplete:
		p.acc.OnTokenUsage(e.Usage)
		p.fail(api.NewIncompleteError(e.Reason))
	case Unrecognized:
		chatdebug.Log("streaming", "unrecognized event, ignoring", "type", e.Type)
	default:
		p.logger.Warn("unsupported stream event type", "type", fmt.Sprintf("%T", ev))
	}
}

func (p *Processor) complete(e Completed) {
	if e.Status == "" {
		p.fail(api.NewServerError("completed event without status"))
		return
	}
	p.acc.OnTokenUsage(e.Usage)
	p.acc.OnFinishStatus(e.Status)

	id := p.id
	if id == "" {
		id = api.NewChatID()
	}
	resp, err := p.acc.assemble(id, p.model)
	if err != nil {
		p.fail(err)
		return
	}

	p.done = true
	chatdebug.Log("streaming", "stream completed", "id", id,
		"finish_reason", resp.FinishReason, "tool_calls", len(resp.ToolCalls))
	p.handler.OnCompleteResponse(resp)
}

// fail delivers err unless an outcome was already delivered.
func (p *Processor) fail(err error) {
	if p.done {
		p.logger.Warn("error after stream end, dropping", "error", err)
		return
	}
	p.done = true
	chatdebug.Log("streaming", "stream failed", "error", err)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic in error handler", "panic", r)
		}
	}()
	p.handler.OnError(err)
}

// Fail delivers err through the handler unless an outcome was already
// delivered. Transports use it for read errors and premature ends.
func (p *Processor) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail(err)
}

// Done reports whether an outcome has been delivered.
func (p *Processor) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}
