package stream

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/rhuss/chatbridge/pkg/api"
	"github.com/rhuss/chatbridge/pkg/debug"
)

// pendingCall is a tool call that has started but not received its
// arguments-done event.
type pendingCall struct {
	callID string
	name   string
	args   strings.Builder
}

// Accumulator holds the state of one stream. It is not safe for
// concurrent use; Processor serializes access.
type Accumulator struct {
	handler Handler
	logger  *slog.Logger

	captureReasoning bool
	repairArguments  bool

	text      strings.Builder
	reasoning strings.Builder
	pending   map[string]*pendingCall
	finished  map[string]struct{}
	completed []api.ToolInvocation
	usage     *api.TokenUsage
	status    string
}

// NewAccumulator creates an Accumulator that forwards text fragments to h.
func NewAccumulator(h Handler, logger *slog.Logger) *Accumulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accumulator{
		handler:  h,
		logger:   logger,
		pending:  make(map[string]*pendingCall),
		finished: make(map[string]struct{}),
	}
}

// OnTextDelta appends fragment to the text buffer and forwards it to the
// handler when non-empty.
func (a *Accumulator) OnTextDelta(fragment string) {
	if fragment == "" {
		return
	}
	a.text.WriteString(fragment)
	a.handler.OnPartialResponse(fragment)
}

// OnReasoningDelta appends fragment to the reasoning buffer when reasoning
// capture is enabled. Reasoning is never streamed as a partial.
func (a *Accumulator) OnReasoningDelta(fragment string) {
	if !a.captureReasoning {
		return
	}
	a.reasoning.WriteString(fragment)
}

// OnToolCallStarted registers a pending tool call under itemID.
func (a *Accumulator) OnToolCallStarted(itemID, callID, name string) {
	if itemID == "" {
		a.logger.Warn("tool call started without item id, ignoring", "call_id", callID, "name", name)
		return
	}
	if _, ok := a.pending[itemID]; ok {
		a.logger.Warn("duplicate tool call start, ignoring", "item_id", itemID, "name", name)
		return
	}
	if _, ok := a.finished[itemID]; ok {
		a.logger.Warn("tool call start for completed item, ignoring", "item_id", itemID, "name", name)
		return
	}
	a.pending[itemID] = &pendingCall{callID: callID, name: name}
	debug.Log("streaming", "tool call started", "item_id", itemID, "call_id", callID, "name", name)
}

// OnToolCallArgumentDelta buffers an argument fragment on the pending call.
func (a *Accumulator) OnToolCallArgumentDelta(itemID, fragment string) {
	pc, ok := a.pending[itemID]
	if !ok {
		debug.Log("streaming", "argument delta for unknown tool call", "item_id", itemID)
		return
	}
	pc.args.WriteString(fragment)
}

// OnToolCallArgumentDone completes the pending call under itemID. The
// arguments given here win over buffered fragments; the fragments are
// used only when arguments is empty. Unknown or already completed item
// IDs are logged and discarded.
func (a *Accumulator) OnToolCallArgumentDone(itemID, arguments string) {
	if _, ok := a.finished[itemID]; ok {
		a.logger.Warn("arguments done for completed tool call, discarding", "item_id", itemID)
		return
	}
	pc, ok := a.pending[itemID]
	if !ok {
		a.logger.Warn("arguments done for unknown tool call, discarding", "item_id", itemID)
		return
	}
	delete(a.pending, itemID)
	a.finished[itemID] = struct{}{}

	if arguments == "" {
		arguments = pc.args.String()
	}
	if a.repairArguments {
		arguments = a.repair(pc.name, arguments)
	}

	a.completed = append(a.completed, api.ToolInvocation{
		ID:        pc.callID,
		Name:      pc.name,
		Arguments: arguments,
	})
	debug.Log("streaming", "tool call completed", "item_id", itemID, "name", pc.name, "args_len", len(arguments))
}

func (a *Accumulator) repair(name, arguments string) string {
	if arguments == "" || json.Valid([]byte(arguments)) {
		return arguments
	}
	repaired, err := jsonrepair.JSONRepair(arguments)
	if err != nil {
		a.logger.Warn("tool call arguments are not valid JSON and could not be repaired",
			"name", name, "error", err)
		return arguments
	}
	debug.Log("streaming", "repaired tool call arguments", "name", name,
		"before", debug.Truncate(arguments, 200), "after", debug.Truncate(repaired, 200))
	return repaired
}

// OnTokenUsage records usage. Later calls overwrite earlier ones.
func (a *Accumulator) OnTokenUsage(usage *api.TokenUsage) {
	if usage == nil {
		return
	}
	u := *usage
	a.usage = &u
}

// OnFinishStatus records the provider's raw finish status.
func (a *Accumulator) OnFinishStatus(status string) {
	a.status = status
}
