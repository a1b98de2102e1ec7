package stream

import "log/slog"

type options struct {
	logger           *slog.Logger
	captureReasoning bool
	repairArguments  bool
	responseID       string
	model            string
	observer         func(Event)
}

// Option configures a Processor.
type Option func(*options)

// WithLogger sets the logger for warnings about malformed events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithReasoning enables capture of reasoning deltas into the final result.
func WithReasoning(enabled bool) Option {
	return func(o *options) { o.captureReasoning = enabled }
}

// WithArgumentRepair enables repair of invalid JSON tool call arguments.
func WithArgumentRepair(enabled bool) Option {
	return func(o *options) { o.repairArguments = enabled }
}

// WithResponseID fixes the ID of the final result. Without it the ID from
// the Created event is used, or a fresh one is generated.
func WithResponseID(id string) Option {
	return func(o *options) { o.responseID = id }
}

// WithModel sets the model reported when the stream does not name one.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithObserver registers fn to see every event before it is applied.
// fn runs under the processor lock.
func WithObserver(fn func(Event)) Option {
	return func(o *options) { o.observer = fn }
}
