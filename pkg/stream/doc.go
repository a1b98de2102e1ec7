// Package stream turns a provider's incremental output into one final
// chat result.
//
// A provider decoder classifies each wire message into an [Event]. A
// [Processor] applies events in order to an [Accumulator], which appends
// text and reasoning, reconstructs tool calls from start/argument/done
// events, and records usage and the finish status. When a terminal event
// arrives the accumulated state is assembled into an [api.ChatResponse]
// and delivered to the [Handler] exactly once.
//
// Handler contract: zero or more OnPartialResponse calls, then exactly one
// of OnCompleteResponse or OnError. Nothing is delivered afterwards.
//
// [Run] drives a [Source] to completion on the calling goroutine and
// always closes it. [Start] does the same on a new goroutine.
package stream
