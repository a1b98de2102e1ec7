// Package api defines the provider-agnostic chat model shared by every
// chatbridge component.
//
// Providers translate their own wire formats into these types, the stream
// core assembles them from incremental deltas, and the gateway serializes
// them to clients. The package performs no I/O and has no dependencies
// outside the standard library.
//
// Core types:
//   - [ChatRequest]: a provider-agnostic chat request (messages, tools, sampling)
//   - [ChatResponse]: the single immutable result of one chat turn
//   - [ToolInvocation]: a fully reconstructed tool call (id, name, JSON arguments)
//   - [TokenUsage]: token counters including cached-input and reasoning details
//   - [StreamEvent]: an outbound server-sent event emitted by the gateway
//   - [APIError]: structured error with type, code, param, and message
package api
