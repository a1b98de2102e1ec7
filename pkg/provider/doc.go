// Package provider defines the protocol-agnostic interface for LLM backends.
//
// Each adapter (responses, openaicompat, ollama) owns its wire protocol:
// it translates an [api.ChatRequest] into the backend's request format and
// decodes the backend's streaming output into [stream.Event] values. The
// engine never sees wire formats.
package provider
