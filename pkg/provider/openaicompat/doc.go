// Package openaicompat implements the provider interface for any backend
// that speaks the OpenAI Chat Completions protocol (/v1/chat/completions).
//
// It handles request serialization, response parsing, SSE chunk decoding
// with per-index tool call buffering, and HTTP error mapping. The error
// mapping helpers are shared with the other HTTP adapters.
package openaicompat
