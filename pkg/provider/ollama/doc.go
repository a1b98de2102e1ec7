// Package ollama implements the provider interface for a local inference
// server speaking the Ollama REST API: /api/chat (newline-delimited JSON
// stream), /api/embed and /api/tags.
package ollama
