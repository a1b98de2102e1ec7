// Package http serves the chatbridge gateway API over HTTP, writing
// streamed chat turns as server-sent events.
package http
