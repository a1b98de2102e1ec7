// Package engine connects the gateway to the configured provider.
//
// The Engine validates a chat request against the request limits and the
// provider's capabilities, then either calls the provider once or runs its
// stream through the stream package. Finished results are recorded in the
// Prometheus metrics and, when a store is configured, persisted. The Engine
// implements transport.ChatHandler, transport.Embedder and
// transport.ModelLister. A nil store degrades to stateless operation.
package engine
