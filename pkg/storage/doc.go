// Package storage holds what the result store adapters share: sentinel
// errors and tenant context helpers. The adapters (memory, postgres)
// implement transport.ResultStore.
package storage
