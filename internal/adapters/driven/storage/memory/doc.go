// Package memory provides in-memory implementations of the storage ports.
// They back the "memory" storage backend and serve as fakes in tests.
package memory
