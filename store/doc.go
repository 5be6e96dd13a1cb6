// Package store is the persisted key-value layer behind sessions, remember-me
// tokens and dashboard snapshots.
//
// Every key is namespaced with a configurable prefix ("itm_" by default).
// Values are opaque bytes; [GetJSON] and [SetJSON] cover the common case.
//
// # Implementations
//
//   - [MemoryStore]: process-local map, the default.
//   - [RedisStore]: go-redis backed, shared across processes with
//     last-writer-wins semantics.
//
// # Failure model
//
// Backend failures surface as [*Error] values. Callers treat them as soft:
// a failed read behaves like a missing key and a failed write degrades the
// feature that needed it.
package store
