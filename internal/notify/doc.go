// Package notify delivers typed lifecycle events to subscribers.
//
// # Components
//
//   - [Sink]: consumer interface, with [FuncSink], [ChannelSink] and [NoOpSink].
//   - [Fanout]: synchronous delivery to a changing set of sinks.
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. It does NOT decide which events to
// emit; the session manager and engine do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import dashcore or any sibling package.
package notify
