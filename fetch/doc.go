// Package fetch coordinates requests to the remote monitoring service.
//
// A [Coordinator] sits between dashboard code and a [Sender]:
//
//   - Concurrent calls with the same method and resolved URL share one
//     underlying request (golang.org/x/sync/singleflight) and observe the same
//     outcome. A caller that stops waiting does not cancel the shared call.
//   - Failed tries are retried with exponential backoff:
//     RetryDelay, 2*RetryDelay, 4*RetryDelay, ...
//   - Successful GET responses are cached and can be read back with
//     [Coordinator.PeekCache] while younger than a caller-supplied age.
//
// # Errors
//
// A single try fails with [*TransportError] or [*HTTPStatusError]. When every
// try fails the caller receives a [*RetryError] wrapping the last one.
//
// # What this package must NOT do
//
//   - Decode response payloads into domain types.
//   - Know about sessions, tokens or authentication.
package fetch
