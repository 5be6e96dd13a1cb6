// Package dashcore is the client core of a monitoring dashboard. It keeps
// dashboard data flowing from an unreliable remote service and enforces a
// login session with brute-force protection.
//
// The package is designed for concurrent use: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// dashcore is the public surface. It exposes [Engine], [Builder], [Config],
// [Dashboard] and [MetricsSnapshot]. Request coordination lives in fetch,
// session lifecycle in session, failed-attempt accounting in lockout and the
// persisted key-value store in store. Notification fan-out and the clock live
// under internal/.
//
// # What this package must NOT do
//
//   - Render anything. Callers turn a [Dashboard] into a display.
//   - Perform I/O during Builder configuration. The only I/O in Build is the
//     restore of a persisted session.
//   - Import any sub-package that re-imports dashcore (no import cycles).
package dashcore
