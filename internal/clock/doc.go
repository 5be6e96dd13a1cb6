// Package clock abstracts wall time, one-shot timers and backoff sleeps.
//
// # Components
//
//   - [Clock]: Now, AfterFunc and context-aware Sleep.
//   - [Real]: the process clock.
//   - [Fake]: a manually advanced clock whose timers fire synchronously inside
//     [Fake.Advance] and whose sleeps advance time instead of blocking.
//
// # What this package must NOT do
//
//   - Import dashcore or any sibling package.
//   - Start goroutines of its own beyond what time.AfterFunc does.
package clock
