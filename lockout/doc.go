// Package lockout counts failed login attempts per identity and reports when
// an identity is temporarily barred from authenticating.
//
// # Policy
//
// An identity is locked out while its failure count is at least
// [Config.MaxAttempts] and less than [Config.Duration] has passed since the
// most recent failure. Records whose window has elapsed are cleared lazily,
// the next time the identity is checked.
//
// # Architecture boundaries
//
// The [Tracker] owns the policy; a [RecordStore] owns persistence. Record
// stores only count and timestamp. They never decide whether an identity is
// locked out.
//
// # What this package must NOT do
//
//   - Contact an authenticator or know what a credential is.
//   - Import dashcore or the session package.
package lockout
