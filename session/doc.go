// Package session owns the login session lifecycle of a dashboard client.
//
// # States
//
//	Anonymous -> Authenticating -> Authenticated -> {Expired, LoggedOut} -> Anonymous
//
// Expired and LoggedOut are the two ways a session ends. They are reported as
// the [Event.Reason] of the logout notification and the manager is Anonymous
// again once teardown completes.
//
// # Persistence
//
// The live session is persisted as JSON under the "session" key of a
// [store.Store]; the refresh token goes under "remember_token" when the user
// asks to be remembered. Storage failures are logged and never fatal: a
// failed read behaves like a logged-out user.
//
// # Expiry
//
// Exactly one expiry timer is armed per live session. Rearming cancels the
// previous timer, and a callback that lost a race with a rearm is ignored.
//
// # What this package must NOT do
//
//   - Perform HTTP itself; credentials are checked by an [Authenticator].
//   - Import dashcore or the fetch package.
package session
