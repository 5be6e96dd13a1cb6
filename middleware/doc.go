// Package middleware guards HTTP routes with the signed user assertion
// carried as a bearer token.
//
// # Guards
//
//   - [Guard] admits any request whose assertion verifies.
//   - [RequirePermission] additionally requires one permission.
//   - [RequireRole] additionally requires one role.
//
// Each guard reads the Authorization header, delegates verification to a
// [Verifier] and injects the verified user into the request context.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly. Verification is delegated.
//   - Make decisions beyond pass/reject on the verified user.
package middleware
