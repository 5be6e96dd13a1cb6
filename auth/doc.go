// Package auth provides the credential checkers a session manager logs in
// against.
//
//   - [Directory]: an in-process user table with argon2id password hashes,
//     preloaded with the demo accounts by [NewDemoDirectory].
//   - [Remote]: posts credentials to a monitoring service's /auth/login
//     endpoint and trusts the returned user only after verifying its signed
//     assertion.
//
// Assertions are HS256 JWTs minted by [Signer] and checked by [Verifier].
// Both implementations report bad credentials as session.ErrRejected.
package auth
