// Package password hashes and verifies directory passwords with Argon2id.
//
// # Output format
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory KiB>,t=<passes>,p=<lanes>$<salt>$<key>
//
// Salt and key are unpadded standard base64. [Hasher.Verify] reads the
// parameters from the stored string, so hashes made under older [Params]
// keep verifying after the defaults change.
//
// # What this package must NOT do
//
//   - Store passwords or know which user a hash belongs to.
//   - Log plaintext passwords.
package password
