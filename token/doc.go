// Package token issues opaque session and refresh tokens.
//
// Tokens are [DefaultSize] bytes from crypto/rand, hex-encoded and prefixed with
// their kind ("access_" or "refresh_"). They carry no claims and are only
// meaningful to the session that stores them.
package token
