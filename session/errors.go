package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned by Login when the authenticator
	// rejects the identity/secret pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLockedOut matches every *LockedOutError.
	ErrLockedOut = errors.New("account temporarily locked")
	// ErrNotAuthenticated is returned by operations that need a live session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAuthUnavailable wraps authenticator failures other than rejection.
	ErrAuthUnavailable = errors.New("authentication service unavailable")
	// ErrRejected is what an Authenticator returns for bad credentials.
	ErrRejected = errors.New("credentials rejected")
	// ErrNoAuthenticator is returned by NewManager without an Authenticator.
	ErrNoAuthenticator = errors.New("session manager requires an authenticator")
)

// LockedOutError carries the wait before the identity may try again.
type LockedOutError struct {
	Identity         string
	RemainingMinutes int
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minutes", e.RemainingMinutes)
}

func (e *LockedOutError) Is(target error) bool {
	return target == ErrLockedOut
}
