package dashcore

import (
	"errors"

	"github.com/stonixai/dashcore/fetch"
	"github.com/stonixai/dashcore/session"
	"github.com/stonixai/dashcore/store"
)

var (
	// ErrInvalidCredentials is returned by Login for a rejected identity/secret pair.
	ErrInvalidCredentials = session.ErrInvalidCredentials
	// ErrLockedOut matches the *session.LockedOutError returned while an identity is locked.
	ErrLockedOut = session.ErrLockedOut
	// ErrNotAuthenticated is returned by operations that require a live session.
	ErrNotAuthenticated = session.ErrNotAuthenticated
	// ErrAuthUnavailable is returned when the authenticator itself failed.
	ErrAuthUnavailable = session.ErrAuthUnavailable
	// ErrInvalidJSON is returned when the remote answered with an undecodable body.
	ErrInvalidJSON = fetch.ErrInvalidJSON
	// ErrNotFound is returned by the store for an absent key.
	ErrNotFound = store.ErrNotFound

	// ErrPermissionDenied is returned when the current user lacks the
	// permission an operation needs.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrEngineNotReady is returned by methods called on a nil or closed Engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrNoSnapshot is returned by LoadDashboard when the remote failed and no
	// snapshot was ever persisted.
	ErrNoSnapshot = errors.New("no dashboard snapshot available")
)
