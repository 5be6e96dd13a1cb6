package session

import (
	"context"
	"slices"
	"time"
)

// User is the identity an Authenticator vouches for.
type User struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether p is in the user's permission set.
func (u User) HasPermission(p string) bool {
	return slices.Contains(u.Permissions, p)
}

func (u User) clone() User {
	u.Permissions = slices.Clone(u.Permissions)
	return u
}

// Session is one authenticated login.
type Session struct {
	ID             string    `json:"id"`
	User           User      `json:"user"`
	AccessToken    string    `json:"access_token"`
	RefreshToken   string    `json:"refresh_token"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Expired reports whether the session is past its deadline at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.User = s.User.clone()
	return &c
}

// Credentials is what an Authenticator returns on success. Tokens are
// optional; the manager issues its own when they are empty.
type Credentials struct {
	User         User
	AccessToken  string
	RefreshToken string
}

// Authenticator checks an identity/secret pair. Rejected credentials must
// be reported with an error matching ErrRejected.
type Authenticator interface {
	VerifyCredentials(ctx context.Context, identity, secret string) (Credentials, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, identity, secret string) (Credentials, error)

func (f AuthenticatorFunc) VerifyCredentials(ctx context.Context, identity, secret string) (Credentials, error) {
	return f(ctx, identity, secret)
}

// State is the lifecycle position of the manager.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateExpired        State = "expired"
	StateLoggedOut      State = "logged_out"
)

// EventType distinguishes lifecycle notifications.
type EventType string

const (
	EventLogin  EventType = "login"
	EventLogout EventType = "logout"
)

// Event is delivered to subscribers on login and logout.
type Event struct {
	Type      EventType `json:"type"`
	User      User      `json:"user"`
	SessionID string    `json:"session_id"`
	// Reason is StateExpired or StateLoggedOut on logout events.
	Reason State `json:"reason,omitempty"`
	// Restored marks a login adopted from storage at start-up.
	Restored bool      `json:"restored,omitempty"`
	At       time.Time `json:"at"`
}
