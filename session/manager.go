package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stonixai/dashcore/internal/clock"
	"github.com/stonixai/dashcore/internal/notify"
	"github.com/stonixai/dashcore/lockout"
	"github.com/stonixai/dashcore/store"
	"github.com/stonixai/dashcore/token"
)

const (
	DefaultSessionKey  = "session"
	DefaultRememberKey = "remember_token"
)

// Signal identifies a countable session event.
type Signal int

const (
	SignalLoginSuccess Signal = iota
	SignalLoginFailure
	SignalLockedOut
	SignalLogout
	SignalExpired
	SignalRefreshed
	SignalStorageFailure
)

// Config controls session lifetime and persistence keys.
type Config struct {
	SessionTimeout time.Duration
	SessionKey     string
	RememberKey    string

	Logf      func(format string, args ...any)
	MetricInc func(Signal)
}

// Deps are the collaborators of a Manager. Only Authenticator is required.
type Deps struct {
	Authenticator Authenticator
	Store         store.Store
	Lockout       *lockout.Tracker
	Tokens        *token.Issuer
	Clock         clock.Clock
}

// Manager drives one client's session through login, refresh, expiry and
// logout. It is safe for concurrent use.
type Manager struct {
	cfg     Config
	auth    Authenticator
	store   store.Store
	lockout *lockout.Tracker
	tokens  *token.Issuer
	clock   clock.Clock
	fanout  notify.Fanout[Event]

	// lifecycle serializes transitions that touch storage and the timer.
	lifecycle sync.Mutex

	mu             sync.Mutex
	current        *Session
	authenticating int
	timer          clock.Timer
	gen            uint64
}

func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if deps.Authenticator == nil {
		return nil, ErrNoAuthenticator
	}
	if cfg.SessionTimeout <= 0 {
		return nil, errors.New("session timeout must be > 0")
	}
	if cfg.SessionKey == "" {
		cfg.SessionKey = DefaultSessionKey
	}
	if cfg.RememberKey == "" {
		cfg.RememberKey = DefaultRememberKey
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore("")
	}
	if deps.Lockout == nil {
		deps.Lockout = lockout.NewTracker(nil, lockout.Config{MaxAttempts: 5, Duration: 15 * time.Minute},
			lockout.WithClock(deps.Clock), lockout.WithLogf(cfg.Logf))
	}
	if deps.Tokens == nil {
		deps.Tokens = token.NewIssuer()
	}

	return &Manager{
		cfg:     cfg,
		auth:    deps.Authenticator,
		store:   deps.Store,
		lockout: deps.Lockout,
		tokens:  deps.Tokens,
		clock:   deps.Clock,
	}, nil
}

// Subscribe registers sink for login and logout events. Events are
// delivered synchronously after the transition completes, with no manager
// lock held.
func (m *Manager) Subscribe(sink notify.Sink[Event]) (unsubscribe func()) {
	return m.fanout.Subscribe(sink)
}

// State reports the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.current != nil:
		return StateAuthenticated
	case m.authenticating > 0:
		return StateAuthenticating
	default:
		return StateAnonymous
	}
}

// Login authenticates identity and starts a session. A locked-out identity
// fails with *LockedOutError without reaching the authenticator.
func (m *Manager) Login(ctx context.Context, identity, secret string, rememberMe bool) (*Session, error) {
	locked, err := m.lockout.IsLockedOut(ctx, identity)
	if err != nil {
		m.storageFailure("lockout check", err)
	}
	if locked {
		minutes, err := m.lockout.RemainingLockoutMinutes(ctx, identity)
		if err != nil {
			m.storageFailure("lockout check", err)
		}
		m.inc(SignalLockedOut)
		return nil, &LockedOutError{Identity: identity, RemainingMinutes: minutes}
	}

	m.mu.Lock()
	m.authenticating++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.authenticating--
		m.mu.Unlock()
	}()

	creds, err := m.auth.VerifyCredentials(ctx, identity, secret)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			if err := m.lockout.RecordFailure(ctx, identity); err != nil {
				m.storageFailure("lockout record", err)
			}
			m.inc(SignalLoginFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}

	sess, err := m.newSession(creds)
	if err != nil {
		return nil, err
	}

	m.lifecycle.Lock()
	if err := store.SetJSON(ctx, m.store, m.cfg.SessionKey, sess); err != nil {
		m.storageFailure("persist session", err)
	}
	if rememberMe {
		if err := store.SetJSON(ctx, m.store, m.cfg.RememberKey, sess.RefreshToken); err != nil {
			m.storageFailure("persist remember token", err)
		}
	}
	if err := m.lockout.Clear(ctx, identity); err != nil {
		m.storageFailure("lockout clear", err)
	}

	m.mu.Lock()
	m.current = sess
	m.armLocked(m.cfg.SessionTimeout)
	m.mu.Unlock()
	m.lifecycle.Unlock()

	m.inc(SignalLoginSuccess)
	m.cfg.Logf("dashcore: user %q logged in (role %s)", sess.User.Username, sess.User.Role)
	m.fanout.Emit(ctx, Event{
		Type:      EventLogin,
		User:      sess.User.clone(),
		SessionID: sess.ID,
		At:        sess.IssuedAt,
	})
	return sess.clone(), nil
}

// Logout ends the live session. Calling it without one only clears any
// stale persisted record and emits nothing.
func (m *Manager) Logout(ctx context.Context) {
	if m.end(ctx, StateLoggedOut, 0) {
		return
	}
	if err := m.store.Remove(ctx, m.cfg.SessionKey); err != nil {
		m.storageFailure("remove session", err)
	}
}

// IsAuthenticated reports whether a live, unexpired session exists. The
// persisted copy is authoritative for the deadline; an expired one forces a
// logout.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	m.mu.Lock()
	live := m.current != nil
	m.mu.Unlock()
	if !live {
		return false
	}

	var persisted Session
	ok, err := store.GetJSON(ctx, m.store, m.cfg.SessionKey, &persisted)
	if err != nil {
		m.storageFailure("read session", err)
		return false
	}
	if !ok {
		return false
	}
	if persisted.Expired(m.clock.Now()) {
		m.cfg.Logf("dashcore: session %s expired", persisted.ID)
		m.end(ctx, StateExpired, 0)
		return false
	}
	return true
}

// RefreshSession extends the live session by a full timeout from now and
// rearms the expiry timer. If the extended session cannot be persisted the
// user is logged out.
func (m *Manager) RefreshSession(ctx context.Context) (*Session, error) {
	if !m.IsAuthenticated(ctx) {
		return nil, ErrNotAuthenticated
	}

	m.lifecycle.Lock()
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		m.lifecycle.Unlock()
		return nil, ErrNotAuthenticated
	}
	now := m.clock.Now()
	updated := m.current.clone()
	if deadline := now.Add(m.cfg.SessionTimeout); deadline.After(updated.ExpiresAt) {
		updated.ExpiresAt = deadline
	}
	updated.LastActivityAt = now
	m.mu.Unlock()

	if err := store.SetJSON(ctx, m.store, m.cfg.SessionKey, updated); err != nil {
		m.lifecycle.Unlock()
		m.storageFailure("persist refreshed session", err)
		m.end(ctx, StateLoggedOut, 0)
		return nil, err
	}

	m.mu.Lock()
	m.current = updated
	m.armLocked(updated.ExpiresAt.Sub(now))
	m.mu.Unlock()
	m.lifecycle.Unlock()

	m.inc(SignalRefreshed)
	return updated.clone(), nil
}

// Restore adopts a valid persisted session, typically at start-up, and arms
// the timer for its remaining lifetime. An expired record is removed. It
// returns nil when nothing was restored.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	var persisted Session
	ok, err := store.GetJSON(ctx, m.store, m.cfg.SessionKey, &persisted)
	if err != nil {
		m.storageFailure("read session", err)
		return nil, err
	}
	if !ok || persisted.ID == "" {
		return nil, nil
	}

	now := m.clock.Now()
	if persisted.Expired(now) {
		m.cfg.Logf("dashcore: discarding expired session %s", persisted.ID)
		if err := m.store.Remove(ctx, m.cfg.SessionKey); err != nil {
			m.storageFailure("remove session", err)
		}
		return nil, nil
	}

	sess := &persisted
	m.lifecycle.Lock()
	m.mu.Lock()
	m.current = sess
	m.armLocked(sess.ExpiresAt.Sub(now))
	m.mu.Unlock()
	m.lifecycle.Unlock()

	m.fanout.Emit(ctx, Event{
		Type:      EventLogin,
		User:      sess.User.clone(),
		SessionID: sess.ID,
		Restored:  true,
		At:        now,
	})
	return sess.clone(), nil
}

// RememberedToken returns the refresh token saved by a remember-me login.
func (m *Manager) RememberedToken(ctx context.Context) (string, bool) {
	var tok string
	ok, err := store.GetJSON(ctx, m.store, m.cfg.RememberKey, &tok)
	if err != nil {
		m.storageFailure("read remember token", err)
		return "", false
	}
	return tok, ok && tok != ""
}

// Current returns a copy of the live session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.clone()
}

// CurrentUser returns the logged-in user, or false when anonymous.
func (m *Manager) CurrentUser() (User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return User{}, false
	}
	return m.current.User.clone(), true
}

func (m *Manager) HasPermission(p string) bool {
	u, ok := m.CurrentUser()
	return ok && u.HasPermission(p)
}

func (m *Manager) HasRole(role string) bool {
	u, ok := m.CurrentUser()
	return ok && u.Role == role
}

// Close cancels the expiry timer. The session itself is left in storage so
// a later process can Restore it.
func (m *Manager) Close() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	m.gen++
}

func (m *Manager) newSession(creds Credentials) (*Session, error) {
	access, refresh := creds.AccessToken, creds.RefreshToken
	if access == "" {
		tok, err := m.tokens.IssueAccessToken()
		if err != nil {
			return nil, err
		}
		access = tok
	}
	if refresh == "" {
		tok, err := m.tokens.IssueRefreshToken()
		if err != nil {
			return nil, err
		}
		refresh = tok
	}

	now := m.clock.Now()
	return &Session{
		ID:             uuid.NewString(),
		User:           creds.User.clone(),
		AccessToken:    access,
		RefreshToken:   refresh,
		IssuedAt:       now,
		ExpiresAt:      now.Add(m.cfg.SessionTimeout),
		LastActivityAt: now,
	}, nil
}

// end tears down the live session and emits a logout event. With gen != 0
// it only acts if the timer generation still matches. It reports whether a
// session was ended.
func (m *Manager) end(ctx context.Context, reason State, gen uint64) bool {
	m.lifecycle.Lock()
	m.mu.Lock()
	sess := m.current
	if sess == nil || (gen != 0 && gen != m.gen) {
		m.mu.Unlock()
		m.lifecycle.Unlock()
		return false
	}
	m.current = nil
	m.stopTimerLocked()
	m.mu.Unlock()

	if err := m.store.Remove(ctx, m.cfg.SessionKey); err != nil {
		m.storageFailure("remove session", err)
	}
	m.lifecycle.Unlock()

	if reason == StateExpired {
		m.inc(SignalExpired)
	}
	m.inc(SignalLogout)
	m.fanout.Emit(ctx, Event{
		Type:      EventLogout,
		User:      sess.User,
		SessionID: sess.ID,
		Reason:    reason,
		At:        m.clock.Now(),
	})
	return true
}

func (m *Manager) armLocked(d time.Duration) {
	m.stopTimerLocked()
	m.gen++
	gen := m.gen
	m.timer = m.clock.AfterFunc(d, func() { m.expire(gen) })
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) expire(gen uint64) {
	m.mu.Lock()
	stale := gen != m.gen || m.current == nil
	m.mu.Unlock()
	if stale {
		return
	}
	m.cfg.Logf("dashcore: session timed out after %s of inactivity", m.cfg.SessionTimeout)
	m.end(context.Background(), StateExpired, gen)
}

func (m *Manager) storageFailure(op string, err error) {
	m.cfg.Logf("dashcore: %s failed: %v", op, err)
	m.inc(SignalStorageFailure)
}

func (m *Manager) inc(s Signal) {
	if m.cfg.MetricInc != nil {
		m.cfg.MetricInc(s)
	}
}
