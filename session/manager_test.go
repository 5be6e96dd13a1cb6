package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stonixai/dashcore/internal/clock"
	"github.com/stonixai/dashcore/internal/notify"
	"github.com/stonixai/dashcore/lockout"
	"github.com/stonixai/dashcore/store"
)

var testUsers = map[string]struct {
	secret string
	user   User
}{
	"admin":  {"admin123", User{ID: "1", Username: "admin", Role: "administrator", Permissions: []string{"read", "write", "delete"}}},
	"viewer": {"viewer123", User{ID: "3", Username: "viewer", Role: "viewer", Permissions: []string{"read"}}},
}

type countingAuth struct {
	calls atomic.Int32
	down  atomic.Bool
}

func (a *countingAuth) VerifyCredentials(_ context.Context, identity, secret string) (Credentials, error) {
	a.calls.Add(1)
	if a.down.Load() {
		return Credentials{}, errors.New("dial tcp: connection refused")
	}
	u, ok := testUsers[identity]
	if !ok || u.secret != secret {
		return Credentials{}, ErrRejected
	}
	return Credentials{User: u.user}, nil
}

type flakyStore struct {
	*store.MemoryStore
	failGet atomic.Bool
	failSet atomic.Bool
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.failGet.Load() {
		return nil, &store.Error{Op: "get", Key: key, Err: store.ErrUnavailable}
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key string, value []byte) error {
	if s.failSet.Load() {
		return &store.Error{Op: "set", Key: key, Err: store.ErrUnavailable}
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type harness struct {
	mgr    *Manager
	auth   *countingAuth
	store  *flakyStore
	clock  *clock.Fake
	events *notify.ChannelSink[Event]

	mu   sync.Mutex
	logs []string
}

func (h *harness) logf(format string, args ...any) {
	h.mu.Lock()
	h.logs = append(h.logs, fmt.Sprintf(format, args...))
	h.mu.Unlock()
}

func (h *harness) drain() []Event {
	var out []Event
	for {
		select {
		case e := <-h.events.Events():
			out = append(out, e)
		default:
			return out
		}
	}
}

func newHarness(t *testing.T, timeout time.Duration, maxAttempts int) *harness {
	t.Helper()
	h := &harness{
		auth:   &countingAuth{},
		store:  &flakyStore{MemoryStore: store.NewMemoryStore("itm_")},
		clock:  clock.NewFake(time.UnixMilli(0)),
		events: notify.NewChannelSink[Event](64),
	}
	tracker := lockout.NewTracker(nil, lockout.Config{MaxAttempts: maxAttempts, Duration: 10 * time.Second},
		lockout.WithClock(h.clock), lockout.WithLogf(h.logf))

	mgr, err := NewManager(Config{SessionTimeout: timeout, Logf: h.logf}, Deps{
		Authenticator: h.auth,
		Store:         h.store,
		Lockout:       tracker,
		Clock:         h.clock,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	mgr.Subscribe(h.events)
	h.mgr = mgr
	return h
}

func TestLoginPersistsSessionAndNotifies(t *testing.T) {
	h := newHarness(t, 30*time.Minute, 5)
	ctx := context.Background()

	sess, err := h.mgr.Login(ctx, "admin", "admin123", false)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.HasPrefix(sess.AccessToken, "access_") || !strings.HasPrefix(sess.RefreshToken, "refresh_") {
		t.Fatalf("unexpected tokens %q %q", sess.AccessToken, sess.RefreshToken)
	}
	if !sess.ExpiresAt.Equal(time.UnixMilli(0).Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", sess.ExpiresAt)
	}
	if h.mgr.State() != StateAuthenticated {
		t.Fatalf("unexpected state %s", h.mgr.State())
	}

	var persisted Session
	ok, err := store.GetJSON(ctx, h.store, DefaultSessionKey, &persisted)
	if err != nil || !ok || persisted.ID != sess.ID {
		t.Fatalf("expected persisted session, ok=%v err=%v got=%+v", ok, err, persisted)
	}
	if _, ok := h.mgr.RememberedToken(ctx); ok {
		t.Fatal("remember token must not be stored without rememberMe")
	}

	events := h.drain()
	if len(events) != 1 || events[0].Type != EventLogin || events[0].User.Username != "admin" {
		t.Fatalf("unexpected events %+v", events)
	}

	if !h.mgr.HasPermission("delete") || h.mgr.HasPermission("manage_users") {
		t.Fatal("permission check mismatch")
	}
	if !h.mgr.HasRole("administrator") || h.mgr.HasRole("viewer") {
		t.Fatal("role check mismatch")
	}
	if u, ok := h.mgr.CurrentUser(); !ok || u.ID != "1" {
		t.Fatalf("unexpected current user %+v", u)
	}
}

func TestLoginRememberMe(t *testing.T) {
	h := newHarness(t, time.Minute, 5)
	ctx := context.Background()

	sess, err := h.mgr.Login(ctx, "viewer", "viewer123", true)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	tok, ok := h.mgr.RememberedToken(ctx)
	if !ok || tok != sess.RefreshToken {
		t.Fatalf("expected remembered refresh token, got %q ok=%v", tok, ok)
	}

	h.mgr.Logout(ctx)
	if _, ok := h.mgr.RememberedToken(ctx); !ok {
		t.Fatal("logout must keep the remember-me token")
	}
}

func TestLoginUsesAuthenticatorTokens(t *testing.T) {
	auth := AuthenticatorFunc(func(context.Context, string, string) (Credentials, error) {
		return Credentials{User: User{ID: "9", Username: "svc"}, AccessToken: "access_remote", RefreshToken: "refresh_remote"}, nil
	})
	mgr, err := NewManager(Config{SessionTimeout: time.Minute, Logf: func(string, ...any) {}}, Deps{Authenticator: auth, Clock: clock.NewFake(time.UnixMilli(0))})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	sess, err := mgr.Login(context.Background(), "svc", "x", false)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.AccessToken != "access_remote" || sess.RefreshToken != "refresh_remote" {
		t.Fatalf("expected authenticator tokens, got %q %q", sess.AccessToken, sess.RefreshToken)
	}
}

func TestLockoutBlocksAuthenticator(t *testing.T) {
	h := newHarness(t, time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := h.mgr.Login(ctx, "admin", "wrong", false); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
		h.clock.Advance(time.Millisecond)
	}

	_, err := h.mgr.Login(ctx, "admin", "admin123", false)
	var locked *LockedOutError
	if !errors.As(err, &locked) || !errors.Is(err, ErrLockedOut) {
		t.Fatalf("expected lockout, got %v", err)
	}
	if locked.RemainingMinutes != 1 {
		t.Fatalf("expected 1 remaining minute, got %d", locked.RemainingMinutes)
	}
	if got := h.auth.calls.Load(); got != 3 {
		t.Fatalf("authenticator must not be called while locked out, calls=%d", got)
	}

	h.clock.Advance(10 * time.Second)
	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatalf("login after lockout window: %v", err)
	}
}

func TestSuccessfulLoginClearsFailures(t *testing.T) {
	h := newHarness(t, time.Minute, 2)
	ctx := context.Background()

	_, _ = h.mgr.Login(ctx, "admin", "wrong", false)
	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.mgr.Logout(ctx)

	_, _ = h.mgr.Login(ctx, "admin", "wrong", false)
	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatalf("failure count must reset after success: %v", err)
	}
}

func TestAuthenticatorOutageDoesNotCountTowardLockout(t *testing.T) {
	h := newHarness(t, time.Minute, 1)
	ctx := context.Background()
	h.auth.down.Store(true)

	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); !errors.Is(err, ErrAuthUnavailable) {
		t.Fatalf("expected ErrAuthUnavailable, got %v", err)
	}
	h.auth.down.Store(false)
	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func TestSessionExpiresExactlyOnce(t *testing.T) {
	h := newHarness(t, time.Second, 5)
	ctx := context.Background()

	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.drain()

	h.clock.Advance(999 * time.Millisecond)
	if !h.mgr.IsAuthenticated(ctx) {
		t.Fatal("expected session to be live at 999ms")
	}

	h.clock.Advance(101 * time.Millisecond)
	if h.mgr.IsAuthenticated(ctx) {
		t.Fatal("expected session to be gone at 1100ms")
	}
	h.mgr.Logout(ctx)

	events := h.drain()
	if len(events) != 1 {
		t.Fatalf("expected exactly one logout notification, got %+v", events)
	}
	if events[0].Type != EventLogout || events[0].Reason != StateExpired {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if h.mgr.State() != StateAnonymous {
		t.Fatalf("unexpected state %s", h.mgr.State())
	}
	if _, err := h.store.Get(ctx, DefaultSessionKey); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected persisted session removed, got %v", err)
	}
}

func TestRefreshExtendsAndRearms(t *testing.T) {
	h := newHarness(t, 1500*time.Millisecond, 5)
	ctx := context.Background()

	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.drain()

	h.clock.Advance(800 * time.Millisecond)
	sess, err := h.mgr.RefreshSession(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !sess.ExpiresAt.Equal(time.UnixMilli(2300)) {
		t.Fatalf("expected expiry at 2300ms, got %v", sess.ExpiresAt.UnixMilli())
	}
	if !sess.LastActivityAt.Equal(time.UnixMilli(800)) {
		t.Fatalf("unexpected last activity %v", sess.LastActivityAt.UnixMilli())
	}
	if h.clock.Pending() != 1 {
		t.Fatalf("expected a single armed timer, got %d", h.clock.Pending())
	}

	h.clock.Advance(800 * time.Millisecond)
	if !h.mgr.IsAuthenticated(ctx) {
		t.Fatal("refreshed session must survive the original deadline")
	}
	if events := h.drain(); len(events) != 0 {
		t.Fatalf("unexpected events %+v", events)
	}

	h.clock.Advance(700 * time.Millisecond)
	events := h.drain()
	if len(events) != 1 || events[0].Reason != StateExpired {
		t.Fatalf("expected expiry at 2300ms, got %+v", events)
	}
}

func TestRefreshRequiresSession(t *testing.T) {
	h := newHarness(t, time.Minute, 5)
	if _, err := h.mgr.RefreshSession(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	h := newHarness(t, time.Minute, 5)
	ctx := context.Background()

	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.drain()

	h.mgr.Logout(ctx)
	h.mgr.Logout(ctx)

	events := h.drain()
	if len(events) != 1 || events[0].Reason != StateLoggedOut {
		t.Fatalf("expected one logout event, got %+v", events)
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("logout must cancel the expiry timer, pending=%d", h.clock.Pending())
	}
	if h.mgr.IsAuthenticated(ctx) {
		t.Fatal("expected anonymous after logout")
	}
}

func TestExpiredPersistedSessionForcesLogout(t *testing.T) {
	h := newHarness(t, time.Hour, 5)
	ctx := context.Background()

	sess, err := h.mgr.Login(ctx, "admin", "admin123", false)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	h.drain()

	sess.ExpiresAt = h.clock.Now().Add(-time.Millisecond)
	if err := store.SetJSON(ctx, h.store, DefaultSessionKey, sess); err != nil {
		t.Fatalf("overwrite session: %v", err)
	}

	if h.mgr.IsAuthenticated(ctx) {
		t.Fatal("expired persisted session must not authenticate")
	}
	events := h.drain()
	if len(events) != 1 || events[0].Reason != StateExpired {
		t.Fatalf("expected expiry logout, got %+v", events)
	}
}

func TestRestore(t *testing.T) {
	h := newHarness(t, time.Second, 5)
	ctx := context.Background()

	if _, err := h.mgr.Login(ctx, "viewer", "viewer123", false); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.mgr.Close()
	h.clock.Advance(400 * time.Millisecond)

	next, err := NewManager(Config{SessionTimeout: time.Second, Logf: h.logf}, Deps{
		Authenticator: h.auth,
		Store:         h.store,
		Clock:         h.clock,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	sink := notify.NewChannelSink[Event](4)
	next.Subscribe(sink)

	sess, err := next.Restore(ctx)
	if err != nil || sess == nil {
		t.Fatalf("expected restored session, got %v err=%v", sess, err)
	}
	if !next.IsAuthenticated(ctx) || !next.HasRole("viewer") {
		t.Fatal("restored session must be live")
	}
	if e := <-sink.Events(); e.Type != EventLogin || !e.Restored {
		t.Fatalf("unexpected restore event %+v", e)
	}

	h.clock.Advance(600 * time.Millisecond)
	if e := <-sink.Events(); e.Type != EventLogout || e.Reason != StateExpired {
		t.Fatalf("expected restored session to expire at its original deadline, got %+v", e)
	}
}

func TestRestoreDiscardsExpired(t *testing.T) {
	h := newHarness(t, time.Second, 5)
	ctx := context.Background()

	if _, err := h.mgr.Login(ctx, "viewer", "viewer123", false); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.mgr.Close()
	h.clock.Advance(2 * time.Second)

	sess, err := h.mgr.Restore(ctx)
	if err != nil || sess != nil {
		t.Fatalf("expected nothing restored, got %v err=%v", sess, err)
	}
	if _, err := h.store.Get(ctx, DefaultSessionKey); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected expired record removed, got %v", err)
	}
}

func TestStorageFailuresAreSoft(t *testing.T) {
	h := newHarness(t, time.Minute, 5)
	ctx := context.Background()
	h.store.failSet.Store(true)

	if _, err := h.mgr.Login(ctx, "admin", "admin123", true); err != nil {
		t.Fatalf("login must survive storage failure: %v", err)
	}
	if h.mgr.IsAuthenticated(ctx) {
		t.Fatal("unpersisted session must not report authenticated")
	}

	h.store.failSet.Store(false)
	h.mgr.Logout(ctx)
	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatalf("login: %v", err)
	}

	h.store.failGet.Store(true)
	if h.mgr.IsAuthenticated(ctx) {
		t.Fatal("unreadable store must behave as logged out")
	}
	h.store.failGet.Store(false)

	h.mu.Lock()
	storageLogs := 0
	for _, l := range h.logs {
		if strings.Contains(l, "failed") {
			storageLogs++
		}
	}
	h.mu.Unlock()
	if storageLogs < 3 {
		t.Fatalf("expected storage failures to be logged, got %d lines", storageLogs)
	}
}

func TestRefreshPersistFailureLogsOut(t *testing.T) {
	h := newHarness(t, time.Minute, 5)
	ctx := context.Background()

	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatalf("login: %v", err)
	}
	h.drain()

	h.store.failSet.Store(true)
	if _, err := h.mgr.RefreshSession(ctx); !store.IsStorageError(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
	events := h.drain()
	if len(events) != 1 || events[0].Reason != StateLoggedOut {
		t.Fatalf("expected forced logout, got %+v", events)
	}
}

func TestStateDuringAuthentication(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	auth := AuthenticatorFunc(func(ctx context.Context, identity, secret string) (Credentials, error) {
		close(entered)
		<-release
		return Credentials{User: User{ID: "1", Username: identity}}, nil
	})
	mgr, err := NewManager(Config{SessionTimeout: time.Minute, Logf: func(string, ...any) {}}, Deps{Authenticator: auth})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	defer mgr.Close()

	done := make(chan error, 1)
	go func() {
		_, err := mgr.Login(context.Background(), "admin", "x", false)
		done <- err
	}()

	<-entered
	if s := mgr.State(); s != StateAuthenticating {
		t.Fatalf("expected authenticating, got %s", s)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("login: %v", err)
	}
	if s := mgr.State(); s != StateAuthenticated {
		t.Fatalf("expected authenticated, got %s", s)
	}
}

func TestSubscriberMayCallBackIntoManager(t *testing.T) {
	h := newHarness(t, time.Minute, 5)
	ctx := context.Background()

	h.mgr.Subscribe(notify.FuncSink[Event](func(ctx context.Context, e Event) {
		if e.Type == EventLogin {
			h.mgr.Logout(ctx)
		}
	}))

	if _, err := h.mgr.Login(ctx, "admin", "admin123", false); err != nil {
		t.Fatalf("login: %v", err)
	}
	if h.mgr.State() != StateAnonymous {
		t.Fatalf("expected logout from subscriber, state %s", h.mgr.State())
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{SessionTimeout: time.Minute}, Deps{}); !errors.Is(err, ErrNoAuthenticator) {
		t.Fatalf("expected ErrNoAuthenticator, got %v", err)
	}
	auth := AuthenticatorFunc(func(context.Context, string, string) (Credentials, error) { return Credentials{}, nil })
	if _, err := NewManager(Config{}, Deps{Authenticator: auth}); err == nil {
		t.Fatal("expected timeout validation error")
	}
}
