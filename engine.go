package dashcore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/stonixai/dashcore/fetch"
	"github.com/stonixai/dashcore/internal/clock"
	"github.com/stonixai/dashcore/internal/notify"
	"github.com/stonixai/dashcore/lockout"
	"github.com/stonixai/dashcore/session"
	"github.com/stonixai/dashcore/store"
)

// Engine joins the request coordinator and the session manager behind one
// surface. Build it with [Builder].
type Engine struct {
	config      Config
	store       store.Store
	lockout     *lockout.Tracker
	sessions    *session.Manager
	coordinator *fetch.Coordinator
	metrics     *Metrics
	clock       clock.Clock
	logf        func(format string, args ...any)

	mu          sync.Mutex
	closed      bool
	dispatchers []*notify.Dispatcher[session.Event]
}

// Close stops the expiry timer and drains asynchronous subscribers. The
// persisted session survives for a later Restore.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	dispatchers := e.dispatchers
	e.dispatchers = nil
	e.mu.Unlock()

	e.sessions.Close()
	for _, d := range dispatchers {
		d.Close()
	}
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Subscribe registers fn for login and logout events and returns a function
// that removes it. With Notifications.Async set, fn runs on a dedicated
// goroutine fed by a buffered queue.
func (e *Engine) Subscribe(fn func(context.Context, session.Event)) (unsubscribe func()) {
	var sink notify.Sink[session.Event] = notify.FuncSink[session.Event](fn)
	if !e.config.Notifications.Async {
		return e.sessions.Subscribe(sink)
	}

	d := notify.NewDispatcher[session.Event](notify.Config{
		BufferSize: e.config.Notifications.BufferSize,
		DropIfFull: e.config.Notifications.DropIfFull,
	}, sink)
	e.mu.Lock()
	e.dispatchers = append(e.dispatchers, d)
	e.mu.Unlock()

	remove := e.sessions.Subscribe(d)
	return func() {
		remove()
		e.mu.Lock()
		for i, x := range e.dispatchers {
			if x == d {
				e.dispatchers = append(e.dispatchers[:i], e.dispatchers[i+1:]...)
				break
			}
		}
		e.mu.Unlock()
		d.Close()
	}
}

// NotificationsDropped counts events discarded by full async queues.
func (e *Engine) NotificationsDropped() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var n uint64
	for _, d := range e.dispatchers {
		n += d.Dropped()
	}
	return n
}

// Login authenticates username and starts a session. A locked identity gets
// a *session.LockedOutError without consulting the authenticator.
func (e *Engine) Login(ctx context.Context, username, password string, rememberMe bool) (*session.Session, error) {
	return e.sessions.Login(ctx, username, password, rememberMe)
}

func (e *Engine) Logout(ctx context.Context) {
	e.sessions.Logout(ctx)
}

func (e *Engine) IsAuthenticated(ctx context.Context) bool {
	return e.sessions.IsAuthenticated(ctx)
}

// RefreshSession extends the live session by the session timeout.
func (e *Engine) RefreshSession(ctx context.Context) (*session.Session, error) {
	return e.sessions.RefreshSession(ctx)
}

func (e *Engine) State() session.State {
	return e.sessions.State()
}

func (e *Engine) CurrentSession() *session.Session {
	return e.sessions.Current()
}

func (e *Engine) CurrentUser() (session.User, bool) {
	return e.sessions.CurrentUser()
}

func (e *Engine) HasPermission(p string) bool {
	return e.sessions.HasPermission(p)
}

func (e *Engine) HasRole(role string) bool {
	return e.sessions.HasRole(role)
}

// RememberedToken returns the refresh token saved by a remember-me login.
func (e *Engine) RememberedToken(ctx context.Context) (string, bool) {
	return e.sessions.RememberedToken(ctx)
}

// IsLockedOut reports whether identity is currently refused.
func (e *Engine) IsLockedOut(ctx context.Context, identity string) (bool, error) {
	return e.lockout.IsLockedOut(ctx, identity)
}

// RemainingLockoutMinutes rounds the rest of the lockout window up to whole
// minutes, or 0 when identity is not locked.
func (e *Engine) RemainingLockoutMinutes(ctx context.Context, identity string) (int, error) {
	return e.lockout.RemainingLockoutMinutes(ctx, identity)
}

// Fetch requests endpoint through the coordinator.
func (e *Engine) Fetch(ctx context.Context, endpoint string, opts fetch.Options) (json.RawMessage, error) {
	return e.coordinator.Fetch(ctx, endpoint, opts)
}

// PeekCache returns the cached GET result of endpoint if younger than
// maxAge. A non-positive maxAge selects API.CacheMaxAge.
func (e *Engine) PeekCache(endpoint string, maxAge time.Duration) (json.RawMessage, bool) {
	return e.coordinator.PeekCache(endpoint, maxAge)
}

func (e *Engine) ClearCache() {
	e.coordinator.ClearCache()
}

// FetchJSON fetches endpoint and decodes the result into a T.
func FetchJSON[T any](ctx context.Context, e *Engine, endpoint string, opts fetch.Options) (T, error) {
	var out T
	if e == nil {
		return out, ErrEngineNotReady
	}
	raw, err := e.Fetch(ctx, endpoint, opts)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return out, nil
}
