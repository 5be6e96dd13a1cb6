package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stonixai/dashcore/internal/clock"
)

// Signal identifies a countable coordinator event.
type Signal int

const (
	SignalAttempt Signal = iota
	SignalRetry
	SignalSuccess
	SignalFailure
	SignalShared
	SignalCacheHit
	SignalCacheMiss
)

// Config controls request assembly, retry and caching.
type Config struct {
	BaseURL string
	Header  http.Header
	// Timeout bounds a single try. Zero disables the bound.
	Timeout time.Duration
	// RetryAttempts is the total number of tries, at least 1.
	RetryAttempts int
	// RetryDelay is the wait after the first failed try; it doubles after
	// every further failure.
	RetryDelay time.Duration
	// DefaultMaxAge applies when PeekCache is called with a non-positive age.
	DefaultMaxAge time.Duration
	// ShouldRetry decides whether a failed try is retried. Nil retries every
	// failure.
	ShouldRetry func(err error) bool

	Logf      func(format string, args ...any)
	MetricInc func(Signal)
	// ObserveLatency receives the caller-observed duration of every Fetch.
	ObserveLatency func(time.Duration)
}

// DefaultConfig returns the stock retry and caching policy.
func DefaultConfig() Config {
	return Config{
		Header: http.Header{
			"Content-Type":  {"application/json"},
			"X-Api-Version": {"v1"},
		},
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		DefaultMaxAge: time.Minute,
	}
}

// Coordinator deduplicates, retries and caches requests.
type Coordinator struct {
	cfg    Config
	sender Sender
	clock  clock.Clock
	group  singleflight.Group

	mu      sync.Mutex
	cache   map[string]Entry
	waiters map[string]int
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the wall clock used for cache ages and backoff sleeps.
func WithClock(c clock.Clock) Option {
	return func(co *Coordinator) {
		if c != nil {
			co.clock = c
		}
	}
}

func New(cfg Config, sender Sender, opts ...Option) *Coordinator {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.DefaultMaxAge <= 0 {
		cfg.DefaultMaxAge = time.Minute
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}

	c := &Coordinator{
		cfg:     cfg,
		sender:  sender,
		clock:   clock.Real(),
		cache:   make(map[string]Entry),
		waiters: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the deduplication and cache key for method and endpoint.
func (c *Coordinator) Key(method, endpoint string) string {
	return requestKey(normalizeMethod(method), resolveURL(c.cfg.BaseURL, endpoint))
}

// Fetch performs the request described by endpoint and opts. Concurrent
// calls with the same key share a single execution.
func (c *Coordinator) Fetch(ctx context.Context, endpoint string, opts Options) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := c.newRequest(endpoint, opts)
	if err != nil {
		return nil, err
	}
	key := req.Key()
	start := c.clock.Now()

	// The shared call must outlive whichever caller happened to start it.
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.execute(detached, req)
	})
	c.join(key)
	defer c.leave(key)

	select {
	case res := <-ch:
		c.observe(start)
		if res.Shared {
			c.inc(SignalShared)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneRaw(res.Val.(json.RawMessage)), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// PeekCache returns the cached GET response for endpoint if it is younger
// than maxAge. A non-positive maxAge selects Config.DefaultMaxAge.
func (c *Coordinator) PeekCache(endpoint string, maxAge time.Duration) (json.RawMessage, bool) {
	if maxAge <= 0 {
		maxAge = c.cfg.DefaultMaxAge
	}
	key := c.Key(http.MethodGet, endpoint)

	c.mu.Lock()
	entry, ok := c.cache[key]
	c.mu.Unlock()

	if !ok || !entry.fresh(c.clock.Now(), maxAge) {
		c.inc(SignalCacheMiss)
		return nil, false
	}
	c.inc(SignalCacheHit)
	return cloneRaw(entry.Value), true
}

// ClearCache drops every cached response.
func (c *Coordinator) ClearCache() {
	c.mu.Lock()
	c.cache = make(map[string]Entry)
	c.mu.Unlock()
}

// CacheLen reports the number of cached responses, stale ones included.
func (c *Coordinator) CacheLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Waiters reports how many callers are waiting on key.
func (c *Coordinator) Waiters(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters[key]
}

// Pending reports how many distinct keys have callers waiting.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

func (c *Coordinator) newRequest(endpoint string, opts Options) (*Request, error) {
	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	return &Request{
		Method:  normalizeMethod(opts.Method),
		URL:     resolveURL(c.cfg.BaseURL, endpoint),
		Header:  mergeHeaders(c.cfg.Header, opts.Header),
		Body:    body,
		Timeout: timeout,
	}, nil
}

func (c *Coordinator) execute(ctx context.Context, req *Request) (json.RawMessage, error) {
	key := req.Key()
	attempts := 0
	var lastErr error

	for attempts < c.cfg.RetryAttempts {
		attempts++
		c.inc(SignalAttempt)

		val, err := c.try(ctx, req)
		if err == nil {
			c.inc(SignalSuccess)
			if req.Method == http.MethodGet {
				c.store(key, val)
			}
			return val, nil
		}

		lastErr = err
		c.cfg.Logf("dashcore: %s attempt %d/%d failed: %v", key, attempts, c.cfg.RetryAttempts, err)

		if attempts == c.cfg.RetryAttempts || !c.shouldRetry(err) {
			break
		}
		c.inc(SignalRetry)
		delay := c.cfg.RetryDelay << (attempts - 1)
		if err := c.clock.Sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	c.inc(SignalFailure)
	return nil, &RetryError{Key: key, Attempts: attempts, Err: lastErr}
}

func (c *Coordinator) try(ctx context.Context, req *Request) (json.RawMessage, error) {
	if c.sender == nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL, Err: errors.New("no sender configured")}
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	val, err := c.sender.Send(ctx, req)
	if err == nil {
		return val, nil
	}

	var te *TransportError
	var se *HTTPStatusError
	if errors.As(err, &te) || errors.As(err, &se) {
		return nil, err
	}
	return nil, &TransportError{Method: req.Method, URL: req.URL, Timeout: isTimeout(err), Err: err}
}

func (c *Coordinator) shouldRetry(err error) bool {
	if c.cfg.ShouldRetry == nil {
		return true
	}
	return c.cfg.ShouldRetry(err)
}

func (c *Coordinator) store(key string, val json.RawMessage) {
	entry := Entry{Key: key, Value: cloneRaw(val), FetchedAt: c.clock.Now()}
	c.mu.Lock()
	c.cache[key] = entry
	c.mu.Unlock()
}

func (c *Coordinator) join(key string) {
	c.mu.Lock()
	c.waiters[key]++
	c.mu.Unlock()
}

func (c *Coordinator) leave(key string) {
	c.mu.Lock()
	if c.waiters[key] <= 1 {
		delete(c.waiters, key)
	} else {
		c.waiters[key]--
	}
	c.mu.Unlock()
}

func (c *Coordinator) inc(s Signal) {
	if c.cfg.MetricInc != nil {
		c.cfg.MetricInc(s)
	}
}

func (c *Coordinator) observe(start time.Time) {
	if c.cfg.ObserveLatency != nil {
		c.cfg.ObserveLatency(c.clock.Now().Sub(start))
	}
}
