package dashcore

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stonixai/dashcore/fetch"
	"github.com/stonixai/dashcore/internal/clock"
	"github.com/stonixai/dashcore/lockout"
	"github.com/stonixai/dashcore/session"
	"github.com/stonixai/dashcore/store"
	"github.com/stonixai/dashcore/token"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  store.Store

	sender        fetch.Sender
	authenticator session.Authenticator
	tokens        *token.Issuer
	logger        *log.Logger
	clock         clock.Clock

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs both the persisted store and the lockout records with
// client unless WithStore overrides the former.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

func (b *Builder) WithSender(s fetch.Sender) *Builder {
	b.sender = s
	return b
}

// WithHTTPClient sends remote requests through client.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.sender = fetch.NewHTTPSender(client)
	return b
}

func (b *Builder) WithAuthenticator(a session.Authenticator) *Builder {
	b.authenticator = a
	return b
}

func (b *Builder) WithTokenIssuer(i *token.Issuer) *Builder {
	b.tokens = i
	return b
}

func (b *Builder) WithLogger(l *log.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) withClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// Build validates the configuration, wires the components and restores a
// persisted session if one is still valid.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.authenticator == nil {
		return nil, session.ErrNoAuthenticator
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logf := log.Printf
	if b.logger != nil {
		logf = b.logger.Printf
	}
	clk := b.clock
	if clk == nil {
		clk = clock.Real()
	}

	kv := b.store
	var records lockout.RecordStore
	if b.redis != nil {
		if kv == nil {
			kv = store.NewRedisStore(b.redis, cfg.Storage.Prefix, cfg.Storage.TTL)
		}
		records = lockout.NewRedisStore(b.redis, cfg.Storage.Prefix, cfg.Security.LockoutDuration)
	}
	if kv == nil {
		kv = store.NewMemoryStore(cfg.Storage.Prefix)
	}

	sender := b.sender
	if sender == nil {
		sender = fetch.NewHTTPSender(nil)
	}

	metrics := NewMetrics(cfg.Metrics)

	tracker := lockout.NewTracker(records, lockout.Config{
		MaxAttempts: cfg.Security.MaxLoginAttempts,
		Duration:    cfg.Security.LockoutDuration,
	}, lockout.WithClock(clk), lockout.WithLogf(logf))

	sessions, err := session.NewManager(session.Config{
		SessionTimeout: cfg.Security.SessionTimeout,
		SessionKey:     cfg.Storage.SessionKey,
		RememberKey:    cfg.Storage.RememberKey,
		Logf:           logf,
		MetricInc:      metrics.incSession,
	}, session.Deps{
		Authenticator: b.authenticator,
		Store:         kv,
		Lockout:       tracker,
		Tokens:        b.tokens,
		Clock:         clk,
	})
	if err != nil {
		return nil, err
	}

	coordinator := fetch.New(fetch.Config{
		BaseURL:        cfg.API.BaseURL,
		Header:         cfg.API.Header,
		Timeout:        cfg.API.Timeout,
		RetryAttempts:  cfg.API.RetryAttempts,
		RetryDelay:     cfg.API.RetryDelay,
		DefaultMaxAge:  cfg.API.CacheMaxAge,
		Logf:           logf,
		MetricInc:      metrics.incFetch,
		ObserveLatency: func(d time.Duration) { metrics.Observe(MetricFetchLatency, d) },
	}, sender, fetch.WithClock(clk))

	e := &Engine{
		config:      cfg,
		store:       kv,
		lockout:     tracker,
		sessions:    sessions,
		coordinator: coordinator,
		metrics:     metrics,
		clock:       clk,
		logf:        logf,
	}

	if _, err := sessions.Restore(context.Background()); err != nil {
		logf("dashcore: session restore skipped: %v", err)
	}

	b.built = true
	return e, nil
}
