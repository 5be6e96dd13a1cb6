package dashcore

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stonixai/dashcore/store"
)

// Config is the complete Engine configuration. Start from DefaultConfig and
// override what differs.
type Config struct {
	API           APIConfig
	Security      SecurityConfig
	Storage       StorageConfig
	Notifications NotificationsConfig
	Metrics       MetricsConfig
}

// APIConfig controls the remote data endpoint.
type APIConfig struct {
	BaseURL string
	Header  http.Header
	// Timeout bounds a single try.
	Timeout time.Duration
	// RetryAttempts is the total number of tries per request.
	RetryAttempts int
	// RetryDelay is the first backoff step; it doubles per failure.
	RetryDelay time.Duration
	// CacheMaxAge is the default freshness bound of PeekCache.
	CacheMaxAge time.Duration
}

// SecurityConfig controls the session and lockout policy.
type SecurityConfig struct {
	SessionTimeout   time.Duration
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	// RequireAuthentication makes LoadDashboard refuse anonymous callers.
	RequireAuthentication bool
}

// StorageConfig controls the persisted store layout.
type StorageConfig struct {
	// Prefix namespaces every key this Engine writes.
	Prefix      string
	SessionKey  string
	RememberKey string
	// MetricsSnapshotKey and ServicesSnapshotKey hold the last good dashboard
	// sections for offline display.
	MetricsSnapshotKey  string
	ServicesSnapshotKey string
	// TTL is applied to Redis-backed values. Zero keeps them until removed.
	TTL time.Duration
}

// NotificationsConfig controls delivery of login/logout events.
type NotificationsConfig struct {
	// Async delivers events through a buffered dispatcher per subscriber
	// instead of on the emitting goroutine.
	Async      bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://localhost:3000/api",
			Header: http.Header{
				"Content-Type":  {"application/json"},
				"X-Api-Version": {"v1"},
			},
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    time.Second,
			CacheMaxAge:   time.Minute,
		},
		Security: SecurityConfig{
			SessionTimeout:        30 * time.Minute,
			MaxLoginAttempts:      5,
			LockoutDuration:       15 * time.Minute,
			RequireAuthentication: true,
		},
		Storage: StorageConfig{
			Prefix:              store.DefaultPrefix,
			SessionKey:          "session",
			RememberKey:         "remember_token",
			MetricsSnapshotKey:  "lastMetrics",
			ServicesSnapshotKey: "lastServices",
		},
		Notifications: NotificationsConfig{
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.API.Header = cfg.API.Header.Clone()
	return out
}

// Validate reports the first inconsistency in c.
func (c *Config) Validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL is required")
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}
	if c.API.RetryAttempts < 1 {
		return errors.New("API RetryAttempts must be >= 1")
	}
	if c.API.RetryDelay < 0 {
		return errors.New("API RetryDelay must be >= 0")
	}
	if c.API.CacheMaxAge <= 0 {
		return errors.New("API CacheMaxAge must be > 0")
	}

	// Security
	if c.Security.SessionTimeout <= 0 {
		return errors.New("Security SessionTimeout must be > 0")
	}
	if c.Security.MaxLoginAttempts < 1 {
		return errors.New("Security MaxLoginAttempts must be >= 1")
	}
	if c.Security.LockoutDuration <= 0 {
		return errors.New("Security LockoutDuration must be > 0")
	}

	// Storage
	if c.Storage.SessionKey == "" || c.Storage.RememberKey == "" {
		return errors.New("Storage SessionKey and RememberKey are required")
	}
	if c.Storage.SessionKey == c.Storage.RememberKey {
		return errors.New("Storage SessionKey and RememberKey must differ")
	}
	if c.Storage.MetricsSnapshotKey == "" || c.Storage.ServicesSnapshotKey == "" {
		return errors.New("Storage snapshot keys are required")
	}
	if c.Storage.TTL < 0 {
		return errors.New("Storage TTL must be >= 0")
	}

	// Notifications
	if c.Notifications.Async && c.Notifications.BufferSize < 1 {
		return errors.New("Notifications BufferSize must be >= 1 when Async is true")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
