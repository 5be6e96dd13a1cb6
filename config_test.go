package dashcore

import (
	"testing"
	"time"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.API.Timeout != 30*time.Second || cfg.API.RetryAttempts != 3 || cfg.API.RetryDelay != time.Second {
		t.Fatalf("unexpected API defaults: %+v", cfg.API)
	}
	if cfg.Security.SessionTimeout != 30*time.Minute || cfg.Security.MaxLoginAttempts != 5 || cfg.Security.LockoutDuration != 15*time.Minute {
		t.Fatalf("unexpected security defaults: %+v", cfg.Security)
	}
	if cfg.Storage.Prefix != "itm_" || cfg.Storage.SessionKey != "session" || cfg.Storage.RememberKey != "remember_token" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if got := cfg.API.Header.Get("X-API-Version"); got != "v1" {
		t.Fatalf("expected api version header v1, got %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantValid: true},
		{name: "blank base url", mutate: func(c *Config) { c.API.BaseURL = "  " }, wantValid: false},
		{name: "zero attempts", mutate: func(c *Config) { c.API.RetryAttempts = 0 }, wantValid: false},
		{name: "single attempt", mutate: func(c *Config) { c.API.RetryAttempts = 1 }, wantValid: true},
		{name: "negative delay", mutate: func(c *Config) { c.API.RetryDelay = -time.Second }, wantValid: false},
		{name: "zero delay", mutate: func(c *Config) { c.API.RetryDelay = 0 }, wantValid: true},
		{name: "zero cache age", mutate: func(c *Config) { c.API.CacheMaxAge = 0 }, wantValid: false},
		{name: "zero session timeout", mutate: func(c *Config) { c.Security.SessionTimeout = 0 }, wantValid: false},
		{name: "zero max login attempts", mutate: func(c *Config) { c.Security.MaxLoginAttempts = 0 }, wantValid: false},
		{name: "zero lockout", mutate: func(c *Config) { c.Security.LockoutDuration = 0 }, wantValid: false},
		{name: "same storage keys", mutate: func(c *Config) { c.Storage.RememberKey = c.Storage.SessionKey }, wantValid: false},
		{name: "missing snapshot key", mutate: func(c *Config) { c.Storage.ServicesSnapshotKey = "" }, wantValid: false},
		{name: "negative ttl", mutate: func(c *Config) { c.Storage.TTL = -time.Second }, wantValid: false},
		{name: "async without buffer", mutate: func(c *Config) {
			c.Notifications.Async = true
			c.Notifications.BufferSize = 0
		}, wantValid: false},
		{name: "latency without metrics", mutate: func(c *Config) {
			c.Metrics.Enabled = false
			c.Metrics.EnableLatencyHistograms = true
		}, wantValid: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestWithConfigClonesHeader(t *testing.T) {
	cfg := DefaultConfig()
	b := New().WithConfig(cfg)
	cfg.API.Header.Set("X-Api-Version", "v9")

	if got := b.config.API.Header.Get("X-Api-Version"); got != "v1" {
		t.Fatalf("builder config must not alias caller header, got %q", got)
	}
}
