package dashcore

import (
	"context"
	"errors"
	"testing"

	"github.com/stonixai/dashcore/session"
)

func TestLoadDashboardRequiresSession(t *testing.T) {
	fx := newEngineFixture(t, nil)
	if _, err := fx.engine.LoadDashboard(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if n := fx.remote.count("/metrics"); n != 0 {
		t.Fatalf("anonymous load must not reach the remote, got %d calls", n)
	}
}

func TestLoadDashboardPersistsSnapshotAndFallsBack(t *testing.T) {
	fx := newEngineFixture(t, nil)
	ctx := context.Background()
	if _, err := fx.engine.Login(ctx, "operator", "operator123", false); err != nil {
		t.Fatalf("login: %v", err)
	}

	d, err := fx.engine.LoadDashboard(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Offline {
		t.Fatal("expected online dashboard")
	}
	for name, raw := range map[string][]byte{"metrics": d.Metrics, "services": d.Services, "alerts": d.Alerts, "performance": d.Performance} {
		if len(raw) == 0 {
			t.Fatalf("missing %s section", name)
		}
	}
	if _, err := fx.store.Get(ctx, "lastMetrics"); err != nil {
		t.Fatalf("expected metrics snapshot persisted: %v", err)
	}

	fx.engine.ClearCache()
	fx.remote.setFail(true)
	offline, err := fx.engine.LoadDashboard(ctx)
	if err != nil {
		t.Fatalf("offline load: %v", err)
	}
	if !offline.Offline || offline.Err == nil {
		t.Fatalf("expected offline dashboard, got %+v", offline)
	}
	if string(offline.Metrics) != `{"path":"/metrics"}` || string(offline.Services) != `{"path":"/services"}` {
		t.Fatalf("unexpected snapshot %s %s", offline.Metrics, offline.Services)
	}
	if offline.Alerts != nil || offline.Performance != nil {
		t.Fatal("alerts and performance have no snapshot")
	}

	snap := fx.engine.MetricsSnapshot()
	if snap.Counters[MetricDashboardLoaded] != 1 || snap.Counters[MetricDashboardOffline] != 1 {
		t.Fatalf("unexpected dashboard counters %+v", snap.Counters)
	}
}

func TestLoadDashboardWithoutSnapshot(t *testing.T) {
	fx := newEngineFixture(t, func(c *Config) { c.Security.RequireAuthentication = false })
	fx.remote.setFail(true)

	d, err := fx.engine.LoadDashboard(context.Background())
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
	if d == nil || !d.Offline {
		t.Fatal("expected an offline dashboard alongside the error")
	}
	if fx.engine.State() != session.StateAnonymous {
		t.Fatalf("expected anonymous state, got %q", fx.engine.State())
	}
}

func TestLoadDashboardNilEngine(t *testing.T) {
	var e *Engine
	if _, err := e.LoadDashboard(context.Background()); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
