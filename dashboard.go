package dashcore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stonixai/dashcore/fetch"
	"github.com/stonixai/dashcore/session"
	"github.com/stonixai/dashcore/store"
)

// Dashboard endpoints.
const (
	MetricsPath     = "/metrics"
	ServicesPath    = "/services"
	AlertsPath      = "/alerts"
	PerformancePath = "/performance"
)

// AckPermission is required to acknowledge alerts.
const AckPermission = "acknowledge_alerts"

// Dashboard is one load of every dashboard section. When Offline is set the
// remote failed with Err and only the persisted Metrics and Services
// sections, if any, are present.
type Dashboard struct {
	Metrics     json.RawMessage
	Services    json.RawMessage
	Alerts      json.RawMessage
	Performance json.RawMessage

	Offline  bool
	Err      error
	LoadedAt time.Time
}

// LoadDashboard fetches all sections concurrently. On success the metrics
// and services sections are persisted as the offline snapshot. On failure
// the snapshot is returned flagged Offline; ErrNoSnapshot is returned only
// when there is nothing to show.
func (e *Engine) LoadDashboard(ctx context.Context) (*Dashboard, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.config.Security.RequireAuthentication && !e.sessions.IsAuthenticated(ctx) {
		return nil, session.ErrNotAuthenticated
	}

	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	for _, sec := range []struct {
		path string
		dst  *json.RawMessage
	}{
		{MetricsPath, &d.Metrics},
		{ServicesPath, &d.Services},
		{AlertsPath, &d.Alerts},
		{PerformancePath, &d.Performance},
	} {
		g.Go(func() error {
			raw, err := e.coordinator.Fetch(gctx, sec.path, fetch.Options{})
			if err != nil {
				return err
			}
			*sec.dst = raw
			return nil
		})
	}
	err := g.Wait()
	d.LoadedAt = e.clock.Now()

	if err == nil {
		e.persistSnapshot(ctx, e.config.Storage.MetricsSnapshotKey, d.Metrics)
		e.persistSnapshot(ctx, e.config.Storage.ServicesSnapshotKey, d.Services)
		e.metrics.Inc(MetricDashboardLoaded)
		return &d, nil
	}

	e.logf("dashcore: dashboard load failed, using snapshot: %v", err)
	e.metrics.Inc(MetricDashboardOffline)
	offline := &Dashboard{Offline: true, Err: err, LoadedAt: d.LoadedAt}
	offline.Metrics = e.readSnapshot(ctx, e.config.Storage.MetricsSnapshotKey)
	offline.Services = e.readSnapshot(ctx, e.config.Storage.ServicesSnapshotKey)
	if offline.Metrics == nil && offline.Services == nil {
		return offline, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
	}
	return offline, nil
}

// AcknowledgeAlert marks alert id acknowledged on the remote, presenting the
// session access token as a bearer credential. The response cache is
// cleared so the next load sees the change.
func (e *Engine) AcknowledgeAlert(ctx context.Context, id string) (json.RawMessage, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if id == "" {
		return nil, errors.New("alert id is required")
	}
	if !e.sessions.IsAuthenticated(ctx) {
		return nil, session.ErrNotAuthenticated
	}
	sess := e.sessions.Current()
	if sess == nil {
		return nil, session.ErrNotAuthenticated
	}
	if !sess.User.HasPermission(AckPermission) {
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, AckPermission)
	}

	raw, err := e.coordinator.Fetch(ctx, AlertsPath+"/"+url.PathEscape(id)+"/acknowledge", fetch.Options{
		Method: http.MethodPost,
		Header: http.Header{"Authorization": {"Bearer " + sess.AccessToken}},
	})
	if err != nil {
		return nil, err
	}
	e.coordinator.ClearCache()
	return raw, nil
}

func (e *Engine) persistSnapshot(ctx context.Context, key string, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	if err := e.store.Set(ctx, key, raw); err != nil {
		e.metrics.Inc(MetricStorageFailure)
		e.logf("dashcore: persist %s snapshot: %v", key, err)
	}
}

func (e *Engine) readSnapshot(ctx context.Context, key string) json.RawMessage {
	var raw json.RawMessage
	ok, err := store.GetJSON(ctx, e.store, key, &raw)
	if err != nil {
		e.metrics.Inc(MetricStorageFailure)
		e.logf("dashcore: read %s snapshot: %v", key, err)
		return nil
	}
	if !ok {
		return nil
	}
	return raw
}
