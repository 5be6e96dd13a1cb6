package otel

import (
	"context"
	"sync"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/stonixai/dashcore"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot dashcore.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() dashcore.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := dashcore.MetricsSnapshot{
		Counters:   make(map[dashcore.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[dashcore.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) NotificationsDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func findInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newMeter()
	src := &fakeSource{
		snapshot: dashcore.MetricsSnapshot{
			Counters: map[dashcore.MetricID]uint64{
				dashcore.MetricCacheHit: 3,
			},
			Histograms: map[dashcore.MetricID][]uint64{
				dashcore.MetricFetchLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("dashcore-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if v, ok := findInt64(rm, "dashcore_cache_hit_total"); !ok || v != 3 {
		t.Fatalf("expected cache hit counter 3, got %d (%v)", v, ok)
	}
	if v, ok := findInt64(rm, "dashcore_fetch_latency_seconds_count"); !ok || v != 8 {
		t.Fatalf("expected histogram count 8, got %d (%v)", v, ok)
	}
	if v, ok := findInt64(rm, "dashcore_notifications_dropped_total"); !ok || v != 1 {
		t.Fatalf("expected dropped counter 1, got %d (%v)", v, ok)
	}
}

func TestExporterRejectsNilArguments(t *testing.T) {
	_, provider := newMeter()

	if _, err := NewOTelExporterFromSource(provider.Meter("dashcore-test"), nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newMeter()
	src := &fakeSource{
		snapshot: dashcore.MetricsSnapshot{
			Counters:   map[dashcore.MetricID]uint64{dashcore.MetricLoginSuccess: 1},
			Histograms: map[dashcore.MetricID][]uint64{},
		},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("dashcore-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() { _ = exp.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[dashcore.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
