package dashcore

import (
	"sync/atomic"
	"time"

	"github.com/stonixai/dashcore/fetch"
	"github.com/stonixai/dashcore/session"
)

// MetricID names one Engine counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLockedOut
	MetricLogout
	MetricSessionExpired
	MetricSessionRefreshed
	MetricStorageFailure
	MetricFetchAttempt
	MetricFetchRetry
	MetricFetchSuccess
	MetricFetchFailure
	MetricFetchShared
	MetricCacheHit
	MetricCacheMiss
	MetricDashboardLoaded
	MetricDashboardOffline
	// MetricFetchLatency is the only histogram.
	MetricFetchLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free set of counters plus the fetch latency histogram.
// A nil or disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricFetchLatency carries
// a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id != MetricFetchLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricFetchLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricFetchLatency].buckets[i])
		}
		s.Histograms[MetricFetchLatency] = buckets
	}
	return s
}

// Bucket upper bounds in milliseconds; the last bucket is unbounded.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}

var fetchSignals = [...]MetricID{
	fetch.SignalAttempt:   MetricFetchAttempt,
	fetch.SignalRetry:     MetricFetchRetry,
	fetch.SignalSuccess:   MetricFetchSuccess,
	fetch.SignalFailure:   MetricFetchFailure,
	fetch.SignalShared:    MetricFetchShared,
	fetch.SignalCacheHit:  MetricCacheHit,
	fetch.SignalCacheMiss: MetricCacheMiss,
}

var sessionSignals = [...]MetricID{
	session.SignalLoginSuccess:   MetricLoginSuccess,
	session.SignalLoginFailure:   MetricLoginFailure,
	session.SignalLockedOut:      MetricLoginLockedOut,
	session.SignalLogout:         MetricLogout,
	session.SignalExpired:        MetricSessionExpired,
	session.SignalRefreshed:      MetricSessionRefreshed,
	session.SignalStorageFailure: MetricStorageFailure,
}

func (m *Metrics) incFetch(s fetch.Signal) {
	if int(s) >= 0 && int(s) < len(fetchSignals) {
		m.Inc(fetchSignals[s])
	}
}

func (m *Metrics) incSession(s session.Signal) {
	if int(s) >= 0 && int(s) < len(sessionSignals) {
		m.Inc(sessionSignals[s])
	}
}
