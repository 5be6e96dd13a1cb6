package internaldefs

import (
	"github.com/stonixai/dashcore"
)

type CounterDef struct {
	ID   dashcore.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   dashcore.MetricID
	Name string
	Help string
}

// NotificationsDroppedName is the counter of events discarded by full
// asynchronous notification queues.
const NotificationsDroppedName = "dashcore_notifications_dropped_total"

var CounterDefs = []CounterDef{
	{ID: dashcore.MetricLoginSuccess, Name: "dashcore_login_success_total", Help: "Successful logins."},
	{ID: dashcore.MetricLoginFailure, Name: "dashcore_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: dashcore.MetricLoginLockedOut, Name: "dashcore_login_locked_out_total", Help: "Logins refused while the identity was locked out."},
	{ID: dashcore.MetricLogout, Name: "dashcore_logout_total", Help: "Ended sessions, explicit or by expiry."},
	{ID: dashcore.MetricSessionExpired, Name: "dashcore_session_expired_total", Help: "Sessions ended by inactivity expiry."},
	{ID: dashcore.MetricSessionRefreshed, Name: "dashcore_session_refreshed_total", Help: "Session deadline extensions."},
	{ID: dashcore.MetricStorageFailure, Name: "dashcore_storage_failure_total", Help: "Persisted store operations that failed."},
	{ID: dashcore.MetricFetchAttempt, Name: "dashcore_fetch_attempt_total", Help: "Remote calls attempted, retries included."},
	{ID: dashcore.MetricFetchRetry, Name: "dashcore_fetch_retry_total", Help: "Failed remote calls that were retried."},
	{ID: dashcore.MetricFetchSuccess, Name: "dashcore_fetch_success_total", Help: "Requests that eventually succeeded."},
	{ID: dashcore.MetricFetchFailure, Name: "dashcore_fetch_failure_total", Help: "Requests that failed after every attempt."},
	{ID: dashcore.MetricFetchShared, Name: "dashcore_fetch_shared_total", Help: "Fetch calls that joined an in-flight request."},
	{ID: dashcore.MetricCacheHit, Name: "dashcore_cache_hit_total", Help: "Fresh cache lookups."},
	{ID: dashcore.MetricCacheMiss, Name: "dashcore_cache_miss_total", Help: "Cache lookups that were absent or stale."},
	{ID: dashcore.MetricDashboardLoaded, Name: "dashcore_dashboard_loaded_total", Help: "Complete dashboard loads."},
	{ID: dashcore.MetricDashboardOffline, Name: "dashcore_dashboard_offline_total", Help: "Dashboard loads served from the offline snapshot."},
}

var HistogramDefs = []HistogramDef{
	{ID: dashcore.MetricFetchLatency, Name: "dashcore_fetch_latency_seconds", Help: "Caller-observed fetch latency."},
}

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as instrument-name suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
