// Package metrics holds the request/cache/transfer counters and
// histograms the proxy records: package-level collectors registered
// once, plain Observe* functions callers use on the hot path, no
// per-call allocation.
package metrics

import (
	"bytes"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/corehttp/txcore/internal/transact"
)

// Bucket boundaries: cached document sizes in bytes, and proxy
// transfer speed in bytes/sec.
var (
	documentSizeBuckets = []float64{100, 1000, 3000, 5000, 10000, 1000000}
	proxySpeedBuckets    = []float64{100, 1000, 10000, 100000, 1000000, 10000000, 100000000}
)

var registry = prometheus.NewRegistry()

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "txcore_http_requests_total",
		Help: "Total HTTP requests handled, labeled by method, cache status and response status code.",
	}, []string{"method", "cache_status", "status_code"})

	cacheObjectSizeBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "txcore_cache_object_size_bytes",
		Help:    "Size in bytes of response bodies written to the cache.",
		Buckets: documentSizeBuckets,
	})

	proxySpeedBytesPerSecond = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "txcore_proxy_speed_bytes_per_second",
		Help:    "Observed origin-to-client transfer speed in bytes per second.",
		Buckets: proxySpeedBuckets,
	})

	milestoneDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "txcore_milestone_duration_seconds",
		Help: "Elapsed time from transaction start to each NextAction milestone.",
	}, []string{"milestone"})
)

func init() {
	registry.MustRegister(requestsTotal, cacheObjectSizeBytes, proxySpeedBytesPerSecond, milestoneDurationSeconds)
}

// counterState mirrors the Prometheus counters in a small in-process
// structure cheap to render as the "$internal$" stats page JSON body
// (internal/transact.StatsSnapshotFunc) without gathering and decoding
// the full Prometheus registry on every request.
type counterState struct {
	mu       sync.Mutex
	total    int64
	byStatus map[string]int64
}

var snapshotCounters = &counterState{byStatus: make(map[string]int64)}

func (c *counterState) recordRequest(cacheStatus string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	c.byStatus[cacheStatus]++
}

func (c *counterState) snapshot() transact.StatsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	byStatus := make(map[string]int64, len(c.byStatus))
	for k, v := range c.byStatus {
		byStatus[k] = v
	}
	return transact.StatsSnapshot{
		"requests_total":           c.total,
		"requests_by_cache_status": byStatus,
	}
}

// ObserveRequest records one completed HTTP request.
func ObserveRequest(method, cacheStatus string, statusCode int) {
	requestsTotal.WithLabelValues(method, cacheStatus, strconv.Itoa(statusCode)).Inc()
	snapshotCounters.recordRequest(cacheStatus)
}

// ObserveCacheObjectSize records the size of a body written to cache.
func ObserveCacheObjectSize(size int) {
	cacheObjectSizeBytes.Observe(float64(size))
}

// ObserveProxySpeed records an origin-to-client transfer rate.
func ObserveProxySpeed(bytesPerSecond float64) {
	proxySpeedBytesPerSecond.Observe(bytesPerSecond)
}

// ObserveMilestones records, for every milestone ts reached besides the
// start, the elapsed time since ActionStartRemap -- the per-milestone
// duration stats, with the transaction's first state as the origin.
func ObserveMilestones(ts *transact.TransactionState) {
	start, ok := ts.Milestones[transact.ActionStartRemap]
	if !ok {
		return
	}
	for action, at := range ts.Milestones {
		if action == transact.ActionStartRemap {
			continue
		}
		milestoneDurationSeconds.WithLabelValues(action.String()).Observe(at.Sub(start).Seconds())
	}
}

// Snapshot is an internal/transact.StatsSnapshotFunc rendering the
// in-process counters as the "$internal$" stats page body.
func Snapshot() transact.StatsSnapshot {
	return snapshotCounters.snapshot()
}

// Handler exposes the registry for Prometheus scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// TextSnapshot renders the current registry in the Prometheus text
// exposition format, using prometheus/common's encoder directly rather
// than going through an HTTP round trip -- used by cmd/txcore for a
// startup self-check and by tests.
func TextSnapshot() (string, error) {
	families, err := registry.Gather()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
