// Package metrics implements the process-wide counter set (ยง4.I): request
// totals, per-method breakdown, a latency histogram, signature and cache
// counters, exposed in both Prometheus text and JSON forms.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// bucketBounds are the fixed finite histogram bounds in milliseconds; the
// +inf bucket is counted separately (Recorder.infBkt).
var bucketBounds = []float64{10, 50, 100, 500, 1000, 5000}

// Recorder is a constructed, passed-in metrics sink rather than module-level
// state (ยง9 re-architecture hint). Every counter is a *atomic.Int64 so
// snapshots never tear between total and histogram, mirroring the atomic
// counter discipline the teacher applies to token credit counters
// (x402/token.go's InMemoryTokenStore).
type Recorder struct {
	startedAt time.Time

	total    atomic.Int64
	success  atomic.Int64
	errors   atomic.Int64
	sigGen   atomic.Int64
	sigOK    atomic.Int64
	sigFail  atomic.Int64
	cacheHit atomic.Int64
	cacheMis atomic.Int64

	latencyMu    sync.Mutex
	latencySumMs float64
	latencyCount int64

	byMethodMu sync.Mutex
	byMethod   map[string]int64

	histMu  sync.Mutex
	buckets map[float64]int64
	infBkt  int64
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{
		startedAt: time.Now(),
		byMethod:  make(map[string]int64),
		buckets:   make(map[float64]int64),
	}
}

// RecordRequest records one completed lookup: success/failure, the method
// dispatched, and its latency.
func (r *Recorder) RecordRequest(method string, success bool, latencyMs float64) {
	r.total.Add(1)
	if success {
		r.success.Add(1)
	} else {
		r.errors.Add(1)
	}

	r.byMethodMu.Lock()
	r.byMethod[method]++
	r.byMethodMu.Unlock()

	r.latencyMu.Lock()
	r.latencySumMs += latencyMs
	r.latencyCount++
	r.latencyMu.Unlock()

	r.histMu.Lock()
	for _, bound := range bucketBounds {
		if latencyMs <= bound {
			r.buckets[bound]++
		}
	}
	r.infBkt++
	r.histMu.Unlock()
}

// RecordCacheHit increments the cache-hit counter.
func (r *Recorder) RecordCacheHit() { r.cacheHit.Add(1) }

// RecordCacheMiss increments the cache-miss counter.
func (r *Recorder) RecordCacheMiss() { r.cacheMis.Add(1) }

// RecordSignatureGenerated increments the signatures-issued counter.
func (r *Recorder) RecordSignatureGenerated() { r.sigGen.Add(1) }

// RecordSignatureVerified records the outcome of a signature verification.
func (r *Recorder) RecordSignatureVerified(success bool) {
	if success {
		r.sigOK.Add(1)
	} else {
		r.sigFail.Add(1)
	}
}

func (r *Recorder) averageLatencySeconds() float64 {
	r.latencyMu.Lock()
	defer r.latencyMu.Unlock()
	if r.latencyCount == 0 {
		return 0
	}
	return (r.latencySumMs / float64(r.latencyCount)) / 1000.0
}

// Text renders the Prometheus exposition format: one HELP/TYPE/sample
// triplet per metric, with fixed names per ยง4.I.
func (r *Recorder) Text() string {
	var b strings.Builder

	writeCounter(&b, "ens_compute_requests_total", "Total lookup requests received", r.total.Load())
	writeCounter(&b, "ens_compute_requests_success_total", "Lookup requests that completed successfully", r.success.Load())
	writeCounter(&b, "ens_compute_requests_errors_total", "Lookup requests that failed", r.errors.Load())

	fmt.Fprintf(&b, "# HELP ens_compute_latency_seconds Average lookup latency in seconds\n")
	fmt.Fprintf(&b, "# TYPE ens_compute_latency_seconds gauge\n")
	fmt.Fprintf(&b, "ens_compute_latency_seconds %f\n", r.averageLatencySeconds())

	writeCounter(&b, "ens_compute_cache_hits_total", "Cache hits", r.cacheHit.Load())
	writeCounter(&b, "ens_compute_cache_misses_total", "Cache misses", r.cacheMis.Load())

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value int64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s counter\n", name)
	fmt.Fprintf(b, "%s %d\n", name, value)
}

// Snapshot is the JSON exposition shape.
type Snapshot struct {
	Total         int64            `json:"total"`
	Success       int64            `json:"success"`
	Errors        int64            `json:"errors"`
	ByMethod      map[string]int64 `json:"by_method"`
	Signatures    SignatureCounts  `json:"signatures"`
	Cache         CacheCounts      `json:"cache"`
	AvgLatencySec float64          `json:"avg_latency_seconds"`
	Histogram     map[string]int64 `json:"histogram"`
	UptimeSec     float64          `json:"uptime_seconds"`
	Timestamp     int64            `json:"timestamp"`
}

// SignatureCounts breaks down signature generation/verification outcomes.
type SignatureCounts struct {
	Generated int64 `json:"generated"`
	Verified  int64 `json:"verified"`
	Failed    int64 `json:"failed"`
}

// CacheCounts breaks down cache hit/miss counts.
type CacheCounts struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// JSON produces a point-in-time Snapshot.
func (r *Recorder) JSON() Snapshot {
	r.byMethodMu.Lock()
	byMethod := make(map[string]int64, len(r.byMethod))
	for k, v := range r.byMethod {
		byMethod[k] = v
	}
	r.byMethodMu.Unlock()

	r.histMu.Lock()
	hist := make(map[string]int64, len(bucketBounds)+1)
	for _, bound := range bucketBounds {
		hist[histKey(bound)] = r.buckets[bound]
	}
	hist["le_inf"] = r.infBkt
	r.histMu.Unlock()

	return Snapshot{
		Total:    r.total.Load(),
		Success:  r.success.Load(),
		Errors:   r.errors.Load(),
		ByMethod: byMethod,
		Signatures: SignatureCounts{
			Generated: r.sigGen.Load(),
			Verified:  r.sigOK.Load(),
			Failed:    r.sigFail.Load(),
		},
		Cache: CacheCounts{
			Hits:   r.cacheHit.Load(),
			Misses: r.cacheMis.Load(),
		},
		AvgLatencySec: r.averageLatencySeconds(),
		Histogram:     hist,
		UptimeSec:     time.Since(r.startedAt).Seconds(),
		Timestamp:     time.Now().Unix(),
	}
}

func histKey(bound float64) string {
	return fmt.Sprintf("le_%d", int64(bound))
}
