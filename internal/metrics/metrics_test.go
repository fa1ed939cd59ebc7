package metrics

import (
	"strings"
	"testing"
)

func TestRecordRequestUpdatesTotals(t *testing.T) {
	r := New()
	r.RecordRequest("pricefeed", true, 5)
	r.RecordRequest("pricefeed", false, 5)

	snap := r.JSON()
	if snap.Total != 2 {
		t.Fatalf("expected total 2, got %d", snap.Total)
	}
	if snap.Success != 1 {
		t.Fatalf("expected success 1, got %d", snap.Success)
	}
	if snap.Errors != 1 {
		t.Fatalf("expected errors 1, got %d", snap.Errors)
	}
	if snap.ByMethod["pricefeed"] != 2 {
		t.Fatalf("expected by_method[pricefeed] 2, got %d", snap.ByMethod["pricefeed"])
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	r := New()
	r.RecordRequest("m", true, 5) // falls in every bucket >= 10

	snap := r.JSON()
	for _, key := range []string{"le_10", "le_50", "le_100", "le_500", "le_1000", "le_5000", "le_inf"} {
		if snap.Histogram[key] != 1 {
			t.Errorf("expected bucket %s to count the 5ms sample, got %d", key, snap.Histogram[key])
		}
	}
}

func TestHistogramExcludesSlowerBuckets(t *testing.T) {
	r := New()
	r.RecordRequest("m", true, 60) // above 10 and 50, at/under 100

	snap := r.JSON()
	if snap.Histogram["le_10"] != 0 {
		t.Errorf("expected le_10 bucket to exclude a 60ms sample")
	}
	if snap.Histogram["le_100"] != 1 {
		t.Errorf("expected le_100 bucket to include a 60ms sample")
	}
	if snap.Histogram["le_inf"] != 1 {
		t.Errorf("expected le_inf to always include the sample")
	}
}

func TestRecordSignatureCounters(t *testing.T) {
	r := New()
	r.RecordSignatureGenerated()
	r.RecordSignatureVerified(true)
	r.RecordSignatureVerified(false)

	snap := r.JSON()
	if snap.Signatures.Generated != 1 || snap.Signatures.Verified != 1 || snap.Signatures.Failed != 1 {
		t.Fatalf("unexpected signature counts: %+v", snap.Signatures)
	}
}

func TestRecordCacheCounters(t *testing.T) {
	r := New()
	r.RecordCacheHit()
	r.RecordCacheHit()
	r.RecordCacheMiss()

	snap := r.JSON()
	if snap.Cache.Hits != 2 || snap.Cache.Misses != 1 {
		t.Fatalf("unexpected cache counts: %+v", snap.Cache)
	}
}

func TestTextExpositionContainsFixedMetricNames(t *testing.T) {
	r := New()
	r.RecordRequest("m", true, 1)
	text := r.Text()

	for _, name := range []string{
		"ens_compute_requests_total",
		"ens_compute_requests_success_total",
		"ens_compute_requests_errors_total",
		"ens_compute_latency_seconds",
		"ens_compute_cache_hits_total",
		"ens_compute_cache_misses_total",
	} {
		if !strings.Contains(text, name) {
			t.Errorf("expected text exposition to contain metric %q", name)
		}
	}
}

func TestAverageLatencyZeroWhenNoSamples(t *testing.T) {
	r := New()
	if got := r.averageLatencySeconds(); got != 0 {
		t.Fatalf("expected 0 average latency with no samples, got %f", got)
	}
}
