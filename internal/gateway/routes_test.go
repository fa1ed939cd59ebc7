package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServeHealth(t *testing.T) {
	p := newTestPipeline(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	p.ServeHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["signer"] == "" || body["signer"] == nil {
		t.Fatal("expected non-empty signer address")
	}
}

func TestServeFunctions(t *testing.T) {
	p := newTestPipeline(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/functions", nil)
	rec := httptest.NewRecorder()
	p.ServeFunctions(rec, req)

	var body struct {
		Functions []string `json:"functions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Functions) != 1 || body.Functions[0] != "pricefeed" {
		t.Fatalf("expected [pricefeed], got %v", body.Functions)
	}
}

func TestServeMetricsText(t *testing.T) {
	p := newTestPipeline(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	p.ServeMetricsText(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "text/plain; version=0.0.4" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}

func TestServeComputeDispatchesAndSigns(t *testing.T) {
	p := newTestPipeline(t, 100)
	b, _ := json.Marshal(map[string]any{"function": "pricefeed", "params": map[string]any{}})
	req := httptest.NewRequest(http.MethodPost, "/compute", bytes.NewReader(b))
	req.RemoteAddr = "10.0.0.5:1234"
	rec := httptest.NewRecorder()
	p.ServeCompute(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["signature"] == "" || body["signature"] == nil {
		t.Fatal("expected a signature in /compute response")
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	p := newTestPipeline(t, 100)
	req := httptest.NewRequest(http.MethodGet, "/lookup", nil)
	rec := httptest.NewRecorder()
	p.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET /lookup, got %d", rec.Code)
	}
}

func TestRecovererCatchesPanics(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	handler := recoverer(panicking)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after recovered panic, got %d", rec.Code)
	}
}
