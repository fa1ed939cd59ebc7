package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethdenver2026/ens-compute-gateway/internal/gatewayerr"
	"github.com/ethdenver2026/ens-compute-gateway/internal/validate"
)

// Router assembles the http.Handler serving every route in ยง4.H /
// ยง6: /lookup, /health, /metrics, /api/metrics, /functions, /compute.
func (p *Pipeline) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/lookup", methodOnly(http.MethodPost, p.ServeLookup))
	mux.HandleFunc("/health", methodOnly(http.MethodGet, p.ServeHealth))
	mux.HandleFunc("/metrics", methodOnly(http.MethodGet, p.ServeMetricsText))
	mux.HandleFunc("/api/metrics", methodOnly(http.MethodGet, p.ServeMetricsJSON))
	mux.HandleFunc("/functions", methodOnly(http.MethodGet, p.ServeFunctions))
	mux.HandleFunc("/compute", methodOnly(http.MethodPost, p.ServeCompute))
	return recoverer(mux)
}

// methodOnly and recoverer are grounded on the teacher pack's
// (Ap3pp3rs94/Chartly2.0) api/router.go helpers of the same name.
func methodOnly(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
			return
		}
		next(w, r)
	}
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ServeHealth implements GET /health.
func (p *Pipeline) ServeHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"signer":    p.Signer.Address(),
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(p.startedAt).Seconds(),
	})
}

// ServeMetricsText implements GET /metrics (Prometheus text exposition).
func (p *Pipeline) ServeMetricsText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(p.Metrics.Text()))
}

// ServeMetricsJSON implements GET /api/metrics.
func (p *Pipeline) ServeMetricsJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, p.Metrics.JSON())
}

// ServeFunctions implements GET /functions.
func (p *Pipeline) ServeFunctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"functions": p.Registry.Names()})
}

// computeRequestBody is the JSON shape of a POST /compute request: a test
// surface that bypasses the decoder and envelope, subject to the same
// validator and limiter as /lookup (ยง4.H).
type computeRequestBody struct {
	Function string         `json:"function"`
	Params   map[string]any `json:"params"`
}

// ServeCompute implements POST /compute.
func (p *Pipeline) ServeCompute(w http.ResponseWriter, r *http.Request) {
	limiter, limitKey := p.selectLimiter(r)
	decision := limiter.Allow(limitKey)
	setRateLimitHeaders(w, decision)
	if !decision.Allowed {
		writeError(w, gatewayerr.ErrRateLimited)
		return
	}

	var body computeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	req := &validate.Request{Params: body.Params}
	if verr := validate.Validate(req); verr != nil {
		writeError(w, verr)
		return
	}

	result, err := p.Registry.Dispatch(body.Function, req.Params)
	if err != nil {
		if errors.Is(err, gatewayerr.ErrUnknownMethod) {
			err = fmt.Errorf("Unknown compute function: %s", body.Function)
		} else {
			err = &gatewayerr.ComputeError{Method: body.Function, Cause: err}
		}
		writeError(w, err)
		return
	}

	resultJSON, err := toJSONString(result)
	if err != nil {
		writeError(w, &gatewayerr.EncodingError{Stage: "serializing result", Cause: err})
		return
	}

	digest := keccak256([]byte(resultJSON))
	sig, err := p.Signer.Sign(digest)
	if err != nil {
		writeError(w, &gatewayerr.EncodingError{Stage: "signing result", Cause: err})
		return
	}
	p.Metrics.RecordSignatureGenerated()

	writeJSON(w, http.StatusOK, map[string]any{
		"result":    result,
		"signature": "0x" + hexEncode(sig[:]),
		"signer":    p.Signer.Address(),
	})
}

func toJSONString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
