// Package gateway wires the canonicalizer, signer, envelope builder,
// call-data decoder, validator, rate limiter, and compute registry into the
// HTTP-facing lookup pipeline (ยง4.H) and its auxiliary routes.
package gateway

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ethdenver2026/ens-compute-gateway/internal/decode"
	"github.com/ethdenver2026/ens-compute-gateway/internal/envelope"
	"github.com/ethdenver2026/ens-compute-gateway/internal/gatewayerr"
	"github.com/ethdenver2026/ens-compute-gateway/internal/metrics"
	"github.com/ethdenver2026/ens-compute-gateway/internal/ratelimit"
	"github.com/ethdenver2026/ens-compute-gateway/internal/registry"
	"github.com/ethdenver2026/ens-compute-gateway/internal/validate"
)

// Pipeline holds the dependencies of the lookup pipeline and its auxiliary
// routes. It is constructed once at startup, matching the teacher's
// pattern of wiring dependencies into a single long-lived handler
// (x402.Middleware) rather than re-resolving them per request.
type Pipeline struct {
	Signer   *envelope.Signer
	Builder  *envelope.Builder
	Registry *registry.Registry
	Metrics  *metrics.Recorder

	IPLimiter     *ratelimit.Limiter
	APIKeyLimiter *ratelimit.Limiter

	Provider string
	Version  string

	startedAt time.Time
}

// New creates a Pipeline. startedAt is recorded for the /health uptime
// field.
func New(p Pipeline) *Pipeline {
	p.startedAt = time.Now()
	return &p
}

// lookupRequestBody is the JSON shape of a POST /lookup request (ยง6).
type lookupRequestBody struct {
	Node        string `json:"node"`
	Data        any    `json:"data"`
	Name        string `json:"name"`
	UseEnvelope *bool  `json:"useEnvelope"`
}

// ServeLookup implements the state machine in ยง4.H:
// ADMITTED -> VALIDATED -> DECODED -> COMPUTED -> BUILT -> RESPONDED,
// forking to FAILED with an error response at any step. A failed-request
// metric is recorded only for failures after DECODE, once a method is known;
// rate-limit, body-parse, and validation failures record no request metric.
func (p *Pipeline) ServeLookup(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// --- ADMIT ---
	limiter, limitKey := p.selectLimiter(r)
	decision := limiter.Allow(limitKey)
	setRateLimitHeaders(w, decision)
	if !decision.Allowed {
		p.fail(w, "", start, gatewayerr.ErrRateLimited)
		return
	}

	var body lookupRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	// --- VALIDATE ---
	req := &validate.Request{Node: body.Node, Name: body.Name, Data: body.Data}
	if verr := validate.Validate(req); verr != nil {
		p.fail(w, "", start, verr)
		return
	}
	body.Name = req.Name

	// --- DECODE ---
	method, params := decode.Decode(body.Data)

	// --- COMPUTE ---
	result, err := p.Registry.Dispatch(method, params)
	if err != nil {
		if errors.Is(err, gatewayerr.ErrUnknownMethod) {
			err = fmt.Errorf("Unknown compute function: %s", method)
		} else {
			err = &gatewayerr.ComputeError{Method: method, Cause: err}
		}
		p.fail(w, method, start, err)
		return
	}

	resultJSON, err := envelope.ToJSON(result)
	if err != nil {
		p.fail(w, method, start, &gatewayerr.EncodingError{Stage: "serializing result", Cause: err})
		return
	}
	paramsJSON, err := envelope.ToJSON(params)
	if err != nil {
		p.fail(w, method, start, &gatewayerr.EncodingError{Stage: "serializing params", Cause: err})
		return
	}

	useEnvelope := body.UseEnvelope == nil || *body.UseEnvelope

	if !useEnvelope {
		p.serveLegacy(w, method, resultJSON, start)
		return
	}

	// --- BUILD ---
	env, err := p.Builder.Build(envelope.BuildInput{
		Name:     body.Name,
		Method:   method,
		Params:   paramsJSON,
		Result:   resultJSON,
		Provider: p.Provider,
		Version:  p.Version,
	})
	if err != nil {
		p.fail(w, method, start, &gatewayerr.EncodingError{Stage: "building envelope", Cause: err})
		return
	}
	p.Metrics.RecordSignatureGenerated()

	encoded, err := env.EncodeABI()
	if err != nil {
		p.fail(w, method, start, &gatewayerr.EncodingError{Stage: "encoding envelope", Cause: err})
		return
	}

	// --- RESPOND ---
	p.Metrics.RecordRequest(method, true, elapsedMs(start))
	writeJSON(w, http.StatusOK, map[string]any{
		"data":     "0x" + hex.EncodeToString(encoded),
		"envelope": envelopeView(env),
	})
}

// serveLegacy implements the legacy path (ยง4.H point 7): sign utf8(json(result))
// directly and ABI-encode (bytes, bytes) = (result, signature).
func (p *Pipeline) serveLegacy(w http.ResponseWriter, method, resultJSON string, start time.Time) {
	digest := keccak256([]byte(resultJSON))
	sig, err := p.Signer.Sign(digest)
	if err != nil {
		p.fail(w, method, start, &gatewayerr.EncodingError{Stage: "signing result", Cause: err})
		return
	}
	p.Metrics.RecordSignatureGenerated()

	encoded, err := legacyTupleArgs().Pack([]byte(resultJSON), sig[:])
	if err != nil {
		p.fail(w, method, start, &gatewayerr.EncodingError{Stage: "encoding legacy tuple", Cause: err})
		return
	}

	p.Metrics.RecordRequest(method, true, elapsedMs(start))
	writeJSON(w, http.StatusOK, map[string]any{
		"data": "0x" + hex.EncodeToString(encoded),
	})
}

// fail records a failed-request metric (when a method was already dispatched)
// and writes err through the gatewayerr taxonomy (ยง7).
func (p *Pipeline) fail(w http.ResponseWriter, method string, start time.Time, err error) {
	if method != "" {
		p.Metrics.RecordRequest(method, false, elapsedMs(start))
	}
	writeError(w, err)
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// selectLimiter picks the apiKey tier iff an X-API-Key header is present,
// else the ip tier keyed by client network address (ยง4.F).
func (p *Pipeline) selectLimiter(r *http.Request) (*ratelimit.Limiter, string) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return p.APIKeyLimiter, key
	}
	return p.IPLimiter, clientIP(r)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func setRateLimitHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		w.Header().Set("X-RateLimit-Reset", d.ResetAt.UTC().Format(time.RFC3339))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("writing JSON response", "err", err)
	}
}
