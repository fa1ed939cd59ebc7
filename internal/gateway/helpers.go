package gateway

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ethdenver2026/ens-compute-gateway/internal/envelope"
	"github.com/ethdenver2026/ens-compute-gateway/internal/gatewayerr"
)

// errorResponse maps a pipeline-boundary error to an HTTP status and JSON
// body using the gatewayerr taxonomy (ยง7) via errors.Is/errors.As, instead
// of matching on ad-hoc message text.
func errorResponse(err error) (int, map[string]any) {
	var verr *gatewayerr.ErrValidationFailed
	var cerr *gatewayerr.ComputeError
	var eerr *gatewayerr.EncodingError

	switch {
	case errors.Is(err, gatewayerr.ErrRateLimited):
		return http.StatusTooManyRequests, map[string]any{
			"error":      "Rate limit exceeded",
			"retryAfter": 60,
			"remaining":  0,
		}
	case errors.As(err, &verr):
		return http.StatusBadRequest, map[string]any{
			"error":   "Validation failed",
			"details": verr.Reasons,
		}
	case errors.As(err, &cerr):
		return http.StatusInternalServerError, map[string]any{"error": cerr.Error()}
	case errors.As(err, &eerr):
		return http.StatusInternalServerError, map[string]any{"error": eerr.Error()}
	default:
		return http.StatusInternalServerError, map[string]any{"error": err.Error()}
	}
}

// writeError renders err via errorResponse and writes the JSON response.
func writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	writeJSON(w, status, body)
}

func keccak256(data []byte) [32]byte {
	hash := crypto.Keccak256Hash(data)
	var out [32]byte
	copy(out[:], hash.Bytes())
	return out
}

// legacyTupleArgs is the (bytes, bytes) ABI tuple for the legacy path:
// (result_json_utf8, signature).
func legacyTupleArgs() abi.Arguments {
	bytesTy, _ := abi.NewType("bytes", "", nil)
	return abi.Arguments{{Type: bytesTy}, {Type: bytesTy}}
}

// envelopeJSON is the JSON shape of an envelope in the /lookup response.
type envelopeJSON struct {
	Name       string  `json:"name"`
	Method     string  `json:"method"`
	Params     string  `json:"params"`
	Result     string  `json:"result"`
	Cursor     *string `json:"cursor"`
	PrevDigest *string `json:"prev_digest"`
	Meta       string  `json:"meta"`
	CacheTTL   uint64  `json:"cache_ttl"`
	Digest     string  `json:"digest"`
	Signature  string  `json:"signature"`
}

func envelopeView(e *envelope.Envelope) envelopeJSON {
	var prevDigest *string
	if e.PrevDigest != nil {
		s := "0x" + hexEncode(e.PrevDigest[:])
		prevDigest = &s
	}
	return envelopeJSON{
		Name:       e.Name,
		Method:     e.Method,
		Params:     e.Params,
		Result:     e.Result,
		Cursor:     e.Cursor,
		PrevDigest: prevDigest,
		Meta:       e.Meta,
		CacheTTL:   e.CacheTTL,
		Digest:     "0x" + hexEncode(e.Digest[:]),
		Signature:  "0x" + hexEncode(e.Signature[:]),
	}
}

const hexAlphabet = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexAlphabet[v>>4]
		out[i*2+1] = hexAlphabet[v&0x0f]
	}
	return string(out)
}
