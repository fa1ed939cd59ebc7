// Package validate implements the request validator (ยง4.E): it normalizes
// and rejects malformed lookup inputs before the pipeline dispatches.
package validate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ethdenver2026/ens-compute-gateway/internal/ens"
	"github.com/ethdenver2026/ens-compute-gateway/internal/gatewayerr"
)

// MaxDataBytes bounds the serialized "data" field (I3).
const MaxDataBytes = 100 * 1024

// maxParamStringLen is the per-field truncation limit for string-valued
// params entries.
const maxParamStringLen = 1000

var nameRe = regexp.MustCompile(`^[A-Za-z0-9-]+\.eth$`)

// Request is the mutable subset of a lookup request the validator examines
// and sanitizes in place.
type Request struct {
	Node   string
	Name   string
	Data   any
	Params map[string]any
}

// Validate checks and sanitizes req, returning a non-nil
// *gatewayerr.ErrValidationFailed if any rule fails. On success, req.Name
// and req.Params are replaced with their sanitized forms.
func Validate(req *Request) *gatewayerr.ErrValidationFailed {
	var reasons []string

	if req.Node != "" && !validNode(req.Node) {
		reasons = append(reasons, "Invalid node parameter")
	}

	if req.Name != "" {
		sanitized := sanitizeName(req.Name)
		if !nameRe.MatchString(sanitized) || len(sanitized) > 255 {
			reasons = append(reasons, "Invalid ENS name")
		} else {
			req.Name = sanitized
		}
	}

	if size := dataSize(req.Data); size > MaxDataBytes {
		reasons = append(reasons, "Request data too large (max 100KB)")
	}

	if req.Params != nil {
		req.Params = sanitizeParams(req.Params)
	}

	if len(reasons) > 0 {
		return &gatewayerr.ErrValidationFailed{Reasons: reasons}
	}
	return nil
}

// validNode accepts either a "0x"-prefixed 66-char hex string or a string
// the namehash algorithm accepts.
func validNode(node string) bool {
	if strings.HasPrefix(node, "0x") && len(node) == 66 && isHex(node[2:]) {
		return true
	}
	return ens.IsValid(node)
}

func isHex(s string) bool {
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}

// sanitizeName strips NUL bytes and trims whitespace before the shape check.
func sanitizeName(name string) string {
	stripped := strings.ReplaceAll(name, "\x00", "")
	return strings.TrimSpace(stripped)
}

func dataSize(data any) int {
	switch v := data.(type) {
	case nil:
		return 0
	case string:
		return len(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return 0
		}
		return len(b)
	}
}

// sanitizeParams strips NUL bytes and truncates every string-valued entry
// to maxParamStringLen characters.
func sanitizeParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			clean := strings.ReplaceAll(s, "\x00", "")
			if runes := []rune(clean); len(runes) > maxParamStringLen {
				clean = string(runes[:maxParamStringLen])
			}
			out[k] = clean
			continue
		}
		out[k] = v
	}
	return out
}
