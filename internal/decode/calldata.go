// Package decode converts the mixed-shape "data" field of a lookup request
// into a single internal dispatch shape: (methodName, params).
package decode

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// DefaultMethod is what decoding falls back to for empty, missing, or
// malformed "data" — a permissive contract the spec pins down rather than
// rejects (ยง4.D point 4, ยง9 open question).
const DefaultMethod = "pricefeed"

// variant tags the shape the raw "data" value took, so each shape gets its
// own decode path instead of runtime type-switches scattered through one
// function body (ยง9 re-architecture hint).
type variant int

const (
	variantHex variant = iota
	variantJSONText
	variantJSONObject
	variantDefaults
)

func classify(data any) variant {
	switch v := data.(type) {
	case string:
		if strings.HasPrefix(v, "0x") {
			return variantHex
		}
		if v == "" {
			return variantDefaults
		}
		return variantJSONText
	case map[string]any:
		return variantJSONObject
	default:
		return variantDefaults
	}
}

// Decode implements the policy in ยง4.D: try hex ABI decode, then JSON
// string, then structured object, and fall back to defaults on any error
// without logging a warning.
func Decode(data any) (method string, params map[string]any) {
	switch classify(data) {
	case variantHex:
		m, p, err := decodeHex(data.(string))
		if err != nil {
			return defaults()
		}
		return m, p

	case variantJSONText:
		m, p, err := decodeJSONText(data.(string))
		if err != nil {
			return defaults()
		}
		return m, p

	case variantJSONObject:
		return decodeJSONObject(data.(map[string]any))

	default:
		return defaults()
	}
}

func defaults() (string, map[string]any) {
	return DefaultMethod, map[string]any{}
}

// abiTupleArgs is the (string, bytes) tuple the on-chain CCIP-Read caller
// ABI-encodes: the first component is the method name, the second is the
// UTF-8 JSON object that becomes params.
func abiTupleArgs() abi.Arguments {
	stringTy, _ := abi.NewType("string", "", nil)
	bytesTy, _ := abi.NewType("bytes", "", nil)
	return abi.Arguments{{Type: stringTy}, {Type: bytesTy}}
}

// EncodeHex is the inverse used by tests and by SDK callers bypassing
// CCIP-Read: it ABI-encodes (method, json(params)) into a "0x"-prefixed hex
// string.
func EncodeHex(method string, params map[string]any) (string, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	packed, err := abiTupleArgs().Pack(method, paramsJSON)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(packed), nil
}

func decodeHex(s string) (string, map[string]any, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return "", nil, err
	}

	values, err := abiTupleArgs().Unpack(raw)
	if err != nil {
		return "", nil, err
	}
	if len(values) != 2 {
		return "", nil, errTupleShape
	}

	method, ok := values[0].(string)
	if !ok {
		return "", nil, errTupleShape
	}
	paramsBytes, ok := values[1].([]byte)
	if !ok {
		return "", nil, errTupleShape
	}

	var params map[string]any
	if err := json.Unmarshal(paramsBytes, &params); err != nil {
		return "", nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	return method, params, nil
}

func decodeJSONText(s string) (string, map[string]any, error) {
	var body struct {
		Function string         `json:"function"`
		Params   map[string]any `json:"params"`
	}
	if err := json.Unmarshal([]byte(s), &body); err != nil {
		return "", nil, err
	}
	if body.Params == nil {
		body.Params = map[string]any{}
	}
	return body.Function, body.Params, nil
}

func decodeJSONObject(obj map[string]any) (string, map[string]any) {
	method, _ := obj["function"].(string)
	params, ok := obj["params"].(map[string]any)
	if !ok {
		params = map[string]any{}
	}
	if method == "" {
		return defaults()
	}
	return method, params
}

var errTupleShape = tupleShapeError{}

type tupleShapeError struct{}

func (tupleShapeError) Error() string { return "decoded tuple has unexpected shape" }
