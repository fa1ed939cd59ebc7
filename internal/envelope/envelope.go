// Package envelope implements the canonical envelope protocol: building,
// digesting, signing, and ABI-encoding the signed record a lookup returns.
package envelope

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// Envelope is the central entity returned by a lookup: a signed, canonical
// record of a compute function's result. It is constructed per lookup, never
// mutated after signing, and never persisted — each HTTP response is the
// only copy (see ยง3 lifecycle).
type Envelope struct {
	Name       string
	Method     string
	Params     string
	Result     string
	Cursor     *string
	PrevDigest *[32]byte
	Meta       string
	CacheTTL   uint64
	Digest     [32]byte
	Signature  [65]byte
}

// Meta is the JSON shape of the envelope's meta field.
type Meta struct {
	Provider  string `json:"provider"`
	Version   string `json:"version"`
	Nonce     string `json:"nonce"`
	Timestamp int64  `json:"timestamp"`
}

// defaultCacheTTL is used when the caller does not specify one.
const defaultCacheTTL = 30

// maxEnvelopeBytes bounds the serialized envelope (I3), mirrored on the
// response side to avoid amplification.
const maxEnvelopeBytes = 100 * 1024

// BuildInput carries the builder's inputs. Params and Result are accepted as
// already-JSON strings; ToJSON wraps arbitrary values into that shape.
type BuildInput struct {
	Name       string
	Method     string
	Params     string
	Result     string
	Cursor     *string
	PrevDigest *[32]byte
	Meta       map[string]any
	CacheTTL   *uint64
	Provider   string
	Version    string
}

// ToJSON serializes an arbitrary Go value for use as Params or Result.
func ToJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serializing value: %w", err)
	}
	return string(b), nil
}

// Builder assembles envelopes: it owns the signer and has no other state,
// matching the teacher's pattern of a single long-lived handle (the signer)
// wired into whatever needs to sign, never re-read or re-selected per call.
type Builder struct {
	signer  *Signer
	now     func() time.Time
	newUUID func() string
}

// NewBuilder creates a Builder bound to signer.
func NewBuilder(signer *Signer) *Builder {
	return &Builder{
		signer:  signer,
		now:     time.Now,
		newUUID: func() string { return uuid.New().String() },
	}
}

// Build assembles, canonicalizes, and signs an Envelope satisfying I1-I4.
func (b *Builder) Build(in BuildInput) (*Envelope, error) {
	cacheTTL := uint64(defaultCacheTTL)
	if in.CacheTTL != nil {
		cacheTTL = *in.CacheTTL
	}

	meta := in.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	meta["provider"] = in.Provider
	meta["version"] = in.Version
	meta["nonce"] = b.newUUID()
	meta["timestamp"] = b.now().Unix()

	metaJSON, err := ToJSON(meta)
	if err != nil {
		return nil, fmt.Errorf("serializing meta: %w", err)
	}

	content := Content{
		Name:       in.Name,
		Method:     in.Method,
		Params:     in.Params,
		Result:     in.Result,
		Cursor:     in.Cursor,
		PrevDigest: in.PrevDigest,
		Meta:       metaJSON,
		CacheTTL:   cacheTTL,
	}

	preimage := Canonicalize(content)
	if len(preimage) > maxEnvelopeBytes {
		return nil, fmt.Errorf("canonical envelope exceeds %d bytes", maxEnvelopeBytes)
	}
	digest := crypto.Keccak256Hash(preimage)

	var digestArr [32]byte
	copy(digestArr[:], digest.Bytes())

	sig, err := b.signer.Sign(digestArr)
	if err != nil {
		return nil, fmt.Errorf("signing envelope: %w", err)
	}

	env := &Envelope{
		Name:       content.Name,
		Method:     content.Method,
		Params:     content.Params,
		Result:     content.Result,
		Cursor:     content.Cursor,
		PrevDigest: content.PrevDigest,
		Meta:       content.Meta,
		CacheTTL:   content.CacheTTL,
		Digest:     digestArr,
		Signature:  sig,
	}
	return env, nil
}

// wireTupleArgs is the ABI argument list for the single-tuple wire encoding
// in field order (name, method, params, result, cursor, prev_digest, meta,
// cache_ttl, digest, signature) — the *wire order*, deliberately different
// from Canonicalize's digest-canonical key order. Both orders are fixed
// contracts; see ยง4.C. "Single tuple" here means the ten fields are packed
// as one flat top-level argument list (abi.Arguments.Pack), not nested
// inside a Solidity tuple type; EncodeABI/DecodeABI agree on this shape, so
// it round-trips self-consistently even though no on-chain decoder is in
// scope to cross-check it against.
func wireTupleArgs() abi.Arguments {
	stringTy, _ := abi.NewType("string", "", nil)
	bytes32Ty, _ := abi.NewType("bytes32", "", nil)
	uint256Ty, _ := abi.NewType("uint256", "", nil)
	bytesTy, _ := abi.NewType("bytes", "", nil)

	return abi.Arguments{
		{Type: stringTy},  // name
		{Type: stringTy},  // method
		{Type: stringTy},  // params
		{Type: stringTy},  // result
		{Type: stringTy},  // cursor
		{Type: bytes32Ty}, // prev_digest
		{Type: stringTy},  // meta
		{Type: uint256Ty}, // cache_ttl
		{Type: bytes32Ty}, // digest
		{Type: bytesTy},   // signature
	}
}

// EncodeABI produces the single-tuple ABI encoding described in ยง6.
// Absent cursor encodes as the empty string; absent prev_digest encodes as
// 32 zero bytes — the wire encoding of absence, distinct from the literal
// JSON null the digest sees.
func (e *Envelope) EncodeABI() ([]byte, error) {
	cursor := ""
	if e.Cursor != nil {
		cursor = *e.Cursor
	}
	var prevDigest [32]byte
	if e.PrevDigest != nil {
		prevDigest = *e.PrevDigest
	}

	cacheTTLBig := new(big.Int).SetUint64(e.CacheTTL)

	return wireTupleArgs().Pack(
		e.Name,
		e.Method,
		e.Params,
		e.Result,
		cursor,
		prevDigest,
		e.Meta,
		cacheTTLBig,
		e.Digest,
		e.Signature[:],
	)
}

// DecodeABI reconstructs an Envelope's wire-visible fields from data
// produced by EncodeABI, used by the digest round-trip test (ยง8) and by any
// client-side verifier written in Go.
func DecodeABI(data []byte) (*Envelope, error) {
	values, err := wireTupleArgs().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpacking envelope tuple: %w", err)
	}
	if len(values) != 10 {
		return nil, fmt.Errorf("expected 10 envelope fields, got %d", len(values))
	}

	env := &Envelope{
		Name:     values[0].(string),
		Method:   values[1].(string),
		Params:   values[2].(string),
		Result:   values[3].(string),
		Meta:     values[6].(string),
		CacheTTL: values[7].(*big.Int).Uint64(),
	}
	if cursor := values[4].(string); cursor != "" {
		env.Cursor = &cursor
	}
	var prevDigestZero [32]byte
	if pd := values[5].([32]byte); pd != prevDigestZero {
		pdCopy := pd
		env.PrevDigest = &pdCopy
	}
	copy(env.Digest[:], values[8].([32]byte)[:])
	copy(env.Signature[:], values[9].([]byte))
	return env, nil
}

// StrippedContent reconstructs the digest-canonical Content from a decoded
// envelope, for the round-trip law: digest recomputed from decoded content
// must equal the original digest.
func (e *Envelope) StrippedContent() Content {
	return Content{
		Name:       e.Name,
		Method:     e.Method,
		Params:     e.Params,
		Result:     e.Result,
		Cursor:     e.Cursor,
		PrevDigest: e.PrevDigest,
		Meta:       e.Meta,
		CacheTTL:   e.CacheTTL,
	}
}
