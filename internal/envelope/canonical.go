package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Content holds the envelope fields the digest is computed over. Digest and
// Signature are deliberately absent from this type: they are produced from,
// never inputs to, the canonical form.
type Content struct {
	Name       string
	Method     string
	Params     string
	Result     string
	Cursor     *string
	PrevDigest *[32]byte
	Meta       string
	CacheTTL   uint64
}

// Canonicalize produces the deterministic byte string whose keccak-256 is
// the envelope's digest. Keys are emitted in ASCII-lexicographic order with
// no whitespace, matching what the on-chain verifier reconstructs byte for
// byte — this function must never be "simplified" into a generic
// json.Marshal of a struct, since map/struct field order is not a contract
// Go guarantees across versions.
func Canonicalize(c Content) []byte {
	var b strings.Builder
	b.WriteByte('{')

	writeField(&b, "cache_ttl", cacheTTLLiteral(c.CacheTTL))
	b.WriteByte(',')
	writeField(&b, "cursor", nullableStringLiteral(c.Cursor))
	b.WriteByte(',')
	writeField(&b, "meta", quote(c.Meta))
	b.WriteByte(',')
	writeField(&b, "method", quote(c.Method))
	b.WriteByte(',')
	writeField(&b, "name", quote(c.Name))
	b.WriteByte(',')
	writeField(&b, "params", quote(c.Params))
	b.WriteByte(',')
	writeField(&b, "prev_digest", prevDigestLiteral(c.PrevDigest))
	b.WriteByte(',')
	writeField(&b, "result", quote(c.Result))

	b.WriteByte('}')
	return []byte(b.String())
}

func writeField(b *strings.Builder, key, valueLiteral string) {
	b.WriteByte('"')
	b.WriteString(key)
	b.WriteString(`":`)
	b.WriteString(valueLiteral)
}

// quote applies full JSON string escaping. The spec's source canonicalizer
// quoted with a bare '"'+str+'"' and left the escaping question open; this
// module resolves it in favor of correct JSON over byte-for-byte parity with
// that naive form — an on-chain verifier built against this gateway must
// escape identically (encoding/json's string escaping, RFC 8259 ยง7).
func quote(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		// json.Marshal of a string does not fail (invalid UTF-8 is replaced
		// with U+FFFD), so this branch is unreachable.
		return fmt.Sprintf("%q", s)
	}
	return string(out)
}

func nullableStringLiteral(s *string) string {
	if s == nil {
		return "null"
	}
	return quote(*s)
}

func prevDigestLiteral(d *[32]byte) string {
	if d == nil {
		return "null"
	}
	return quote("0x" + hexLower(d[:]))
}

func cacheTTLLiteral(ttl uint64) string {
	return fmt.Sprintf("%d", ttl)
}

const hexDigits = "0123456789abcdef"

func hexLower(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0x0f]
	}
	return string(out)
}
