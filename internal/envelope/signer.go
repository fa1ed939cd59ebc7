package envelope

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ethdenver2026/ens-compute-gateway/internal/gatewayerr"
)

// secp256k1 curve order / 2, used for low-S normalization so a signature and
// its malleable twin never both verify — the same discipline the teacher
// applies when recovering EIP-3009 authorizations, just run in reverse here
// (we produce the signature instead of verifying one).
var secp256k1HalfN = new(big.Int).Rsh(crypto.S256().Params().N, 1)

// Signer produces 65-byte r‖s‖v secp256k1 signatures over the EIP-191
// wrapping of a 32-byte digest. It is loaded once at startup and never
// re-read, mirroring the teacher's LocalFacilitator holding its relayer key
// as a read-only field for the life of the process.
type Signer struct {
	key     *ecdsa.PrivateKey
	address string
}

// NewSigner builds a Signer from a hex-encoded secp256k1 private key
// (with or without a leading "0x").
func NewSigner(privateKeyHex string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gatewayerr.ErrSigningKeyUnavailable, err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return &Signer{key: key, address: addr.Hex()}, nil
}

// Address returns the signer's Ethereum address (hex, checksummed).
func (s *Signer) Address() string { return s.address }

// eip191Digest applies the "\x19Ethereum Signed Message:\n32" prefix before
// hashing, per EIP-191.
func eip191Digest(h [32]byte) [32]byte {
	prefix := []byte("\x19Ethereum Signed Message:\n32")
	return crypto.Keccak256Hash(append(prefix, h[:]...))
}

// Sign returns a 65-byte r‖s‖v signature over the EIP-191 wrapping of digest.
// v is always 27 or 28 per spec — go-ethereum's crypto.Sign returns a
// recovery id of 0/1, which is normalized here before return.
func (s *Signer) Sign(digest [32]byte) ([65]byte, error) {
	wrapped := eip191Digest(digest)

	sig, err := crypto.Sign(wrapped[:], s.key)
	if err != nil {
		return [65]byte{}, fmt.Errorf("signing digest: %w", err)
	}

	normalizeLowS(sig)

	var out [65]byte
	copy(out[:], sig)
	out[64] = sig[64] + 27 // 0/1 -> 27/28, pinned per spec ยง9
	return out, nil
}

// normalizeLowS flips (s, v) to the low-S form in place if s is currently in
// the upper half of the curve order, so the emitted signature is always the
// low-S member of the malleable pair; both members recover to the same signer.
func normalizeLowS(sig []byte) {
	s := new(big.Int).SetBytes(sig[32:64])
	if s.Cmp(secp256k1HalfN) <= 0 {
		return
	}
	flipped := new(big.Int).Sub(crypto.S256().Params().N, s)
	flippedBytes := flipped.Bytes()
	for i := range sig[32:64] {
		sig[32+i] = 0
	}
	copy(sig[32+32-len(flippedBytes):64], flippedBytes)
	sig[64] ^= 1
}

// Recover returns the address that produced sig over digest, verifying I2.
// Exposed for tests and for client-side verification.
func Recover(digest [32]byte, sig [65]byte) (string, error) {
	wrapped := eip191Digest(digest)

	raw := make([]byte, 65)
	copy(raw, sig[:])
	if raw[64] >= 27 {
		raw[64] -= 27
	}

	pub, err := crypto.SigToPub(wrapped[:], raw)
	if err != nil {
		return "", fmt.Errorf("recovering signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub).Hex(), nil
}
