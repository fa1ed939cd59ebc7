// Package ens implements the ENS namehash algorithm, used by the validator
// to accept long-form dotted names as a node identifier.
package ens

import (
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Namehash recursively hashes a dotted name into its 32-byte node
// identifier: namehash("") = 0x00...00, and
// namehash("label.rest") = keccak256(namehash("rest") ++ keccak256("label")).
func Namehash(name string) [32]byte {
	var node [32]byte
	if name == "" {
		return node
	}

	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256Hash([]byte(labels[i]))
		node = crypto.Keccak256Hash(append(node[:], labelHash.Bytes()...))
	}
	return node
}

// IsValid reports whether s looks like a name the namehash algorithm
// accepts: non-empty, dot-separated labels with no empty label.
func IsValid(s string) bool {
	if s == "" {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if label == "" {
			return false
		}
	}
	return true
}
