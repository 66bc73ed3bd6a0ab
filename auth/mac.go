package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// MAC computes a keyed authentication tag over data.
type MAC interface {
	// Name identifies the algorithm in configuration.
	Name() string
	// Sum returns the raw tag for data under key.
	Sum(key, data []byte) []byte
}

const (
	// AlgorithmHMACSHA256 selects HMAC with SHA-256.
	AlgorithmHMACSHA256 = "hmac-sha256"
	// AlgorithmBlake2b256 selects keyed BLAKE2b with a 256-bit digest.
	AlgorithmBlake2b256 = "blake2b-256"
)

// HMACSHA256 is the default MAC.
type HMACSHA256 struct{}

// Name implements MAC.
func (HMACSHA256) Name() string { return AlgorithmHMACSHA256 }

// Sum implements MAC.
func (HMACSHA256) Sum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// Blake2b256 is keyed BLAKE2b-256. Keys longer than 64 bytes are first
// compressed with BLAKE2b-512 since the keyed mode accepts at most 64 bytes.
type Blake2b256 struct{}

// Name implements MAC.
func (Blake2b256) Name() string { return AlgorithmBlake2b256 }

// Sum implements MAC.
func (Blake2b256) Sum(key, data []byte) []byte {
	if len(key) > blake2b.Size {
		k := blake2b.Sum512(key)
		key = k[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		// only reachable with an oversized key, which is compressed above
		panic(fmt.Sprintf("blake2b: %v", err))
	}
	h.Write(data)
	return h.Sum(nil)
}

// MACByName resolves an algorithm name from configuration.
func MACByName(name string) (MAC, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AlgorithmHMACSHA256:
		return HMACSHA256{}, nil
	case AlgorithmBlake2b256:
		return Blake2b256{}, nil
	default:
		return nil, fmt.Errorf("unknown mac algorithm %q", name)
	}
}

func hexSum(m MAC, key []byte, data string) string {
	return hex.EncodeToString(m.Sum(key, []byte(data)))
}
