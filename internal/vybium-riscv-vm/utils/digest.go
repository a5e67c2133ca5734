package utils

import (
	"crypto/sha256"
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Digest accumulates data into a 32-byte commitment using the configured
// hash function. Absorbing is order-sensitive: the same data absorbed in
// a different order produces a different commitment.
type Digest struct {
	state    []byte
	hashFunc string
}

// NewDigest creates a new digest accumulator
func NewDigest(hashFunc string) *Digest {
	if hashFunc == "" {
		hashFunc = "sha3"
	}
	return &Digest{
		state:    []byte{0},
		hashFunc: hashFunc,
	}
}

// Absorb mixes data into the digest state
func (d *Digest) Absorb(data []byte) {
	d.state = d.hash(append(d.state, data...))
}

// AbsorbUint32 mixes a 32-bit value into the digest state (little-endian)
func (d *Digest) AbsorbUint32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	d.Absorb(buf[:])
}

// AbsorbUint64 mixes a 64-bit value into the digest state (little-endian)
func (d *Digest) AbsorbUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	d.Absorb(buf[:])
}

// Sum returns a copy of the current 32-byte digest state
func (d *Digest) Sum() []byte {
	return append([]byte(nil), d.state...)
}

// hash computes the hash of the input using the configured hash function
func (d *Digest) hash(data []byte) []byte {
	switch d.hashFunc {
	case "sha256":
		h := sha256.Sum256(data)
		return h[:]
	case "sha3":
		h := sha3.Sum256(data)
		return h[:]
	default:
		// Config validation rejects anything else; default to SHA3
		h := sha3.Sum256(data)
		return h[:]
	}
}
