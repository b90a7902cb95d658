// Copyright 2025 Certen Labs
//
// Ed25519 scalar arithmetic.
//
// Built on curve25519-voi's scalar field implementation rather than the
// stdlib crypto/ed25519 package, which only exposes sign/verify and gives
// no access to the underlying field or group operations the curve tree
// needs (scalar addition, point addition, hash-to-point).

package group

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/binary"

	"github.com/oasisprotocol/curve25519-voi/curve/curve25519/scalar"
)

// ScalarSize is the canonical encoded size of a Scalar, in bytes.
const ScalarSize = 32

// Scalar is an element of the Ed25519 scalar field (integers mod the group
// order ell). Scalars are immutable value types; every operation returns a
// new Scalar.
type Scalar struct {
	inner scalar.Scalar
}

// ZeroScalar returns the additive identity.
func ZeroScalar() Scalar {
	var s Scalar
	s.inner.Zero()
	return s
}

// RandomScalar draws a scalar uniformly from [0, order) using a
// cryptographically strong RNG.
func RandomScalar() (Scalar, error) {
	var buf [64]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Scalar{}, err
	}
	var s Scalar
	s.inner.SetUniformBytes(buf[:])
	return s, nil
}

// HashToScalar reduces domain||msg into a scalar via SHA-512, matching the
// construction the teacher uses for message digests elsewhere in the
// pack (domain-separated SHA-512 followed by reduction mod ell).
func HashToScalar(domain string, parts ...[]byte) Scalar {
	h := sha512.New()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write(p)
	}
	sum := h.Sum(nil)
	var s Scalar
	s.inner.SetUniformBytes(sum)
	return s
}

// ScalarFromCanonicalBytes decodes a 32-byte canonical little-endian scalar
// encoding. Returns ErrInvalidEncoding if the bytes are not a canonical
// reduced representative.
func ScalarFromCanonicalBytes(b []byte) (Scalar, error) {
	if len(b) != ScalarSize {
		return Scalar{}, ErrInvalidEncoding
	}
	var raw [ScalarSize]byte
	copy(raw[:], b)
	var s Scalar
	if _, err := s.inner.SetCanonicalBytes(raw[:]); err != nil {
		return Scalar{}, ErrInvalidEncoding
	}
	return s, nil
}

// ScalarFromUint64 returns the scalar equal to n. Any uint64 value is far
// smaller than the group order, so the little-endian encoding is always
// canonical; used to lift plaintext amounts into Pedersen commitments.
func ScalarFromUint64(n uint64) Scalar {
	var raw [ScalarSize]byte
	binary.LittleEndian.PutUint64(raw[:8], n)
	var s Scalar
	if _, err := s.inner.SetCanonicalBytes(raw[:]); err != nil {
		panic("group: uint64 encoding was not canonical")
	}
	return s
}

// Bytes returns the canonical 32-byte little-endian encoding.
func (s Scalar) Bytes() [ScalarSize]byte {
	var out [ScalarSize]byte
	copy(out[:], s.inner.ToBytes())
	return out
}

// Add returns s + other mod ell.
func (s Scalar) Add(other Scalar) Scalar {
	var out Scalar
	out.inner.Add(&s.inner, &other.inner)
	return out
}

// Sub returns s - other mod ell.
func (s Scalar) Sub(other Scalar) Scalar {
	var out Scalar
	out.inner.Subtract(&s.inner, &other.inner)
	return out
}

// Mul returns s * other mod ell.
func (s Scalar) Mul(other Scalar) Scalar {
	var out Scalar
	out.inner.Multiply(&s.inner, &other.inner)
	return out
}

// Negate returns -s mod ell.
func (s Scalar) Negate() Scalar {
	var out Scalar
	out.inner.Negate(&s.inner)
	return out
}

// IsZero reports whether s is the additive identity.
func (s Scalar) IsZero() bool {
	return s.inner.IsZero()
}

// Equal reports whether s and other encode the same field element.
func (s Scalar) Equal(other Scalar) bool {
	return s.inner.Equal(&other.inner) == 1
}
