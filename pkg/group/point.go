// Copyright 2025 Certen Labs
//
// Ed25519 point (group element) arithmetic.

package group

import (
	"crypto/sha512"

	"github.com/oasisprotocol/curve25519-voi/curve/curve25519"
	"github.com/oasisprotocol/curve25519-voi/primitives/h2c"
)

// PointSize is the canonical encoded size of a Point, in bytes.
const PointSize = 32

// hashToPointDomain is the fixed domain-separation tag for hash_to_point.
// Chain-constant per spec.md §4.1; MUST be reproduced bit-for-bit by every
// implementation sharing this chain.
//
// TEST CONSTANT: a real deployment must pull this (and the underlying
// hash-to-curve suite) from the chain specification, not this default.
const hashToPointDomain = "curvetree-h2c-v1"

// Point is an element of the Ed25519 prime-order subgroup.
type Point struct {
	inner curve25519.ExtendedGroupElement
}

// BasePoint returns the Ed25519 conventional generator G.
func BasePoint() Point {
	var p Point
	p.inner.SetBasePoint()
	return p
}

// IdentityPoint returns the neutral element of the group.
func IdentityPoint() Point {
	var p Point
	p.inner.Identity()
	return p
}

// HashToPoint deterministically maps bytes into the prime-order subgroup
// using an Elligator2-style encoding, domain-separated so that this
// construction can never collide with another use of hash-to-curve on the
// same curve.
//
// TEST CONSTANT: exact suite selection is a consensus parameter; see
// SPEC_FULL.md §4.1.
func HashToPoint(msg []byte) Point {
	suite := h2c.Edwards25519_XMD_SHA512_ELL2_NU_
	var p Point
	pt := suite.Hash(sha512.New, msg, []byte(hashToPointDomain))
	p.inner.Set(pt)
	return p
}

// PointFromCanonicalBytes decodes a 32-byte canonical Ed25519 point
// encoding. Returns ErrInvalidEncoding for non-canonical input or a point
// not on the curve / not in the prime-order subgroup.
func PointFromCanonicalBytes(b []byte) (Point, error) {
	if len(b) != PointSize {
		return Point{}, ErrInvalidEncoding
	}
	var p Point
	if _, err := p.inner.SetCanonicalBytes(b); err != nil {
		return Point{}, ErrInvalidEncoding
	}
	return p, nil
}

// Bytes returns the canonical 32-byte compressed encoding.
func (p Point) Bytes() [PointSize]byte {
	var out [PointSize]byte
	copy(out[:], p.inner.ToBytes())
	return out
}

// Add returns p + other.
func (p Point) Add(other Point) Point {
	var out Point
	out.inner.Add(&p.inner, &other.inner)
	return out
}

// ScalarMult returns s · p.
func (p Point) ScalarMult(s Scalar) Point {
	var out Point
	sc := s.inner
	out.inner.ScalarMult(&sc, &p.inner)
	return out
}

// ScalarBaseMult returns s · G, the conventional Ed25519 generator.
func ScalarBaseMult(s Scalar) Point {
	var out Point
	sc := s.inner
	out.inner.ScalarBaseMult(&sc)
	return out
}

// DoubleScalarMult returns a·A + b·B, a common combined operation used for
// signature verification.
func DoubleScalarMult(a Scalar, A Point, b Scalar, B Point) Point {
	var out Point
	sa, sb := a.inner, b.inner
	out.inner.DoubleScalarMult(&sa, &A.inner, &sb, &B.inner)
	return out
}

// IsIdentity reports whether p is the neutral element.
func (p Point) IsIdentity() bool {
	return p.inner.Equal(identityElement()) == 1
}

func identityElement() *curve25519.ExtendedGroupElement {
	var id curve25519.ExtendedGroupElement
	id.Identity()
	return &id
}

// Equal reports whether p and other encode the same group element.
func (p Point) Equal(other Point) bool {
	return p.inner.Equal(&other.inner) == 1
}
