// Copyright 2025 Certen Labs

package group

import "testing"

func TestScalarRoundTrip(t *testing.T) {
	s, err := RandomScalar()
	if err != nil {
		t.Fatalf("random scalar: %v", err)
	}

	b := s.Bytes()
	got, err := ScalarFromCanonicalBytes(b[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Equal(s) {
		t.Errorf("round trip mismatch")
	}
}

func TestScalarArithmetic(t *testing.T) {
	a, _ := RandomScalar()
	b, _ := RandomScalar()

	sum := a.Add(b)
	back := sum.Sub(b)
	if !back.Equal(a) {
		t.Errorf("(a+b)-b != a")
	}

	zero := a.Sub(a)
	if !zero.IsZero() {
		t.Errorf("a-a is not zero")
	}
}

func TestPointRoundTrip(t *testing.T) {
	s, _ := RandomScalar()
	p := ScalarBaseMult(s)

	b := p.Bytes()
	got, err := PointFromCanonicalBytes(b[:])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Equal(p) {
		t.Errorf("round trip mismatch")
	}
}

func TestIdentityPoint(t *testing.T) {
	id := IdentityPoint()
	if !id.IsIdentity() {
		t.Errorf("IdentityPoint().IsIdentity() == false")
	}

	g := BasePoint()
	if g.IsIdentity() {
		t.Errorf("base point reported as identity")
	}
}

func TestHashToPointDeterministic(t *testing.T) {
	a := HashToPoint([]byte("a"))
	b := HashToPoint([]byte("a"))
	if !a.Equal(b) {
		t.Errorf("hash_to_point is not deterministic")
	}

	c := HashToPoint([]byte("b"))
	if a.Equal(c) {
		t.Errorf("hash_to_point collided on distinct inputs")
	}

	if a.IsIdentity() {
		t.Errorf("hash_to_point produced the identity")
	}
}

func TestScalarMultDistributesOverAdd(t *testing.T) {
	a, _ := RandomScalar()
	b, _ := RandomScalar()
	p := HashToPoint([]byte("generator"))

	lhs := p.ScalarMult(a.Add(b))
	rhs := p.ScalarMult(a).Add(p.ScalarMult(b))
	if !lhs.Equal(rhs) {
		t.Errorf("(a+b)*P != a*P + b*P")
	}
}
