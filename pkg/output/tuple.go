// Copyright 2025 Certen Labs
//
// Output Tuple — the leaf value of the curve tree: one-time address O,
// key-image base I, and amount commitment C.

package output

import (
	"github.com/certen-labs/curvetree/pkg/group"
)

// ElementsPerOutput is the number of scalar field elements a single
// Output Tuple contributes to the leaf-layer hash.
const ElementsPerOutput = 3

// TupleSize is the canonical wire size of a serialized Output Tuple:
// three 32-byte Ed25519 points in O‖I‖C order.
const TupleSize = 3 * group.PointSize

// fieldElementDomain domain-separates the tuple's hash-to-scalar step
// from every other use of HashToScalar in this module.
//
// TEST CONSTANT: see SPEC_FULL.md §3.2.
const fieldElementDomain = "curvetree-output-elem"

// Tuple is the triple (O, I, C) of Ed25519 points a shielded output
// contributes to the tree. Once constructed and validated, a Tuple is
// immutable.
type Tuple struct {
	O group.Point
	I group.Point
	C group.Point
}

// New constructs a Tuple from its three points without validating them.
// Callers that need the IsValid invariant enforced should call IsValid
// explicitly, or use Deserialize which validates on the caller's behalf.
func New(o, i, c group.Point) Tuple {
	return Tuple{O: o, I: i, C: c}
}

// IsValid reports whether none of O, I, C is the identity element.
func (t Tuple) IsValid() bool {
	return !t.O.IsIdentity() && !t.I.IsIdentity() && !t.C.IsIdentity()
}

// ToFieldElements derives the ElementsPerOutput scalars that feed the
// leaf-layer hash construction. The mapping is deterministic and
// positional: O, I, and C each map to their own scalar via a
// domain-separated hash of their canonical encoding.
func (t Tuple) ToFieldElements() [ElementsPerOutput]group.Scalar {
	ob := t.O.Bytes()
	ib := t.I.Bytes()
	cb := t.C.Bytes()
	return [ElementsPerOutput]group.Scalar{
		group.HashToScalar(fieldElementDomain, ob[:]),
		group.HashToScalar(fieldElementDomain, ib[:]),
		group.HashToScalar(fieldElementDomain, cb[:]),
	}
}

// Serialize encodes the tuple as 96 bytes: O‖I‖C, each a 32-byte
// canonical Ed25519 point encoding.
func (t Tuple) Serialize() [TupleSize]byte {
	var out [TupleSize]byte
	ob := t.O.Bytes()
	ib := t.I.Bytes()
	cb := t.C.Bytes()
	copy(out[0:32], ob[:])
	copy(out[32:64], ib[:])
	copy(out[64:96], cb[:])
	return out
}

// Deserialize decodes a 96-byte wire-format tuple. It fails with
// ErrInvalidLength if the input is not exactly TupleSize bytes, with
// ErrInvalidEncoding (from pkg/group) if any component is not a
// canonical point encoding, and with ErrInvalidTuple if the decoded
// tuple fails IsValid.
func Deserialize(b []byte) (Tuple, error) {
	if len(b) != TupleSize {
		return Tuple{}, ErrInvalidLength
	}

	o, err := group.PointFromCanonicalBytes(b[0:32])
	if err != nil {
		return Tuple{}, err
	}
	i, err := group.PointFromCanonicalBytes(b[32:64])
	if err != nil {
		return Tuple{}, err
	}
	c, err := group.PointFromCanonicalBytes(b[64:96])
	if err != nil {
		return Tuple{}, err
	}

	t := Tuple{O: o, I: i, C: c}
	if !t.IsValid() {
		return Tuple{}, ErrInvalidTuple
	}
	return t, nil
}

// Equal reports componentwise equality.
func (t Tuple) Equal(other Tuple) bool {
	return t.O.Equal(other.O) && t.I.Equal(other.I) && t.C.Equal(other.C)
}
