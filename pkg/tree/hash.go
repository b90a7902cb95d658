// Copyright 2025 Certen Labs
//
// Layer hash construction. A layer commitment is a Pedersen-style vector
// commitment: HASH_INIT plus one scalar-weighted generator term per
// occupied child position. Because the scheme is additively homomorphic,
// tree.go never rebuilds a node's hash from its full child list on every
// mutation — it adds or swaps a single generator term. HLayer itself
// (computing from a complete scalar slice) is used by branch
// recombination, where the incremental shortcut isn't available; Rebuild
// replays outputs through the same incremental path as AddOutput.
//
// The exact decomposition below (leafScalar, nodeScalar, the per-position
// generator domains) is a concrete, internally consistent choice for the
// otherwise-unspecified field-element/H_layer construction. TEST CONSTANT.

package tree

import (
	"fmt"

	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/output"
)

const (
	leafGeneratorDomain = "curvetree-leaf-gen" // TEST CONSTANT
	nodeGeneratorDomain = "curvetree-node-gen" // TEST CONSTANT
	leafElementDomain   = "curvetree-leaf-elem"
	nodeElementDomain   = "curvetree-node-elem"
)

type generatorFunc func(pos uint64) group.Point

func leafGenerator(pos uint64) group.Point {
	return group.HashToPoint([]byte(fmt.Sprintf("%s-%d", leafGeneratorDomain, pos)))
}

func nodeGenerator(pos uint64) group.Point {
	return group.HashToPoint([]byte(fmt.Sprintf("%s-%d", nodeGeneratorDomain, pos)))
}

// leafScalar folds an Output Tuple's three field elements into the single
// scalar that occupies its position in the leaf layer.
func leafScalar(tup output.Tuple) group.Scalar {
	elems := tup.ToFieldElements()
	b0, b1, b2 := elems[0].Bytes(), elems[1].Bytes(), elems[2].Bytes()
	return group.HashToScalar(leafElementDomain, b0[:], b1[:], b2[:])
}

// nodeScalar folds a node's current commitment into the scalar its parent
// absorbs at that node's position.
func nodeScalar(p group.Point) group.Scalar {
	b := p.Bytes()
	return group.HashToScalar(nodeElementDomain, b[:])
}

// HLayer compresses inputs (1..width scalars) into a single Point: HASH_INIT
// plus one gen(i)*inputs[i] term per input.
func HLayer(cfg *Config, inputs []group.Scalar, gen generatorFunc) group.Point {
	acc := cfg.HashInit()
	for i, s := range inputs {
		acc = acc.Add(gen(uint64(i)).ScalarMult(s))
	}
	return acc
}

// spliceIn reinserts the witness's own scalar into an ordered sibling list
// at position pos, reconstructing the full positional input to HLayer.
func spliceIn(siblings []group.Scalar, pos uint64, own group.Scalar) []group.Scalar {
	full := make([]group.Scalar, 0, len(siblings)+1)
	full = append(full, siblings[:pos]...)
	full = append(full, own)
	full = append(full, siblings[pos:]...)
	return full
}
