// Copyright 2025 Certen Labs

package tree

import (
	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/output"
)

// TreeBranch is the authentication path for one leaf: for each layer from
// the leaf up to (but not including) the root, the sibling scalars needed
// to re-derive the parent of the node the witness occupies at that
// layer — omitting the position the witness itself fills.
type TreeBranch struct {
	LeafIndex uint64
	Layers    [][]group.Scalar
}

// Verify recombines tup against b and reports whether the result matches
// root. It performs no storage access; it is the client-side counterpart
// to CurveTree.GetBranch and is what an FCMP prover/verifier would call
// with a witness and an independently obtained root.
func (b *TreeBranch) Verify(cfg *Config, tup output.Tuple, root group.Point) bool {
	if len(b.Layers) == 0 {
		return false
	}

	pos := b.LeafIndex % cfg.LeafBranchWidth
	groupIdx := b.LeafIndex / cfg.LeafBranchWidth

	if pos > uint64(len(b.Layers[0])) {
		return false
	}
	full := spliceIn(b.Layers[0], pos, leafScalar(tup))
	point := HLayer(cfg, full, leafGenerator)

	idx := groupIdx
	for i := 1; i < len(b.Layers); i++ {
		ppos := idx % cfg.NodeBranchWidth
		if ppos > uint64(len(b.Layers[i])) {
			return false
		}
		full := spliceIn(b.Layers[i], ppos, nodeScalar(point))
		point = HLayer(cfg, full, nodeGenerator)
		idx /= cfg.NodeBranchWidth
	}

	return point.Equal(root)
}
