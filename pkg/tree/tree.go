// Copyright 2025 Certen Labs
//
// CurveTree is a direct transformation of the teacher's pkg/merkle.Tree:
// same build-once-then-append shape, same RWMutex-guarded read/write
// split, same "root is a cached field invalidated by structural change"
// approach — generalized from a binary tree of opaque SHA-256 hashes
// over pre-supplied leaves to an N-ary, incrementally-grown tree of
// Ed25519-commitment nodes persisted through pkg/storage.

package tree

import (
	"fmt"
	"sync"

	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/output"
	"github.com/certen-labs/curvetree/pkg/storage"
)

const (
	metaDepth = "depth"
	metaRoot  = "root"
)

// CurveTree is a persistent, incrementally-built authenticated structure
// over Output Tuples. All structural mutation happens through AddOutput
// / AddOutputs; every other method is a read.
type CurveTree struct {
	mu sync.RWMutex

	store storage.Store
	cfg   *Config

	depth uint32
	root  group.Point
	state State
}

// New opens a CurveTree over store, loading any persisted state (see Load
// for how cached metadata is cross-checked). An empty store produces an
// empty tree.
func New(store storage.Store, cfg *Config) (*CurveTree, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	t := &CurveTree{store: store, cfg: cfg}
	if err := t.Load(); err != nil {
		return nil, err
	}
	return t, nil
}

// AddOutput appends tup as the next leaf and returns its index.
func (t *CurveTree) AddOutput(tup output.Tuple) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addOutputLocked(tup)
}

// AddOutputs appends tups atomically: either all are inserted and the
// tree's structural invariants hold for every one of them, or none are
// (the underlying store's batch is aborted on any failure).
func (t *CurveTree) AddOutputs(tups []output.Tuple) ([]uint64, error) {
	if len(tups) == 0 {
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.BeginBatch(); err != nil {
		return nil, fmt.Errorf("tree: begin batch: %w", err)
	}

	prevDepth, prevRoot, prevState := t.depth, t.root, t.state
	indices := make([]uint64, 0, len(tups))
	for _, tup := range tups {
		idx, err := t.addOutputLocked(tup)
		if err != nil {
			_ = t.store.AbortBatch()
			t.depth, t.root, t.state = prevDepth, prevRoot, prevState
			return nil, err
		}
		indices = append(indices, idx)
	}

	if err := t.store.CommitBatch(); err != nil {
		t.depth, t.root, t.state = prevDepth, prevRoot, prevState
		return nil, fmt.Errorf("tree: commit batch: %w", err)
	}
	return indices, nil
}

func (t *CurveTree) addOutputLocked(tup output.Tuple) (uint64, error) {
	if !tup.IsValid() {
		return 0, output.ErrInvalidTuple
	}

	leafIndex, err := t.store.GetOutputCount()
	if err != nil {
		return 0, fmt.Errorf("tree: read output count: %w", err)
	}
	if err := t.checkCapacity(leafIndex); err != nil {
		return 0, err
	}

	if err := t.store.StoreOutput(leafIndex, tup); err != nil {
		return 0, fmt.Errorf("tree: store output: %w", err)
	}
	if err := t.insertLeaf(leafIndex, tup); err != nil {
		return 0, err
	}

	t.state = StateGrowing
	if err := t.persistRootMeta(); err != nil {
		return 0, err
	}
	return leafIndex, nil
}

// insertLeaf folds tup (already durably stored as an output at
// leafIndex) into the leaf-layer node it belongs to and cascades the
// change upward. Shared by addOutputLocked and Rebuild so the two never
// diverge in how a node's hash is derived.
func (t *CurveTree) insertLeaf(leafIndex uint64, tup output.Tuple) error {
	g := leafIndex / t.cfg.LeafBranchWidth
	pos := leafIndex % t.cfg.LeafBranchWidth

	leafKey := storage.Index{Layer: 0, Index: g}
	node, ok, err := t.store.GetNode(leafKey)
	if err != nil {
		return fmt.Errorf("tree: read leaf node: %w", err)
	}
	oldPoint := t.cfg.HashInit()
	if ok {
		oldPoint, err = pointFromHash(node.Hash)
		if err != nil {
			return err
		}
	}

	newPoint := oldPoint.Add(leafGenerator(pos).ScalarMult(leafScalar(tup)))
	node.Hash = newPoint.Bytes()
	node.ChildCount = pos + 1
	if err := t.store.StoreNode(leafKey, node); err != nil {
		return fmt.Errorf("tree: store leaf node: %w", err)
	}

	return t.cascade(0, g, oldPoint, newPoint, pos == 0)
}

// checkCapacity rejects an insertion that would need more than MaxDepth
// non-leaf layers.
func (t *CurveTree) checkCapacity(leafIndex uint64) error {
	capacity := t.cfg.LeafBranchWidth
	for layers := 0; layers < MaxDepth; layers++ {
		if leafIndex < capacity {
			return nil
		}
		next := capacity * t.cfg.NodeBranchWidth
		if next < capacity {
			// overflowed uint64: capacity is already far beyond any
			// realistic tree size, so there is nothing left to check.
			return nil
		}
		capacity = next
	}
	return ErrTreeFull
}

// cascade propagates a child's hash change from (layer, idx) up through
// however many existing ancestors are affected, stopping once it reaches
// the current top of the tree (creating a new top layer if the second
// node at what used to be the top layer has just appeared).
func (t *CurveTree) cascade(layer uint32, idx uint64, oldPoint, newPoint group.Point, brandNew bool) error {
	for !t.isTop(layer, idx) {
		pidx := idx / t.cfg.NodeBranchWidth
		ppos := idx % t.cfg.NodeBranchWidth
		parentKey := storage.Index{Layer: layer + 1, Index: pidx}

		parent, ok, err := t.store.GetNode(parentKey)
		if err != nil {
			return fmt.Errorf("tree: read ancestor node: %w", err)
		}

		parentPoint := t.cfg.HashInit()
		childCount := uint64(0)
		if ok {
			parentPoint, err = pointFromHash(parent.Hash)
			if err != nil {
				return err
			}
			childCount = parent.ChildCount
		} else if ppos > 0 {
			// First time this parent is touched, but not at position
			// zero: backfill the already-closed sibling positions that
			// never needed a parent record before now.
			base := pidx * t.cfg.NodeBranchWidth
			for q := uint64(0); q < ppos; q++ {
				sib, sok, err := t.store.GetNode(storage.Index{Layer: layer, Index: base + q})
				if err != nil {
					return fmt.Errorf("tree: read sibling node: %w", err)
				}
				if !sok {
					return ErrMissingSibling
				}
				sibPoint, err := pointFromHash(sib.Hash)
				if err != nil {
					return err
				}
				parentPoint = parentPoint.Add(nodeGenerator(q).ScalarMult(nodeScalar(sibPoint)))
			}
			childCount = ppos
		}

		var delta group.Scalar
		if brandNew {
			delta = nodeScalar(newPoint)
			childCount++
		} else {
			delta = nodeScalar(newPoint).Sub(nodeScalar(oldPoint))
		}
		parentNewPoint := parentPoint.Add(nodeGenerator(ppos).ScalarMult(delta))

		parent.Hash = parentNewPoint.Bytes()
		parent.ChildCount = childCount
		if err := t.store.StoreNode(parentKey, parent); err != nil {
			return fmt.Errorf("tree: store ancestor node: %w", err)
		}

		layer++
		idx = pidx
		oldPoint, newPoint = parentPoint, parentNewPoint
		brandNew = !ok
	}

	if uint64(layer)+1 > uint64(t.depth) {
		t.depth = layer + 1
	}
	t.root = newPoint
	return nil
}

// isTop reports whether (layer, idx) is (or would become) the current
// root position, i.e. there is no further ancestor to update.
func (t *CurveTree) isTop(layer uint32, idx uint64) bool {
	return idx == 0 && uint64(layer)+1 >= uint64(t.depth)
}

// GetOutput returns the stored tuple at index, if any.
func (t *CurveTree) GetOutput(index uint64) (output.Tuple, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store.GetOutput(index)
}

// GetRoot returns the current root commitment. For an empty tree this is
// HASH_INIT.
func (t *CurveTree) GetRoot() group.Point {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.depth == 0 {
		return t.cfg.HashInit()
	}
	return t.root
}

// Depth returns the number of populated non-leaf-indexed layers (0 for an
// empty tree, 1 once any output exists and no internal layer has been
// needed yet, and so on).
func (t *CurveTree) Depth() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(t.depth)
}

// OutputCount returns the number of inserted outputs.
func (t *CurveTree) OutputCount() (uint64, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.store.GetOutputCount()
}

// IsEmpty reports whether any output has ever been inserted.
func (t *CurveTree) IsEmpty() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.depth == 0
}

// State reports what the tree is currently doing.
func (t *CurveTree) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Store returns the underlying storage handle, for callers (e.g. the
// CLI's tree-import) that need to hand it to another component such as
// a CurveTreeBuilder.
func (t *CurveTree) Store() storage.Store {
	return t.store
}

// ConfigRef returns the tree's chain-constant configuration.
func (t *CurveTree) ConfigRef() *Config {
	return t.cfg
}

// GetBranch returns the authentication path for leafIndex, or
// ErrOutOfRange if leafIndex is at or beyond the current output count.
func (t *CurveTree) GetBranch(leafIndex uint64) (*TreeBranch, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count, err := t.store.GetOutputCount()
	if err != nil {
		return nil, fmt.Errorf("tree: read output count: %w", err)
	}
	if leafIndex >= count {
		return nil, ErrOutOfRange
	}

	branch := &TreeBranch{LeafIndex: leafIndex}

	g := leafIndex / t.cfg.LeafBranchWidth
	pos := leafIndex % t.cfg.LeafBranchWidth
	node, ok, err := t.store.GetNode(storage.Index{Layer: 0, Index: g})
	if err != nil {
		return nil, fmt.Errorf("tree: read leaf node: %w", err)
	}
	if !ok {
		return nil, ErrMissingSibling
	}
	siblings := make([]group.Scalar, 0, node.ChildCount-1)
	base := g * t.cfg.LeafBranchWidth
	for q := uint64(0); q < node.ChildCount; q++ {
		if q == pos {
			continue
		}
		sibTup, sok, err := t.store.GetOutput(base + q)
		if err != nil {
			return nil, fmt.Errorf("tree: read sibling output: %w", err)
		}
		if !sok {
			return nil, ErrMissingSibling
		}
		siblings = append(siblings, leafScalar(sibTup))
	}
	branch.Layers = append(branch.Layers, siblings)

	layer := uint32(0)
	idx := g
	for !t.isTop(layer, idx) {
		pidx := idx / t.cfg.NodeBranchWidth
		ppos := idx % t.cfg.NodeBranchWidth
		parent, ok, err := t.store.GetNode(storage.Index{Layer: layer + 1, Index: pidx})
		if err != nil {
			return nil, fmt.Errorf("tree: read ancestor node: %w", err)
		}
		if !ok {
			return nil, ErrMissingSibling
		}
		siblings := make([]group.Scalar, 0, parent.ChildCount-1)
		pbase := pidx * t.cfg.NodeBranchWidth
		for q := uint64(0); q < parent.ChildCount; q++ {
			if q == ppos {
				continue
			}
			child, cok, err := t.store.GetNode(storage.Index{Layer: layer, Index: pbase + q})
			if err != nil {
				return nil, fmt.Errorf("tree: read sibling node: %w", err)
			}
			if !cok {
				return nil, ErrMissingSibling
			}
			childPoint, err := pointFromHash(child.Hash)
			if err != nil {
				return nil, err
			}
			siblings = append(siblings, nodeScalar(childPoint))
		}
		branch.Layers = append(branch.Layers, siblings)

		layer++
		idx = pidx
	}

	return branch, nil
}

// VerifyIntegrity recomputes the tree from its persisted outputs and
// compares the result to the currently cached root and depth and to every
// stored node record, returning ErrIntegrityFailure on mismatch rather
// than attempting repair.
func (t *CurveTree) VerifyIntegrity() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count, err := t.store.GetOutputCount()
	wantRoot, wantDepth := t.root, t.depth
	if err != nil {
		return fmt.Errorf("tree: read output count: %w", err)
	}

	scratch := storage.NewMemory()
	defer scratch.Close()
	replay, err := New(scratch, t.cfg)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		tup, ok, err := t.store.GetOutput(i)
		if err != nil || !ok {
			return fmt.Errorf("tree: read output %d during verification: %w", i, err)
		}
		if _, err := replay.AddOutput(tup); err != nil {
			return fmt.Errorf("tree: replay output %d during verification: %w", i, err)
		}
	}

	if replay.depth != wantDepth || !replay.root.Equal(wantRoot) {
		return ErrIntegrityFailure
	}
	n := (count + t.cfg.LeafBranchWidth - 1) / t.cfg.LeafBranchWidth
	for layer := uint32(0); layer < replay.depth; layer++ {
		for idx := uint64(0); idx < n; idx++ {
			want, _, _ := scratch.GetNode(storage.Index{Layer: layer, Index: idx})
			got, ok, err := t.store.GetNode(storage.Index{Layer: layer, Index: idx})
			if err != nil {
				return fmt.Errorf("tree: read node during verification: %w", err)
			}
			if !ok || got != want {
				return ErrIntegrityFailure
			}
		}
		n = (n + t.cfg.NodeBranchWidth - 1) / t.cfg.NodeBranchWidth
	}
	return nil
}

// Rebuild recomputes every node from the persisted outputs and overwrites
// the tree's structural state with the result. Use after detecting
// corruption (e.g. a failed VerifyIntegrity) or after restoring outputs
// from an external backup.
func (t *CurveTree) Rebuild() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = StateRebuilding
	count, err := t.store.GetOutputCount()
	if err != nil {
		return fmt.Errorf("tree: read output count: %w", err)
	}

	tuples := make([]output.Tuple, count)
	for i := uint64(0); i < count; i++ {
		tup, ok, err := t.store.GetOutput(i)
		if err != nil || !ok {
			return fmt.Errorf("tree: read output %d during rebuild: %w", i, err)
		}
		tuples[i] = tup
	}

	if err := t.clearNodes(count); err != nil {
		return fmt.Errorf("tree: clear stale nodes during rebuild: %w", err)
	}

	t.depth = 0
	t.root = t.cfg.HashInit()
	for i := uint64(0); i < count; i++ {
		if err := t.insertLeaf(i, tuples[i]); err != nil {
			return err
		}
	}

	t.state = StateGrowing
	if count == 0 {
		t.state = StateEmpty
	}
	return t.persistRootMeta()
}

// clearNodes deletes every node record that could exist for a tree
// holding count outputs under the current config, so a rebuild replay
// never reads a stale hash left over from a different output count or a
// prior corrupt state.
func (t *CurveTree) clearNodes(count uint64) error {
	if count == 0 {
		return nil
	}
	n := (count + t.cfg.LeafBranchWidth - 1) / t.cfg.LeafBranchWidth
	layer := uint32(0)
	for {
		for idx := uint64(0); idx < n; idx++ {
			if _, err := t.store.DeleteNode(storage.Index{Layer: layer, Index: idx}); err != nil {
				return err
			}
		}
		if n <= 1 {
			return nil
		}
		n = (n + t.cfg.NodeBranchWidth - 1) / t.cfg.NodeBranchWidth
		layer++
	}
}

// Save flushes the cached depth and root to metadata storage so a future
// Load can skip a full replay. Structural node data is already durable
// after every AddOutput/AddOutputs call; Save is purely a fast-path
// cache.
func (t *CurveTree) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.persistRootMeta()
}

func (t *CurveTree) persistRootMeta() error {
	depthBytes := encodeUint64(uint64(t.depth))
	if err := t.store.StoreMetadata(metaDepth, depthBytes); err != nil {
		return fmt.Errorf("tree: persist depth: %w", err)
	}
	rootBytes := t.root.Bytes()
	if err := t.store.StoreMetadata(metaRoot, rootBytes[:]); err != nil {
		return fmt.Errorf("tree: persist root: %w", err)
	}
	return nil
}

// Load reads cached depth/root metadata and cross-checks it against the
// node recorded at the presumed top position. On any mismatch (or no
// cached metadata at all, e.g. a fresh store with outputs already
// present from a prior process), it falls back to Rebuild rather than
// trusting the cache.
func (t *CurveTree) Load() error {
	count, err := t.store.GetOutputCount()
	if err != nil {
		return fmt.Errorf("tree: read output count: %w", err)
	}
	if count == 0 {
		t.depth = 0
		t.root = t.cfg.HashInit()
		t.state = StateEmpty
		return nil
	}

	depthRaw, hasDepth, err := t.store.GetMetadata(metaDepth)
	if err != nil {
		return err
	}
	rootRaw, hasRoot, err := t.store.GetMetadata(metaRoot)
	if err != nil {
		return err
	}

	if hasDepth && hasRoot {
		depth := decodeUint64(depthRaw)
		root, decodeErr := group.PointFromCanonicalBytes(rootRaw)
		if decodeErr == nil && depth > 0 {
			topNode, ok, getErr := t.store.GetNode(storage.Index{Layer: uint32(depth - 1), Index: 0})
			if getErr == nil && ok {
				if topPoint, perr := pointFromHash(topNode.Hash); perr == nil && topPoint.Equal(root) {
					t.depth = uint32(depth)
					t.root = root
					t.state = StateGrowing
					return nil
				}
			}
		}
	}

	return t.Rebuild()
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func decodeUint64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
