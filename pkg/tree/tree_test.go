// Copyright 2025 Certen Labs

package tree

import (
	"errors"
	"fmt"
	"testing"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/output"
	"github.com/certen-labs/curvetree/pkg/storage"
)

func testTuple(seed string) output.Tuple {
	return output.New(
		group.HashToPoint([]byte(seed+":O")),
		group.HashToPoint([]byte(seed+":I")),
		group.HashToPoint([]byte(seed+":C")),
	)
}

func smallConfig() *Config {
	return &Config{LeafBranchWidth: 4, NodeBranchWidth: 3, HashInitDomain: "curvetree-test-hash-init"}
}

func newTestTree(t *testing.T) (*CurveTree, *Config) {
	t.Helper()
	cfg := smallConfig()
	tr, err := New(storage.NewMemory(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr, cfg
}

func TestEmptyTreeRootIsHashInit(t *testing.T) {
	tr, cfg := newTestTree(t)
	if !tr.IsEmpty() {
		t.Fatalf("expected empty tree")
	}
	if tr.Depth() != 0 {
		t.Errorf("depth = %d, want 0", tr.Depth())
	}
	if !tr.GetRoot().Equal(cfg.HashInit()) {
		t.Errorf("root of empty tree must equal HASH_INIT")
	}
}

func TestSingleInsertionDepthAndBranch(t *testing.T) {
	tr, cfg := newTestTree(t)
	tup := testTuple("s1")
	idx, err := tr.AddOutput(tup)
	if err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	if idx != 0 {
		t.Fatalf("leaf index = %d, want 0", idx)
	}
	if tr.Depth() != 1 {
		t.Errorf("depth = %d, want 1", tr.Depth())
	}
	if tr.GetRoot().Equal(group.IdentityPoint()) {
		t.Errorf("root must not be the identity element")
	}

	branch, err := tr.GetBranch(0)
	if err != nil {
		t.Fatalf("GetBranch: %v", err)
	}
	if branch == nil {
		t.Fatalf("expected a branch for an inserted leaf")
	}
	if len(branch.Layers) != 1 {
		t.Fatalf("layers = %d, want 1 (single populated leaf layer, no ancestors yet)", len(branch.Layers))
	}
	if len(branch.Layers[0]) != 0 {
		t.Errorf("sibling count = %d, want 0 (only one output exists so far)", len(branch.Layers[0]))
	}
	if !branch.Verify(cfg, tup, tr.GetRoot()) {
		t.Errorf("branch failed to recombine to the root")
	}
}

func TestBranchOutOfRange(t *testing.T) {
	tr, _ := newTestTree(t)
	if _, err := tr.AddOutput(testTuple("only")); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	branch, err := tr.GetBranch(5)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("GetBranch err = %v, want ErrOutOfRange", err)
	}
	if branch != nil {
		t.Errorf("expected nil branch for out-of-range index")
	}
}

func TestFillLeafGroupKeepsDepthAtOne(t *testing.T) {
	tr, cfg := newTestTree(t)
	for i := 0; i < int(cfg.LeafBranchWidth); i++ {
		if _, err := tr.AddOutput(testTuple(fmt.Sprintf("fill-%d", i))); err != nil {
			t.Fatalf("AddOutput %d: %v", i, err)
		}
	}
	if tr.Depth() != 1 {
		t.Errorf("depth = %d, want 1 after exactly filling one leaf group", tr.Depth())
	}
}

func TestSecondLeafGroupCreatesDepthTwo(t *testing.T) {
	tr, cfg := newTestTree(t)
	total := int(cfg.LeafBranchWidth) + 1
	var tuples []output.Tuple
	for i := 0; i < total; i++ {
		tup := testTuple(fmt.Sprintf("grow-%d", i))
		tuples = append(tuples, tup)
		if _, err := tr.AddOutput(tup); err != nil {
			t.Fatalf("AddOutput %d: %v", i, err)
		}
	}
	if tr.Depth() != 2 {
		t.Errorf("depth = %d, want 2", tr.Depth())
	}

	for i, tup := range tuples {
		branch, err := tr.GetBranch(uint64(i))
		if err != nil {
			t.Fatalf("GetBranch(%d): %v", i, err)
		}
		if branch == nil {
			t.Fatalf("GetBranch(%d): expected non-nil", i)
		}
		if !branch.Verify(cfg, tup, tr.GetRoot()) {
			t.Errorf("branch for leaf %d failed to verify against current root", i)
		}
	}
}

func TestManyLayersRemainVerifiable(t *testing.T) {
	tr, cfg := newTestTree(t)
	// LeafBranchWidth=4, NodeBranchWidth=3: forces depth to climb past 2.
	count := int(cfg.LeafBranchWidth) * int(cfg.NodeBranchWidth) * int(cfg.NodeBranchWidth)
	var tuples []output.Tuple
	for i := 0; i < count; i++ {
		tup := testTuple(fmt.Sprintf("deep-%d", i))
		tuples = append(tuples, tup)
		if _, err := tr.AddOutput(tup); err != nil {
			t.Fatalf("AddOutput %d: %v", i, err)
		}
	}
	if tr.Depth() < 3 {
		t.Fatalf("depth = %d, want at least 3 for this much data", tr.Depth())
	}

	for _, i := range []int{0, 1, int(cfg.LeafBranchWidth) - 1, int(cfg.LeafBranchWidth), count - 1} {
		branch, err := tr.GetBranch(uint64(i))
		if err != nil || branch == nil {
			t.Fatalf("GetBranch(%d): branch=%v err=%v", i, branch, err)
		}
		if !branch.Verify(cfg, tuples[i], tr.GetRoot()) {
			t.Errorf("branch for leaf %d failed to verify", i)
		}
	}
}

func TestBatchInsertionMatchesSequential(t *testing.T) {
	cfg := smallConfig()
	seq, err := New(storage.NewMemory(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	batched, err := New(storage.NewMemory(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var tuples []output.Tuple
	for i := 0; i < 23; i++ {
		tuples = append(tuples, testTuple(fmt.Sprintf("batch-%d", i)))
	}

	for _, tup := range tuples {
		if _, err := seq.AddOutput(tup); err != nil {
			t.Fatalf("sequential AddOutput: %v", err)
		}
	}
	if _, err := batched.AddOutputs(tuples); err != nil {
		t.Fatalf("AddOutputs: %v", err)
	}

	if seq.Depth() != batched.Depth() {
		t.Errorf("depth mismatch: sequential=%d batched=%d", seq.Depth(), batched.Depth())
	}
	if !seq.GetRoot().Equal(batched.GetRoot()) {
		t.Errorf("root mismatch between sequential and batched insertion")
	}
}

func TestRebuildIsIdempotentOnAHealthyTree(t *testing.T) {
	tr, _ := newTestTree(t)
	for i := 0; i < 19; i++ {
		if _, err := tr.AddOutput(testTuple(fmt.Sprintf("rb-%d", i))); err != nil {
			t.Fatalf("AddOutput: %v", err)
		}
	}
	wantRoot := tr.GetRoot()
	wantDepth := tr.Depth()

	if err := tr.Rebuild(); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if tr.Depth() != wantDepth {
		t.Errorf("depth changed across rebuild: got %d, want %d", tr.Depth(), wantDepth)
	}
	if !tr.GetRoot().Equal(wantRoot) {
		t.Errorf("root changed across rebuild")
	}
	if err := tr.VerifyIntegrity(); err != nil {
		t.Errorf("VerifyIntegrity after rebuild: %v", err)
	}
}

func TestVerifyIntegrityDetectsTamperedNode(t *testing.T) {
	mem := storage.NewMemory()
	tr, err := New(mem, smallConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 6; i++ {
		if _, err := tr.AddOutput(testTuple(fmt.Sprintf("tamper-%d", i))); err != nil {
			t.Fatalf("AddOutput: %v", err)
		}
	}

	node, ok, err := mem.GetNode(storage.Index{Layer: 0, Index: 0})
	if err != nil || !ok {
		t.Fatalf("expected leaf node 0 present, ok=%v err=%v", ok, err)
	}
	node.Hash[0] ^= 0xFF
	if err := mem.StoreNode(storage.Index{Layer: 0, Index: 0}, node); err != nil {
		t.Fatalf("corrupt node: %v", err)
	}

	if err := tr.VerifyIntegrity(); err != ErrIntegrityFailure {
		t.Errorf("VerifyIntegrity = %v, want ErrIntegrityFailure", err)
	}
}

func TestLoadPreservesStateAcrossReopen(t *testing.T) {
	db := dbm.NewMemDB()
	store1, err := storage.NewDurableFromDB(db)
	if err != nil {
		t.Fatalf("NewDurableFromDB: %v", err)
	}
	cfg := smallConfig()
	tr1, err := New(store1, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 11; i++ {
		if _, err := tr1.AddOutput(testTuple(fmt.Sprintf("persist-%d", i))); err != nil {
			t.Fatalf("AddOutput: %v", err)
		}
	}
	wantRoot := tr1.GetRoot()
	wantDepth := tr1.Depth()
	if err := tr1.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	store2, err := storage.NewDurableFromDB(db)
	if err != nil {
		t.Fatalf("NewDurableFromDB reopen: %v", err)
	}
	tr2, err := New(store2, cfg)
	if err != nil {
		t.Fatalf("New reopen: %v", err)
	}
	if tr2.Depth() != wantDepth {
		t.Errorf("reopened depth = %d, want %d", tr2.Depth(), wantDepth)
	}
	if !tr2.GetRoot().Equal(wantRoot) {
		t.Errorf("reopened root mismatch")
	}
}

func TestAddOutputsRejectsInvalidTupleAtomically(t *testing.T) {
	tr, _ := newTestTree(t)
	good := testTuple("good")
	id := group.IdentityPoint()
	bad := output.New(id, id, id) // identity points: invalid
	if _, err := tr.AddOutputs([]output.Tuple{good, bad}); err == nil {
		t.Fatalf("expected error inserting an invalid tuple")
	}
	count, err := tr.OutputCount()
	if err != nil {
		t.Fatalf("OutputCount: %v", err)
	}
	if count != 0 {
		t.Errorf("output count = %d, want 0 after an aborted batch", count)
	}
}

// TestAddOutputsRejectsInvalidTupleAtomicallyOnDurable is the Durable-backend
// counterpart of TestAddOutputsRejectsInvalidTupleAtomically: it pins down
// that an aborted batch leaves the durable store's output-count bookkeeping
// untouched, not just its node/output records, so a subsequent insert does
// not leave a gap in leaf indices.
func TestAddOutputsRejectsInvalidTupleAtomicallyOnDurable(t *testing.T) {
	store, err := storage.NewDurableFromDB(dbm.NewMemDB())
	if err != nil {
		t.Fatalf("NewDurableFromDB: %v", err)
	}
	tr, err := New(store, smallConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	good := testTuple("durable-good")
	id := group.IdentityPoint()
	bad := output.New(id, id, id) // identity points: invalid
	if _, err := tr.AddOutputs([]output.Tuple{good, bad}); err == nil {
		t.Fatalf("expected error inserting an invalid tuple")
	}
	count, err := tr.OutputCount()
	if err != nil {
		t.Fatalf("OutputCount: %v", err)
	}
	if count != 0 {
		t.Errorf("output count = %d, want 0 after an aborted durable batch", count)
	}

	idx, err := tr.AddOutput(testTuple("durable-next"))
	if err != nil {
		t.Fatalf("AddOutput after abort: %v", err)
	}
	if idx != 0 {
		t.Errorf("leaf index after aborted batch = %d, want 0 (no gap)", idx)
	}
}
