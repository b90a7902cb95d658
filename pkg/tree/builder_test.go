// Copyright 2025 Certen Labs

package tree

import (
	"fmt"
	"testing"

	"github.com/certen-labs/curvetree/pkg/output"
	"github.com/certen-labs/curvetree/pkg/storage"
)

// TestBuilderChunkedMatchesSingleAddOutputs pins down scenario S6: a
// builder fed two chunks of 50 tuples and finalized must produce the
// same root and pass integrity just like a tree built from a single
// AddOutputs(100) call over the same tuples.
func TestBuilderChunkedMatchesSingleAddOutputs(t *testing.T) {
	const total = 100
	tuples := make([]output.Tuple, total)
	for i := range tuples {
		tuples[i] = testTuple(fmt.Sprintf("builder-%d", i))
	}

	b := NewBuilder(smallConfig(), 50)
	if err := b.AddBatch(tuples[:50]); err != nil {
		t.Fatalf("AddBatch first chunk: %v", err)
	}
	if err := b.AddBatch(tuples[50:]); err != nil {
		t.Fatalf("AddBatch second chunk: %v", err)
	}
	if b.Buffered() != total {
		t.Fatalf("Buffered() = %d, want %d", b.Buffered(), total)
	}

	built, err := b.Finalize(storage.NewMemory())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	direct, _ := newTestTree(t)
	if _, err := direct.AddOutputs(tuples); err != nil {
		t.Fatalf("AddOutputs(100): %v", err)
	}

	if !built.GetRoot().Equal(direct.GetRoot()) {
		t.Errorf("chunked builder root != single AddOutputs(100) root")
	}
	if err := built.VerifyIntegrity(); err != nil {
		t.Errorf("chunked builder tree failed integrity: %v", err)
	}
	if err := direct.VerifyIntegrity(); err != nil {
		t.Errorf("direct AddOutputs(100) tree failed integrity: %v", err)
	}
}
