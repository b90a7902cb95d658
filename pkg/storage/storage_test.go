// Copyright 2025 Certen Labs

package storage

import (
	"testing"

	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/output"
)

func sampleTuple(seed string) output.Tuple {
	return output.New(
		group.HashToPoint([]byte(seed+":O")),
		group.HashToPoint([]byte(seed+":I")),
		group.HashToPoint([]byte(seed+":C")),
	)
}

func TestNodeKeyLayout(t *testing.T) {
	key := EncodeNodeKey(Index{Layer: 1, Index: 2})
	if len(key) != 13 {
		t.Fatalf("node key length = %d, want 13", len(key))
	}
	if key[0] != 'N' {
		t.Errorf("node key prefix = %q, want 'N'", key[0])
	}
}

func TestOutputKeyLayout(t *testing.T) {
	key := EncodeOutputKey(7)
	if len(key) != 9 {
		t.Fatalf("output key length = %d, want 9", len(key))
	}
	if key[0] != 'O' {
		t.Errorf("output key prefix = %q, want 'O'", key[0])
	}
}

func TestMetadataKeyLayout(t *testing.T) {
	key := EncodeMetadataKey("depth")
	if key[0] != 'M' {
		t.Errorf("metadata key prefix = %q, want 'M'", key[0])
	}
	if string(key[1:]) != "depth" {
		t.Errorf("metadata key suffix = %q, want depth", key[1:])
	}
}

func TestNodeValueRoundTrip(t *testing.T) {
	n := Node{ChildCount: 12}
	copy(n.Hash[:], []byte("0123456789012345678901234567890"))
	enc := EncodeNodeValue(n)
	if len(enc) != NodeValueSize {
		t.Fatalf("encoded node value length = %d, want %d", len(enc), NodeValueSize)
	}
	dec, ok := DecodeNodeValue(enc)
	if !ok {
		t.Fatalf("decode failed")
	}
	if dec.ChildCount != n.ChildCount || dec.Hash != n.Hash {
		t.Errorf("round trip mismatch: got %+v, want %+v", dec, n)
	}
}

func testStoreRoundTrip(t *testing.T, s Store) {
	t.Helper()
	defer s.Close()

	if _, ok, err := s.GetNode(Index{Layer: 0, Index: 0}); err != nil || ok {
		t.Fatalf("expected absent node, got ok=%v err=%v", ok, err)
	}

	node := Node{ChildCount: 3}
	copy(node.Hash[:], []byte("abcdefghijklmnopqrstuvwxyzabcdef"))
	if err := s.StoreNode(Index{Layer: 0, Index: 0}, node); err != nil {
		t.Fatalf("store node: %v", err)
	}
	got, ok, err := s.GetNode(Index{Layer: 0, Index: 0})
	if err != nil || !ok {
		t.Fatalf("expected node present, got ok=%v err=%v", ok, err)
	}
	if got != node {
		t.Errorf("node mismatch: got %+v, want %+v", got, node)
	}

	tup := sampleTuple("rt")
	if err := s.StoreOutput(0, tup); err != nil {
		t.Fatalf("store output: %v", err)
	}
	gotTup, ok, err := s.GetOutput(0)
	if err != nil || !ok {
		t.Fatalf("expected output present, got ok=%v err=%v", ok, err)
	}
	if !gotTup.Equal(tup) {
		t.Errorf("output mismatch")
	}

	count, err := s.GetOutputCount()
	if err != nil || count != 1 {
		t.Errorf("output count = %d, err=%v, want 1", count, err)
	}

	if err := s.StoreMetadata("schema", []byte("v1")); err != nil {
		t.Fatalf("store metadata: %v", err)
	}
	meta, ok, err := s.GetMetadata("schema")
	if err != nil || !ok || string(meta) != "v1" {
		t.Errorf("metadata mismatch: got %q ok=%v err=%v", meta, ok, err)
	}

	existed, err := s.DeleteNode(Index{Layer: 0, Index: 0})
	if err != nil || !existed {
		t.Errorf("delete node: existed=%v err=%v", existed, err)
	}
	if _, ok, _ := s.GetNode(Index{Layer: 0, Index: 0}); ok {
		t.Errorf("node still present after delete")
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	testStoreRoundTrip(t, NewMemory())
}

func TestMemoryBatchCommit(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	if err := s.BeginBatch(); err != nil {
		t.Fatalf("begin batch: %v", err)
	}
	if err := s.BeginBatch(); err != ErrBatchConflict {
		t.Fatalf("expected ErrBatchConflict, got %v", err)
	}

	tup := sampleTuple("batch")
	if err := s.StoreOutput(0, tup); err != nil {
		t.Fatalf("store output: %v", err)
	}

	// Not yet visible outside the batch's own view... memory store
	// applies writes to the batch overlay, visible through the same
	// handle but not committed until CommitBatch.
	if err := s.CommitBatch(); err != nil {
		t.Fatalf("commit batch: %v", err)
	}

	count, err := s.GetOutputCount()
	if err != nil || count != 1 {
		t.Errorf("output count after commit = %d, err=%v, want 1", count, err)
	}
}

func TestMemoryBatchAbort(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	if err := s.BeginBatch(); err != nil {
		t.Fatalf("begin batch: %v", err)
	}
	tup := sampleTuple("abort")
	if err := s.StoreOutput(0, tup); err != nil {
		t.Fatalf("store output: %v", err)
	}
	if err := s.AbortBatch(); err != nil {
		t.Fatalf("abort batch: %v", err)
	}

	count, err := s.GetOutputCount()
	if err != nil || count != 0 {
		t.Errorf("output count after abort = %d, err=%v, want 0", count, err)
	}
}

func TestMemoryCommitWithoutBatch(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	if err := s.CommitBatch(); err != ErrNoBatch {
		t.Errorf("expected ErrNoBatch, got %v", err)
	}
}
