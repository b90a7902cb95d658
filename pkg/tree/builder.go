// Copyright 2025 Certen Labs
//
// CurveTreeBuilder adapts the teacher's pkg/batch.Collector: instead of
// accumulating leaves into an activeBatch keyed by a UUID and committing
// them through a Firestore-synced merkle.Tree, it buffers Output Tuples
// and replays them into a CurveTree through AddOutputs, one call per chunk,
// reporting progress the same way the teacher's collector reports batch
// progress to its callers.

package tree

import (
	"fmt"

	"github.com/certen-labs/curvetree/pkg/output"
	"github.com/certen-labs/curvetree/pkg/storage"
)

// ProgressFunc is invoked periodically during Finalize with the number of
// tuples inserted so far and the total buffered.
type ProgressFunc func(inserted, total int)

// CurveTreeBuilder batches Output Tuples for a one-shot bulk insertion —
// e.g. reconstructing a tree from a snapshot of outputs pulled from
// pkg/collaborators.OutputSource. Each chunk is committed as its own
// AddOutputs batch, so a failure in a later chunk leaves the earlier
// chunks inserted.
type CurveTreeBuilder struct {
	cfg      *Config
	buffer   []output.Tuple
	progress ProgressFunc
	chunk    int
}

// NewBuilder constructs a builder targeting cfg. chunkSize controls how
// many outputs are inserted per progress callback (and per underlying
// AddOutputs call); pass 0 to insert everything in one call with a
// single trailing progress report.
func NewBuilder(cfg *Config, chunkSize int) *CurveTreeBuilder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &CurveTreeBuilder{cfg: cfg, chunk: chunkSize}
}

// SetProgressCallback registers fn to receive progress updates during
// Finalize.
func (b *CurveTreeBuilder) SetProgressCallback(fn ProgressFunc) {
	b.progress = fn
}

// Add buffers a single tuple.
func (b *CurveTreeBuilder) Add(tup output.Tuple) error {
	if !tup.IsValid() {
		return output.ErrInvalidTuple
	}
	b.buffer = append(b.buffer, tup)
	return nil
}

// AddBatch buffers tups in order.
func (b *CurveTreeBuilder) AddBatch(tups []output.Tuple) error {
	for _, t := range tups {
		if err := b.Add(t); err != nil {
			return err
		}
	}
	return nil
}

// Buffered returns the number of tuples queued so far.
func (b *CurveTreeBuilder) Buffered() int {
	return len(b.buffer)
}

// Finalize inserts every buffered tuple into a fresh CurveTree over
// store, in chunks, reporting progress between chunks, and returns the
// resulting tree.
func (b *CurveTreeBuilder) Finalize(store storage.Store) (*CurveTree, error) {
	t, err := New(store, b.cfg)
	if err != nil {
		return nil, fmt.Errorf("tree: builder finalize: %w", err)
	}

	chunk := b.chunk
	if chunk <= 0 {
		chunk = len(b.buffer)
		if chunk == 0 {
			chunk = 1
		}
	}

	total := len(b.buffer)
	for start := 0; start < total; start += chunk {
		end := start + chunk
		if end > total {
			end = total
		}
		if _, err := t.AddOutputs(b.buffer[start:end]); err != nil {
			return nil, fmt.Errorf("tree: builder finalize chunk [%d:%d): %w", start, end, err)
		}
		if b.progress != nil {
			b.progress(end, total)
		}
	}

	return t, nil
}
