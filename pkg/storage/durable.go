// Copyright 2025 Certen Labs
//
// Durable is the embedded-key-value-store backend for Store, built on
// CometBFT's dbm.DB — the same persistence dependency the teacher uses
// for ABCI application state (see the teacher's pkg/kvdb adapter, which
// this package generalizes from a single free-form KV interface into the
// three name-spaced operations spec §4.3 requires).

package storage

import (
	"sync"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/certen-labs/curvetree/pkg/output"
)

// outputCountKey is a housekeeping metadata entry maintaining a running
// count of stored leaves, so GetOutputCount never needs a prefix scan.
const outputCountKey = "__output_count"

// syncFenceKey is written with SetSync by Sync to force the backend to
// flush its write-ahead log, providing the durability fence spec §4.3
// asks for.
const syncFenceKey = "__sync_fence"

// Durable wraps a CometBFT dbm.DB with the node/output/metadata
// name-spacing and batch semantics Store requires.
type Durable struct {
	mu sync.Mutex

	db    dbm.DB
	batch *durableBatch

	outputCount uint64
	closed      bool
}

// durableBatch mirrors memoryBatch's deferred-count-delta pattern: the
// dbm.Batch write-ahead-log doesn't let us re-read what a batch already
// holds, so newOutputs tracks which indices this batch has newly stored
// (as opposed to overwritten), and outputDelta only folds into
// d.outputCount once CommitBatch actually succeeds. Before that point an
// abort leaves d.outputCount untouched, matching what's actually
// persisted.
type durableBatch struct {
	batch       dbm.Batch
	outputDelta int64
	newOutputs  map[uint64]bool
}

// NewDurable opens (or creates) a GoLevelDB-backed store at dir, named
// name. The caller is responsible for calling Close.
func NewDurable(name, dir string) (*Durable, error) {
	db, err := dbm.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, wrap("open", err)
	}
	return newDurableFromDB(db)
}

// NewDurableFromDB adapts an already-open dbm.DB, letting callers plug in
// any CometBFT-compatible backend (GoLevelDB, RocksDB, BoltDB, ...)
// without this package needing to know which.
func NewDurableFromDB(db dbm.DB) (*Durable, error) {
	return newDurableFromDB(db)
}

func newDurableFromDB(db dbm.DB) (*Durable, error) {
	d := &Durable{db: db}
	count, err := d.loadOutputCount()
	if err != nil {
		return nil, err
	}
	d.outputCount = count
	return d, nil
}

func (d *Durable) loadOutputCount() (uint64, error) {
	raw, err := d.db.Get(EncodeMetadataKey(outputCountKey))
	if err != nil {
		return 0, wrap("get output count", err)
	}
	if raw == nil {
		return 0, nil
	}
	if len(raw) != 8 {
		return 0, nil
	}
	return decodeCount(raw), nil
}

// dbmSetter is the minimal Set/Delete surface both dbm.DB and dbm.Batch
// satisfy, letting writes target either the live DB or the open batch
// without branching at every call site.
type dbmSetter interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

func (d *Durable) StoreNode(idx Index, node Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	w := d.setter()
	if err := w.Set(EncodeNodeKey(idx), EncodeNodeValue(node)); err != nil {
		return wrap("store node", err)
	}
	return nil
}

func (d *Durable) GetNode(idx Index) (Node, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return Node{}, false, ErrClosed
	}
	raw, err := d.db.Get(EncodeNodeKey(idx))
	if err != nil {
		return Node{}, false, wrap("get node", err)
	}
	if raw == nil {
		return Node{}, false, nil
	}
	n, ok := DecodeNodeValue(raw)
	return n, ok, nil
}

func (d *Durable) DeleteNode(idx Index) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false, ErrClosed
	}
	existed, err := d.db.Has(EncodeNodeKey(idx))
	if err != nil {
		return false, wrap("has node", err)
	}
	if err := d.setter().Delete(EncodeNodeKey(idx)); err != nil {
		return false, wrap("delete node", err)
	}
	return existed, nil
}

func (d *Durable) StoreOutput(index uint64, tuple output.Tuple) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	existed, err := d.db.Has(EncodeOutputKey(index))
	if err != nil {
		return wrap("has output", err)
	}
	wire := tuple.Serialize()
	if err := d.setter().Set(EncodeOutputKey(index), wire[:]); err != nil {
		return wrap("store output", err)
	}
	if existed {
		return nil
	}
	if d.batch != nil {
		if !d.batch.newOutputs[index] {
			d.batch.newOutputs[index] = true
			d.batch.outputDelta++
		}
		return nil
	}
	d.outputCount++
	if err := d.db.Set(EncodeMetadataKey(outputCountKey), encodeCount(d.outputCount)); err != nil {
		return wrap("store output count", err)
	}
	return nil
}

func (d *Durable) GetOutput(index uint64) (output.Tuple, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return output.Tuple{}, false, ErrClosed
	}
	raw, err := d.db.Get(EncodeOutputKey(index))
	if err != nil {
		return output.Tuple{}, false, wrap("get output", err)
	}
	if raw == nil {
		return output.Tuple{}, false, nil
	}
	tup, err := output.Deserialize(raw)
	if err != nil {
		return output.Tuple{}, false, wrap("decode output", err)
	}
	return tup, true, nil
}

func (d *Durable) GetOutputCount() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	if d.batch != nil {
		return uint64(int64(d.outputCount) + d.batch.outputDelta), nil
	}
	return d.outputCount, nil
}

func (d *Durable) StoreMetadata(key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if err := d.setter().Set(EncodeMetadataKey(key), value); err != nil {
		return wrap("store metadata", err)
	}
	return nil
}

func (d *Durable) GetMetadata(key string) ([]byte, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, false, ErrClosed
	}
	raw, err := d.db.Get(EncodeMetadataKey(key))
	if err != nil {
		return nil, false, wrap("get metadata", err)
	}
	if raw == nil {
		return nil, false, nil
	}
	return raw, true, nil
}

func (d *Durable) BeginBatch() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.batch != nil {
		return ErrBatchConflict
	}
	d.batch = &durableBatch{batch: d.db.NewBatch(), newOutputs: make(map[uint64]bool)}
	return nil
}

func (d *Durable) CommitBatch() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.batch == nil {
		return ErrNoBatch
	}
	b := d.batch
	if b.outputDelta != 0 {
		newCount := uint64(int64(d.outputCount) + b.outputDelta)
		if err := b.batch.Set(EncodeMetadataKey(outputCountKey), encodeCount(newCount)); err != nil {
			_ = b.batch.Close()
			d.batch = nil
			return wrap("store output count", err)
		}
	}
	err := b.batch.WriteSync()
	closeErr := b.batch.Close()
	d.batch = nil
	if err != nil {
		return wrap("commit batch", err)
	}
	if closeErr != nil {
		return wrap("close batch", closeErr)
	}
	d.outputCount = uint64(int64(d.outputCount) + b.outputDelta)
	return nil
}

func (d *Durable) AbortBatch() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.batch == nil {
		return ErrNoBatch
	}
	err := d.batch.batch.Close()
	d.batch = nil
	if err != nil {
		return wrap("abort batch", err)
	}
	return nil
}

func (d *Durable) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if err := d.db.SetSync(EncodeMetadataKey(syncFenceKey), []byte{1}); err != nil {
		return wrap("sync", err)
	}
	return nil
}

func (d *Durable) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.batch != nil {
		_ = d.batch.batch.Close()
		d.batch = nil
	}
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.db.Close(); err != nil {
		return wrap("close", err)
	}
	return nil
}

func (d *Durable) setter() dbmSetter {
	if d.batch != nil {
		return d.batch.batch
	}
	return d.db
}

func encodeCount(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func decodeCount(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
