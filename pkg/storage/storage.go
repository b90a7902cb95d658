// Copyright 2025 Certen Labs
//
// Package storage is the persistent key-value layer the curve tree is
// built over. It exposes three name-spaces (nodes, outputs, metadata)
// behind a single Store interface, with two concrete backends: Memory
// (volatile, for tests and cold-sync builds) and Durable (CometBFT's
// embedded key-value store).
//
// The on-disk key/value layout below is the external compatibility
// surface described in spec §6 and is bit-exact across both backends.

package storage

import (
	"encoding/binary"

	"github.com/certen-labs/curvetree/pkg/output"
)

const (
	nodePrefix     byte = 'N'
	outputPrefix   byte = 'O'
	metadataPrefix byte = 'M'

	// NodeValueSize is the encoded size of a Node: a 32-byte point plus
	// an 8-byte little-endian child count.
	NodeValueSize = 32 + 8
)

// Index addresses a single node: (layer, index). Layer 0 is the
// leaf-commitment layer.
type Index struct {
	Layer uint32
	Index uint64
}

// Node is one authenticated tree node: its committed hash and how many
// children are currently populated underneath it.
type Node struct {
	Hash       [32]byte
	ChildCount uint64
}

// EncodeNodeKey produces the 13-byte on-disk key for a node:
// 'N' || layer_be_u32 || index_be_u64.
func EncodeNodeKey(idx Index) []byte {
	key := make([]byte, 1+4+8)
	key[0] = nodePrefix
	binary.BigEndian.PutUint32(key[1:5], idx.Layer)
	binary.BigEndian.PutUint64(key[5:13], idx.Index)
	return key
}

// EncodeOutputKey produces the 9-byte on-disk key for a leaf output:
// 'O' || index_be_u64.
func EncodeOutputKey(index uint64) []byte {
	key := make([]byte, 1+8)
	key[0] = outputPrefix
	binary.BigEndian.PutUint64(key[1:9], index)
	return key
}

// EncodeMetadataKey produces the on-disk key for a metadata entry:
// 'M' || ascii_key.
func EncodeMetadataKey(key string) []byte {
	out := make([]byte, 1+len(key))
	out[0] = metadataPrefix
	copy(out[1:], key)
	return out
}

// EncodeNodeValue packs a Node into its 40-byte wire form: point(32) ||
// child_count_le(8).
func EncodeNodeValue(n Node) []byte {
	out := make([]byte, NodeValueSize)
	copy(out[:32], n.Hash[:])
	binary.LittleEndian.PutUint64(out[32:40], n.ChildCount)
	return out
}

// DecodeNodeValue unpacks a 40-byte node value.
func DecodeNodeValue(b []byte) (Node, bool) {
	if len(b) != NodeValueSize {
		return Node{}, false
	}
	var n Node
	copy(n.Hash[:], b[:32])
	n.ChildCount = binary.LittleEndian.Uint64(b[32:40])
	return n, true
}

// Store is the abstract persistence layer a CurveTree is built over.
// Every method is safe for concurrent use: implementations serialize
// access with an internal mutex.
type Store interface {
	// StoreNode upserts a node. Idempotent.
	StoreNode(idx Index, node Node) error
	// GetNode returns the current node value, or ok == false if absent.
	GetNode(idx Index) (node Node, ok bool, err error)
	// DeleteNode removes a node if present, reporting whether it existed.
	DeleteNode(idx Index) (existed bool, err error)

	// StoreOutput appends or overwrites the tuple at a leaf slot.
	StoreOutput(index uint64, tuple output.Tuple) error
	// GetOutput retrieves a leaf, or ok == false if absent.
	GetOutput(index uint64) (tuple output.Tuple, ok bool, err error)
	// GetOutputCount returns the number of stored leaves.
	GetOutputCount() (uint64, error)

	// StoreMetadata / GetMetadata hold free-form bytes keyed by an
	// arbitrary string (depth, root cache, schema version, ...).
	StoreMetadata(key string, value []byte) error
	GetMetadata(key string) (value []byte, ok bool, err error)

	// BeginBatch opens a buffered mutation scope. At most one batch may
	// be open at a time per handle; a second call before Commit/Abort
	// returns ErrBatchConflict.
	BeginBatch() error
	// CommitBatch atomically applies everything buffered since
	// BeginBatch.
	CommitBatch() error
	// AbortBatch discards everything buffered since BeginBatch.
	AbortBatch() error

	// Sync forces durability of all previously committed writes.
	Sync() error

	// Close releases any underlying resources. A batch left open is
	// aborted.
	Close() error
}
