// Copyright 2025 Certen Labs

package storage

import (
	"sync"

	"github.com/certen-labs/curvetree/pkg/output"
)

// Memory is a volatile, in-process Store backed by plain Go maps. It is
// used for tests, the CurveTreeBuilder's cold-sync buffering, and any
// deployment that does not need restart durability.
type Memory struct {
	mu sync.Mutex

	nodes    map[Index]Node
	outputs  map[uint64]output.Tuple
	metadata map[string][]byte

	outputCount uint64

	batch *memoryBatch
	closed bool
}

type memoryBatch struct {
	nodes       map[Index]*Node // nil value means delete
	outputs     map[uint64]output.Tuple
	metadata    map[string][]byte
	outputDelta int64
}

// NewMemory constructs an empty volatile store.
func NewMemory() *Memory {
	return &Memory{
		nodes:    make(map[Index]Node),
		outputs:  make(map[uint64]output.Tuple),
		metadata: make(map[string][]byte),
	}
}

func (m *Memory) StoreNode(idx Index, node Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.batch != nil {
		m.batch.nodes[idx] = &node
		return nil
	}
	m.nodes[idx] = node
	return nil
}

func (m *Memory) GetNode(idx Index) (Node, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Node{}, false, ErrClosed
	}
	if m.batch != nil {
		if n, ok := m.batch.nodes[idx]; ok {
			if n == nil {
				return Node{}, false, nil
			}
			return *n, true, nil
		}
	}
	n, ok := m.nodes[idx]
	return n, ok, nil
}

func (m *Memory) DeleteNode(idx Index) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	if m.batch != nil {
		_, existedInBase := m.nodes[idx]
		_, existedInBatch := m.batch.nodes[idx]
		existed := existedInBase || existedInBatch
		m.batch.nodes[idx] = nil
		return existed, nil
	}
	_, existed := m.nodes[idx]
	delete(m.nodes, idx)
	return existed, nil
}

func (m *Memory) StoreOutput(index uint64, tuple output.Tuple) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.batch != nil {
		if _, existed := m.outputs[index]; !existed {
			if _, existedInBatch := m.batch.outputs[index]; !existedInBatch {
				m.batch.outputDelta++
			}
		}
		m.batch.outputs[index] = tuple
		return nil
	}
	if _, existed := m.outputs[index]; !existed {
		m.outputCount++
	}
	m.outputs[index] = tuple
	return nil
}

func (m *Memory) GetOutput(index uint64) (output.Tuple, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return output.Tuple{}, false, ErrClosed
	}
	if m.batch != nil {
		if t, ok := m.batch.outputs[index]; ok {
			return t, true, nil
		}
	}
	t, ok := m.outputs[index]
	return t, ok, nil
}

func (m *Memory) GetOutputCount() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	if m.batch != nil {
		return uint64(int64(m.outputCount) + m.batch.outputDelta), nil
	}
	return m.outputCount, nil
}

func (m *Memory) StoreMetadata(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	cp := append([]byte(nil), value...)
	if m.batch != nil {
		m.batch.metadata[key] = cp
		return nil
	}
	m.metadata[key] = cp
	return nil
}

func (m *Memory) GetMetadata(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	if m.batch != nil {
		if v, ok := m.batch.metadata[key]; ok {
			return v, true, nil
		}
	}
	v, ok := m.metadata[key]
	return v, ok, nil
}

func (m *Memory) BeginBatch() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.batch != nil {
		return ErrBatchConflict
	}
	m.batch = &memoryBatch{
		nodes:    make(map[Index]*Node),
		outputs:  make(map[uint64]output.Tuple),
		metadata: make(map[string][]byte),
	}
	return nil
}

func (m *Memory) CommitBatch() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.batch == nil {
		return ErrNoBatch
	}
	for idx, n := range m.batch.nodes {
		if n == nil {
			delete(m.nodes, idx)
			continue
		}
		m.nodes[idx] = *n
	}
	for index, tup := range m.batch.outputs {
		m.outputs[index] = tup
	}
	for key, val := range m.batch.metadata {
		m.metadata[key] = val
	}
	m.outputCount = uint64(int64(m.outputCount) + m.batch.outputDelta)
	m.batch = nil
	return nil
}

func (m *Memory) AbortBatch() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.batch == nil {
		return ErrNoBatch
	}
	m.batch = nil
	return nil
}

func (m *Memory) Sync() error {
	// Volatile by construction; nothing to flush.
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batch != nil {
		m.batch = nil
	}
	m.closed = true
	return nil
}
