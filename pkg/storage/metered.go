// Copyright 2025 Certen Labs

package storage

import (
	"time"

	"github.com/certen-labs/curvetree/pkg/metrics"
	"github.com/certen-labs/curvetree/pkg/output"
)

// Metered wraps a Store and records the latency of its read, write,
// delete, CommitBatch and Sync calls against m's storage_op_latency_seconds
// histogram, labeled by op name. BeginBatch, AbortBatch and Close are
// forwarded untimed. It adds no behavior of its own; every call is
// forwarded unchanged.
type Metered struct {
	Store
	m *metrics.Metrics
}

// NewMetered wraps store so each timed call observes its latency through m.
// m must not be nil.
func NewMetered(store Store, m *metrics.Metrics) *Metered {
	return &Metered{Store: store, m: m}
}

func (s *Metered) observe(op string, start time.Time) {
	s.m.ObserveStorageOp(op, time.Since(start).Seconds())
}

func (s *Metered) StoreNode(idx Index, node Node) error {
	defer s.observe("store_node", time.Now())
	return s.Store.StoreNode(idx, node)
}

func (s *Metered) GetNode(idx Index) (Node, bool, error) {
	defer s.observe("get_node", time.Now())
	return s.Store.GetNode(idx)
}

func (s *Metered) DeleteNode(idx Index) (bool, error) {
	defer s.observe("delete_node", time.Now())
	return s.Store.DeleteNode(idx)
}

func (s *Metered) StoreOutput(index uint64, tuple output.Tuple) error {
	defer s.observe("store_output", time.Now())
	return s.Store.StoreOutput(index, tuple)
}

func (s *Metered) GetOutput(index uint64) (output.Tuple, bool, error) {
	defer s.observe("get_output", time.Now())
	return s.Store.GetOutput(index)
}

func (s *Metered) GetOutputCount() (uint64, error) {
	defer s.observe("get_output_count", time.Now())
	return s.Store.GetOutputCount()
}

func (s *Metered) StoreMetadata(key string, value []byte) error {
	defer s.observe("store_metadata", time.Now())
	return s.Store.StoreMetadata(key, value)
}

func (s *Metered) GetMetadata(key string) ([]byte, bool, error) {
	defer s.observe("get_metadata", time.Now())
	return s.Store.GetMetadata(key)
}

func (s *Metered) CommitBatch() error {
	defer s.observe("commit_batch", time.Now())
	return s.Store.CommitBatch()
}

func (s *Metered) Sync() error {
	defer s.observe("sync", time.Now())
	return s.Store.Sync()
}
