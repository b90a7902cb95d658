// Copyright 2025 Certen Labs

package storage

import "fmt"

// Kind selects a Store backend. Callers branch on Kind only at
// construction time; the resulting Store is used identically afterward.
type Kind string

const (
	// KindMemory is the volatile, in-process backend.
	KindMemory Kind = "memory"
	// KindDurable is the CometBFT dbm.DB-backed embedded store.
	KindDurable Kind = "durable"
)

// Open constructs a Store of the given kind. path and name are only
// meaningful for KindDurable: name is the database's logical name,
// path is the directory it lives under.
func Open(kind Kind, name, path string) (Store, error) {
	switch kind {
	case KindMemory:
		return NewMemory(), nil
	case KindDurable:
		return NewDurable(name, path)
	default:
		return nil, fmt.Errorf("storage: unknown backend kind %q", kind)
	}
}
