// Copyright 2025 Certen Labs

package tree

import "errors"

var (
	// ErrTreeFull is returned when an insertion would exceed MaxDepth.
	ErrTreeFull = errors.New("curve tree: at maximum depth")
	// ErrOutOfRange is returned by operations addressing an output index
	// at or beyond the current output count.
	ErrOutOfRange = errors.New("curve tree: index out of range")
	// ErrIntegrityFailure is returned by VerifyIntegrity when the
	// persisted state does not match a from-scratch replay. Load does not
	// return it: on a metadata mismatch Load rebuilds instead.
	ErrIntegrityFailure = errors.New("curve tree: persisted state failed integrity verification")
	// ErrMissingSibling is returned when a branch extraction or cascade
	// finds a gap in otherwise append-only node storage; it signals
	// storage corruption, never a caller error.
	ErrMissingSibling = errors.New("curve tree: missing sibling node in storage")
)
