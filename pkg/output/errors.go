// Copyright 2025 Certen Labs
//
// Package output provides sentinel errors for output tuple validation.

package output

import "errors"

// Sentinel errors for output tuple operations
var (
	// ErrInvalidTuple is returned when a tuple contains the identity
	// element or otherwise fails IsValid.
	ErrInvalidTuple = errors.New("output tuple contains an identity element")

	// ErrInvalidLength is returned when a serialized tuple is not exactly
	// TupleSize bytes.
	ErrInvalidLength = errors.New("serialized output tuple has the wrong length")
)
