// Copyright 2025 Certen Labs
//
// Package group provides sentinel errors for Ed25519 scalar/point operations.

package group

import "errors"

// Sentinel errors for group operations
var (
	// ErrInvalidEncoding is returned when bytes do not canonically decode to
	// a scalar or point.
	ErrInvalidEncoding = errors.New("invalid canonical encoding")

	// ErrIdentityElement is returned when an identity point appears where
	// the caller has asked for a non-identity guarantee.
	ErrIdentityElement = errors.New("unexpected identity element")
)
