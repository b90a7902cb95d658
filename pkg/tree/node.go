// Copyright 2025 Certen Labs

package tree

import (
	"fmt"

	"github.com/certen-labs/curvetree/pkg/group"
)

// pointFromHash decodes a stored node's raw hash bytes. A decode failure
// means the backing store handed back something that was never written
// by this package.
func pointFromHash(h [32]byte) (group.Point, error) {
	p, err := group.PointFromCanonicalBytes(h[:])
	if err != nil {
		return group.Point{}, fmt.Errorf("tree: decode node hash: %w", err)
	}
	return p, nil
}
