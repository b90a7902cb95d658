// Copyright 2025 Certen Labs

package wallet

import (
	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/output"
)

// Outpoint is the wallet's own identifier for an owned output, distinct
// from its position in the curve tree. A wallet recognizes an output
// (and can derive its Outpoint) from scan data alone, before that output
// has necessarily been located at a leaf index in this tree; the tree
// remains the source of truth for (leaf_index -> tuple), the wallet the
// source of truth for (outpoint -> leaf_index, secret scalar).
type Outpoint [32]byte

// WalletOutputRecord is everything the wallet keeps about one owned leaf.
// The tree owns (leaf_index -> tuple); the wallet owns (outpoint ->
// leaf_index, spend scalar, amount, spend state), and the two
// communicate only through plain value types such as this one.
type WalletOutputRecord struct {
	// Outpoint is the wallet's identifier for this output, independent of
	// where the tree ends up placing it. AddOutput derives it from the
	// tuple's one-time address O when left zero.
	Outpoint Outpoint

	// LeafIndex is the output's position in the curve tree: each leaf
	// holds exactly one Output Tuple.
	LeafIndex uint64

	// Tuple is the (O, I, C) triple as it was inserted into the tree.
	Tuple output.Tuple

	// SpendScalar is the private scalar behind O: O == spendScalar * G.
	// It is also the discrete log used to derive this output's key
	// image once it is spent.
	SpendScalar group.Scalar

	// Amount is the plaintext value of the commitment C, known to the
	// wallet via its view key even though C hides it on-chain.
	Amount uint64

	// BlindingScalar is the blinding factor behind C: C == amount*H +
	// blindingScalar*G, where H is the fixed secondary Pedersen
	// generator. Known to the wallet via its view key.
	BlindingScalar group.Scalar

	// Height is the block height this output confirmed at, or 0 if it
	// is still unconfirmed (seen only in the mempool).
	Height uint64

	// DiscoveredAt is when the wallet's scan first recognized this
	// output as its own, in Unix seconds.
	DiscoveredAt int64

	// Spent is true once a transaction spending this output has been
	// observed.
	Spent bool

	// SpendingTx is the hash of the transaction that spent this output.
	// Meaningful only when Spent is true.
	SpendingTx [32]byte

	// KeyImageHash caches H_scalar(spendScalar * I) once computed, so
	// repeated MarkSpent/KeyImageSeen calls don't re-derive it.
	KeyImageHash group.Scalar
}
