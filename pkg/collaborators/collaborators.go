// Copyright 2025 Certen Labs
//
// Named interfaces for the components the curve tree shares a process
// boundary with but does not own: the consensus engine that feeds it
// outputs, and the zero-knowledge prover/verifier that consumes the
// branches it produces. Grounded on the teacher's pkg/protocol interface
// style (small, single-purpose traits with one or two methods, defined
// next to their stub implementations rather than in a central registry).

package collaborators

import (
	"context"

	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/output"
	"github.com/certen-labs/curvetree/pkg/wallet"
)

// LeafOutput pairs an Output Tuple with the leaf index the consensus
// engine has assigned it, in canonical block-apply order.
type LeafOutput struct {
	LeafIndex uint64
	Tuple     output.Tuple
}

// OutputSource produces newly-finalized outputs in canonical
// block-apply order. Next blocks until an output is available or ctx is
// canceled, matching the pull-based draining loop the service's
// background ingest goroutine runs.
type OutputSource interface {
	Next(ctx context.Context) (LeafOutput, error)
}

// ProofSink accepts a completed membership witness and the root it was
// built against, and returns an opaque, chain-specific proof blob. The
// curve tree package never inspects the blob's contents.
type ProofSink interface {
	SubmitWitness(ctx context.Context, witness *wallet.MembershipWitness, root group.Point) ([]byte, error)
}

// ProofVerifier checks a previously produced proof blob against a root
// and whatever public inputs the chain's proof system requires.
type ProofVerifier interface {
	VerifyProof(ctx context.Context, blob []byte, root group.Point, publicInputs []byte) (bool, error)
}
