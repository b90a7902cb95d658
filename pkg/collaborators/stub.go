// Copyright 2025 Certen Labs

package collaborators

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/wallet"
)

// ErrExhausted is returned by StaticOutputSource once every buffered
// output has been delivered.
var ErrExhausted = errors.New("collaborators: output source exhausted")

// StaticOutputSource replays a fixed, in-memory slice of outputs in
// order, keeping each output's LeafIndex as given. It is used by tests
// and as the service's default source when no consensus engine is
// attached.
type StaticOutputSource struct {
	mu      sync.Mutex
	outputs []LeafOutput
	pos     int
}

// NewStaticOutputSource builds a source that replays outputs verbatim;
// each entry's LeafIndex is used as-is (callers that just have tuples
// and want sequential indices should set them before constructing this).
func NewStaticOutputSource(outputs []LeafOutput) *StaticOutputSource {
	cp := make([]LeafOutput, len(outputs))
	copy(cp, outputs)
	return &StaticOutputSource{outputs: cp}
}

// Next returns the next buffered output, or ErrExhausted once the slice
// is drained. It also respects ctx cancellation so callers that wrap it
// in a select loop behave the same as they would against a live source.
func (s *StaticOutputSource) Next(ctx context.Context) (LeafOutput, error) {
	select {
	case <-ctx.Done():
		return LeafOutput{}, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.outputs) {
		return LeafOutput{}, ErrExhausted
	}
	out := s.outputs[s.pos]
	s.pos++
	return out, nil
}

// stubProofVersion tags the fixed-shape placeholder blob StubProofSink
// returns, so a StubProofVerifier can distinguish it from a real proof
// produced by an actual prover sharing the same ProofSink interface.
const stubProofVersion = uint32(1)

// stubProofSize is the fixed length of a StubProofSink blob: a 4-byte
// version tag followed by the 32-byte root the witness was built
// against.
const stubProofSize = 4 + group.PointSize

// StubProofSink returns a fixed-shape placeholder blob instead of a real
// zero-knowledge proof, so the rest of the service (submission,
// batching, storage of proof blobs) can be exercised without a prover
// attached. It MUST NOT be used against a production chain.
type StubProofSink struct{}

// SubmitWitness ignores the witness's contents beyond a minimal
// sanity check and returns a deterministic placeholder blob tagging the
// root it was called with.
func (StubProofSink) SubmitWitness(ctx context.Context, witness *wallet.MembershipWitness, root group.Point) ([]byte, error) {
	if witness == nil || witness.Branch == nil {
		return nil, errors.New("collaborators: witness has no branch")
	}
	blob := make([]byte, stubProofSize)
	binary.BigEndian.PutUint32(blob[0:4], stubProofVersion)
	rb := root.Bytes()
	copy(blob[4:], rb[:])
	return blob, nil
}

// StubProofVerifier checks the boundary condition a real verifier
// performs in addition to (not instead of) the zero-knowledge
// arithmetic itself: that the blob was produced for exactly the root
// and public inputs presented, rather than replayed against a
// different one. It performs no actual proof verification and MUST NOT
// be used against a production chain.
type StubProofVerifier struct{}

// VerifyProof reports whether blob was produced by StubProofSink for
// root. When publicInputs is non-empty it is compared byte-for-byte
// against the root as well, matching the binding a real verifier's
// public-input check would enforce.
func (StubProofVerifier) VerifyProof(ctx context.Context, blob []byte, root group.Point, publicInputs []byte) (bool, error) {
	if len(blob) != stubProofSize {
		return false, nil
	}
	if binary.BigEndian.Uint32(blob[0:4]) != stubProofVersion {
		return false, nil
	}
	embedded, err := group.PointFromCanonicalBytes(blob[4:])
	if err != nil {
		return false, err
	}
	if !embedded.Equal(root) {
		return false, nil
	}
	if len(publicInputs) > 0 {
		rb := root.Bytes()
		if len(publicInputs) != len(rb) || string(publicInputs) != string(rb[:]) {
			return false, nil
		}
	}
	return true, nil
}
