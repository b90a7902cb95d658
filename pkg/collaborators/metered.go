// Copyright 2025 Certen Labs

package collaborators

import (
	"context"

	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/metrics"
	"github.com/certen-labs/curvetree/pkg/wallet"
)

// MeteredProofSink wraps a ProofSink and counts every proof successfully
// submitted through it. It changes no behavior of the wrapped sink; a
// failed SubmitWitness call is not counted.
type MeteredProofSink struct {
	Sink    ProofSink
	Metrics *metrics.Metrics
}

// NewMeteredProofSink wraps sink so each successful SubmitWitness call
// increments m.ProofsSubmitted. m may be nil, in which case the wrapper
// just forwards to sink.
func NewMeteredProofSink(sink ProofSink, m *metrics.Metrics) *MeteredProofSink {
	return &MeteredProofSink{Sink: sink, Metrics: m}
}

// SubmitWitness forwards to the wrapped sink and, on success, increments
// the submitted-proof counter.
func (s *MeteredProofSink) SubmitWitness(ctx context.Context, witness *wallet.MembershipWitness, root group.Point) ([]byte, error) {
	blob, err := s.Sink.SubmitWitness(ctx, witness, root)
	if err != nil {
		return nil, err
	}
	if s.Metrics != nil {
		s.Metrics.ProofsSubmitted.Inc()
	}
	return blob, nil
}
