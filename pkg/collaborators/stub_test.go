// Copyright 2025 Certen Labs

package collaborators

import (
	"context"
	"testing"

	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/output"
	"github.com/certen-labs/curvetree/pkg/storage"
	"github.com/certen-labs/curvetree/pkg/tree"
	"github.com/certen-labs/curvetree/pkg/wallet"
)

func TestStaticOutputSourceReplaysInOrderThenExhausts(t *testing.T) {
	tup := output.New(group.HashToPoint([]byte("o")), group.HashToPoint([]byte("i")), group.HashToPoint([]byte("c")))
	src := NewStaticOutputSource([]LeafOutput{
		{LeafIndex: 0, Tuple: tup},
		{LeafIndex: 1, Tuple: tup},
	})

	ctx := context.Background()
	first, err := src.Next(ctx)
	if err != nil || first.LeafIndex != 0 {
		t.Fatalf("first = %+v, %v", first, err)
	}
	second, err := src.Next(ctx)
	if err != nil || second.LeafIndex != 1 {
		t.Fatalf("second = %+v, %v", second, err)
	}
	if _, err := src.Next(ctx); err != ErrExhausted {
		t.Errorf("third call = %v, want ErrExhausted", err)
	}
}

func TestStaticOutputSourceRespectsCancellation(t *testing.T) {
	src := NewStaticOutputSource(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); err != context.Canceled {
		t.Errorf("Next on canceled ctx = %v, want context.Canceled", err)
	}
}

func TestStubProofSinkAndVerifierRoundTrip(t *testing.T) {
	cfg := tree.DefaultConfig()
	tr, err := tree.New(storage.NewMemory(), cfg)
	if err != nil {
		t.Fatalf("tree.New: %v", err)
	}
	spend := group.HashToScalar("stub-test", []byte("seed"))
	o := group.ScalarBaseMult(spend)
	ob := o.Bytes()
	i := group.HashToPoint(ob[:])
	blinding := group.HashToScalar("stub-test-blinding", []byte("seed"))
	c := group.HashToPoint([]byte("curvetree-wallet-blind-h")).ScalarMult(group.ScalarFromUint64(1)).Add(group.BasePoint().ScalarMult(blinding))
	tup := output.New(o, i, c)
	idx, err := tr.AddOutput(tup)
	if err != nil {
		t.Fatalf("AddOutput: %v", err)
	}

	w := wallet.NewTracking(tr)
	op := wallet.DeriveOutpoint(tup)
	rec := wallet.WalletOutputRecord{Outpoint: op, LeafIndex: idx, Tuple: tup, SpendScalar: spend, BlindingScalar: blinding, Amount: 1}
	if err := w.AddOutput(rec); err != nil {
		t.Fatalf("wallet.AddOutput: %v", err)
	}
	witness, err := w.BuildMembershipWitness(op, [32]byte{})
	if err != nil {
		t.Fatalf("BuildMembershipWitness: %v", err)
	}

	sink := StubProofSink{}
	ctx := context.Background()
	blob, err := sink.SubmitWitness(ctx, witness, tr.GetRoot())
	if err != nil {
		t.Fatalf("SubmitWitness: %v", err)
	}

	verifier := StubProofVerifier{}
	ok, err := verifier.VerifyProof(ctx, blob, tr.GetRoot(), nil)
	if err != nil || !ok {
		t.Fatalf("VerifyProof(matching root) = %v, %v", ok, err)
	}

	wrongRoot := group.HashToPoint([]byte("not the root"))
	ok, err = verifier.VerifyProof(ctx, blob, wrongRoot, nil)
	if err != nil || ok {
		t.Fatalf("VerifyProof(wrong root) = %v, %v, want false", ok, err)
	}
}

func TestStubProofSinkRejectsWitnessWithoutBranch(t *testing.T) {
	sink := StubProofSink{}
	if _, err := sink.SubmitWitness(context.Background(), &wallet.MembershipWitness{}, group.IdentityPoint()); err == nil {
		t.Errorf("expected error for witness with nil branch")
	}
}
