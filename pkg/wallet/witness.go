// Copyright 2025 Certen Labs
//
// Membership witness construction: the wallet's half of a spend. Grounded
// on pkg/anchor_proof/signer.go's AttestationSigner, which builds a
// message and signs it with a held private key; here the "signature" is
// a short spend-and-link (SA+L) proof over pkg/group's Scalar/Point types
// rather than crypto/ed25519, since the link must hold over the same
// curve group the tree's commitments live in, not a detached signature
// scheme.

package wallet

import (
	"errors"
	"fmt"

	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/output"
	"github.com/certen-labs/curvetree/pkg/tree"
)

// blindGeneratorDomain derives the second Pedersen generator H used to
// blind the re-randomized amount commitment.
//
// TEST CONSTANT: a real deployment must pull this from the chain
// specification alongside H_layer and the field-element decomposition.
const blindGeneratorDomain = "curvetree-wallet-blind-h"

const sigChallengeDomain = "curvetree-wallet-sig-challenge"
const keyImageDomain = "curvetree-wallet-key-image"
const outpointDomain = "curvetree-wallet-outpoint"

func blindGenerator() group.Point {
	return group.HashToPoint([]byte(blindGeneratorDomain))
}

// DeriveOutpoint derives a wallet-local identifier for an output from its
// one-time address O, which is unique per output by construction. This
// lets a wallet recognize and key an output from scan data alone, before
// that output's position in the tree is known or relevant.
func DeriveOutpoint(tup output.Tuple) Outpoint {
	ob := tup.O.Bytes()
	return Outpoint(group.HashToScalar(outpointDomain, ob[:]).Bytes())
}

// commitmentMatches reports whether C == amount*H + blinding*G, the
// Pedersen-commitment invariant every genuinely-owned output must satisfy.
func commitmentMatches(rec WalletOutputRecord) bool {
	h := blindGenerator()
	g := group.BasePoint()
	expected := h.ScalarMult(group.ScalarFromUint64(rec.Amount)).Add(g.ScalarMult(rec.BlindingScalar))
	return rec.Tuple.C.Equal(expected)
}

// PseudoOutput is the re-randomized, single-use commitment a membership
// witness proves knowledge of a spend for, without revealing which tree
// leaf it was re-randomized from.
type PseudoOutput struct {
	OPrime group.Point // O + rG
	I      group.Point // unchanged key-image base
	RG     group.Point // rG, exposed so a verifier can recompute the signature challenge
	CPrime group.Point // C + rH
}

// Signature is the short spend-and-link proof binding a PseudoOutput to
// the tree leaf it was derived from, without revealing the spend scalar.
type Signature struct {
	C group.Scalar
	S group.Scalar
}

// MembershipWitness bundles the tree authentication path, the
// re-randomized pseudo-output, and the signature linking them, ready to
// hand to an external full-chain membership prover.
type MembershipWitness struct {
	Branch       *tree.TreeBranch
	PseudoOutput PseudoOutput
	Signature    Signature
}

// deriveKeyImage computes I_spent = spendScalar * I_base and its scalar
// digest, first checking that I_base equals hash_to_point(O) — the
// relation every valid output must satisfy. A record that fails this
// check was never a valid output and cannot be spent.
func deriveKeyImage(rec WalletOutputRecord) (group.Scalar, error) {
	oBytes := rec.Tuple.O.Bytes()
	expectedBase := group.HashToPoint(oBytes[:])
	if !rec.Tuple.I.Equal(expectedBase) {
		return group.Scalar{}, ErrKeyImageMismatch
	}
	iSpent := rec.Tuple.I.ScalarMult(rec.SpendScalar)
	b := iSpent.Bytes()
	return group.HashToScalar(keyImageDomain, b[:]), nil
}

// BuildMembershipWitness derives a fresh re-randomizer r, re-randomizes
// the record's output as (O+rG, I, rG, C+rH), fetches the current branch
// for the record's leaf index from the tree, and signs the link between
// O and the revealed rG with the record's spend scalar. It refuses to run
// against a record that is spent, or that becomes spent while the branch
// is being fetched.
func (w *WalletTracking) BuildMembershipWitness(op Outpoint, messageHash [32]byte) (*MembershipWitness, error) {
	w.mu.Lock()
	rec, ok := w.records[op]
	if !ok {
		w.mu.Unlock()
		return nil, ErrTreeMissingLeaf
	}
	if rec.Spent {
		w.mu.Unlock()
		return nil, ErrStaleOutput
	}
	recCopy := *rec
	w.mu.Unlock()

	if _, err := deriveKeyImage(recCopy); err != nil {
		return nil, err
	}

	branch, err := w.tree.GetBranch(recCopy.LeafIndex)
	if errors.Is(err, tree.ErrOutOfRange) {
		return nil, ErrTreeMissingLeaf
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: fetch branch: %w", err)
	}

	w.mu.Lock()
	rec2, stillTracked := w.records[op]
	stillUnspent := stillTracked && !rec2.Spent
	w.mu.Unlock()
	if !stillUnspent {
		return nil, ErrStaleOutput
	}

	r, err := group.RandomScalar()
	if err != nil {
		return nil, fmt.Errorf("wallet: derive re-randomizer: %w", err)
	}

	g := group.BasePoint()
	rG := g.ScalarMult(r)
	oPrime := recCopy.Tuple.O.Add(rG)
	cPrime := recCopy.Tuple.C.Add(blindGenerator().ScalarMult(r))

	rgBytes := rG.Bytes()
	iBytes := recCopy.Tuple.I.Bytes()
	oPrimeBytes := oPrime.Bytes()
	c := group.HashToScalar(sigChallengeDomain, rgBytes[:], iBytes[:], oPrimeBytes[:], messageHash[:])
	s := r.Add(c.Mul(recCopy.SpendScalar))

	return &MembershipWitness{
		Branch: branch,
		PseudoOutput: PseudoOutput{
			OPrime: oPrime,
			I:      recCopy.Tuple.I,
			RG:     rG,
			CPrime: cPrime,
		},
		Signature: Signature{C: c, S: s},
	}, nil
}

// VerifySignature checks s*G == rG + c*O, the relation a membership
// witness's signature must satisfy against the original (not
// re-randomized) one-time address O. Exposed for callers that hold O
// independently of the wallet, e.g. tests and the external verifier.
func VerifySignature(sig Signature, rG, o group.Point) bool {
	lhs := group.ScalarBaseMult(sig.S)
	expected := rG.Add(o.ScalarMult(sig.C))
	return lhs.Equal(expected)
}
