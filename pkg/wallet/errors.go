// Copyright 2025 Certen Labs

package wallet

import "errors"

var (
	// ErrInsufficientFunds is returned by SelectInputs when no subset of
	// spendable records reaches the requested amount.
	ErrInsufficientFunds = errors.New("wallet: insufficient spendable funds")

	// ErrTreeMissingLeaf is returned when a record's leaf index has no
	// corresponding branch in the tree (the output was never inserted,
	// or the tree and wallet have drifted out of sync).
	ErrTreeMissingLeaf = errors.New("wallet: leaf index not present in tree")

	// ErrStaleOutput is returned by BuildMembershipWitness when the
	// target record is marked spent, including the case where a
	// concurrent MarkSpent raced the witness build to completion.
	ErrStaleOutput = errors.New("wallet: output spent during witness construction")

	// ErrDuplicateOutput is returned by AddOutput when a record already
	// exists at the given outpoint.
	ErrDuplicateOutput = errors.New("wallet: output already tracked at this outpoint")

	// ErrKeyImageMismatch is returned when a record's key-image base does
	// not equal hash_to_point(O), the relation every valid output must
	// satisfy. A record failing this check cannot be spent.
	ErrKeyImageMismatch = errors.New("wallet: key-image base does not match one-time address")

	// ErrInvalidCommitment is returned by AddOutput when a record's
	// amount and blinding scalar do not reconstruct its tuple's
	// commitment C. The wallet never tracks an output it cannot later
	// prove it owns the opening of.
	ErrInvalidCommitment = errors.New("wallet: amount/blinding do not match commitment C")
)
