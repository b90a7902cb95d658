// Copyright 2025 Certen Labs
//
// Wallet tracking layer: per-wallet bookkeeping of owned leaves, balance
// queries, and deterministic input selection. Grounded on the teacher's
// pkg/accumulate state-tracking structs for the "plain map guarded by one
// mutex" shape; the lock itself is a plain sync.Mutex rather than a
// recursive lock, so no exported method ever calls another exported
// method while still holding w.mu — each acquires, does its own map
// work, and releases before calling out (e.g. to the tree).

package wallet

import (
	"sort"
	"sync"
	"time"

	"github.com/certen-labs/curvetree/pkg/group"
	"github.com/certen-labs/curvetree/pkg/tree"
)

// WalletTracking tracks which curve-tree leaves belong to one wallet, in
// what spend state, and derives the witnesses needed to spend them. The
// global lock order for any operation touching both a wallet and a tree
// is wallet -> tree -> storage; WalletTracking never holds its own lock
// while blocked on a tree call that could, in turn, block on storage.
type WalletTracking struct {
	mu sync.Mutex

	tree *tree.CurveTree

	records     map[Outpoint]*WalletOutputRecord
	keyImages   map[[32]byte]Outpoint
	chainHeight uint64
}

// NewTracking constructs an empty wallet tracking layer bound to t. t may
// be nil for tests that only exercise balance/selection bookkeeping.
func NewTracking(t *tree.CurveTree) *WalletTracking {
	return &WalletTracking{
		tree:      t,
		records:   make(map[Outpoint]*WalletOutputRecord),
		keyImages: make(map[[32]byte]Outpoint),
	}
}

// SetChainHeight records the current chain tip, used to compute
// confirmation counts for SpendableBalance and SelectInputs.
func (w *WalletTracking) SetChainHeight(height uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chainHeight = height
}

// AddOutput begins tracking rec, deriving rec.Outpoint from rec.Tuple.O
// when left zero. Returns ErrDuplicateOutput if a record already exists
// at that outpoint, or ErrInvalidCommitment if rec.Amount and
// rec.BlindingScalar do not reconstruct rec.Tuple.C.
func (w *WalletTracking) AddOutput(rec WalletOutputRecord) error {
	if !commitmentMatches(rec) {
		return ErrInvalidCommitment
	}

	cp := rec
	if cp.Outpoint == (Outpoint{}) {
		cp.Outpoint = DeriveOutpoint(cp.Tuple)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.records[cp.Outpoint]; exists {
		return ErrDuplicateOutput
	}
	if cp.DiscoveredAt == 0 {
		cp.DiscoveredAt = time.Now().Unix()
	}
	w.records[cp.Outpoint] = &cp
	return nil
}

// HaveOutput reports whether a record is tracked at op.
func (w *WalletTracking) HaveOutput(op Outpoint) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.records[op]
	return ok
}

// GetOutput returns a copy of the tracked record at op, if any.
func (w *WalletTracking) GetOutput(op Outpoint) (WalletOutputRecord, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec, ok := w.records[op]
	if !ok {
		return WalletOutputRecord{}, false
	}
	return *rec, true
}

// MarkSpent flips the record at op to spent and records the spending
// transaction hash and this output's key image. It is idempotent:
// calling it again on an already-spent record is a no-op. Returns
// ErrTreeMissingLeaf if no record is tracked at op, or
// ErrKeyImageMismatch if the record's I does not match hash_to_point(O).
func (w *WalletTracking) MarkSpent(op Outpoint, spendingTx [32]byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec, ok := w.records[op]
	if !ok {
		return ErrTreeMissingLeaf
	}
	if rec.Spent {
		return nil
	}

	keyImage, err := deriveKeyImage(*rec)
	if err != nil {
		return err
	}

	rec.Spent = true
	rec.SpendingTx = spendingTx
	rec.KeyImageHash = keyImage
	w.keyImages[keyImage.Bytes()] = op
	return nil
}

// KeyImageSeen reports whether image is the key image of some output
// this wallet has already marked spent.
func (w *WalletTracking) KeyImageSeen(image group.Scalar) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.keyImages[image.Bytes()]
	return ok
}

// Balance returns the total amount of every tracked, unspent record,
// regardless of confirmation depth.
func (w *WalletTracking) Balance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var total uint64
	for _, r := range w.records {
		if !r.Spent {
			total += r.Amount
		}
	}
	return total
}

// SpendableBalance returns the total amount of unspent records with at
// least minConfirmations confirmations as of the last SetChainHeight.
func (w *WalletTracking) SpendableBalance(minConfirmations uint64) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var total uint64
	for _, r := range w.records {
		if r.Spent {
			continue
		}
		if w.confirmations(r) >= minConfirmations {
			total += r.Amount
		}
	}
	return total
}

// PendingBalance returns the total amount of unspent records that have
// not yet confirmed in a block.
func (w *WalletTracking) PendingBalance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var total uint64
	for _, r := range w.records {
		if !r.Spent && r.Height == 0 {
			total += r.Amount
		}
	}
	return total
}

func (w *WalletTracking) confirmations(r *WalletOutputRecord) uint64 {
	if r.Height == 0 || w.chainHeight < r.Height {
		return 0
	}
	return w.chainHeight - r.Height + 1
}

// SelectInputs picks a deterministic subset of spendable records (unspent,
// at least minConfirmations deep) whose amounts sum to at least
// targetAmount. Candidates are sorted by amount descending, ties broken
// by leaf index ascending, then taken greedily until the target is met.
// Returns ErrInsufficientFunds if no such subset exists.
func (w *WalletTracking) SelectInputs(targetAmount, minConfirmations uint64) ([]WalletOutputRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var spendable []WalletOutputRecord
	for _, r := range w.records {
		if r.Spent {
			continue
		}
		if w.confirmations(r) < minConfirmations {
			continue
		}
		spendable = append(spendable, *r)
	}
	sort.Slice(spendable, func(i, j int) bool {
		if spendable[i].Amount != spendable[j].Amount {
			return spendable[i].Amount > spendable[j].Amount
		}
		return spendable[i].LeafIndex < spendable[j].LeafIndex
	})

	var selected []WalletOutputRecord
	var sum uint64
	for _, r := range spendable {
		selected = append(selected, r)
		sum += r.Amount
		if sum >= targetAmount {
			return selected, nil
		}
	}
	return nil, ErrInsufficientFunds
}
