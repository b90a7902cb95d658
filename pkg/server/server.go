// Copyright 2025 Certen Labs
//
// HTTP surface wired to the tree and wallet. Grounded on the teacher's
// pkg/server handler style (one struct per handler group holding its
// dependencies, a constructor, JSON error bodies written by writeError),
// trimmed down to the read-only endpoints this service
// actually exposes — there is no ledger/anchor/proof-batch state here,
// just the tree and a wallet.

package server

import (
	"encoding/json"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certen-labs/curvetree/pkg/metrics"
	"github.com/certen-labs/curvetree/pkg/tree"
	"github.com/certen-labs/curvetree/pkg/wallet"
)

// Handlers holds the dependencies every endpoint needs.
type Handlers struct {
	Tree    *tree.CurveTree
	Wallet  *wallet.WalletTracking
	Metrics *metrics.Metrics
}

// New constructs Handlers wired to t and w. w may be nil; /wallet/balance
// then reports 503, matching a service running without a wallet loaded.
// m may be nil; the wallet-balance gauges are simply left unset.
func New(t *tree.CurveTree, w *wallet.WalletTracking, m *metrics.Metrics) *Handlers {
	return &Handlers{Tree: t, Wallet: w, Metrics: m}
}

// Mux builds the complete net/http.Handler for the service, in the
// idiom of the teacher's root main.go wiring, with request-ID logging
// applied to every route.
func (h *Handlers) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/tree/info", h.HandleTreeInfo)
	mux.HandleFunc("/tree/branch/", h.HandleTreeBranch)
	mux.HandleFunc("/wallet/balance", h.HandleWalletBalance)
	mux.Handle("/metrics", promhttp.Handler())
	return WithRequestID(mux)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleTreeInfo handles GET /tree/info, mirroring the CLI's tree-info
// output.
func (h *Handlers) HandleTreeInfo(w http.ResponseWriter, r *http.Request) {
	if h.Tree == nil {
		writeError(w, http.StatusServiceUnavailable, "tree not available")
		return
	}
	count, err := h.Tree.OutputCount()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	root := h.Tree.GetRoot().Bytes()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"output_count": count,
		"depth":        h.Tree.Depth(),
		"root_hex":     hex.EncodeToString(root[:]),
		"state":        h.Tree.State().String(),
	})
}

// HandleTreeBranch handles GET /tree/branch/{index}.
func (h *Handlers) HandleTreeBranch(w http.ResponseWriter, r *http.Request) {
	if h.Tree == nil {
		writeError(w, http.StatusServiceUnavailable, "tree not available")
		return
	}
	idxStr := strings.TrimPrefix(r.URL.Path, "/tree/branch/")
	idx, err := strconv.ParseUint(idxStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid leaf index")
		return
	}

	branch, err := h.Tree.GetBranch(idx)
	if errors.Is(err, tree.ErrOutOfRange) {
		writeError(w, http.StatusNotFound, "leaf index out of range")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tup, ok, err := h.Tree.GetOutput(idx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "output not found")
		return
	}
	serialized := tup.Serialize()

	layers := make([][]string, len(branch.Layers))
	for i, layer := range branch.Layers {
		siblings := make([]string, len(layer))
		for j, s := range layer {
			b := s.Bytes()
			siblings[j] = hex.EncodeToString(b[:])
		}
		layers[i] = siblings
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leaf_index": branch.LeafIndex,
		"output_hex": hex.EncodeToString(serialized[:]),
		"layers":     layers,
		"root_hex":   hexRoot(h.Tree),
	})
}

func hexRoot(t *tree.CurveTree) string {
	root := t.GetRoot().Bytes()
	return hex.EncodeToString(root[:])
}

// HandleWalletBalance handles GET /wallet/balance.
func (h *Handlers) HandleWalletBalance(w http.ResponseWriter, r *http.Request) {
	if h.Wallet == nil {
		writeError(w, http.StatusServiceUnavailable, "wallet not available")
		return
	}
	balance := h.Wallet.Balance()
	spendable := h.Wallet.SpendableBalance(1)
	pending := h.Wallet.PendingBalance()
	if h.Metrics != nil {
		h.Metrics.SetWalletBalances(balance, spendable, pending)
	}
	writeJSON(w, http.StatusOK, map[string]uint64{
		"balance":           balance,
		"spendable_balance": spendable,
		"pending_balance":   pending,
	})
}
