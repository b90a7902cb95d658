// Copyright 2025 Certen Labs

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistersAndUpdatesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.OutputsInserted.Add(3)
	m.TreeDepth.Set(2)
	m.ObserveStorageOp("get_node", 0.01)
	m.SetWalletBalances(100, 80, 20)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("expected registered metric families")
	}

	var sawOutputs bool
	for _, fam := range families {
		if fam.GetName() == "curvetree_outputs_inserted_total" {
			sawOutputs = true
			if len(fam.Metric) != 1 || fam.Metric[0].Counter.GetValue() != 3 {
				t.Errorf("outputs_inserted_total = %+v, want 3", fam.Metric)
			}
		}
	}
	if !sawOutputs {
		t.Errorf("curvetree_outputs_inserted_total not found among gathered families")
	}
}
