package faultmult

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// SelfTest exercises the full node lifecycle against fixed fixtures:
// allocate, set_data, serialize/deserialize round-trip, mean, truncate,
// and a write/read round-trip through a temporary directory. Intended for
// development and CI diagnostics, not for runtime use.
func SelfTest() error {
	cfg := &Config{
		Transform: "exp",
		Faults: []Fault{
			{Name: "F1", Min: 0, Max: 2},
			{Name: "F2", Min: 0, Max: 2},
			{Name: "F3", Min: 0, Max: 2},
		},
	}

	node, err := New(cfg)
	if err != nil {
		return fmt.Errorf("selftest alloc: %w", err)
	}

	fixture := []float64{0, 0, 5}
	if err := node.SetData(fixture); err != nil {
		return fmt.Errorf("selftest set_data: %w", err)
	}

	// Serialize/deserialize round-trip through a shared buffer slice.
	buf := make([]float64, 8)
	if err := node.Serialize(buf, 2); err != nil {
		return fmt.Errorf("selftest serialize: %w", err)
	}
	fresh, err := New(cfg)
	if err != nil {
		return fmt.Errorf("selftest alloc fresh: %w", err)
	}
	if err := fresh.Deserialize(buf, 2); err != nil {
		return fmt.Errorf("selftest deserialize: %w", err)
	}
	for i, v := range fresh.DataRef() {
		if v != fixture[i] {
			return fmt.Errorf("selftest round-trip: segment %d = %g, want %g", i, v, fixture[i])
		}
	}

	// Output transform and truncation on the canonical fixture:
	// exp(5) clamps to the ceiling of 2, so the post-truncate value is ln(2).
	out := fresh.OutputData()
	if out[0] != 1 || out[1] != 1 || out[2] != 2 {
		return fmt.Errorf("selftest output: got %v, want [1 1 2]", out)
	}
	if clipped := fresh.Truncate(); clipped != 1 {
		return fmt.Errorf("selftest truncate: clipped %d segments, want 1", clipped)
	}
	if got := fresh.DataRef()[2]; math.Abs(got-math.Log(2)) > 1e-12 {
		return fmt.Errorf("selftest truncate: segment 2 = %g, want ln(2)", got)
	}

	// Mean of two members.
	other, err := New(cfg)
	if err != nil {
		return fmt.Errorf("selftest alloc other: %w", err)
	}
	if err := other.SetData([]float64{1, 1, 1}); err != nil {
		return fmt.Errorf("selftest set_data other: %w", err)
	}
	mean, err := Mean([]*Node{node, other})
	if err != nil {
		return fmt.Errorf("selftest mean: %w", err)
	}
	want := []float64{0.5, 0.5, 3}
	for i, v := range mean.DataRef() {
		if math.Abs(v-want[i]) > 1e-12 {
			return fmt.Errorf("selftest mean: segment %d = %g, want %g", i, v, want[i])
		}
	}

	// Persistence round-trip.
	dir, err := os.MkdirTemp("", "faultmult-selftest")
	if err != nil {
		return fmt.Errorf("selftest tempdir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "faultmult.ens")
	if err := node.WriteFile(path); err != nil {
		return fmt.Errorf("selftest write: %w", err)
	}
	restored, err := New(cfg)
	if err != nil {
		return fmt.Errorf("selftest alloc restored: %w", err)
	}
	if err := restored.ReadFile(path); err != nil {
		return fmt.Errorf("selftest read: %w", err)
	}
	for i, v := range restored.DataRef() {
		if v != fixture[i] {
			return fmt.Errorf("selftest persistence: segment %d = %g, want %g", i, v, fixture[i])
		}
	}

	return nil
}
