package ensemble

import (
	"fmt"

	"github.com/DataDog/sketches-go/ddsketch"
	"gonum.org/v1/gonum/stat"

	"github.com/ovland/enkit/internal/errors"
)

// SegmentStats summarizes one segment's linear-space spread across all
// ensemble members.
type SegmentStats struct {
	// Name is the segment label.
	Name string

	// Count is the number of members contributing.
	Count int

	// Basic statistics over the transformed (linear) values.
	Mean float64
	Std  float64
	Min  float64
	Max  float64

	// Percentiles from DDSketch.
	P10 float64
	P50 float64
	P90 float64

	// AtBound is the number of members whose value sits on a bound.
	AtBound int
}

// Stats computes per-segment spread statistics over the transformed
// output of every member. accuracy is the DDSketch relative accuracy;
// values <= 0 default to 1%.
func Stats(e *Ensemble, accuracy float64) ([]SegmentStats, error) {
	if e.Size() == 0 {
		return nil, errors.ErrEmptyEnsemble
	}
	if accuracy <= 0 {
		accuracy = 0.01
	}

	first := e.Member(0)
	segments := first.Len()
	results := make([]SegmentStats, segments)

	// Column-major pass: one sketch and one value vector per segment.
	vals := make([]float64, e.Size())
	for s := 0; s < segments; s++ {
		sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
		if err != nil {
			return nil, fmt.Errorf("create sketch: %w", err)
		}

		lo, hi := first.Bounds(s)
		atBound := 0
		for i, n := range e.Members() {
			v := n.OutputRef()[s]
			vals[i] = v
			if v == lo || v == hi {
				atBound++
			}
			if err := sketch.Add(v); err != nil {
				return nil, fmt.Errorf("segment %q: add value: %w", first.Name(s), err)
			}
		}

		mean, std := stat.MeanStdDev(vals, nil)
		if e.Size() == 1 {
			std = 0
		}

		min, max := vals[0], vals[0]
		for _, v := range vals[1:] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}

		p10, _ := sketch.GetValueAtQuantile(0.10)
		p50, _ := sketch.GetValueAtQuantile(0.50)
		p90, _ := sketch.GetValueAtQuantile(0.90)

		results[s] = SegmentStats{
			Name:    first.Name(s),
			Count:   e.Size(),
			Mean:    mean,
			Std:     std,
			Min:     min,
			Max:     max,
			P10:     p10,
			P50:     p50,
			P90:     p90,
			AtBound: atBound,
		}
	}

	return results, nil
}
