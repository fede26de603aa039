package ensemble

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ovland/enkit/internal/errors"
	"github.com/ovland/enkit/internal/param/faultmult"
)

func testConfig() *faultmult.Config {
	return &faultmult.Config{
		Transform: "exp",
		Faults: []faultmult.Fault{
			{Name: "F1", Min: 0, Max: 2, PriorMean: 0, PriorStd: 0.5},
			{Name: "F2", Min: 0, Max: 2, PriorMean: 0, PriorStd: 0.5},
			{Name: "F3", Min: 0, Max: 2, PriorMean: 0, PriorStd: 0.5},
		},
	}
}

func TestNew(t *testing.T) {
	e, err := New(faultmult.KindName, testConfig(), 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if e.Size() != 10 {
		t.Errorf("Size = %d, want 10", e.Size())
	}
	if e.SegmentLen() != 3 {
		t.Errorf("SegmentLen = %d, want 3", e.SegmentLen())
	}

	// Members are independent nodes, not shared.
	if err := e.Member(0).SetData([]float64{1, 1, 1}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if e.Member(1).DataRef()[0] != 0 {
		t.Error("members share value storage")
	}
}

func TestNew_Empty(t *testing.T) {
	if _, err := New(faultmult.KindName, testConfig(), 0); !errors.Is(err, errors.ErrEmptyEnsemble) {
		t.Errorf("New size 0 = %v, want ErrEmptyEnsemble", err)
	}
}

func TestInitializeReproducible(t *testing.T) {
	a, _ := New(faultmult.KindName, testConfig(), 5)
	b, _ := New(faultmult.KindName, testConfig(), 5)

	a.Initialize(42)
	b.Initialize(42)

	for i := 0; i < a.Size(); i++ {
		if diff := cmp.Diff(a.Member(i).Data(), b.Member(i).Data()); diff != "" {
			t.Errorf("member %d differs across same-seed runs:\n%s", i, diff)
		}
	}

	// Different members draw different values.
	if cmp.Equal(a.Member(0).Data(), a.Member(1).Data()) {
		t.Error("members 0 and 1 drew identical samples")
	}
}

func TestMean(t *testing.T) {
	e, _ := New(faultmult.KindName, testConfig(), 4)
	for i := 0; i < e.Size(); i++ {
		v := float64(i)
		if err := e.Member(i).SetData([]float64{v, -v, 1}); err != nil {
			t.Fatalf("SetData member %d: %v", i, err)
		}
	}

	mean, err := e.Mean()
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}

	want := []float64{1.5, -1.5, 1}
	for i, v := range mean.DataRef() {
		if math.Abs(v-want[i]) > 1e-12 {
			t.Errorf("mean[%d] = %g, want %g", i, v, want[i])
		}
	}
}

func TestReadWriteAll(t *testing.T) {
	dir := t.TempDir()

	src, _ := New(faultmult.KindName, testConfig(), 8)
	src.Initialize(7)
	if err := src.WriteAll(context.Background(), dir, 4); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	dst, _ := New(faultmult.KindName, testConfig(), 8)
	if err := dst.ReadAll(context.Background(), dir, 4); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}

	for i := 0; i < src.Size(); i++ {
		if diff := cmp.Diff(src.Member(i).Data(), dst.Member(i).Data()); diff != "" {
			t.Errorf("member %d round-trip mismatch:\n%s", i, diff)
		}
	}
}

func TestReadAll_Missing(t *testing.T) {
	e, _ := New(faultmult.KindName, testConfig(), 3)
	err := e.ReadAll(context.Background(), t.TempDir(), 0)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("ReadAll empty dir = %v, want ErrNotFound", err)
	}
}

func TestMatrixGatherScatter(t *testing.T) {
	e, _ := New(faultmult.KindName, testConfig(), 4)
	e.Initialize(3)

	// Reserve room for another parameter block before this one.
	layout := NewLayout()
	layout.Add("other", 5)
	offset := layout.Add(faultmult.KindName, e.SegmentLen())

	m, err := NewMatrix(e.Size(), layout.Width())
	if err != nil {
		t.Fatalf("NewMatrix: %v", err)
	}

	if err := m.Gather(e, offset); err != nil {
		t.Fatalf("Gather: %v", err)
	}

	// Columns outside the block stay untouched.
	for i := 0; i < e.Size(); i++ {
		for j := 0; j < 5; j++ {
			if m.Row(i)[j] != 0 {
				t.Fatalf("gather touched foreign column %d of member %d", j, i)
			}
		}
	}

	// The external update runs on the dense matrix; simulate one.
	for i := 0; i < e.Size(); i++ {
		row := m.Row(i)
		for j := offset; j < offset+e.SegmentLen(); j++ {
			row[j] += 0.5
		}
	}

	before := e.Member(2).Data()
	if err := m.Scatter(e, offset); err != nil {
		t.Fatalf("Scatter: %v", err)
	}
	after := e.Member(2).Data()
	for i := range after {
		if math.Abs(after[i]-(before[i]+0.5)) > 1e-12 {
			t.Errorf("member 2 segment %d = %g, want %g", i, after[i], before[i]+0.5)
		}
	}
}

func TestMatrixSizeMismatch(t *testing.T) {
	e, _ := New(faultmult.KindName, testConfig(), 4)

	m, _ := NewMatrix(3, 10)
	if err := m.Gather(e, 0); !errors.Is(err, errors.ErrSizeMismatch) {
		t.Errorf("Gather wrong rows = %v, want ErrSizeMismatch", err)
	}

	m, _ = NewMatrix(4, 2)
	if err := m.Gather(e, 0); !errors.Is(err, errors.ErrSizeMismatch) {
		t.Errorf("Gather narrow matrix = %v, want ErrSizeMismatch", err)
	}
}

func TestTruncateEnsemble(t *testing.T) {
	e, _ := New(faultmult.KindName, testConfig(), 3)
	for i := 0; i < e.Size(); i++ {
		if err := e.Member(i).SetData([]float64{0, 0, 5}); err != nil {
			t.Fatalf("SetData: %v", err)
		}
	}

	if clipped := e.Truncate(); clipped != 3 {
		t.Errorf("Truncate clipped %d, want 3", clipped)
	}
}

func TestStats(t *testing.T) {
	e, _ := New(faultmult.KindName, testConfig(), 50)
	e.Initialize(11)

	stats, err := Stats(e, 0.01)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("got %d segment stats, want 3", len(stats))
	}

	for _, s := range stats {
		if s.Count != 50 {
			t.Errorf("segment %s count = %d, want 50", s.Name, s.Count)
		}
		// DDSketch is accurate to ~1% relative error; allow that slack.
		if s.P50 < s.Min*0.95 || s.P50 > s.Max*1.05 {
			t.Errorf("segment %s percentile ordering broken: min=%g p50=%g max=%g",
				s.Name, s.Min, s.P50, s.Max)
		}
		// exp transform with clamping keeps everything inside [0, 2].
		if s.Min < 0 || s.Max > 2 {
			t.Errorf("segment %s range [%g, %g] outside bounds", s.Name, s.Min, s.Max)
		}
		if s.Std <= 0 {
			t.Errorf("segment %s std = %g, want positive with sampled priors", s.Name, s.Std)
		}
	}
}

func TestStats_DefaultAccuracy(t *testing.T) {
	e, _ := New(faultmult.KindName, testConfig(), 5)
	e.Initialize(1)

	if _, err := Stats(e, 0); err != nil {
		t.Errorf("Stats with zero accuracy: %v", err)
	}
}
