package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ovland/enkit/internal/errors"
)

// Matrix is the shared assimilation buffer: one row per ensemble member,
// one column per parameter element. The update equations run externally
// on the dense matrix; each node only ever touches its own
// [offset, offset+len) slice of a member row, so one goroutine per member
// writing disjoint offsets is safe.
type Matrix struct {
	dense *mat.Dense
	width int
}

// NewMatrix allocates a members x width assimilation matrix.
func NewMatrix(members, width int) (*Matrix, error) {
	if members <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: matrix dimensions %dx%d", errors.ErrSizeMismatch, members, width)
	}
	return &Matrix{
		dense: mat.NewDense(members, width, nil),
		width: width,
	}, nil
}

// Dense exposes the underlying matrix for the external update step.
func (m *Matrix) Dense() *mat.Dense { return m.dense }

// Members returns the number of member rows.
func (m *Matrix) Members() int {
	r, _ := m.dense.Dims()
	return r
}

// Width returns the parameter width.
func (m *Matrix) Width() int { return m.width }

// Row returns member i's row as a contiguous slice backed by the matrix.
func (m *Matrix) Row(i int) []float64 {
	return m.dense.RawRowView(i)
}

// Gather serializes every member of e into its matrix row at offset.
func (m *Matrix) Gather(e *Ensemble, offset int) error {
	if e.Size() != m.Members() {
		return fmt.Errorf("%w: ensemble has %d members, matrix has %d rows",
			errors.ErrSizeMismatch, e.Size(), m.Members())
	}
	for i, n := range e.Members() {
		if err := n.Serialize(m.Row(i), offset); err != nil {
			return fmt.Errorf("gather member %d: %w", i, err)
		}
	}
	return nil
}

// Scatter deserializes every member of e from its matrix row at offset.
// This is the sole path by which the external update result re-enters the
// nodes; callers follow it with Truncate.
func (m *Matrix) Scatter(e *Ensemble, offset int) error {
	if e.Size() != m.Members() {
		return fmt.Errorf("%w: ensemble has %d members, matrix has %d rows",
			errors.ErrSizeMismatch, e.Size(), m.Members())
	}
	for i, n := range e.Members() {
		if err := n.Deserialize(m.Row(i), offset); err != nil {
			return fmt.Errorf("scatter member %d: %w", i, err)
		}
	}
	return nil
}

// Layout assigns disjoint matrix offsets to parameter kinds so several
// ensembles can share one assimilation matrix.
type Layout struct {
	width   int
	offsets map[string]int
	lengths map[string]int
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{
		offsets: make(map[string]int),
		lengths: make(map[string]int),
	}
}

// Add reserves length columns for kind and returns the assigned offset.
// Adding a kind twice is a programming error and panics.
func (l *Layout) Add(kind string, length int) int {
	if _, dup := l.offsets[kind]; dup {
		panic(fmt.Sprintf("ensemble: layout already holds kind %q", kind))
	}
	offset := l.width
	l.offsets[kind] = offset
	l.lengths[kind] = length
	l.width += length
	return offset
}

// Offset returns the assigned offset for kind.
func (l *Layout) Offset(kind string) (int, bool) {
	off, ok := l.offsets[kind]
	return off, ok
}

// Width returns the total reserved width.
func (l *Layout) Width() int { return l.width }
