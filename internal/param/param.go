package param

import (
	"math/rand"
)

// Node is the uniform capability contract every parameter kind implements.
// The history-matching engine treats all parameter types identically through
// this interface during allocation, persistence, assimilation-buffer
// serialization, statistical aggregation, and bound enforcement.
//
// Internal values are stored in the kind's internal representation (log
// space for multiplier kinds). Externally visible linear values are produced
// only through OutputTransform and never written back into the internal
// buffer directly.
type Node interface {
	// Kind returns the registered parameter kind name.
	Kind() string

	// Len returns the number of segments. Fixed at allocation time.
	Len() int

	// Name returns the identifying label of segment i.
	Name(i int) string

	// Names returns the ordered segment labels, parallel-indexed with the
	// internal values. The returned slice must not be mutated.
	Names() []string

	// Bounds returns the physical bounds of segment i in external units.
	Bounds(i int) (lo, hi float64)

	// SetData overwrites the internal values elementwise. The input length
	// must equal Len; ErrSizeMismatch otherwise.
	SetData(values []float64) error

	// Data returns a fresh copy of the internal values.
	Data() []float64

	// DataRef returns the internal values without copying. The returned
	// slice is a read-only view, valid only until the node is next mutated.
	DataRef() []float64

	// Initialize samples the internal values from the kind's configured
	// prior using rng. A nil rng resets to the prior means.
	Initialize(rng *rand.Rand)

	// Copy returns a deep copy: independent value storage, shared config.
	Copy() Node

	// Serialize writes the internal values into the caller-owned buffer at
	// [offset, offset+Len). No transform is applied. The call either
	// transfers the full slice or fails before touching any element.
	Serialize(buf []float64, offset int) error

	// Deserialize overwrites the internal values from the caller-owned
	// buffer at [offset, offset+Len). This is the sole path by which an
	// external update re-enters the node; it applies no bound checking.
	// Truncate is the separate, explicit step for that.
	Deserialize(buf []float64, offset int) error

	// Truncate clamps each internal value so its external image stays
	// within the configured bounds. Violating values are silently clipped,
	// never rejected. Returns the number of clipped segments.
	Truncate() int

	// OutputTransform recomputes the external buffer from the internal
	// values. Idempotent: without an intervening mutation, repeated calls
	// yield an identical buffer.
	OutputTransform()

	// OutputData returns a fresh copy of the transformed external buffer,
	// computing it first if stale.
	OutputData() []float64

	// OutputRef returns the transformed external buffer without copying,
	// computing it first if stale. Same read-only lifetime contract as
	// DataRef.
	OutputRef() []float64

	// ReadFile hydrates the internal values from the member file at path.
	// Fails with ErrNotFound if path does not exist and ErrFormat if the
	// file does not match the node's kind and segment count.
	ReadFile(path string) error

	// WriteFile persists the internal values to the member file at path,
	// overwriting any existing file.
	WriteFile(path string) error
}
