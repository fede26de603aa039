// Package transform implements the pure functions that map a parameter's
// internal (log-space) representation to the externally consumed linear
// values, and the bound enforcement that goes with them.
package transform

import (
	"fmt"
	"math"
)

// Kind identifies how internal values map to simulator units.
type Kind int

const (
	// KindExp stores ln(x) internally and exposes exp(value) externally.
	// This is the canonical transform for strictly-positive multipliers.
	KindExp Kind = iota
	// KindNone exposes the internal value unchanged.
	KindNone
)

// String returns a human-readable representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindExp:
		return "exp"
	case KindNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseKind parses a transform kind string. The empty string maps to
// KindExp, the canonical transform.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "exp", "":
		return KindExp, nil
	case "none":
		return KindNone, nil
	default:
		return KindExp, fmt.Errorf("unknown transform kind %q", s)
	}
}

// Forward maps an internal value to its external representation.
func Forward(k Kind, v float64) float64 {
	if k == KindExp {
		return math.Exp(v)
	}
	return v
}

// Inverse maps an external value back to the internal representation.
// For KindExp the input must be strictly positive.
func Inverse(k Kind, v float64) float64 {
	if k == KindExp {
		return math.Log(v)
	}
	return v
}

// Clamp restricts v to the inclusive interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Output maps an internal value through the transform and clamps the
// result into [lo, hi]. This is the full output-transform step for one
// segment.
func Output(k Kind, v, lo, hi float64) float64 {
	return Clamp(Forward(k, v), lo, hi)
}

// TruncateInternal clamps the external image of v into [lo, hi] and
// re-expresses the result internally. If v already maps inside the
// bounds it is returned unchanged, bit for bit.
func TruncateInternal(k Kind, v, lo, hi float64) (float64, bool) {
	ext := Forward(k, v)
	clipped := Clamp(ext, lo, hi)
	if clipped == ext {
		return v, false
	}
	return Inverse(k, clipped), true
}
