// Package faultmult implements the per-fault transmissibility multiplier
// parameter kind.
//
// Each node carries one log-space value per fault segment for a single
// ensemble member. The exponential output transform guarantees positivity
// of the linear multipliers handed to the simulator-coupling layer, and
// truncation clamps updated values back into the configured physical
// bounds after each assimilation step.
package faultmult

import (
	"fmt"
	"math/rand"

	"github.com/ovland/enkit/internal/errors"
	"github.com/ovland/enkit/internal/param"
	"github.com/ovland/enkit/internal/param/transform"
)

// KindName is the registered parameter kind name.
const KindName = "faultmult"

func init() {
	param.Register(param.Registration{
		Kind: KindName,
		New: func(cfg any) (param.Node, error) {
			c, ok := cfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("%w: faultmult config has type %T", errors.ErrInvalidConfig, cfg)
			}
			return New(c)
		},
		Mean: func(nodes []param.Node) (param.Node, error) {
			fms := make([]*Node, len(nodes))
			for i, n := range nodes {
				fm, ok := n.(*Node)
				if !ok {
					return nil, fmt.Errorf("%w: node %d has kind %q", errors.ErrConfigMismatch, i, n.Kind())
				}
				fms[i] = fm
			}
			return Mean(fms)
		},
	})
}

// Node holds the fault-multiplier values of one ensemble member.
// values are log-space; output is the linear-space buffer recomputed by
// OutputTransform. The config is shared by reference and never mutated.
type Node struct {
	cfg    *Config
	values []float64
	output []float64
	stale  bool
}

var _ param.Node = (*Node)(nil)

// New allocates a node against cfg with all values zero-filled in log
// space, meaning "no change" after the exponential transform.
func New(cfg *Config) (*Node, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil faultmult config", errors.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Node{
		cfg:    cfg,
		values: make([]float64, cfg.Len()),
		output: make([]float64, cfg.Len()),
		stale:  true,
	}, nil
}

// Kind returns the registered kind name.
func (n *Node) Kind() string { return KindName }

// Len returns the number of fault segments.
func (n *Node) Len() int { return len(n.values) }

// Name returns the label of fault segment i.
func (n *Node) Name(i int) string { return n.cfg.Faults[i].Name }

// Names returns the ordered fault segment labels.
func (n *Node) Names() []string { return n.cfg.Names() }

// Bounds returns the linear-space bounds of segment i.
func (n *Node) Bounds(i int) (lo, hi float64) {
	f := n.cfg.Faults[i]
	return f.Min, f.Max
}

// Config returns the shared config descriptor.
func (n *Node) Config() *Config { return n.cfg }

// SetData overwrites the log-space values elementwise.
func (n *Node) SetData(values []float64) error {
	if len(values) != len(n.values) {
		return fmt.Errorf("%w: got %d values, node has %d segments",
			errors.ErrSizeMismatch, len(values), len(n.values))
	}
	copy(n.values, values)
	n.stale = true
	return nil
}

// Data returns a fresh copy of the log-space values.
func (n *Node) Data() []float64 {
	out := make([]float64, len(n.values))
	copy(out, n.values)
	return out
}

// DataRef returns the log-space values without copying. Read-only; valid
// until the node is next mutated.
func (n *Node) DataRef() []float64 { return n.values }

// Initialize samples each segment from its log-space normal prior.
// A nil rng resets every segment to its prior mean.
func (n *Node) Initialize(rng *rand.Rand) {
	for i, f := range n.cfg.Faults {
		if rng == nil || f.PriorStd == 0 {
			n.values[i] = f.PriorMean
		} else {
			n.values[i] = f.PriorMean + f.PriorStd*rng.NormFloat64()
		}
	}
	n.stale = true
}

// Copy returns a deep copy sharing the config reference.
func (n *Node) Copy() param.Node {
	c := &Node{
		cfg:    n.cfg,
		values: make([]float64, len(n.values)),
		output: make([]float64, len(n.output)),
		stale:  n.stale,
	}
	copy(c.values, n.values)
	copy(c.output, n.output)
	return c
}

// Serialize writes the log-space values into buf at [offset, offset+Len).
func (n *Node) Serialize(buf []float64, offset int) error {
	if err := n.checkSlice(buf, offset); err != nil {
		return err
	}
	copy(buf[offset:offset+len(n.values)], n.values)
	return nil
}

// Deserialize overwrites the log-space values from buf at
// [offset, offset+Len). Bound checking is deliberately skipped here;
// Truncate is the explicit follow-up step.
func (n *Node) Deserialize(buf []float64, offset int) error {
	if err := n.checkSlice(buf, offset); err != nil {
		return err
	}
	copy(n.values, buf[offset:offset+len(n.values)])
	n.stale = true
	return nil
}

func (n *Node) checkSlice(buf []float64, offset int) error {
	if offset < 0 || offset+len(n.values) > len(buf) {
		return fmt.Errorf("%w: slice [%d, %d) outside buffer of length %d",
			errors.ErrSizeMismatch, offset, offset+len(n.values), len(buf))
	}
	return nil
}

// Truncate clamps each value so the transformed output stays within the
// segment's bounds, re-expressing clipped values in log space. Violating
// values are silently clipped, not rejected. Returns the clip count.
func (n *Node) Truncate() int {
	kind := n.cfg.TransformKind()
	clipped := 0
	for i, f := range n.cfg.Faults {
		v, clip := transform.TruncateInternal(kind, n.values[i], f.Min, f.Max)
		if clip {
			n.values[i] = v
			clipped++
		}
	}
	if clipped > 0 {
		n.stale = true
	}
	return clipped
}

// OutputTransform recomputes the linear-space buffer by applying the
// configured transform and bounds to every value.
func (n *Node) OutputTransform() {
	kind := n.cfg.TransformKind()
	for i, f := range n.cfg.Faults {
		n.output[i] = transform.Output(kind, n.values[i], f.Min, f.Max)
	}
	n.stale = false
}

// OutputData returns a fresh copy of the linear-space buffer, recomputing
// it first if the values changed since the last transform.
func (n *Node) OutputData() []float64 {
	if n.stale {
		n.OutputTransform()
	}
	out := make([]float64, len(n.output))
	copy(out, n.output)
	return out
}

// OutputRef returns the linear-space buffer without copying, recomputing
// it first if stale. Read-only; valid until the node is next mutated.
func (n *Node) OutputRef() []float64 {
	if n.stale {
		n.OutputTransform()
	}
	return n.output
}

// Mean returns a new node whose values are the elementwise arithmetic mean
// over nodes. All nodes must share one config: mixed configs fail with
// ErrConfigMismatch, and zero nodes fail with ErrEmptyEnsemble.
func Mean(nodes []*Node) (*Node, error) {
	if len(nodes) == 0 {
		return nil, errors.ErrEmptyEnsemble
	}

	cfg := nodes[0].cfg
	for i, n := range nodes[1:] {
		if n.cfg != cfg || n.Len() != cfg.Len() {
			return nil, fmt.Errorf("%w: node %d", errors.ErrConfigMismatch, i+1)
		}
	}

	mean, err := New(cfg)
	if err != nil {
		return nil, err
	}

	inv := 1.0 / float64(len(nodes))
	for i := range mean.values {
		sum := 0.0
		for _, n := range nodes {
			sum += n.values[i]
		}
		mean.values[i] = sum * inv
	}
	return mean, nil
}
