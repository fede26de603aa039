package ensemble

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ovland/enkit/internal/errors"
	"github.com/ovland/enkit/internal/logging"
	"github.com/ovland/enkit/internal/param"
)

// Ensemble owns one parameter node per ensemble member, all allocated
// against the same shared config. Each member's node is exclusively owned
// by that member's processing context; the ensemble only coordinates
// whole-set operations (parallel file I/O, mean, gather/scatter).
type Ensemble struct {
	kind  string
	nodes []param.Node

	log *slog.Logger
}

// New allocates an ensemble of size member nodes of the named kind
// against cfg.
func New(kind string, cfg any, size int) (*Ensemble, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", errors.ErrEmptyEnsemble, size)
	}

	nodes := make([]param.Node, size)
	for i := range nodes {
		n, err := param.New(kind, cfg)
		if err != nil {
			return nil, fmt.Errorf("allocate member %d: %w", i, err)
		}
		nodes[i] = n
	}

	return &Ensemble{
		kind:  kind,
		nodes: nodes,
		log:   logging.Component("ensemble"),
	}, nil
}

// Kind returns the parameter kind carried by this ensemble.
func (e *Ensemble) Kind() string { return e.kind }

// Size returns the number of members.
func (e *Ensemble) Size() int { return len(e.nodes) }

// Member returns member i's node.
func (e *Ensemble) Member(i int) param.Node { return e.nodes[i] }

// Members returns the member nodes in order. The slice must not be
// modified.
func (e *Ensemble) Members() []param.Node { return e.nodes }

// SegmentLen returns the per-member segment count.
func (e *Ensemble) SegmentLen() int { return e.nodes[0].Len() }

// Initialize samples every member from the kind's configured prior.
// Member i draws from a stream seeded with seed+i, so runs are
// reproducible and members are decorrelated.
func (e *Ensemble) Initialize(seed int64) {
	for i, n := range e.nodes {
		n.Initialize(rand.New(rand.NewSource(seed + int64(i))))
	}
	e.log.Debug("ensemble initialized", "kind", e.kind, "members", len(e.nodes), "seed", seed)
}

// Mean returns a new node holding the elementwise mean over all members.
func (e *Ensemble) Mean() (param.Node, error) {
	return param.Mean(e.kind, e.nodes)
}

// Truncate clamps every member into its physical bounds and returns the
// total number of clipped segments across the ensemble.
func (e *Ensemble) Truncate() int {
	clipped := 0
	for _, n := range e.nodes {
		clipped += n.Truncate()
	}
	if clipped > 0 {
		e.log.Info("truncated out-of-bound segments", "kind", e.kind, "clipped", clipped)
	}
	return clipped
}

// MemberPath returns the on-disk location of member i's node file under
// the ensemble root dir: dir/member-NNN/<kind>.ens.
func MemberPath(dir string, i int, kind string) string {
	return filepath.Join(dir, fmt.Sprintf("member-%03d", i), kind+".ens")
}

// ReadAll hydrates every member from its file under dir, up to workers
// files in parallel (0 means one worker per member).
func (e *Ensemble) ReadAll(ctx context.Context, dir string, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, n := range e.nodes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return n.ReadFile(MemberPath(dir, i, e.kind))
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("read ensemble: %w", err)
	}
	e.log.Debug("ensemble hydrated", "kind", e.kind, "members", len(e.nodes), "dir", dir)
	return nil
}

// WriteAll persists every member to its file under dir, creating member
// directories as needed, up to workers files in parallel.
func (e *Ensemble) WriteAll(ctx context.Context, dir string, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, n := range e.nodes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := MemberPath(dir, i, e.kind)
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("create member dir: %w", err)
			}
			return n.WriteFile(path)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("write ensemble: %w", err)
	}
	e.log.Debug("ensemble persisted", "kind", e.kind, "members", len(e.nodes), "dir", dir)
	return nil
}
