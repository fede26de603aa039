package param

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ovland/enkit/internal/errors"
)

// Registration describes one parameter kind: how to allocate a node against
// its config, and how to build the elementwise ensemble mean over nodes of
// that kind. Kinds register themselves at init time; the engine selects
// them by name.
type Registration struct {
	// Kind is the unique kind name (e.g. "faultmult").
	Kind string

	// New allocates a node against cfg. The concrete config type is owned
	// by the kind's package; New fails with ErrInvalidConfig if cfg has
	// the wrong type or does not validate.
	New func(cfg any) (Node, error)

	// Mean returns a new node holding the elementwise arithmetic mean of
	// nodes, which must all share one config. Fails with ErrEmptyEnsemble
	// for zero nodes and ErrConfigMismatch for mixed configs.
	Mean func(nodes []Node) (Node, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register makes a parameter kind available by name.
// It panics if the kind is already registered or the registration is
// incomplete; kinds register from init, so this is a programming error.
func Register(r Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if r.Kind == "" || r.New == nil || r.Mean == nil {
		panic("param: incomplete registration")
	}
	if _, dup := registry[r.Kind]; dup {
		panic(fmt.Sprintf("param: kind %q registered twice", r.Kind))
	}
	registry[r.Kind] = r
}

// New allocates a node of the named kind against cfg.
func New(kind string, cfg any) (Node, error) {
	registryMu.RLock()
	r, ok := registry[kind]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("kind %q: %w", kind, errors.ErrUnknownKind)
	}
	return r.New(cfg)
}

// Mean builds the elementwise ensemble mean over nodes of the named kind.
func Mean(kind string, nodes []Node) (Node, error) {
	registryMu.RLock()
	r, ok := registry[kind]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("kind %q: %w", kind, errors.ErrUnknownKind)
	}
	return r.Mean(nodes)
}

// Kinds returns the registered kind names in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
