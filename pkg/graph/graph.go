// Package graph implements the shared spatial hierarchy: an arena of nodes
// addressed by stable opaque ids. All structural mutations are serialized
// through a single owner goroutine, so the tree invariants (single parent,
// no cycles) are never observed in a torn state. Readers work against
// immutable versioned snapshots and never block mutations.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/stratadesk/strata/internal/logging"
	"github.com/stratadesk/strata/pkg/domain"
)

// ErrClosed is returned by operations issued after Close.
var ErrClosed = errors.New("graph is closed")

// RootID is the id of the implicit root node present in every graph.
const RootID domain.NodeID = "root"

// Graph owns the node arena. Safe for concurrent use.
type Graph struct {
	logger *slog.Logger

	reqs      chan request
	done      chan struct{}
	closeOnce sync.Once

	snap atomic.Pointer[Snapshot]
}

type request struct {
	apply func(*state) (any, error)
	reply chan result
}

type result struct {
	value any
	err   error
}

// state is the mutable arena, touched only by the owner goroutine.
type state struct {
	nodes   map[domain.NodeID]*domain.Node
	version uint64
	seq     uint64
}

// Option configures the Graph.
type Option func(*Graph)

// WithLogger sets a structured logger for mutation tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// New creates a graph containing only the root node and starts the owner
// goroutine. Callers must Close it when done.
func New(opts ...Option) *Graph {
	g := &Graph{
		logger: logging.NewNop(),
		reqs:   make(chan request),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}

	st := &state{
		nodes: map[domain.NodeID]*domain.Node{
			RootID: {ID: RootID, Kind: domain.KindRoot},
		},
		version: 1,
	}
	g.snap.Store(buildSnapshot(st))

	go g.run(st)
	return g
}

// Close stops the owner goroutine. Pending operations fail with ErrClosed.
func (g *Graph) Close() {
	g.closeOnce.Do(func() {
		close(g.done)
	})
}

// Root returns the id of the root node.
func (g *Graph) Root() domain.NodeID {
	return RootID
}

// Snapshot returns the latest consistent view of the tree. The returned
// value is immutable and remains valid after further mutations.
func (g *Graph) Snapshot() *Snapshot {
	return g.snap.Load()
}

func (g *Graph) run(st *state) {
	for {
		select {
		case <-g.done:
			return
		case req := <-g.reqs:
			value, err := req.apply(st)
			if err == nil {
				st.version++
				g.snap.Store(buildSnapshot(st))
			}
			req.reply <- result{value: value, err: err}
		}
	}
}

// do submits a mutation to the owner goroutine and waits for its outcome.
func (g *Graph) do(ctx context.Context, apply func(*state) (any, error)) (any, error) {
	req := request{apply: apply, reply: make(chan result, 1)}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-g.done:
		return nil, ErrClosed
	case g.reqs <- req:
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-req.reply:
		return res.value, res.err
	}
}

// CreateNode creates a child of parent with the given kind and opaque
// metadata. It fails with domain.ErrNotFound if the parent is absent and
// domain.ErrInvalidKind if the kind violates the hierarchy ordering.
func (g *Graph) CreateNode(ctx context.Context, parent domain.NodeID, kind domain.Kind, meta []byte) (domain.NodeID, error) {
	value, err := g.do(ctx, func(st *state) (any, error) {
		p, ok := st.nodes[parent]
		if !ok {
			return nil, fmt.Errorf("create under %s: %w", parent, domain.ErrNotFound)
		}
		want, ok := p.Kind.ChildKind()
		if !ok || want != kind {
			return nil, fmt.Errorf("create %s under %s node: %w", kind, p.Kind, domain.ErrInvalidKind)
		}

		st.seq++
		id := domain.NodeID(fmt.Sprintf("%s-%d", kind, st.seq))
		node := &domain.Node{ID: id, Kind: kind, Parent: parent}
		if len(meta) > 0 {
			node.Meta = append([]byte(nil), meta...)
		}
		st.nodes[id] = node
		p.Children = append(p.Children, id)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	id := value.(domain.NodeID)
	g.logger.Debug("node created", "node", id, "parent", parent, "kind", kind)
	return id, nil
}

// MoveNode reparents a subtree, used for cross-sector window moves. It fails
// with domain.ErrCycle if newParent is node itself or one of its
// descendants, and with domain.ErrInvalidKind if the destination cannot
// parent a node of this kind.
func (g *Graph) MoveNode(ctx context.Context, node, newParent domain.NodeID) error {
	_, err := g.do(ctx, func(st *state) (any, error) {
		n, ok := st.nodes[node]
		if !ok {
			return nil, fmt.Errorf("move %s: %w", node, domain.ErrNotFound)
		}
		if n.Kind == domain.KindRoot {
			return nil, fmt.Errorf("move root: %w", domain.ErrInvalidKind)
		}
		dst, ok := st.nodes[newParent]
		if !ok {
			return nil, fmt.Errorf("move to %s: %w", newParent, domain.ErrNotFound)
		}
		// Reject moves that would make the node its own ancestor. Checked
		// before the kind ordering so a self-parenting move surfaces as the
		// cycle it is.
		for cur := newParent; cur != ""; {
			if cur == node {
				return nil, fmt.Errorf("move %s under %s: %w", node, newParent, domain.ErrCycle)
			}
			cur = st.nodes[cur].Parent
		}

		want, ok := dst.Kind.ChildKind()
		if !ok || want != n.Kind {
			return nil, fmt.Errorf("move %s under %s node: %w", n.Kind, dst.Kind, domain.ErrInvalidKind)
		}

		if n.Parent == newParent {
			return nil, nil
		}
		removeChild(st.nodes[n.Parent], node)
		n.Parent = newParent
		dst.Children = append(dst.Children, node)
		return nil, nil
	})
	if err == nil {
		g.logger.Debug("node moved", "node", node, "parent", newParent)
	}
	return err
}

// DeleteNode removes the node and its entire subtree, returning the set of
// removed ids so dependent viewports can react. The root cannot be deleted.
func (g *Graph) DeleteNode(ctx context.Context, node domain.NodeID) ([]domain.NodeID, error) {
	value, err := g.do(ctx, func(st *state) (any, error) {
		n, ok := st.nodes[node]
		if !ok {
			return nil, fmt.Errorf("delete %s: %w", node, domain.ErrNotFound)
		}
		if n.Kind == domain.KindRoot {
			return nil, fmt.Errorf("delete root: %w", domain.ErrInvalidKind)
		}

		var removed []domain.NodeID
		var collect func(id domain.NodeID)
		collect = func(id domain.NodeID) {
			removed = append(removed, id)
			for _, c := range st.nodes[id].Children {
				collect(c)
			}
		}
		collect(node)

		removeChild(st.nodes[n.Parent], node)
		for _, id := range removed {
			delete(st.nodes, id)
		}
		return removed, nil
	})
	if err != nil {
		return nil, err
	}
	removed := value.([]domain.NodeID)
	g.logger.Debug("subtree deleted", "node", node, "removed", len(removed))
	return removed, nil
}

func removeChild(parent *domain.Node, id domain.NodeID) {
	for i, c := range parent.Children {
		if c == id {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}
