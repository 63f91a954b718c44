package graph

import (
	"sort"

	"github.com/stratadesk/strata/pkg/domain"
)

// Snapshot is an immutable, versioned view of the tree. Reads against a
// snapshot never interleave with a partially applied mutation.
type Snapshot struct {
	version uint64
	nodes   map[domain.NodeID]domain.Node
}

func buildSnapshot(st *state) *Snapshot {
	nodes := make(map[domain.NodeID]domain.Node, len(st.nodes))
	for id, n := range st.nodes {
		copied := *n
		copied.Children = append([]domain.NodeID(nil), n.Children...)
		if n.Meta != nil {
			copied.Meta = append([]byte(nil), n.Meta...)
		}
		nodes[id] = copied
	}
	return &Snapshot{version: st.version, nodes: nodes}
}

// Version increases monotonically with every applied mutation.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Len is the number of nodes, root included.
func (s *Snapshot) Len() int {
	return len(s.nodes)
}

// Node returns a copy of the node with the given id.
func (s *Snapshot) Node(id domain.NodeID) (domain.Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Contains reports whether the id exists in this snapshot.
func (s *Snapshot) Contains(id domain.NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// Children returns the ordered child ids of a node.
func (s *Snapshot) Children(id domain.NodeID) []domain.NodeID {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	return append([]domain.NodeID(nil), n.Children...)
}

// ValidPath reports whether p is a root-anchored parent/child walk in this
// snapshot.
func (s *Snapshot) ValidPath(p domain.Path) bool {
	if len(p) == 0 || p[0] != RootID {
		return false
	}
	for i := 1; i < len(p); i++ {
		n, ok := s.nodes[p[i]]
		if !ok || n.Parent != p[i-1] {
			return false
		}
	}
	return true
}

// Clamp returns the longest root-anchored prefix of p that is still a valid
// walk. The result is never shorter than [root].
func (s *Snapshot) Clamp(p domain.Path) domain.Path {
	out := domain.Path{RootID}
	if len(p) == 0 || p[0] != RootID {
		return out
	}
	for i := 1; i < len(p); i++ {
		n, ok := s.nodes[p[i]]
		if !ok || n.Parent != p[i-1] {
			break
		}
		out = append(out, p[i])
	}
	return out
}

// PathTo resolves the root-anchored path ending at id by walking parent
// links upward.
func (s *Snapshot) PathTo(id domain.NodeID) (domain.Path, bool) {
	var rev domain.Path
	for cur := id; ; {
		n, ok := s.nodes[cur]
		if !ok {
			return nil, false
		}
		rev = append(rev, cur)
		if n.Kind == domain.KindRoot {
			break
		}
		cur = n.Parent
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev, true
}

// Walk traverses the tree depth-first in child order, calling fn with each
// node and its depth below the root.
func (s *Snapshot) Walk(fn func(n domain.Node, depth int)) {
	var visit func(id domain.NodeID, depth int)
	visit = func(id domain.NodeID, depth int) {
		n, ok := s.nodes[id]
		if !ok {
			return
		}
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(RootID, 0)
}

// IDs returns every node id in the snapshot in stable sorted order.
func (s *Snapshot) IDs() []domain.NodeID {
	ids := make([]domain.NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
