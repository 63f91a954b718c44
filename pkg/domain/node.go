package domain

// NodeID is a stable opaque identifier for a node in the spatial graph.
// IDs are allocated by the graph and never reused within a process.
type NodeID string

// Kind classifies a node within the fixed hierarchy.
type Kind string

const (
	KindRoot    Kind = "root"
	KindSector  Kind = "sector"
	KindApp     Kind = "app"
	KindWindow  Kind = "window"
	KindSubView Kind = "subview"
)

// childKinds encodes the fixed parent/child ordering: Root only parents
// Sectors, Sector only parents Apps, and so on. SubViews are leaves.
var childKinds = map[Kind]Kind{
	KindRoot:   KindSector,
	KindSector: KindApp,
	KindApp:    KindWindow,
	KindWindow: KindSubView,
}

// ChildKind returns the kind a node of kind k is allowed to parent.
// ok is false for leaf kinds (SubView) and unknown kinds.
func (k Kind) ChildKind() (child Kind, ok bool) {
	child, ok = childKinds[k]
	return child, ok
}

// Valid reports whether k is one of the five known kinds.
func (k Kind) Valid() bool {
	if k == KindSubView {
		return true
	}
	_, ok := childKinds[k]
	return ok
}

// Node is a single entry in the spatial graph. Children are ordered.
// Meta is an opaque blob owned by the persistence collaborator; the core
// never interprets it.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     Kind     `json:"kind"`
	Parent   NodeID   `json:"parent,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Meta     []byte   `json:"meta,omitempty"`
}

// HasChild reports whether id is a direct child of n.
func (n Node) HasChild(id NodeID) bool {
	for _, c := range n.Children {
		if c == id {
			return true
		}
	}
	return false
}
