package domain

import "strings"

// Path is an ordered node-id sequence from the root to a viewport's current
// leaf. A valid path always has the root as its first element.
type Path []NodeID

// Depth is the number of levels below the root (0 = sectors overview).
func (p Path) Depth() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Leaf returns the deepest node of the path.
func (p Path) Leaf() (NodeID, bool) {
	if len(p) == 0 {
		return "", false
	}
	return p[len(p)-1], true
}

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}

// Equal reports element-wise equality.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a root-anchored prefix of p.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Contains reports whether id appears anywhere on the path.
func (p Path) Contains(id NodeID) bool {
	for _, n := range p {
		if n == id {
			return true
		}
	}
	return false
}

func (p Path) String() string {
	if len(p) == 0 {
		return "[]"
	}
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = string(n)
	}
	return "[" + strings.Join(parts, " > ") + "]"
}

// CommonAncestorIndex returns the length of the shared root-anchored prefix
// of a and b. Two paths into the same graph always share at least the root.
func CommonAncestorIndex(a, b Path) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	idx := 0
	for idx < n && a[idx] == b[idx] {
		idx++
	}
	return idx
}
