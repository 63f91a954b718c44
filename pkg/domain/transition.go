package domain

// Transition describes one logical navigation from Source to Target.
// AncestorIndex is the length of the root-anchored prefix the two paths
// share; the transition is animated as a zoom-out phase down to that depth
// followed by a zoom-in phase up to the target. Regardless of how many
// internal steps the two phases contain, a transition reports exactly one
// terminal completion.
type Transition struct {
	Source        Path `json:"from_path"`
	Target        Path `json:"to_path"`
	AncestorIndex int  `json:"common_ancestor_index"`
}

// NewTransition computes the transition between two root-anchored paths.
func NewTransition(source, target Path) Transition {
	return Transition{
		Source:        source.Clone(),
		Target:        target.Clone(),
		AncestorIndex: CommonAncestorIndex(source, target),
	}
}

// OutSteps is the number of single-level zoom-outs in the first phase.
func (t Transition) OutSteps() int {
	return len(t.Source) - t.AncestorIndex
}

// InSegment is the ordered list of nodes entered during the zoom-in phase.
func (t Transition) InSegment() []NodeID {
	return append([]NodeID(nil), t.Target[t.AncestorIndex:]...)
}

// Ancestor returns the path of the shared ancestor, the intermediate state
// of a cross-branch jump.
func (t Transition) Ancestor() Path {
	return t.Source[:t.AncestorIndex].Clone()
}

// Clone returns an independent copy.
func (t Transition) Clone() Transition {
	return Transition{
		Source:        t.Source.Clone(),
		Target:        t.Target.Clone(),
		AncestorIndex: t.AncestorIndex,
	}
}
