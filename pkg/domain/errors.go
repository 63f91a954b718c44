package domain

import "errors"

// Structural errors: caller/state bugs surfaced synchronously by the graph.
var (
	// ErrNotFound is returned when a referenced node does not exist.
	ErrNotFound = errors.New("node not found")

	// ErrInvalidKind is returned when a creation would violate the fixed
	// Root > Sector > App > Window > SubView ordering.
	ErrInvalidKind = errors.New("kind violates hierarchy ordering")

	// ErrCycle is returned when a move would make a node its own ancestor.
	ErrCycle = errors.New("move would create a cycle")
)

// Navigation errors. Busy is an expected, recoverable condition: callers may
// re-issue after the in-flight transition's terminal event. The engine never
// queues deferred commands on their behalf.
var (
	// ErrInvalidChild is returned when a zoom-in target is not a child of
	// the viewport's current leaf.
	ErrInvalidChild = errors.New("target is not a child of the current leaf")

	// ErrAtRoot is returned when zooming out of the sectors overview.
	ErrAtRoot = errors.New("already at the sectors overview")

	// ErrBusy is returned when a viewport already has a transition in flight.
	ErrBusy = errors.New("transition already in flight")

	// ErrNotTransitioning is returned by cancel/complete when the viewport
	// is idle.
	ErrNotTransitioning = errors.New("no transition in flight")
)

// Split and lifecycle errors.
var (
	// ErrNotSiblings is returned when a merge pair did not originate from
	// the same split or no longer shares a region.
	ErrNotSiblings = errors.New("viewports are not split siblings")

	// ErrViewportNotFound is returned when a viewport id is unknown.
	ErrViewportNotFound = errors.New("viewport not found")

	// ErrClusterNotFound is returned when a bookmark name is unknown.
	ErrClusterNotFound = errors.New("cluster not found")
)

// ErrorCode maps an error to the stable code used on the event protocol.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidKind):
		return "invalid_kind"
	case errors.Is(err, ErrCycle):
		return "cycle"
	case errors.Is(err, ErrInvalidChild):
		return "invalid_child"
	case errors.Is(err, ErrAtRoot):
		return "at_root"
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, ErrNotTransitioning):
		return "not_transitioning"
	case errors.Is(err, ErrNotSiblings):
		return "not_siblings"
	case errors.Is(err, ErrViewportNotFound):
		return "viewport_not_found"
	case errors.Is(err, ErrClusterNotFound):
		return "cluster_not_found"
	default:
		return "internal"
	}
}
