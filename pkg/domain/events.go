package domain

import "time"

// EventType defines the category of a protocol event.
type EventType string

const (
	EventViewportState       EventType = "viewport_state"
	EventTransition          EventType = "transition"
	EventTransitionCompleted EventType = "transition_completed"
	EventNodeRemoved         EventType = "node_removed"
	EventViewportCreated     EventType = "viewport_created"
	EventViewportDestroyed   EventType = "viewport_destroyed"
	EventError               EventType = "error"
)

// Event is the envelope carried on the bridge's event stream. Only the
// fields relevant to the event type are populated.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Viewport-scoped fields.
	Viewport      ViewportID `json:"viewport,omitempty"`
	Path          Path       `json:"path,omitempty"`
	Depth         int        `json:"depth,omitempty"`
	Transitioning bool       `json:"transitioning,omitempty"`

	// Transition fields.
	FromPath      Path `json:"from_path,omitempty"`
	ToPath        Path `json:"to_path,omitempty"`
	AncestorIndex int  `json:"common_ancestor_index,omitempty"`

	// Structural fields.
	Node     NodeID       `json:"node_id,omitempty"`
	Removed  []NodeID     `json:"removed,omitempty"`
	Affected []ViewportID `json:"affected_viewports,omitempty"`

	// Error fields.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Emitter receives events as they happen. The zero value drops them.
type Emitter func(Event)

// Emit invokes the emitter if one is set.
func (e Emitter) Emit(ev Event) {
	if e != nil {
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		e(ev)
	}
}

// ViewportStateEvent builds the state event for a viewport.
func ViewportStateEvent(v Viewport) Event {
	return Event{
		Type:          EventViewportState,
		Viewport:      v.ID,
		Path:          v.Path.Clone(),
		Depth:         v.Path.Depth(),
		Transitioning: v.Transitioning,
	}
}

// TransitionEvent announces a transition entering flight.
func TransitionEvent(id ViewportID, t Transition) Event {
	return Event{
		Type:          EventTransition,
		Viewport:      id,
		FromPath:      t.Source.Clone(),
		ToPath:        t.Target.Clone(),
		AncestorIndex: t.AncestorIndex,
	}
}

// TransitionCompletedEvent is the terminal event of a navigation request.
func TransitionCompletedEvent(id ViewportID, path Path) Event {
	return Event{
		Type:     EventTransitionCompleted,
		Viewport: id,
		Path:     path.Clone(),
		Depth:    path.Depth(),
	}
}

// NodeRemovedEvent announces a cascading deletion and the viewports whose
// paths were clamped because of it.
func NodeRemovedEvent(node NodeID, removed []NodeID, affected []ViewportID) Event {
	return Event{
		Type:     EventNodeRemoved,
		Node:     node,
		Removed:  removed,
		Affected: affected,
	}
}

// ErrorEvent wraps an error with its protocol code.
func ErrorEvent(id ViewportID, err error) Event {
	return Event{
		Type:     EventError,
		Viewport: id,
		Code:     ErrorCode(err),
		Message:  err.Error(),
	}
}
