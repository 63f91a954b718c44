// Package engine implements the per-viewport navigation state machine. A
// viewport is either Idle or Transitioning; zoom-in and zoom-out are strict
// single-level steps, and JumpTo is the only multi-level primitive, always
// routed through the nearest common ancestor. A transition stays in flight
// until the rendering collaborator acknowledges completion; animation pacing
// is not the engine's concern.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stratadesk/strata/internal/logging"
	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/graph"
	"github.com/stratadesk/strata/pkg/viewport"
)

// Engine validates and executes navigation against the shared graph.
type Engine struct {
	graph     *graph.Graph
	viewports *viewport.Manager
	emit      domain.Emitter
	logger    *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithEmitter registers the event sink, typically the bridge.
func WithEmitter(emit domain.Emitter) Option {
	return func(e *Engine) {
		e.emit = emit
	}
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an engine over the given graph and viewport manager.
func New(g *graph.Graph, vm *viewport.Manager, opts ...Option) *Engine {
	e := &Engine{
		graph:     g,
		viewports: vm,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ZoomIn descends one level into child, which must be a child of the
// viewport's current leaf. The viewport enters Transitioning until the
// rendering collaborator calls CompleteTransition.
func (e *Engine) ZoomIn(ctx context.Context, id domain.ViewportID, child domain.NodeID) error {
	return e.viewports.Update(ctx, id, func(v *domain.Viewport) error {
		if v.Transitioning {
			return fmt.Errorf("viewport %s: %w", id, domain.ErrBusy)
		}

		snap := e.graph.Snapshot()
		leaf, ok := v.Path.Leaf()
		if !ok {
			return fmt.Errorf("viewport %s has empty path: %w", id, domain.ErrInvalidChild)
		}
		node, ok := snap.Node(leaf)
		if !ok || !node.HasChild(child) {
			return fmt.Errorf("zoom in to %s from %s: %w", child, leaf, domain.ErrInvalidChild)
		}

		target := append(v.Path.Clone(), child)
		e.begin(v, domain.NewTransition(v.Path, target))
		return nil
	})
}

// ZoomOut ascends one level. The sectors overview is terminal: there is no
// level above it to zoom out to.
func (e *Engine) ZoomOut(ctx context.Context, id domain.ViewportID) error {
	return e.viewports.Update(ctx, id, func(v *domain.Viewport) error {
		if v.Transitioning {
			return fmt.Errorf("viewport %s: %w", id, domain.ErrBusy)
		}
		if len(v.Path) <= 1 {
			return fmt.Errorf("viewport %s: %w", id, domain.ErrAtRoot)
		}

		target := v.Path[:len(v.Path)-1].Clone()
		e.begin(v, domain.NewTransition(v.Path, target))
		return nil
	})
}

// JumpTo synthesizes one logical transition to an arbitrary valid path: a
// zoom-out phase to the nearest common ancestor followed by a zoom-in phase
// to the target. Exactly one terminal completion is reported regardless of
// the two internal phases, so navigation never crosses branches sideways.
func (e *Engine) JumpTo(ctx context.Context, id domain.ViewportID, target domain.Path) error {
	return e.viewports.Update(ctx, id, func(v *domain.Viewport) error {
		if v.Transitioning {
			return fmt.Errorf("viewport %s: %w", id, domain.ErrBusy)
		}

		snap := e.graph.Snapshot()
		if !snap.ValidPath(target) {
			return fmt.Errorf("jump to %s: %w", target, domain.ErrNotFound)
		}

		if v.Path.Equal(target) {
			// Nothing to animate; report the terminal event immediately.
			e.emit.Emit(domain.TransitionCompletedEvent(v.ID, v.Path))
			return nil
		}

		e.begin(v, domain.NewTransition(v.Path, target))
		return nil
	})
}

// begin records the pending transition, advances the path and announces the
// state change. Callers hold the viewport's lock.
func (e *Engine) begin(v *domain.Viewport, t domain.Transition) {
	v.Pending = &t
	v.Transitioning = true
	v.Path = t.Target.Clone()

	e.logger.Debug("transition started",
		"viewport", v.ID,
		"from", t.Source.String(),
		"to", t.Target.String(),
		"via", t.Ancestor().String(),
		"out_steps", t.OutSteps(),
	)
	e.emit.Emit(domain.TransitionEvent(v.ID, t))
	e.emit.Emit(domain.ViewportStateEvent(*v))
}

// CompleteTransition is the explicit completion signal from the rendering
// collaborator. It releases the viewport back to Idle and reports the
// terminal event of the navigation request.
func (e *Engine) CompleteTransition(ctx context.Context, id domain.ViewportID) error {
	return e.viewports.Update(ctx, id, func(v *domain.Viewport) error {
		if !v.Transitioning {
			return fmt.Errorf("viewport %s: %w", id, domain.ErrNotTransitioning)
		}

		v.Pending = nil
		v.Transitioning = false

		e.logger.Debug("transition completed", "viewport", id, "path", v.Path.String())
		e.emit.Emit(domain.TransitionCompletedEvent(v.ID, v.Path))
		e.emit.Emit(domain.ViewportStateEvent(*v))
		return nil
	})
}

// CancelTransition aborts a pending transition and restores the
// pre-transition path, clamped against the current graph in case the source
// path lost nodes while the transition was in flight.
func (e *Engine) CancelTransition(ctx context.Context, id domain.ViewportID) error {
	return e.viewports.Update(ctx, id, func(v *domain.Viewport) error {
		if !v.Transitioning || v.Pending == nil {
			return fmt.Errorf("viewport %s: %w", id, domain.ErrNotTransitioning)
		}

		v.Path = e.graph.Snapshot().Clamp(v.Pending.Source)
		v.Pending = nil
		v.Transitioning = false

		e.logger.Debug("transition cancelled", "viewport", id, "path", v.Path.String())
		e.emit.Emit(domain.ViewportStateEvent(*v))
		return nil
	})
}

// HandleRemoved applies the mutation-race policy after a cascading node
// deletion: any viewport whose path or in-flight transition references a
// removed node has its transition cancelled and its path clamped to the
// deepest surviving ancestor. A dangling path is never observable. The ids
// of affected viewports are returned for the node_removed event.
func (e *Engine) HandleRemoved(ctx context.Context, removed []domain.NodeID) []domain.ViewportID {
	var affected []domain.ViewportID
	for _, view := range e.viewports.List() {
		err := e.viewports.Update(ctx, view.ID, func(v *domain.Viewport) error {
			if !touches(v, removed) {
				return nil
			}

			snap := e.graph.Snapshot()
			v.Path = snap.Clamp(v.Path)
			v.Pending = nil
			v.Transitioning = false

			affected = append(affected, v.ID)
			e.emit.Emit(domain.ViewportStateEvent(*v))
			return nil
		})
		if err != nil {
			// The viewport disappeared concurrently; nothing to clamp.
			continue
		}
	}

	if len(affected) > 0 {
		e.logger.Debug("viewports clamped after deletion", "removed", len(removed), "affected", len(affected))
	}
	return affected
}

// touches reports whether any removed node appears on the viewport's path or
// on either end of its in-flight transition. Paths are a handful of levels
// deep, so the scan per removed id is cheap.
func touches(v *domain.Viewport, removed []domain.NodeID) bool {
	for _, id := range removed {
		if v.Path.Contains(id) {
			return true
		}
		if v.Pending != nil && (v.Pending.Source.Contains(id) || v.Pending.Target.Contains(id)) {
			return true
		}
	}
	return false
}
