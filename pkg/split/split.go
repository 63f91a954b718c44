// Package split manages paired viewports sharing one output. A split halves
// the primary viewport's region and spawns a secondary viewport beside it;
// merging gives the region back and retires the secondary. Pairing is
// tracked here, not in the viewport manager, because the two cursors stay
// fully independent once created.
package split

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stratadesk/strata/internal/logging"
	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/viewport"
)

// Axis selects the direction a region is divided along.
type Axis string

const (
	// AxisVertical places the halves side by side.
	AxisVertical Axis = "vertical"
	// AxisHorizontal stacks the halves.
	AxisHorizontal Axis = "horizontal"
)

// Valid reports whether the axis is one of the two known values.
func (a Axis) Valid() bool {
	return a == AxisVertical || a == AxisHorizontal
}

// maxSecondaryDepth caps how deep a freshly split secondary starts: it opens
// at its primary's sector, never deeper, so the new pane always shows a
// recognizable context.
const maxSecondaryDepth = 2

// Controller creates and dissolves viewport pairs.
type Controller struct {
	viewports *viewport.Manager
	emit      domain.Emitter
	logger    *slog.Logger

	mu    sync.Mutex
	pairs map[domain.ViewportID]domain.ViewportID // secondary -> primary
}

// Option configures the Controller.
type Option func(*Controller)

// WithEmitter registers the event sink.
func WithEmitter(emit domain.Emitter) Option {
	return func(c *Controller) {
		c.emit = emit
	}
}

// WithLogger configures a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a controller over the given viewport manager.
func NewController(vm *viewport.Manager, opts ...Option) *Controller {
	c := &Controller{
		viewports: vm,
		logger:    logging.NewNop(),
		pairs:     make(map[domain.ViewportID]domain.ViewportID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// halves divides g along the axis, returning the region kept by the primary
// and the region given to the secondary.
func halves(g domain.Geometry, axis Axis) (first, second domain.Geometry) {
	first, second = g, g
	switch axis {
	case AxisVertical:
		first.Width = g.Width / 2
		second.Width = g.Width / 2
		second.X = g.X + first.Width
	case AxisHorizontal:
		first.Height = g.Height / 2
		second.Height = g.Height / 2
		second.Y = g.Y + first.Height
	}
	return first, second
}

// union restores the region covered by both halves of a pair.
func union(a, b domain.Geometry) domain.Geometry {
	out := a
	if b.X < out.X {
		out.X = b.X
	}
	if b.Y < out.Y {
		out.Y = b.Y
	}
	if r := b.X + b.Width; r > out.X+out.Width {
		out.Width = r - out.X
	}
	if btm := b.Y + b.Height; btm > out.Y+out.Height {
		out.Height = btm - out.Y
	}
	return out
}

// Split halves the primary viewport's region along the axis and creates a
// secondary viewport in the freed half. The secondary starts at the
// primary's sector (or the overview when the primary is there) and navigates
// independently from then on. A transitioning primary cannot be split.
func (c *Controller) Split(ctx context.Context, primary domain.ViewportID, axis Axis) (domain.Viewport, error) {
	if !axis.Valid() {
		return domain.Viewport{}, fmt.Errorf("unknown split axis %q", axis)
	}

	var secondaryAnchor domain.Anchor
	var startPath domain.Path
	err := c.viewports.Update(ctx, primary, func(v *domain.Viewport) error {
		if v.Transitioning {
			return fmt.Errorf("viewport %s: %w", primary, domain.ErrBusy)
		}

		kept, freed := halves(v.Anchor.Geometry, axis)
		v.Anchor.Geometry = kept

		secondaryAnchor = v.Anchor
		secondaryAnchor.Geometry = freed

		startPath = v.Path.Clone()
		if len(startPath) > maxSecondaryDepth {
			startPath = startPath[:maxSecondaryDepth]
		}
		return nil
	})
	if err != nil {
		return domain.Viewport{}, err
	}

	secondary := c.viewports.Create(secondaryAnchor)
	err = c.viewports.Update(ctx, secondary.ID, func(v *domain.Viewport) error {
		v.Path = startPath
		return nil
	})
	if err != nil {
		return domain.Viewport{}, err
	}
	secondary.Path = startPath

	c.mu.Lock()
	c.pairs[secondary.ID] = primary
	c.mu.Unlock()

	c.logger.Debug("viewport split", "primary", primary, "secondary", secondary.ID, "axis", axis)
	c.emit.Emit(domain.Event{Type: domain.EventViewportCreated, Viewport: secondary.ID, Path: startPath, Depth: startPath.Depth()})
	return secondary, nil
}

// Merge dissolves a pair: the primary reclaims the combined region and the
// secondary viewport is destroyed. The two viewports must be the exact pair
// recorded by Split; any other combination fails with ErrNotSiblings.
func (c *Controller) Merge(ctx context.Context, primary, secondary domain.ViewportID) error {
	c.mu.Lock()
	recorded, ok := c.pairs[secondary]
	c.mu.Unlock()
	if !ok || recorded != primary {
		return fmt.Errorf("viewports %s and %s did not originate from the same split: %w", primary, secondary, domain.ErrNotSiblings)
	}

	sec, err := c.viewports.Get(secondary)
	if err != nil {
		return err
	}

	err = c.viewports.Update(ctx, primary, func(v *domain.Viewport) error {
		v.Anchor.Geometry = union(v.Anchor.Geometry, sec.Anchor.Geometry)
		return nil
	})
	if err != nil {
		return err
	}

	if err := c.viewports.Destroy(secondary); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.pairs, secondary)
	c.mu.Unlock()

	c.logger.Debug("viewports merged", "primary", primary, "secondary", secondary)
	c.emit.Emit(domain.Event{Type: domain.EventViewportDestroyed, Viewport: secondary})
	return nil
}

// PrimaryOf returns the primary a secondary was split from.
func (c *Controller) PrimaryOf(secondary domain.ViewportID) (domain.ViewportID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	primary, ok := c.pairs[secondary]
	return primary, ok
}

// Forget drops pair bookkeeping for viewports that no longer exist, e.g.
// after an output detach destroyed them out from under the controller.
func (c *Controller) Forget(ids ...domain.ViewportID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.pairs, id)
		for sec, prim := range c.pairs {
			if prim == id {
				delete(c.pairs, sec)
			}
		}
	}
}
