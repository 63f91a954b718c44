package engine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/engine"
	"github.com/stratadesk/strata/pkg/graph"
	"github.com/stratadesk/strata/pkg/viewport"
)

// recorder collects events so tests can assert on protocol traffic.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) emit(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	graph  *graph.Graph
	engine *engine.Engine
	rec    *recorder
	vp     domain.ViewportID

	sector, app, window domain.NodeID
}

// newFixture builds root > sector > app > window with one viewport at root.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	g := graph.New()
	t.Cleanup(g.Close)

	sector, err := g.CreateNode(ctx, g.Root(), domain.KindSector, nil)
	require.NoError(t, err)
	app, err := g.CreateNode(ctx, sector, domain.KindApp, nil)
	require.NoError(t, err)
	window, err := g.CreateNode(ctx, app, domain.KindWindow, nil)
	require.NoError(t, err)

	vm := viewport.NewManager(g.Root())
	rec := &recorder{}
	e := engine.New(g, vm, engine.WithEmitter(rec.emit))

	v := vm.Create(domain.Anchor{Output: "DP-1", Geometry: domain.FullGeometry()})
	return &fixture{graph: g, engine: e, rec: rec, vp: v.ID, sector: sector, app: app, window: window}
}

func TestZoomInRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.ZoomIn(ctx, f.vp, f.sector))

	transitions := f.rec.ofType(domain.EventTransition)
	require.Len(t, transitions, 1)
	assert.Equal(t, domain.Path{f.graph.Root()}, transitions[0].FromPath)
	assert.Equal(t, domain.Path{f.graph.Root(), f.sector}, transitions[0].ToPath)
	assert.Equal(t, 1, transitions[0].AncestorIndex)

	// No terminal event until the renderer acknowledges.
	assert.Empty(t, f.rec.ofType(domain.EventTransitionCompleted))

	require.NoError(t, f.engine.CompleteTransition(ctx, f.vp))
	completed := f.rec.ofType(domain.EventTransitionCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, domain.Path{f.graph.Root(), f.sector}, completed[0].Path)
	assert.Equal(t, 1, completed[0].Depth)

	require.NoError(t, f.engine.ZoomOut(ctx, f.vp))
	require.NoError(t, f.engine.CompleteTransition(ctx, f.vp))
	completed = f.rec.ofType(domain.EventTransitionCompleted)
	require.Len(t, completed, 2)
	assert.Equal(t, domain.Path{f.graph.Root()}, completed[1].Path)
}

func TestZoomIn_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("not a child of the current leaf", func(t *testing.T) {
		err := f.engine.ZoomIn(ctx, f.vp, f.window)
		assert.ErrorIs(t, err, domain.ErrInvalidChild)
	})

	t.Run("busy while transitioning", func(t *testing.T) {
		require.NoError(t, f.engine.ZoomIn(ctx, f.vp, f.sector))

		assert.ErrorIs(t, f.engine.ZoomIn(ctx, f.vp, f.app), domain.ErrBusy)
		assert.ErrorIs(t, f.engine.ZoomOut(ctx, f.vp), domain.ErrBusy)
		assert.ErrorIs(t, f.engine.JumpTo(ctx, f.vp, domain.Path{f.graph.Root()}), domain.ErrBusy)
	})

	t.Run("unknown viewport", func(t *testing.T) {
		err := f.engine.ZoomIn(ctx, "nope", f.sector)
		assert.ErrorIs(t, err, domain.ErrViewportNotFound)
	})
}

func TestZoomOut_AtRoot(t *testing.T) {
	f := newFixture(t)

	err := f.engine.ZoomOut(context.Background(), f.vp)
	assert.ErrorIs(t, err, domain.ErrAtRoot)
	assert.Empty(t, f.rec.ofType(domain.EventTransition))
}

func TestJumpTo_CrossBranch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Second branch to jump across: root > sector2 > app2.
	sector2, err := f.graph.CreateNode(ctx, f.graph.Root(), domain.KindSector, nil)
	require.NoError(t, err)
	app2, err := f.graph.CreateNode(ctx, sector2, domain.KindApp, nil)
	require.NoError(t, err)

	// Walk down to the window first.
	for _, child := range []domain.NodeID{f.sector, f.app, f.window} {
		require.NoError(t, f.engine.ZoomIn(ctx, f.vp, child))
		require.NoError(t, f.engine.CompleteTransition(ctx, f.vp))
	}

	target := domain.Path{f.graph.Root(), sector2, app2}
	require.NoError(t, f.engine.JumpTo(ctx, f.vp, target))

	transitions := f.rec.ofType(domain.EventTransition)
	last := transitions[len(transitions)-1]
	assert.Equal(t, domain.Path{f.graph.Root(), f.sector, f.app, f.window}, last.FromPath)
	assert.Equal(t, target, last.ToPath)
	assert.Equal(t, 1, last.AncestorIndex, "branches only share the root")

	completedBefore := len(f.rec.ofType(domain.EventTransitionCompleted))
	require.NoError(t, f.engine.CompleteTransition(ctx, f.vp))
	completed := f.rec.ofType(domain.EventTransitionCompleted)
	require.Len(t, completed, completedBefore+1, "a jump reports exactly one terminal event")
	assert.Equal(t, target, completed[len(completed)-1].Path)
}

func TestJumpTo_EqualPathCompletesImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.JumpTo(ctx, f.vp, domain.Path{f.graph.Root()}))

	assert.Empty(t, f.rec.ofType(domain.EventTransition))
	completed := f.rec.ofType(domain.EventTransitionCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, domain.Path{f.graph.Root()}, completed[0].Path)

	// The viewport never entered flight, so there is nothing to complete.
	err := f.engine.CompleteTransition(ctx, f.vp)
	assert.ErrorIs(t, err, domain.ErrNotTransitioning)
}

func TestJumpTo_InvalidTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.JumpTo(ctx, f.vp, domain.Path{f.graph.Root(), f.app})
	assert.ErrorIs(t, err, domain.ErrNotFound, "skipping a level is not a valid walk")

	err = f.engine.JumpTo(ctx, f.vp, domain.Path{f.sector})
	assert.ErrorIs(t, err, domain.ErrNotFound, "paths must be root-anchored")
}

func TestCancelTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.ZoomIn(ctx, f.vp, f.sector))
	require.NoError(t, f.engine.CancelTransition(ctx, f.vp))

	states := f.rec.ofType(domain.EventViewportState)
	last := states[len(states)-1]
	assert.Equal(t, domain.Path{f.graph.Root()}, last.Path, "cancel restores the pre-transition path")
	assert.False(t, last.Transitioning)

	// Back to idle: navigation is accepted again.
	require.NoError(t, f.engine.ZoomIn(ctx, f.vp, f.sector))

	t.Run("nothing in flight", func(t *testing.T) {
		g := newFixture(t)
		err := g.engine.CancelTransition(ctx, g.vp)
		assert.ErrorIs(t, err, domain.ErrNotTransitioning)
	})
}

func TestCompleteTransition_Idle(t *testing.T) {
	f := newFixture(t)

	err := f.engine.CompleteTransition(context.Background(), f.vp)
	assert.ErrorIs(t, err, domain.ErrNotTransitioning)
}

func TestHandleRemoved_ClampsAffectedViewports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, child := range []domain.NodeID{f.sector, f.app, f.window} {
		require.NoError(t, f.engine.ZoomIn(ctx, f.vp, child))
		require.NoError(t, f.engine.CompleteTransition(ctx, f.vp))
	}

	removed, err := f.graph.DeleteNode(ctx, f.app)
	require.NoError(t, err)

	affected := f.engine.HandleRemoved(ctx, removed)
	assert.Equal(t, []domain.ViewportID{f.vp}, affected)

	states := f.rec.ofType(domain.EventViewportState)
	last := states[len(states)-1]
	assert.Equal(t, domain.Path{f.graph.Root(), f.sector}, last.Path, "path clamps to the deepest surviving ancestor")
	assert.False(t, last.Transitioning)
}

func TestHandleRemoved_CancelsInFlightTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.ZoomIn(ctx, f.vp, f.sector))
	// Deletion lands while the zoom into the sector is still animating.
	removed, err := f.graph.DeleteNode(ctx, f.sector)
	require.NoError(t, err)

	affected := f.engine.HandleRemoved(ctx, removed)
	assert.Equal(t, []domain.ViewportID{f.vp}, affected)

	states := f.rec.ofType(domain.EventViewportState)
	last := states[len(states)-1]
	assert.Equal(t, domain.Path{f.graph.Root()}, last.Path)
	assert.False(t, last.Transitioning)

	// The cancelled transition must not be completable afterwards.
	err = f.engine.CompleteTransition(ctx, f.vp)
	assert.ErrorIs(t, err, domain.ErrNotTransitioning)
}

func TestHandleRemoved_UntouchedViewportsStay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sector2, err := f.graph.CreateNode(ctx, f.graph.Root(), domain.KindSector, nil)
	require.NoError(t, err)

	require.NoError(t, f.engine.ZoomIn(ctx, f.vp, f.sector))
	require.NoError(t, f.engine.CompleteTransition(ctx, f.vp))

	removed, err := f.graph.DeleteNode(ctx, sector2)
	require.NoError(t, err)

	affected := f.engine.HandleRemoved(ctx, removed)
	assert.Empty(t, affected, "viewports elsewhere in the tree are untouched")
}
