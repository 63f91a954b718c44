package bridge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadesk/strata/pkg/adapters/memory"
	"github.com/stratadesk/strata/pkg/bridge"
	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/engine"
	"github.com/stratadesk/strata/pkg/graph"
	"github.com/stratadesk/strata/pkg/split"
	"github.com/stratadesk/strata/pkg/viewport"
)

type harness struct {
	graph  *graph.Graph
	bridge *bridge.Bridge
	vp     domain.ViewportID

	sector, app domain.NodeID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	g := graph.New()
	t.Cleanup(g.Close)

	vm := viewport.NewManager(g.Root())
	sc := split.NewController(vm)

	var b *bridge.Bridge
	e := engine.New(g, vm, engine.WithEmitter(func(ev domain.Event) { b.Publish(ev) }))
	b = bridge.New(g, e, vm, sc, bridge.WithClusterStore(memory.NewClusterStore()), bridge.WithMetaStore(memory.NewMetaStore()))

	sector, err := g.CreateNode(ctx, g.Root(), domain.KindSector, nil)
	require.NoError(t, err)
	app, err := g.CreateNode(ctx, sector, domain.KindApp, nil)
	require.NoError(t, err)

	result, err := b.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdCreateViewport,
		Payload: map[string]any{"output": "DP-1"},
	})
	require.NoError(t, err)
	v := result.(domain.Viewport)

	return &harness{graph: g, bridge: b, vp: v.ID, sector: sector, app: app}
}

// collect drains events already buffered for the subscriber.
func collect(ch <-chan domain.Event) []domain.Event {
	var out []domain.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func TestDispatch_ZoomRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ch, cancel := h.bridge.Streams().Subscribe("")
	defer cancel()

	_, err := h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdZoomIn,
		Payload: map[string]any{"viewport": string(h.vp), "node": string(h.sector)},
	})
	require.NoError(t, err)

	_, err = h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdCompleteTransition,
		Payload: map[string]any{"viewport": string(h.vp)},
	})
	require.NoError(t, err)

	events := collect(ch)
	var types []domain.EventType
	terminal := 0
	for _, ev := range events {
		types = append(types, ev.Type)
		if ev.Type == domain.EventTransitionCompleted {
			terminal++
		}
	}
	assert.Contains(t, types, domain.EventTransition)
	assert.Equal(t, 1, terminal, "one navigation request yields exactly one terminal event")
}

func TestDispatch_ErrorsProduceErrorEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ch, cancel := h.bridge.Streams().Subscribe("")
	defer cancel()

	_, err := h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdZoomOut,
		Payload: map[string]any{"viewport": string(h.vp)},
	})
	assert.ErrorIs(t, err, domain.ErrAtRoot)

	events := collect(ch)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventError, events[0].Type)
	assert.Equal(t, "at_root", events[0].Code)
	assert.Equal(t, h.vp, events[0].Viewport)
}

func TestDispatch_UnknownCommand(t *testing.T) {
	h := newHarness(t)

	_, err := h.bridge.Dispatch(context.Background(), bridge.Command{Type: "warp"})
	assert.Error(t, err)
}

func TestDispatch_NodeLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.bridge.Dispatch(ctx, bridge.Command{
		Type: bridge.CmdCreateNode,
		Payload: map[string]any{
			"parent": string(h.app),
			"kind":   "window",
			"meta":   `{"title":"editor"}`,
		},
	})
	require.NoError(t, err)
	window := result.(domain.NodeID)
	assert.True(t, h.graph.Snapshot().Contains(window))

	t.Run("invalid kind rejected before the graph is touched", func(t *testing.T) {
		_, err := h.bridge.Dispatch(ctx, bridge.Command{
			Type:    bridge.CmdCreateNode,
			Payload: map[string]any{"parent": string(h.app), "kind": "galaxy"},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidKind)
	})

	ch, cancel := h.bridge.Streams().Subscribe("")
	defer cancel()

	result, err = h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdDeleteNode,
		Payload: map[string]any{"node": string(h.app)},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.NodeID{h.app, window}, result.([]domain.NodeID))

	events := collect(ch)
	var removed *domain.Event
	for i := range events {
		if events[i].Type == domain.EventNodeRemoved {
			removed = &events[i]
		}
	}
	require.NotNil(t, removed, "delete_node publishes node_removed")
	assert.Equal(t, h.app, removed.Node)
}

func TestDispatch_DeleteClampsViewports(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, node := range []domain.NodeID{h.sector, h.app} {
		_, err := h.bridge.Dispatch(ctx, bridge.Command{
			Type:    bridge.CmdZoomIn,
			Payload: map[string]any{"viewport": string(h.vp), "node": string(node)},
		})
		require.NoError(t, err)
		_, err = h.bridge.Dispatch(ctx, bridge.Command{
			Type:    bridge.CmdCompleteTransition,
			Payload: map[string]any{"viewport": string(h.vp)},
		})
		require.NoError(t, err)
	}

	ch, cancel := h.bridge.Streams().Subscribe("")
	defer cancel()

	_, err := h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdDeleteNode,
		Payload: map[string]any{"node": string(h.app)},
	})
	require.NoError(t, err)

	events := collect(ch)
	var nodeRemoved *domain.Event
	for i := range events {
		if events[i].Type == domain.EventNodeRemoved {
			nodeRemoved = &events[i]
		}
	}
	require.NotNil(t, nodeRemoved)
	assert.Equal(t, []domain.ViewportID{h.vp}, nodeRemoved.Affected)
}

func TestDispatch_SplitAndMerge(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdSplit,
		Payload: map[string]any{"viewport": string(h.vp), "axis": "vertical"},
	})
	require.NoError(t, err)
	secondary := result.(domain.Viewport)
	assert.NotEqual(t, h.vp, secondary.ID)

	t.Run("mismatched pair rejected", func(t *testing.T) {
		other, err := h.bridge.Dispatch(ctx, bridge.Command{
			Type:    bridge.CmdCreateViewport,
			Payload: map[string]any{"output": "DP-2"},
		})
		require.NoError(t, err)

		_, err = h.bridge.Dispatch(ctx, bridge.Command{
			Type: bridge.CmdMerge,
			Payload: map[string]any{
				"primary":   string(other.(domain.Viewport).ID),
				"secondary": string(secondary.ID),
			},
		})
		assert.ErrorIs(t, err, domain.ErrNotSiblings)
	})

	result, err = h.bridge.Dispatch(ctx, bridge.Command{
		Type: bridge.CmdMerge,
		Payload: map[string]any{
			"primary":   string(h.vp),
			"secondary": string(secondary.ID),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, h.vp, result.(domain.Viewport).ID, "merge reports the surviving primary")
}

func TestDispatch_Clusters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Walk the viewport to the sector, bookmark it, return to root, jump back.
	_, err := h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdZoomIn,
		Payload: map[string]any{"viewport": string(h.vp), "node": string(h.sector)},
	})
	require.NoError(t, err)
	_, err = h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdCompleteTransition,
		Payload: map[string]any{"viewport": string(h.vp)},
	})
	require.NoError(t, err)

	_, err = h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdClusterSet,
		Payload: map[string]any{"name": "work", "viewport": string(h.vp)},
	})
	require.NoError(t, err)

	_, err = h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdJumpTo,
		Payload: map[string]any{"viewport": string(h.vp), "path": []string{"root"}},
	})
	require.NoError(t, err)
	_, err = h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdCompleteTransition,
		Payload: map[string]any{"viewport": string(h.vp)},
	})
	require.NoError(t, err)

	_, err = h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdClusterJump,
		Payload: map[string]any{"viewport": string(h.vp), "name": "work"},
	})
	require.NoError(t, err)

	t.Run("unknown cluster", func(t *testing.T) {
		_, err := h.bridge.Dispatch(ctx, bridge.Command{
			Type:    bridge.CmdClusterJump,
			Payload: map[string]any{"viewport": string(h.vp), "name": "nope"},
		})
		assert.ErrorIs(t, err, domain.ErrClusterNotFound)
	})
}

func TestSubscribe_ViewportFilter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	other, err := h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdCreateViewport,
		Payload: map[string]any{"output": "DP-2"},
	})
	require.NoError(t, err)
	otherID := other.(domain.Viewport).ID

	ch, cancel := h.bridge.Streams().Subscribe(h.vp)
	defer cancel()

	_, err = h.bridge.Dispatch(ctx, bridge.Command{
		Type:    bridge.CmdZoomIn,
		Payload: map[string]any{"viewport": string(otherID), "node": string(h.sector)},
	})
	require.NoError(t, err)

	assert.Empty(t, collect(ch), "events for other viewports are filtered out")
}
