package split_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadesk/strata/pkg/domain"
	"github.com/stratadesk/strata/pkg/split"
	"github.com/stratadesk/strata/pkg/viewport"
)

const root domain.NodeID = "root"

func setup() (*viewport.Manager, *split.Controller, domain.Viewport) {
	vm := viewport.NewManager(root)
	c := split.NewController(vm)
	primary := vm.Create(domain.Anchor{Output: "DP-1", Geometry: domain.FullGeometry()})
	return vm, c, primary
}

func TestSplitVertical(t *testing.T) {
	vm, c, primary := setup()
	ctx := context.Background()

	secondary, err := c.Split(ctx, primary.ID, split.AxisVertical)
	require.NoError(t, err)

	left, err := vm.Get(primary.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Geometry{X: 0, Y: 0, Width: 0.5, Height: 1}, left.Anchor.Geometry)

	right, err := vm.Get(secondary.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Geometry{X: 0.5, Y: 0, Width: 0.5, Height: 1}, right.Anchor.Geometry)
	assert.Equal(t, "DP-1", right.Anchor.Output, "secondary shares the primary's output")

	got, ok := c.PrimaryOf(secondary.ID)
	require.True(t, ok)
	assert.Equal(t, primary.ID, got)
}

func TestSplitHorizontal(t *testing.T) {
	vm, c, primary := setup()
	ctx := context.Background()

	secondary, err := c.Split(ctx, primary.ID, split.AxisHorizontal)
	require.NoError(t, err)

	top, _ := vm.Get(primary.ID)
	bottom, _ := vm.Get(secondary.ID)
	assert.Equal(t, domain.Geometry{X: 0, Y: 0, Width: 1, Height: 0.5}, top.Anchor.Geometry)
	assert.Equal(t, domain.Geometry{X: 0, Y: 0.5, Width: 1, Height: 0.5}, bottom.Anchor.Geometry)
}

func TestSplit_SecondaryStartsAtSector(t *testing.T) {
	vm, c, primary := setup()
	ctx := context.Background()

	deep := domain.Path{root, "sector-1", "app-1", "window-1"}
	require.NoError(t, vm.Update(ctx, primary.ID, func(v *domain.Viewport) error {
		v.Path = deep
		return nil
	}))

	secondary, err := c.Split(ctx, primary.ID, split.AxisVertical)
	require.NoError(t, err)
	assert.Equal(t, domain.Path{root, "sector-1"}, secondary.Path)

	// The primary keeps navigating at its own depth.
	p, _ := vm.Get(primary.ID)
	assert.Equal(t, deep, p.Path)
}

func TestSplit_Rejections(t *testing.T) {
	vm, c, primary := setup()
	ctx := context.Background()

	t.Run("invalid axis", func(t *testing.T) {
		_, err := c.Split(ctx, primary.ID, split.Axis("diagonal"))
		assert.Error(t, err)
	})

	t.Run("transitioning primary", func(t *testing.T) {
		require.NoError(t, vm.Update(ctx, primary.ID, func(v *domain.Viewport) error {
			v.Transitioning = true
			return nil
		}))
		_, err := c.Split(ctx, primary.ID, split.AxisVertical)
		assert.ErrorIs(t, err, domain.ErrBusy)
	})

	t.Run("unknown viewport", func(t *testing.T) {
		_, err := c.Split(ctx, "nope", split.AxisVertical)
		assert.ErrorIs(t, err, domain.ErrViewportNotFound)
	})
}

func TestMerge(t *testing.T) {
	vm, c, primary := setup()
	ctx := context.Background()

	secondary, err := c.Split(ctx, primary.ID, split.AxisVertical)
	require.NoError(t, err)

	require.NoError(t, c.Merge(ctx, primary.ID, secondary.ID))

	restored, err := vm.Get(primary.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FullGeometry(), restored.Anchor.Geometry, "merge restores the combined region")

	_, err = vm.Get(secondary.ID)
	assert.ErrorIs(t, err, domain.ErrViewportNotFound)

	_, ok := c.PrimaryOf(secondary.ID)
	assert.False(t, ok)

	t.Run("not a secondary", func(t *testing.T) {
		err := c.Merge(ctx, secondary.ID, primary.ID)
		assert.ErrorIs(t, err, domain.ErrNotSiblings)
	})
}

func TestMerge_RejectsMismatchedPair(t *testing.T) {
	vm, c, primary := setup()
	ctx := context.Background()
	other := vm.Create(domain.Anchor{Output: "DP-2", Geometry: domain.FullGeometry()})

	secondary, err := c.Split(ctx, primary.ID, split.AxisVertical)
	require.NoError(t, err)

	err = c.Merge(ctx, other.ID, secondary.ID)
	assert.ErrorIs(t, err, domain.ErrNotSiblings)

	// The rejected merge must leave the real pair intact.
	_, err = vm.Get(secondary.ID)
	require.NoError(t, err)
	got, ok := c.PrimaryOf(secondary.ID)
	require.True(t, ok)
	assert.Equal(t, primary.ID, got)

	require.NoError(t, c.Merge(ctx, primary.ID, secondary.ID))
}

func TestForget(t *testing.T) {
	_, c, primary := setup()
	ctx := context.Background()

	secondary, err := c.Split(ctx, primary.ID, split.AxisVertical)
	require.NoError(t, err)

	// Simulates both panes being destroyed by an output detach.
	c.Forget(primary.ID, secondary.ID)

	_, ok := c.PrimaryOf(secondary.ID)
	assert.False(t, ok)
}
