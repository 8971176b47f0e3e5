package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// world uses the plate carree extent of the map data: 360 wide, 180 tall.
var world = Bounds{X0: -180, Y0: -90, X1: 180, Y1: 90}

func TestZoomInFromWorldShrinksAndStaysInside(t *testing.T) {
	tr := NewTransform(world)
	cx, cy := world.Center()

	b := tr.Zoom(world, 0.8, cx, cy)
	assert.InDelta(t, world.Width()*0.8, b.Width(), 1e-9)
	assert.InDelta(t, world.Height()*0.8, b.Height(), 1e-9)
	assert.GreaterOrEqual(t, b.X0, world.X0)
	assert.GreaterOrEqual(t, b.Y0, world.Y0)
	assert.LessOrEqual(t, b.X1, world.X1)
	assert.LessOrEqual(t, b.Y1, world.Y1)
}

func TestZoomRejectsPastMaxZoomIn(t *testing.T) {
	tr := NewTransform(world)
	cx, cy := world.Center()

	b := world
	for i := 0; i < 50; i++ {
		b = tr.Zoom(b, 0.8, cx, cy)
	}
	// Converged: one more request would cross the 1/3 floor and is rejected.
	require.GreaterOrEqual(t, b.Width(), world.Width()/MaxZoomIn-1e-9)
	again := tr.Zoom(b, 0.8, cx, cy)
	assert.Equal(t, b, again)
}

func TestZoomOutSnapsExactlyToWorld(t *testing.T) {
	tr := NewTransform(world)
	cx, cy := world.Center()

	b := tr.Zoom(world, 0.5, cx, cy)
	for i := 0; i < 20; i++ {
		b = tr.Zoom(b, 1.25, cx, cy)
	}
	assert.Equal(t, world, b, "zooming out must land exactly on the world bounds")
}

func TestZoomAboutOffCenterPointShiftsBackInside(t *testing.T) {
	tr := NewTransform(world)

	// Zoom in hard around the world's corner; the window must be clamped so
	// it still fits, with the requested size preserved.
	b := tr.Zoom(world, 0.4, world.X1, world.Y1)
	assert.InDelta(t, world.Width()*0.4, b.Width(), 1e-9)
	assert.LessOrEqual(t, b.X1, world.X1+1e-9)
	assert.LessOrEqual(t, b.Y1, world.Y1+1e-9)
	assert.GreaterOrEqual(t, b.X0, world.X0-1e-9)
}

func TestZoomIgnoresNonsenseFactors(t *testing.T) {
	tr := NewTransform(world)
	cx, cy := world.Center()
	b := tr.Zoom(world, 0.5, cx, cy)

	assert.Equal(t, b, tr.Zoom(b, 0, cx, cy))
	assert.Equal(t, b, tr.Zoom(b, -2, cx, cy))
}

func TestPanAtWorldViewIsNoOp(t *testing.T) {
	tr := NewTransform(world)
	assert.Equal(t, world, tr.Pan(world, 120, -40, 0.5))
}

func TestPanTranslatesAndClamps(t *testing.T) {
	tr := NewTransform(world)
	cx, cy := world.Center()
	b := tr.Zoom(world, 0.5, cx, cy)

	moved := tr.Pan(b, 10, -6, 2) // 2 data units per pixel
	assert.InDelta(t, b.X0+20, moved.X0, 1e-9)
	assert.InDelta(t, b.Y0-12, moved.Y0, 1e-9)
	assert.InDelta(t, b.Width(), moved.Width(), 1e-9)

	// A huge drag may not leave the world.
	far := tr.Pan(b, 1e6, 1e6, 2)
	assert.InDelta(t, world.X1, far.X1, 1e-9)
	assert.InDelta(t, world.Y1, far.Y1, 1e-9)
	assert.InDelta(t, b.Width(), far.Width(), 1e-9)
}

func TestAroundCentersAndRespectsLimits(t *testing.T) {
	tr := NewTransform(world)

	b := tr.Around(10, 20, 90)
	gotX, gotY := b.Center()
	assert.InDelta(t, 10, gotX, 1e-9)
	assert.InDelta(t, 20, gotY, 1e-9)
	assert.InDelta(t, 90.0, b.Width(), 1e-9)

	// Requests below the zoom floor are widened to the floor.
	tiny := tr.Around(0, 0, 1)
	assert.InDelta(t, world.Width()/MaxZoomIn, tiny.Width(), 1e-9)

	// Requests at or past the world width return the world itself.
	assert.Equal(t, world, tr.Around(0, 0, world.Width()))
	assert.Equal(t, world, tr.Around(0, 0, world.Width()*2))

	// Near an edge the window shifts inside instead of sticking out.
	edge := tr.Around(world.X1, 0, 90)
	assert.LessOrEqual(t, edge.X1, world.X1+1e-9)
	assert.InDelta(t, 90.0, edge.Width(), 1e-9)
}

func TestNewTransformNormalizesInvertedCorners(t *testing.T) {
	tr := NewTransform(Bounds{X0: 180, Y0: 90, X1: -180, Y1: -90})
	assert.Equal(t, world, tr.World())
}
