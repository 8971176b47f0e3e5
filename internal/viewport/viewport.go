// internal/viewport/viewport.go
//
// Pure pan/zoom math for the visible map window.
// Responsibilities:
//   - Scale bounds around a point with the world's aspect ratio locked.
//   - Clamp every result inside the full world extent (shift, never shrink).
//   - Enforce the zoom range: at most 3x linear zoom-in, and zooming out
//     snaps to exactly the world bounds instead of overshooting.
//
// Out-of-range requests are silent no-ops that return the input unchanged;
// nothing here errors and nothing here holds mutable state.
package viewport

import "math"

// MaxZoomIn is the maximum linear magnification relative to the world view.
const MaxZoomIn = 3.0

const epsilon = 1e-9

// Bounds is an axis-aligned window in data coordinates.
type Bounds struct {
	X0, Y0 float64 // lower-left corner
	X1, Y1 float64 // upper-right corner
}

// Width returns the horizontal extent of b.
func (b Bounds) Width() float64 { return b.X1 - b.X0 }

// Height returns the vertical extent of b.
func (b Bounds) Height() float64 { return b.Y1 - b.Y0 }

// Center returns the midpoint of b.
func (b Bounds) Center() (x, y float64) {
	return (b.X0 + b.X1) / 2, (b.Y0 + b.Y1) / 2
}

// approxEqual compares two bounds within epsilon on every edge.
func (b Bounds) approxEqual(o Bounds) bool {
	return math.Abs(b.X0-o.X0) < epsilon &&
		math.Abs(b.Y0-o.Y0) < epsilon &&
		math.Abs(b.X1-o.X1) < epsilon &&
		math.Abs(b.Y1-o.Y1) < epsilon
}

// Transform applies zoom and pan requests relative to a fixed world extent.
// The zero value is unusable; construct with NewTransform.
type Transform struct {
	world Bounds
}

// NewTransform builds a Transform for the given world bounds, normalizing
// inverted corners. The world is the fully zoomed-out view.
func NewTransform(world Bounds) Transform {
	if world.X0 > world.X1 {
		world.X0, world.X1 = world.X1, world.X0
	}
	if world.Y0 > world.Y1 {
		world.Y0, world.Y1 = world.Y1, world.Y0
	}
	return Transform{world: world}
}

// World returns the full extent, which is also the default view.
func (t Transform) World() Bounds { return t.world }

// Zoom scales cur by factor around the data point (cx, cy). Factors below 1
// zoom in, above 1 zoom out. The vertical extent is derived from the world's
// aspect ratio so the window never distorts.
//
// Requests that would exceed MaxZoomIn return cur unchanged; requests that
// would reach or pass the world extent return exactly the world bounds;
// anything else is shifted as needed to stay fully inside the world.
func (t Transform) Zoom(cur Bounds, factor float64, cx, cy float64) Bounds {
	worldW := t.world.Width()
	if factor <= 0 || worldW <= 0 {
		return cur
	}

	newW := cur.Width() * factor
	if newW < worldW/MaxZoomIn-epsilon {
		return cur
	}
	if newW >= worldW-epsilon {
		return t.world
	}

	newH := newW * t.world.Height() / worldW
	fy := 1.0
	if h := cur.Height(); h > 0 {
		fy = newH / h
	}
	b := Bounds{
		X0: cx + (cur.X0-cx)*factor,
		X1: cx + (cur.X1-cx)*factor,
		Y0: cy + (cur.Y0-cy)*fy,
		Y1: cy + (cur.Y1-cy)*fy,
	}
	return t.clampInside(b)
}

// Pan translates cur by a pointer displacement measured in pixels.
// unitsPerPx converts pixels to data units. Panning at the full world view is
// a no-op; results are clamped inside the world like Zoom results.
func (t Transform) Pan(cur Bounds, dxPx, dyPx, unitsPerPx float64) Bounds {
	if cur.approxEqual(t.world) {
		return cur
	}
	dx := dxPx * unitsPerPx
	dy := dyPx * unitsPerPx
	b := Bounds{X0: cur.X0 + dx, Y0: cur.Y0 + dy, X1: cur.X1 + dx, Y1: cur.Y1 + dy}
	return t.clampInside(b)
}

// Around builds a view of the given width centered on (cx, cy), subject to
// the same zoom range and containment rules as Zoom. Renderers use it to jump
// the window to a country without accumulating zoom steps.
func (t Transform) Around(cx, cy, width float64) Bounds {
	worldW := t.world.Width()
	if worldW <= 0 {
		return t.world
	}
	if width < worldW/MaxZoomIn {
		width = worldW / MaxZoomIn
	}
	if width >= worldW-epsilon {
		return t.world
	}
	height := width * t.world.Height() / worldW
	b := Bounds{
		X0: cx - width/2,
		X1: cx + width/2,
		Y0: cy - height/2,
		Y1: cy + height/2,
	}
	return t.clampInside(b)
}

// clampInside shifts b so it lies fully within the world. The caller
// guarantees b is no larger than the world on either axis.
func (t Transform) clampInside(b Bounds) Bounds {
	if b.X0 < t.world.X0 {
		d := t.world.X0 - b.X0
		b.X0 += d
		b.X1 += d
	} else if b.X1 > t.world.X1 {
		d := b.X1 - t.world.X1
		b.X0 -= d
		b.X1 -= d
	}
	if b.Y0 < t.world.Y0 {
		d := t.world.Y0 - b.Y0
		b.Y0 += d
		b.Y1 += d
	} else if b.Y1 > t.world.Y1 {
		d := b.Y1 - t.world.Y1
		b.Y0 -= d
		b.Y1 -= d
	}
	return b
}
