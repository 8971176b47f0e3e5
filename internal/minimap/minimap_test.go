// internal/minimap/minimap_test.go

package minimap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonata22/countries-quiz/internal/atlas"
	"github.com/sonata22/countries-quiz/internal/viewport"
)

// square builds a closed axis-aligned ring.
func square(x0, y0, x1, y1 float64) []atlas.Point {
	return []atlas.Point{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0}}
}

func testAtlas(t *testing.T) *atlas.Atlas {
	t.Helper()
	a, err := atlas.New([]atlas.Country{
		{
			Name:  "West",
			Rings: [][]atlas.Point{square(-10, -10, -2, 10)},
			BBox:  viewport.Bounds{X0: -10, Y0: -10, X1: -2, Y1: 10},
		},
		{
			Name:  "East",
			Rings: [][]atlas.Point{square(2, -10, 10, 10)},
			BBox:  viewport.Bounds{X0: 2, Y0: -10, X1: 10, Y1: 10},
		},
	})
	require.NoError(t, err)
	return a
}

func TestRasterizeClassifiesCells(t *testing.T) {
	a := testAtlas(t)

	g := Rasterize(a, Options{
		Width:  4,
		Height: 1,
		View:   viewport.Bounds{X0: -12, Y0: -1, X1: 12, Y1: 1},
		Target: "East",
		IsGuessed: func(name string) bool {
			return name == "West"
		},
	})

	// Columns sample lon -9, -3, 3, 9 at lat 0.
	assert.Equal(t, CellGuessed, g.At(0, 0))
	assert.Equal(t, CellGuessed, g.At(1, 0))
	assert.Equal(t, CellTarget, g.At(2, 0))
	assert.Equal(t, CellTarget, g.At(3, 0))
}

func TestRasterizeWaterBetweenCountries(t *testing.T) {
	a := testAtlas(t)

	g := Rasterize(a, Options{
		Width:  3,
		Height: 1,
		View:   viewport.Bounds{X0: -4.5, Y0: -1, X1: 4.5, Y1: 1},
	})

	// Columns sample lon -3, 0, 3; the strip between the squares is water
	// and without target or guesses land stays land.
	assert.Equal(t, CellLand, g.At(0, 0))
	assert.Equal(t, CellWater, g.At(1, 0))
	assert.Equal(t, CellLand, g.At(2, 0))
}

func TestRasterizeRowZeroIsNorth(t *testing.T) {
	a, err := atlas.New([]atlas.Country{{
		Name:  "North Cap",
		Rings: [][]atlas.Point{square(-10, 0, 10, 10)},
		BBox:  viewport.Bounds{X0: -10, Y0: 0, X1: 10, Y1: 10},
	}})
	require.NoError(t, err)

	g := Rasterize(a, Options{
		Width:  1,
		Height: 2,
		View:   viewport.Bounds{X0: -10, Y0: -10, X1: 10, Y1: 10},
	})

	assert.Equal(t, CellLand, g.At(0, 0), "top row maps to high latitude")
	assert.Equal(t, CellWater, g.At(0, 1))
}

func TestRasterizeZoomChangesCoverage(t *testing.T) {
	a := testAtlas(t)

	wide := Rasterize(a, Options{Width: 8, Height: 1, View: viewport.Bounds{X0: -180, Y0: -1, X1: 180, Y1: 1}})
	tight := Rasterize(a, Options{Width: 8, Height: 1, View: viewport.Bounds{X0: -10, Y0: -1, X1: -2, Y1: 1}})

	count := func(g Grid, c Cell) int {
		n := 0
		for _, v := range g.Cells {
			if v == c {
				n++
			}
		}
		return n
	}
	assert.Greater(t, count(tight, CellLand), count(wide, CellLand))
}

func TestRasterizeDegenerateSize(t *testing.T) {
	a := testAtlas(t)

	g := Rasterize(a, Options{Width: 0, Height: 5, View: a.Bounds()})
	assert.Empty(t, g.Cells)
}

func TestGridDebugString(t *testing.T) {
	a := testAtlas(t)

	g := Rasterize(a, Options{
		Width:  4,
		Height: 1,
		View:   viewport.Bounds{X0: -12, Y0: -1, X1: 12, Y1: 1},
		Target: "West",
	})
	assert.Equal(t, "@@##\n", g.String())
}
