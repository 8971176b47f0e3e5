// internal/minimap/minimap.go
//
// Character-cell rasterizer for the terminal map.
// Responsibilities:
//   - Sample the visible region of the atlas into a W x H grid of cells.
//   - Classify each cell as water, land, guessed country, or the current
//     target so the terminal UI can color it.
//
// Row 0 is the top of the screen, which maps to the highest latitude of the
// view. Each cell is sampled at its center; countries are hit-tested with an
// even-odd crossing test against their exterior rings, bounding boxes first.

package minimap

import (
	"strings"

	"github.com/sonata22/countries-quiz/internal/atlas"
	"github.com/sonata22/countries-quiz/internal/viewport"
)

// Cell classifies one character cell of the rendered map.
type Cell uint8

const (
	CellWater Cell = iota
	CellLand
	CellGuessed
	CellTarget
)

// Grid is a rasterized map, row-major.
type Grid struct {
	W, H  int
	Cells []Cell
}

// At returns the cell at column x, row y.
func (g Grid) At(x, y int) Cell { return g.Cells[y*g.W+x] }

// String renders the grid with debug runes: '.' water, '#' land,
// '+' guessed, '@' target.
func (g Grid) String() string {
	runes := map[Cell]byte{CellWater: '.', CellLand: '#', CellGuessed: '+', CellTarget: '@'}
	var b strings.Builder
	b.Grow((g.W + 1) * g.H)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			b.WriteByte(runes[g.At(x, y)])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Options selects the region to rasterize and how to classify countries.
type Options struct {
	Width, Height int
	View          viewport.Bounds
	Target        string            // country drawn as CellTarget
	IsGuessed     func(string) bool // countries drawn as CellGuessed; may be nil
}

// Rasterize samples the atlas into a grid. Width and Height must be positive.
func Rasterize(a *atlas.Atlas, opts Options) Grid {
	if opts.Width <= 0 || opts.Height <= 0 {
		return Grid{}
	}
	g := Grid{
		W:     opts.Width,
		H:     opts.Height,
		Cells: make([]Cell, opts.Width*opts.Height),
	}

	cellW := opts.View.Width() / float64(opts.Width)
	cellH := opts.View.Height() / float64(opts.Height)

	countries := a.Countries()
	for y := 0; y < opts.Height; y++ {
		lat := opts.View.Y1 - (float64(y)+0.5)*cellH
		for x := 0; x < opts.Width; x++ {
			lon := opts.View.X0 + (float64(x)+0.5)*cellW
			g.Cells[y*opts.Width+x] = classify(countries, lon, lat, opts)
		}
	}
	return g
}

// classify finds the country containing the point and maps it to a cell.
func classify(countries []atlas.Country, lon, lat float64, opts Options) Cell {
	for _, c := range countries {
		if lon < c.BBox.X0 || lon > c.BBox.X1 || lat < c.BBox.Y0 || lat > c.BBox.Y1 {
			continue
		}
		if !containsPoint(c.Rings, lon, lat) {
			continue
		}
		switch {
		case strings.EqualFold(c.Name, opts.Target):
			return CellTarget
		case opts.IsGuessed != nil && opts.IsGuessed(c.Name):
			return CellGuessed
		default:
			return CellLand
		}
	}
	return CellWater
}

// containsPoint reports whether any ring contains the point.
func containsPoint(rings [][]atlas.Point, x, y float64) bool {
	for _, ring := range rings {
		if pointInRing(ring, x, y) {
			return true
		}
	}
	return false
}

// pointInRing is the even-odd ray crossing test.
func pointInRing(ring []atlas.Point, x, y float64) bool {
	in := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		pi, pj := ring[i], ring[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			in = !in
		}
		j = i
	}
	return in
}
