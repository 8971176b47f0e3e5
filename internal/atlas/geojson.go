// internal/atlas/geojson.go
//
// Minimal GeoJSON decoding for the country dataset.
// Responsibilities:
//   - Decode a FeatureCollection of Polygon / MultiPolygon features.
//   - Keep exterior rings only (holes are irrelevant at quiz scale).
//   - Identify countries by the NAME property and attach the ISO_A2 code
//     when the dataset has one ("-99" marks territories without a code).
//
// Features with a blank name or degenerate geometry are skipped rather than
// failing the whole load.

package atlas

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/sonata22/countries-quiz/internal/viewport"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Properties struct {
		Name string `json:"NAME"`
		ISO2 string `json:"ISO_A2"`
	} `json:"properties"`
	Geometry struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
}

// parseFeatureCollection turns raw GeoJSON into countries. Features that
// share a NAME are merged into one country with all their rings.
func parseFeatureCollection(raw []byte) ([]Country, error) {
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("atlas: decode geojson: %w", err)
	}

	var (
		countries []Country
		byKey     = map[string]int{}
	)
	for _, f := range fc.Features {
		name := strings.TrimSpace(f.Properties.Name)
		if name == "" {
			continue
		}
		rings, err := decodeRings(f.Geometry.Type, f.Geometry.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("atlas: feature %q: %w", name, err)
		}
		if len(rings) == 0 {
			continue
		}

		key := strings.ToLower(name)
		if i, ok := byKey[key]; ok {
			countries[i].Rings = append(countries[i].Rings, rings...)
			countries[i].BBox = ringsBounds(countries[i].Rings)
			continue
		}
		byKey[key] = len(countries)
		countries = append(countries, Country{
			Name:  name,
			ISO2:  normalizeISO2(f.Properties.ISO2),
			Rings: rings,
			BBox:  ringsBounds(rings),
		})
	}
	return countries, nil
}

// decodeRings extracts exterior rings from a Polygon or MultiPolygon.
// Other geometry types yield no rings.
func decodeRings(geomType string, coords json.RawMessage) ([][]Point, error) {
	switch geomType {
	case "Polygon":
		var poly [][][]float64
		if err := json.Unmarshal(coords, &poly); err != nil {
			return nil, fmt.Errorf("polygon coordinates: %w", err)
		}
		if r := exteriorRing(poly); r != nil {
			return [][]Point{r}, nil
		}
		return nil, nil
	case "MultiPolygon":
		var multi [][][][]float64
		if err := json.Unmarshal(coords, &multi); err != nil {
			return nil, fmt.Errorf("multipolygon coordinates: %w", err)
		}
		var rings [][]Point
		for _, poly := range multi {
			if r := exteriorRing(poly); r != nil {
				rings = append(rings, r)
			}
		}
		return rings, nil
	default:
		return nil, nil
	}
}

// exteriorRing converts the first ring of a polygon, dropping rings with
// fewer than three vertices.
func exteriorRing(poly [][][]float64) []Point {
	if len(poly) == 0 || len(poly[0]) < 3 {
		return nil
	}
	ring := make([]Point, 0, len(poly[0]))
	for _, pos := range poly[0] {
		if len(pos) < 2 {
			return nil
		}
		ring = append(ring, Point{X: pos[0], Y: pos[1]})
	}
	return ring
}

// normalizeISO2 lowercases a two-letter code and drops dataset placeholders.
func normalizeISO2(code string) string {
	code = strings.TrimSpace(code)
	if len(code) != 2 {
		return ""
	}
	code = strings.ToLower(code)
	if code == "-9" || strings.ContainsAny(code, "-0123456789") {
		return ""
	}
	return code
}

// ringsBounds is the bounding box of a set of rings.
func ringsBounds(rings [][]Point) viewport.Bounds {
	b := viewport.Bounds{
		X0: math.Inf(1), Y0: math.Inf(1),
		X1: math.Inf(-1), Y1: math.Inf(-1),
	}
	for _, ring := range rings {
		for _, p := range ring {
			if p.X < b.X0 {
				b.X0 = p.X
			}
			if p.Y < b.Y0 {
				b.Y0 = p.Y
			}
			if p.X > b.X1 {
				b.X1 = p.X
			}
			if p.Y > b.Y1 {
				b.Y1 = p.Y
			}
		}
	}
	return b
}
