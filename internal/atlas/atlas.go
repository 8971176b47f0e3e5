// internal/atlas/atlas.go
//
// Country dataset provider for the quiz.
// Responsibilities:
//   - Acquire the world map GeoJSON at startup, from a local file or over
//     HTTP (Natural Earth 110m admin-0 countries by default).
//   - Expose the parsed countries, per-country geometry, and the total map
//     bounds that define the default (fully zoomed-out) view.
//
// Configuration:
//   WORLD_GEOJSON_FILE=/path/to/countries.geojson  (takes precedence)
//   WORLD_GEOJSON_URL=https://...                  (otherwise fetched)
//
// The dataset is never shipped inside the binary; without a reachable source
// the program cannot start, and an empty or unusable dataset is reported as
// ErrNoCountries before any session exists.

package atlas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sonata22/countries-quiz/internal/viewport"
)

// DefaultURL is the Natural Earth 110m admin-0 countries GeoJSON.
const DefaultURL = "https://raw.githubusercontent.com/nvkelso/natural-earth-vector/master/geojson/ne_110m_admin_0_countries.geojson"

// maxPayload caps how much GeoJSON we are willing to read (the 110m set is
// well under a tenth of this).
const maxPayload = 64 << 20

// ErrNoCountries means the source parsed but contained no usable countries.
var ErrNoCountries = errors.New("atlas: no usable countries in dataset")

// Point is a position in data coordinates (longitude, latitude).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Country is one named territory with its exterior boundary rings.
type Country struct {
	Name  string          `json:"name"`
	ISO2  string          `json:"iso2,omitempty"` // lowercase two-letter code, empty when unknown
	Rings [][]Point       `json:"rings"`
	BBox  viewport.Bounds `json:"bbox"`
}

// Atlas is the immutable, loaded dataset. Safe for concurrent reads.
type Atlas struct {
	countries []Country
	byKey     map[string]int // lowercase name -> countries index
	bounds    viewport.Bounds
}

// Options controls where Load reads the dataset from.
type Options struct {
	URL    string       // HTTP source; DefaultURL when empty
	Path   string       // local file; wins over URL when set
	Client *http.Client // HTTP client; a 30s-timeout client when nil
}

// FromEnv builds Options from WORLD_GEOJSON_FILE / WORLD_GEOJSON_URL.
func FromEnv() Options {
	return Options{
		URL:  os.Getenv("WORLD_GEOJSON_URL"),
		Path: os.Getenv("WORLD_GEOJSON_FILE"),
	}
}

// Load reads, parses, and indexes the dataset.
// Returns ErrNoCountries when the source yields zero usable countries.
func Load(ctx context.Context, opts Options) (*Atlas, error) {
	var (
		raw []byte
		err error
	)
	if opts.Path != "" {
		raw, err = os.ReadFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("atlas: read %s: %w", opts.Path, err)
		}
	} else {
		raw, err = fetch(ctx, opts)
		if err != nil {
			return nil, err
		}
	}

	countries, err := parseFeatureCollection(raw)
	if err != nil {
		return nil, err
	}
	return New(countries)
}

// New indexes an already-decoded country list.
// Returns ErrNoCountries for an empty list.
func New(countries []Country) (*Atlas, error) {
	if len(countries) == 0 {
		return nil, ErrNoCountries
	}
	sorted := make([]Country, len(countries))
	copy(sorted, countries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	a := &Atlas{
		countries: sorted,
		byKey:     make(map[string]int, len(sorted)),
	}
	for i, c := range sorted {
		a.byKey[strings.ToLower(c.Name)] = i
	}
	a.bounds = totalBounds(sorted)
	return a, nil
}

// fetch downloads the GeoJSON payload with a bounded reader.
func fetch(ctx context.Context, opts Options) ([]byte, error) {
	url := opts.URL
	if url == "" {
		url = DefaultURL
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("atlas: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("atlas: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("atlas: fetch %s: unexpected status %s", url, resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, fmt.Errorf("atlas: read body: %w", err)
	}
	return raw, nil
}

// Len is the number of countries in the dataset.
func (a *Atlas) Len() int { return len(a.countries) }

// Names returns all country names, sorted. The slice is a copy.
func (a *Atlas) Names() []string {
	out := make([]string, len(a.countries))
	for i, c := range a.countries {
		out[i] = c.Name
	}
	return out
}

// Countries returns the loaded countries sorted by name. The slice header is
// fresh but the geometry is shared; treat it as read-only.
func (a *Atlas) Countries() []Country {
	out := make([]Country, len(a.countries))
	copy(out, a.countries)
	return out
}

// Country looks a country up by name, case-insensitively.
func (a *Atlas) Country(name string) (Country, bool) {
	i, ok := a.byKey[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Country{}, false
	}
	return a.countries[i], true
}

// Bounds is the total extent of the dataset: the default viewport.
func (a *Atlas) Bounds() viewport.Bounds { return a.bounds }

// totalBounds unions every country's bounding box.
func totalBounds(countries []Country) viewport.Bounds {
	b := countries[0].BBox
	for _, c := range countries[1:] {
		if c.BBox.X0 < b.X0 {
			b.X0 = c.BBox.X0
		}
		if c.BBox.Y0 < b.Y0 {
			b.Y0 = c.BBox.Y0
		}
		if c.BBox.X1 > b.X1 {
			b.X1 = c.BBox.X1
		}
		if c.BBox.Y1 > b.Y1 {
			b.Y1 = c.BBox.Y1
		}
	}
	return b
}
