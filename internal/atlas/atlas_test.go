// internal/atlas/atlas_test.go

package atlas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonata22/countries-quiz/internal/viewport"
)

const fixture = "testdata/world_small.geojson"

func loadFixture(t *testing.T) *Atlas {
	t.Helper()
	a, err := Load(context.Background(), Options{Path: fixture})
	require.NoError(t, err)
	return a
}

func TestLoadFromFile(t *testing.T) {
	a := loadFixture(t)

	assert.Equal(t, 3, a.Len())
	assert.Equal(t, []string{"Atlantis", "Borduria", "Syldavia"}, a.Names())
}

func TestFeaturesWithSameNameMerge(t *testing.T) {
	a := loadFixture(t)

	c, ok := a.Country("Atlantis")
	require.True(t, ok)
	assert.Len(t, c.Rings, 2)
	assert.Equal(t, viewport.Bounds{X0: -5, Y0: 0, X1: 10, Y1: 10}, c.BBox)
}

func TestMultiPolygonKeepsEveryPart(t *testing.T) {
	a := loadFixture(t)

	c, ok := a.Country("Syldavia")
	require.True(t, ok)
	assert.Len(t, c.Rings, 2)
	assert.Equal(t, "zz", c.ISO2)
}

func TestPlaceholderISOCodeDropped(t *testing.T) {
	a := loadFixture(t)

	c, ok := a.Country("Borduria")
	require.True(t, ok)
	assert.Empty(t, c.ISO2)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	a := loadFixture(t)

	c, ok := a.Country("  sylDAVIA ")
	require.True(t, ok)
	assert.Equal(t, "Syldavia", c.Name)

	_, ok = a.Country("Pointland")
	assert.False(t, ok, "non-polygon features must not load")
	_, ok = a.Country("Latveria")
	assert.False(t, ok, "degenerate rings must not load")
}

func TestBoundsUnionAllCountries(t *testing.T) {
	a := loadFixture(t)

	assert.Equal(t, viewport.Bounds{X0: -30, Y0: -20, X1: 40, Y1: 35}, a.Bounds())
}

func TestLoadFromHTTP(t *testing.T) {
	raw, err := os.ReadFile(fixture)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	a, err := Load(context.Background(), Options{URL: srv.URL, Client: srv.Client()})
	require.NoError(t, err)
	assert.Equal(t, 3, a.Len())
}

func TestLoadRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), Options{URL: srv.URL, Client: srv.Client()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestLoadEmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644))

	_, err := Load(context.Background(), Options{Path: path})
	assert.ErrorIs(t, err, ErrNoCountries)
}

func TestLoadMalformedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":`), 0o644))

	_, err := Load(context.Background(), Options{Path: path})
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("WORLD_GEOJSON_URL", "https://example.test/world.geojson")
	t.Setenv("WORLD_GEOJSON_FILE", "/tmp/world.geojson")

	opts := FromEnv()
	assert.Equal(t, "https://example.test/world.geojson", opts.URL)
	assert.Equal(t, "/tmp/world.geojson", opts.Path)
}

func TestNormalizeISO2(t *testing.T) {
	cases := map[string]string{
		"FR":   "fr",
		"us":   "us",
		" DE ": "de",
		"-99":  "",
		"":     "",
		"X":    "",
		"A1":   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeISO2(in), "input %q", in)
	}
}
