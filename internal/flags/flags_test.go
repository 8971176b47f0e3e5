// internal/flags/flags_test.go

package flags

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tinyPNG encodes a 3x2 solid-color image.
func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPNGFetchesAndCaches(t *testing.T) {
	payload := tinyPNG(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/w320/fr.png", r.URL.Path)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f := New(srv.URL+"/w320/%s.png", srv.Client())

	data, err := f.PNG(context.Background(), "fr")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	_, err = f.PNG(context.Background(), "fr")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second fetch must come from cache")
}

func TestPNGMissIsCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(srv.URL+"/%s.png", srv.Client())

	_, err := f.PNG(context.Background(), "zz")
	assert.ErrorIs(t, err, ErrNoFlag)
	_, err = f.PNG(context.Background(), "zz")
	assert.ErrorIs(t, err, ErrNoFlag)
	assert.Equal(t, int32(1), hits.Load(), "404 must be cached")
}

func TestPNGEmptyCode(t *testing.T) {
	f := New("", nil)
	_, err := f.PNG(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoFlag)
}

func TestPNGServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(srv.URL+"/%s.png", srv.Client())
	_, err := f.PNG(context.Background(), "fr")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFlag)
}

func TestImageDecodes(t *testing.T) {
	payload := tinyPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f := New(srv.URL+"/%s.png", srv.Client())
	img, err := f.Image(context.Background(), "fr")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
}

func TestImageRejectsGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	f := New(srv.URL+"/%s.png", srv.Client())
	_, err := f.Image(context.Background(), "fr")
	assert.Error(t, err)
}
