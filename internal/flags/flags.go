// internal/flags/flags.go
//
// Flag thumbnail fetcher.
// Responsibilities:
//   - Download a country's flag image by its two-letter ISO code from a
//     templated URL (flagcdn w320 PNGs by default).
//   - Cache results, including misses, so each round costs at most one
//     request per country.
//
// Configuration:
//   FLAG_URL_TEMPLATE=https://host/path/%s.png  (one %s, the lowercase code)
//
// Flags are decoration on top of the quiz; callers treat every error here as
// "draw no flag", never as fatal.

package flags

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// DefaultURLTemplate serves 320px-wide PNG flags keyed by lowercase ISO2.
const DefaultURLTemplate = "https://flagcdn.com/w320/%s.png"

const (
	cacheTTL    = 1 * time.Hour
	negativeTTL = 5 * time.Minute
	maxFlagSize = 4 << 20
)

// ErrNoFlag means the country has no fetchable flag (no ISO code, or the
// source answered 404).
var ErrNoFlag = errors.New("flags: no flag for country")

type entry struct {
	data      []byte // nil marks a cached miss
	expiresAt time.Time
}

// Fetcher downloads and caches flag images. Safe for concurrent use.
type Fetcher struct {
	template string
	client   *http.Client

	mu    sync.Mutex
	items map[string]entry
}

// New builds a Fetcher. Empty template means DefaultURLTemplate; nil client
// means a 5s-timeout client.
func New(template string, client *http.Client) *Fetcher {
	if template == "" {
		template = DefaultURLTemplate
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Fetcher{
		template: template,
		client:   client,
		items:    make(map[string]entry),
	}
}

// FromEnv builds a Fetcher from FLAG_URL_TEMPLATE.
func FromEnv() *Fetcher {
	return New(os.Getenv("FLAG_URL_TEMPLATE"), nil)
}

// PNG returns the raw image bytes for a lowercase ISO2 code.
func (f *Fetcher) PNG(ctx context.Context, iso2 string) ([]byte, error) {
	if iso2 == "" {
		return nil, ErrNoFlag
	}
	if data, ok, miss := f.fromCache(iso2); ok {
		if miss {
			return nil, ErrNoFlag
		}
		return data, nil
	}

	url := fmt.Sprintf(f.template, iso2)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("flags: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flags: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		f.store(iso2, nil, negativeTTL)
		return nil, ErrNoFlag
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("flags: fetch %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFlagSize))
	if err != nil {
		return nil, fmt.Errorf("flags: read body: %w", err)
	}
	f.store(iso2, data, cacheTTL)
	return data, nil
}

// Image fetches and decodes the flag (PNG, JPEG, or WebP).
func (f *Fetcher) Image(ctx context.Context, iso2 string) (image.Image, error) {
	data, err := f.PNG(ctx, iso2)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("flags: decode %s: %w", iso2, err)
	}
	return img, nil
}

func (f *Fetcher) fromCache(key string) (data []byte, ok, miss bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, found := f.items[key]
	if !found {
		return nil, false, false
	}
	if time.Now().After(e.expiresAt) {
		delete(f.items, key)
		return nil, false, false
	}
	return e.data, true, e.data == nil
}

func (f *Fetcher) store(key string, data []byte, ttl time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = entry{data: data, expiresAt: time.Now().Add(ttl)}
}
