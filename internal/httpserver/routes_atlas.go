// internal/httpserver/routes_atlas.go
//
// HTTP routes for the loaded country dataset and flag thumbnails.
// Exposes:
//   - GET /atlas/countries         → all country names (sorted)
//   - GET /atlas/countries/{name}  → one country's geometry + bounding box
//   - GET /atlas/bounds            → total map extent (the default view)
//   - GET /flags/{name}            → flag PNG by country name or ISO2 code
//
// The atlas is immutable after startup, so these handlers are read-only.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/sonata22/countries-quiz/internal/flags"
)

// mountAtlas registers /atlas and /flags routes.
func (s *Server) mountAtlas(r chi.Router) {
	r.Route("/atlas", func(r chi.Router) {
		r.Get("/countries", s.handleCountries)
		r.Get("/countries/{name}", s.handleCountry)
		r.Get("/bounds", s.handleBounds)
	})
	r.Get("/flags/{name}", s.handleFlag)
}

// countriesRes is returned by GET /atlas/countries.
type countriesRes struct {
	Count     int      `json:"count"`
	Countries []string `json:"countries"`
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(countriesRes{
		Count:     s.world.Len(),
		Countries: s.world.Names(),
	})
}

func (s *Server) handleCountry(w http.ResponseWriter, r *http.Request) {
	c, ok := s.world.Country(pathName(r))
	if !ok {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(c)
}

func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(s.world.Bounds())
}

// handleFlag serves the flag PNG for a country name, or directly for a
// two-letter ISO code.
func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	name := pathName(r)

	iso2 := ""
	if c, ok := s.world.Country(name); ok {
		iso2 = c.ISO2
	} else if len(name) == 2 {
		iso2 = strings.ToLower(name)
	} else {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	data, err := s.flags.PNG(r.Context(), iso2)
	if err != nil {
		if errors.Is(err, flags.ErrNoFlag) {
			http.Error(w, `{"error":"no_flag"}`, http.StatusNotFound)
			return
		}
		log.Warn().Err(err).Str("country", name).Msg("fetch flag")
		http.Error(w, `{"error":"flag_fetch_failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

// pathName extracts and unescapes the {name} route parameter.
func pathName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if u, err := url.PathUnescape(name); err == nil {
		name = u
	}
	return name
}
