// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily challenge.
// Everyone who starts the daily quiz on the same UTC date gets the same
// shuffled country order (internal/daily seeds the session RNG from the
// date). Signed-in players who finish the board land on that date's
// leaderboard; only the first finish of a day counts.
//
// Endpoints:
//   - GET /daily             → today's date key and board size
//   - GET /daily/leaderboard → a date's finishers, best score first

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/sonata22/countries-quiz/internal/daily"
	"github.com/sonata22/countries-quiz/internal/history"
)

// mountDaily registers the daily challenge reads. Starting a daily game goes
// through POST /session/new with {"daily":true}.
func (s *Server) mountDaily(r chi.Router) {
	r.Get("/daily", s.handleDailyInfo)
	r.Get("/daily/leaderboard", s.handleDailyLeaderboard)
}

// dailySalt feeds the per-date seed; rotating it rotates every board.
func dailySalt() string { return getEnv("DAILY_SALT", "local_dev_salt") }

// handleDailyInfo names today's board.
func (s *Server) handleDailyInfo(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"date":  daily.DateKey(time.Now()),
		"total": s.world.Len(),
	})
}

// dailyLbRes is returned by /daily/leaderboard.
type dailyLbRes struct {
	Date string             `json:"date"`
	Top  []history.DailyRow `json:"top"`
}

// handleDailyLeaderboard returns the leaderboard for ?date= (default today).
func (s *Server) handleDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(time.Now())
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.hist.DailyLeaderboard(r.Context(), date, limit)
	if err != nil {
		log.Warn().Err(err).Str("date", date).Msg("daily leaderboard")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(dailyLbRes{Date: date, Top: rows})
}
