// internal/httpserver/server.go
//
// HTTP server wiring for the countries quiz backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Session endpoints: POST /session/new, POST /session/guess, GET /session,
//     GET /session/rounds, plus the live watch socket (watch.go).
//   - Atlas + flag endpoints mounted from routes_atlas.go; player accounts
//     mounted from auth.go; daily challenge reads from routes_daily.go.
//   - Signed session cookie so clients can omit the session ID after /session/new.
//   - Round persistence into the history database (best effort, non-fatal);
//     finished games roll up into player stats when the caller is signed in.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The watch socket is registered outside the timeout group; every other
//     route is bounded at 10s.

package httpserver

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	mrand "math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/sonata22/countries-quiz/internal/atlas"
	"github.com/sonata22/countries-quiz/internal/daily"
	"github.com/sonata22/countries-quiz/internal/flags"
	"github.com/sonata22/countries-quiz/internal/history"
	"github.com/sonata22/countries-quiz/internal/quiz"
	"github.com/sonata22/countries-quiz/internal/store"
	"github.com/sonata22/countries-quiz/internal/viewport"
)

// Server bundles router, session store, history DB, and the loaded atlas.
type Server struct {
	r     *chi.Mux
	store store.Store
	hist  *history.Store
	world *atlas.Atlas
	flags *flags.Fetcher
	watch *watchHub
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, hist *history.Store, world *atlas.Atlas, fl *flags.Fetcher) *Server {
	s := &Server{
		r:     chi.NewRouter(),
		store: st,
		hist:  hist,
		world: world,
		flags: fl,
		watch: newWatchHub(),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(corsFromEnv)     // credentials-friendly CORS

	// All plain HTTP routes are time-bounded. The watch socket lives outside
	// this group because its connection outlasts any request timeout.
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"countries-quiz","endpoints":["/health","POST /session/new","POST /session/guess","GET /session","GET /session/watch","GET /session/rounds","GET /daily","GET /daily/leaderboard","GET /atlas/countries","GET /flags/{name}","POST /auth/signup","POST /auth/login","GET /auth/me","GET /stats/me"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		// Session endpoints. Guessing carries optional auth so finished games
		// can credit the signed-in player.
		r.Post("/session/new", s.handleNewSession)
		r.With(s.withOptionalAuth()).Post("/session/guess", s.handleGuess)
		r.Get("/session", s.handleSnapshot)
		r.Get("/session/rounds", s.handleRounds)

		// Player accounts
		s.mountAuth(r)

		// Daily challenge reads
		s.mountDaily(r)

		// Atlas + flags
		s.mountAtlas(r)

		// Debug: dataset shape
		r.Get("/debug/atlas", func(w http.ResponseWriter, req *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"countries": s.world.Len(),
				"bounds":    s.world.Bounds(),
			})
		})
	})

	s.r.Get("/session/watch", s.handleWatch)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+req.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := clientOrigin()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientOrigin is the single origin allowed for CORS and watch upgrades.
func clientOrigin() string {
	return getEnv("CLIENT_ORIGIN", "http://localhost:5173")
}

// ------------------------------ SESSION ------------------------------------

// sessionSnapshot is the client-facing view of one session's state.
type sessionSnapshot struct {
	SessionID    string           `json:"sessionId"`
	Daily        string           `json:"daily,omitempty"`
	Target       string           `json:"target,omitempty"`
	TargetBox    *viewport.Bounds `json:"targetBox,omitempty"`
	Guessed      []string         `json:"guessed"`
	GuessedCount int              `json:"guessedCount"`
	Total        int              `json:"total"`
	Remaining    int              `json:"remaining"`
	Rounds       int              `json:"rounds"`
	GameOver     bool             `json:"gameOver"`
}

// snapshotOf builds a snapshot; callers hold the session lock (store.Session.Do).
func (s *Server) snapshotOf(sess *store.Session, q *quiz.Session) sessionSnapshot {
	guessed, total := q.Progress()
	snap := sessionSnapshot{
		SessionID:    sess.ID,
		Daily:        sess.Daily,
		Guessed:      q.GuessedCountries(),
		GuessedCount: guessed,
		Total:        total,
		Remaining:    q.Remaining(),
		Rounds:       q.Rounds(),
		GameOver:     q.Finished(),
	}
	if target, ok := q.CurrentTarget(); ok {
		snap.Target = target
		if c, found := s.world.Country(target); found {
			box := c.BBox
			snap.TargetBox = &box
		}
	}
	return snap
}

// newSessionReq allows a fixed RNG seed (testing), a subset of countries to
// practice on, or a daily board, which derives the seed from today's date and
// wins over both.
type newSessionReq struct {
	Seed      *int64   `json:"seed"`
	Countries []string `json:"countries"`
	Daily     bool     `json:"daily"`
}

// handleNewSession creates a new in-memory session over the full atlas and
// hands the client a signed cookie for subsequent calls.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	rng := rngFromSeed(req.Seed)
	names := s.world.Names()
	var date string
	switch {
	case req.Daily:
		// The daily board always covers the full atlas so every player who
		// starts it works the same pool.
		date = daily.DateKey(time.Now())
		rng = mrand.New(mrand.NewSource(daily.Seed(time.Now(), dailySalt())))
	case len(req.Countries) > 0:
		names = make([]string, 0, len(req.Countries))
		for _, n := range req.Countries {
			c, ok := s.world.Country(n)
			if !ok {
				http.Error(w, `{"error":"unknown_country"}`, http.StatusBadRequest)
				return
			}
			names = append(names, c.Name)
		}
	}

	q, err := quiz.New(names, rng)
	if err != nil {
		log.Error().Err(err).Msg("new session")
		http.Error(w, `{"error":"empty_dataset"}`, http.StatusInternalServerError)
		return
	}
	sess := store.NewSession(genID(), q)
	sess.Daily = date
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	if tok, exp, err := signSessionToken(sess.ID); err == nil {
		setSessionCookie(w, tok, exp)
	} else {
		log.Warn().Err(err).Msg("sign session token")
	}

	var snap sessionSnapshot
	sess.Do(func(q *quiz.Session) { snap = s.snapshotOf(sess, q) })
	_ = json.NewEncoder(w).Encode(snap)
}

// rngFromSeed maps an optional fixed seed onto a quiz RNG. Without a seed the
// source is time-seeded.
func rngFromSeed(seed *int64) *mrand.Rand {
	if seed == nil {
		return mrand.New(mrand.NewSource(time.Now().UnixNano()))
	}
	return mrand.New(mrand.NewSource(*seed))
}

// guessReq/Res payloads for POST /session/guess.
type guessReq struct {
	SessionID string `json:"sessionId"`
	Guess     string `json:"guess"`
}
type guessRes struct {
	Verdict  string          `json:"verdict"` // "correct" | "incorrect" | "skipped"
	Answer   string          `json:"answer"`
	GameOver bool            `json:"gameOver"`
	Session  sessionSnapshot `json:"session"`
}

// handleGuess judges one guess (empty = skip), persists the round, notifies
// watchers, and returns the verdict plus the refreshed snapshot.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sid := s.sessionID(r, req.SessionID)
	sess, err := s.store.Get(r.Context(), sid)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	var (
		res  quiz.Result
		snap sessionSnapshot
		seq  int
		gerr error
	)
	sess.Do(func(q *quiz.Session) {
		res, gerr = q.SubmitGuess(req.Guess)
		if gerr == nil {
			seq = q.Rounds()
			snap = s.snapshotOf(sess, q)
		}
	})
	if gerr != nil {
		if errors.Is(gerr, quiz.ErrFinished) {
			http.Error(w, `{"error":"finished"}`, http.StatusConflict)
			return
		}
		http.Error(w, `{"error":"`+gerr.Error()+`"}`, http.StatusBadRequest)
		return
	}

	// Persist the round (best effort, non-fatal if it fails).
	if err := s.hist.InsertRound(r.Context(), history.Round{
		SessionID: sess.ID,
		Seq:       seq,
		Country:   res.Answer,
		Guess:     strings.TrimSpace(req.Guess),
		Verdict:   string(res.Verdict),
	}); err != nil {
		log.Warn().Err(err).Str("sessionId", sess.ID).Msg("record round")
	}

	// Credit the player's stats once the pool is exhausted (best effort).
	if res.GameOver {
		if me := userFrom(r); me != nil {
			if err := s.hist.RecordFinish(r.Context(), me.ID, snap.GuessedCount); err != nil {
				log.Warn().Err(err).Str("userId", me.ID).Msg("record finish")
			}
			if sess.Daily != "" {
				if err := s.hist.InsertDailyResult(r.Context(), me.ID, sess.Daily, snap.GuessedCount, snap.Total); err != nil {
					log.Warn().Err(err).Str("userId", me.ID).Str("date", sess.Daily).Msg("record daily result")
				}
			}
		}
	}

	s.watch.broadcastSnapshot(sess.ID, snap)

	_ = json.NewEncoder(w).Encode(guessRes{
		Verdict:  string(res.Verdict),
		Answer:   res.Answer,
		GameOver: res.GameOver,
		Session:  snap,
	})
}

// handleSnapshot returns the current state of the session named by
// ?sessionId= or the session cookie.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(r, r.URL.Query().Get("sessionId"))
	sess, err := s.store.Get(r.Context(), sid)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	var snap sessionSnapshot
	sess.Do(func(q *quiz.Session) { snap = s.snapshotOf(sess, q) })
	_ = json.NewEncoder(w).Encode(snap)
}

// roundsRes is returned by GET /session/rounds.
type roundsRes struct {
	SessionID string          `json:"sessionId"`
	Rounds    []history.Round `json:"rounds"`
	Summary   history.Summary `json:"summary"`
}

// handleRounds lists a session's judged rounds with verdict tallies.
func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(r, r.URL.Query().Get("sessionId"))
	if sid == "" {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rounds, err := s.hist.Rounds(r.Context(), sid, limit)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sid).Msg("list rounds")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	sum, err := s.hist.Summary(r.Context(), sid)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sid).Msg("summarize rounds")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(roundsRes{SessionID: sid, Rounds: rounds, Summary: sum})
}

// ------------------------- session token & cookie --------------------------

// sessionID resolves a session from an explicit value, falling back to the
// signed cookie (or bearer token).
func (s *Server) sessionID(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if tok := bearerOrCookie(r, sessionCookieName()); tok != "" {
		return parseSessionToken(tok)
	}
	return ""
}

// sessionCookieName names the cookie carrying the signed session token. It is
// distinct from the auth cookie so a signed-in player can still hold a game.
func sessionCookieName() string { return getEnv("SESSION_COOKIE_NAME", "quiz_session") }

// signSessionToken creates an HS256 JWT naming the session, with a
// configurable expiry (JWT_EXPIRES_DAYS; default 14).
func signSessionToken(sid string) (string, time.Time, error) {
	secret := getEnv("JWT_SECRET", "dev_secret_change_me")
	days := 14
	if v := os.Getenv("JWT_EXPIRES_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			days = n
		}
	}
	exp := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(secret))
	return ss, exp, err
}

// parseSessionToken verifies the token and extracts the session ID.
// Returns "" for invalid or foreign tokens.
func parseSessionToken(tok string) string {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(getEnv("JWT_SECRET", "dev_secret_change_me")), nil
	})
	if err != nil || !t.Valid {
		return ""
	}
	sid, _ := claims["sid"].(string)
	return sid
}

// setSessionCookie writes the session token cookie with appropriate security
// attributes.
func setSessionCookie(w http.ResponseWriter, token string, exp time.Time) {
	name := sessionCookieName()
	secure := os.Getenv("NODE_ENV") == "production"
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a token from the Authorization header or the named
// cookie.
func bearerOrCookie(r *http.Request, cookie string) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(cookie); err == nil {
		return c.Value
	}
	return ""
}

// ------------------------------- small util --------------------------------

// genID creates a 22-char URL-safe, crypto-random identifier (no padding).
func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	s := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b[:])
	if len(s) > 22 {
		return s[:22]
	}
	return s
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
