// internal/history/history.go
//
// SQLite persistence for per-round quiz history and player accounts.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout, foreign keys).
//   - Applying embedded migrations (idempotent, recorded in _migrations).
//   - Recording every judged round and answering per-session queries
//     (recent rounds, correct/incorrect/skipped tallies).
//   - User rows for signed-up players plus their aggregate stats.
//   - Daily board results, one row per player per date, for the leaderboard.
//
// The default DSN is an in-memory database, so nothing outlives the process
// unless QUIZ_DB points at a file. Memory DSNs get a single connection; the
// pool would otherwise hand each connection its own empty database.

package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed sql/*.sql
var migrations embed.FS

// DefaultDSN keeps history for the lifetime of the process only.
const DefaultDSN = "file::memory:?cache=shared"

// Round is one judged round of a session.
type Round struct {
	SessionID string `json:"sessionId"`
	Seq       int    `json:"seq"` // 1-based round number within the session
	Country   string `json:"country"`
	Guess     string `json:"guess,omitempty"`
	Verdict   string `json:"verdict"` // "correct" | "incorrect" | "skipped"
	CreatedAt string `json:"createdAt,omitempty"`
}

// Summary tallies a session's outcomes.
type Summary struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Skipped   int `json:"skipped"`
}

// User is one player account row.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	GamesPlayed  int       `json:"gamesPlayed"`
	TotalCorrect int       `json:"totalCorrect"`
	BestCorrect  int       `json:"bestCorrect"`
}

var (
	// ErrUsernameTaken is returned by CreateUser on a (case-insensitive)
	// username collision.
	ErrUsernameTaken = errors.New("history: username taken")

	// ErrNoUser is returned by the user lookups when no row matches.
	ErrNoUser = errors.New("history: user not found")
)

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if missing) the history database and applies
// migrations. Empty dsn means DefaultDSN.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	mem := isMemoryDSN(dsn)

	if !mem {
		// Ensure directory exists for ./data/quiz.db, etc.
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if mem {
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
			return nil, fmt.Errorf("set pragmas: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// FromEnv opens the database named by QUIZ_DB (default in-memory).
func FromEnv() (*Store, error) {
	return Open(os.Getenv("QUIZ_DB"))
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// isMemoryDSN reports whether the DSN names an in-memory database.
func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// migrate applies embedded sql/*.sql files in lexical order, each inside its
// own transaction, recording applied names in _migrations.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	entries, err := migrations.ReadDir("sql")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var done int
		err := s.db.QueryRow(`SELECT 1 FROM _migrations WHERE name=?`, name).Scan(&done)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("query _migrations: %w", err)
		}

		sqlBytes, err := migrations.ReadFile("sql/" + name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _migrations(name) VALUES (?)`, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("applied")
	}
	return nil
}

// InsertRound records one judged round. Respects the (session_id, seq)
// primary key; replays of the same round are ignored.
func (s *Store) InsertRound(ctx context.Context, r Round) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO rounds (session_id, seq, country, guess, verdict)
        VALUES (?, ?, ?, ?, ?)`,
		r.SessionID, r.Seq, r.Country, r.Guess, r.Verdict,
	)
	return err
}

// Rounds returns a session's rounds in play order. Default limit is 200.
func (s *Store) Rounds(ctx context.Context, sessionID string, limit int) ([]Round, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT session_id, seq, country, guess, verdict, created_at
        FROM rounds
        WHERE session_id=?
        ORDER BY seq ASC
        LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Round, 0, limit)
	for rows.Next() {
		var r Round
		if err := rows.Scan(&r.SessionID, &r.Seq, &r.Country, &r.Guess, &r.Verdict, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary tallies verdicts for one session.
func (s *Store) Summary(ctx context.Context, sessionID string) (Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT verdict, COUNT(1)
        FROM rounds
        WHERE session_id=?
        GROUP BY verdict`, sessionID,
	)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	var sum Summary
	for rows.Next() {
		var verdict string
		var n int
		if err := rows.Scan(&verdict, &n); err != nil {
			return Summary{}, err
		}
		switch verdict {
		case "correct":
			sum.Correct = n
		case "incorrect":
			sum.Incorrect = n
		case "skipped":
			sum.Skipped = n
		}
	}
	return sum, rows.Err()
}

// -------------------------------- users ------------------------------------

// CreateUser inserts a new account with an already-hashed password.
// Usernames are unique ignoring case.
func (s *Store) CreateUser(ctx context.Context, id, username, passwordHash string) (*User, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if err == nil {
		return nil, ErrUsernameTaken
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO users (id, username, password_hash, created_at)
        VALUES (?, ?, ?, ?)`,
		id, username, passwordHash, now.Format(time.RFC3339),
	); err != nil {
		return nil, err
	}
	return &User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

// UserByUsername loads an account by name, ignoring case.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, username, password_hash, created_at, games_played, total_correct, best_correct
        FROM users WHERE lower(username)=lower(?)`, username)
	return scanUser(row)
}

// UserByID loads an account by its identifier.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, username, password_hash, created_at, games_played, total_correct, best_correct
        FROM users WHERE id=?`, id)
	return scanUser(row)
}

// scanUser converts a *sql.Row into a User.
func scanUser(row *sql.Row) (*User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created,
		&u.GamesPlayed, &u.TotalCorrect, &u.BestCorrect); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoUser
		}
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}

// RecordFinish rolls a finished game into the player's stats inside one
// transaction: games played, lifetime correct answers, and personal best.
func (s *Store) RecordFinish(ctx context.Context, userID string, correct int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var played, total, best int
	row := tx.QueryRow(`SELECT games_played, total_correct, best_correct FROM users WHERE id=?`, userID)
	if err := row.Scan(&played, &total, &best); err != nil {
		_ = tx.Rollback()
		if err == sql.ErrNoRows {
			return ErrNoUser
		}
		return err
	}
	played++
	total += correct
	if correct > best {
		best = correct
	}
	if _, err := tx.Exec(`UPDATE users SET games_played=?, total_correct=?, best_correct=? WHERE id=?`,
		played, total, best, userID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---------------------------- daily results --------------------------------

// DailyRow is one leaderboard entry for a date's board.
type DailyRow struct {
	Username string `json:"username"`
	Correct  int    `json:"correct"`
	Total    int    `json:"total"`
}

// InsertDailyResult records a player's finish of a date's board. The
// (user_id, date) primary key means only the first finish of a day counts.
func (s *Store) InsertDailyResult(ctx context.Context, userID, date string, correct, total int) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO daily_results (user_id, date, correct, total, created_at)
        VALUES (?, ?, ?, ?, ?)`,
		userID, date, correct, total, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// DailyLeaderboard lists a date's finishers, best score first, earlier finish
// breaking ties. Default limit is 10.
func (s *Store) DailyLeaderboard(ctx context.Context, date string, limit int) ([]DailyRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT u.username, d.correct, d.total
        FROM daily_results d
        JOIN users u ON u.id = d.user_id
        WHERE d.date=?
        ORDER BY d.correct DESC, d.created_at ASC
        LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DailyRow, 0, limit)
	for rows.Next() {
		var r DailyRow
		if err := rows.Scan(&r.Username, &r.Correct, &r.Total); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
