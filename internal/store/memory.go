// internal/store/memory.go
//
// In-memory implementation of the session Store interface.
// This is a lightweight persistence layer for ephemeral quiz sessions;
// state is lost when the process restarts.
//
// Characteristics:
//   - Stores *Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Each Session additionally carries its own mutex so two requests for the
//     same session cannot interleave their guess handling.
//   - ErrNotFound is returned for missing session IDs on Get().

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sonata22/countries-quiz/internal/quiz"
)

// ErrNotFound is returned by Get for unknown session IDs.
var ErrNotFound = errors.New("not found")

// Session wraps one quiz run with its identity and a lock that serializes
// access to the underlying state. Daily names the board's date key when the
// session was started as a daily challenge; set before Save, never after.
type Session struct {
	ID        string
	Daily     string
	CreatedAt time.Time

	mu   sync.Mutex
	quiz *quiz.Session
}

// NewSession wraps a quiz session under the given ID.
func NewSession(id string, q *quiz.Session) *Session {
	return &Session{ID: id, CreatedAt: time.Now().UTC(), quiz: q}
}

// Do runs fn with exclusive access to the quiz state. All reads and writes
// of the session happen inside fn.
func (s *Session) Do(fn func(*quiz.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.quiz)
}

// Store defines the persistence interface for quiz sessions.
// Implementations may be backed by memory (this package), Redis, SQL, etc.
type Store interface {
	// Save persists or updates a session.
	Save(ctx context.Context, s *Session) error

	// Get retrieves a session by ID.
	// Returns ErrNotFound if the session does not exist.
	Get(ctx context.Context, id string) (*Session, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex        // guards sessions map
	sessions map[string]*Session // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session)}
}

// Save adds or updates the session in the map.
func (m *memory) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

// Get looks up a session by ID.
func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, ErrNotFound
}
