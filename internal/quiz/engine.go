// internal/quiz/engine.go
//
// Guessing-session engine: one highlighted country at a time, typed guesses,
// shuffle-free random draws from a shrinking pool.
// Responsibilities:
//   - Create sessions from a country list (deduplicated, blanks dropped).
//   - Classify guesses: correct / incorrect / skipped (empty input).
//   - Track state transitions: active -> active -> ... -> terminal.
//   - Keep the pool and guessed set disjoint; each country is shown once.
//
// Notes:
//   - Matching is case-insensitive on trimmed input; stored names keep their
//     canonical casing from the dataset.
//   - The random source is injected so tests can pin draw order.
package quiz

import (
	"math/rand"
	"strings"
	"time"
)

// New constructs a session over the given countries and draws the first
// target. Duplicate and blank names are dropped; if nothing usable remains,
// ErrEmptyDataset is returned and no session is created.
// A nil rng falls back to a time-seeded source.
func New(all []string, rng randSource) (*Session, error) {
	pool := make([]string, 0, len(all))
	seen := make(map[string]struct{}, len(all))
	for _, name := range all {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		pool = append(pool, name)
	}
	if len(pool) == 0 {
		return nil, ErrEmptyDataset
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Session{
		pool:       pool,
		guessed:    []string{},
		guessedSet: make(map[string]struct{}, len(pool)),
		total:      len(pool),
		rng:        rng,
	}
	s.target = s.pool[s.rng.Intn(len(s.pool))]
	return s, nil
}

// SubmitGuess judges one typed guess against the current target and advances
// the session by exactly one round.
//
// Classification:
//   - empty or whitespace-only text: Skipped; the target is revealed and
//     dropped without being counted.
//   - otherwise a case-insensitive comparison with the target: match is
//     Correct (target joins the guessed set), mismatch is Incorrect.
//
// In every case the target leaves the pool. If countries remain, a new target
// is drawn uniformly at random and returned in Result.Next; if the pool is
// now empty the session is terminal and Result.GameOver is set.
//
// Calling SubmitGuess on a terminal session returns ErrFinished.
func (s *Session) SubmitGuess(text string) (Result, error) {
	if s.target == "" {
		return Result{}, ErrFinished
	}

	res := Result{Answer: s.target}
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		res.Verdict = VerdictSkipped
	case strings.EqualFold(text, s.target):
		res.Verdict = VerdictCorrect
		s.guessed = append(s.guessed, s.target)
		s.guessedSet[s.target] = struct{}{}
	default:
		res.Verdict = VerdictIncorrect
	}

	s.removeFromPool(s.target)
	if len(s.pool) == 0 {
		s.target = ""
		res.GameOver = true
		return res, nil
	}
	s.target = s.pool[s.rng.Intn(len(s.pool))]
	res.Next = s.target
	return res, nil
}

// removeFromPool drops name from the pool in O(1) by swapping with the tail.
// Draw order is already random, so the reordering is harmless.
func (s *Session) removeFromPool(name string) {
	for i, c := range s.pool {
		if c == name {
			last := len(s.pool) - 1
			s.pool[i] = s.pool[last]
			s.pool = s.pool[:last]
			return
		}
	}
}

// CurrentTarget returns the country the player should name right now.
// ok is false once the session is terminal.
func (s *Session) CurrentTarget() (string, bool) {
	return s.target, s.target != ""
}

// Progress returns how many countries were named correctly and the size of
// the original dataset. Stable between rounds.
func (s *Session) Progress() (guessed, total int) {
	return len(s.guessed), s.total
}

// Remaining is the number of countries not yet shown, current target included.
func (s *Session) Remaining() int { return len(s.pool) }

// Finished reports whether the pool has been exhausted.
func (s *Session) Finished() bool { return s.target == "" }

// GuessedCountries returns the correctly named countries in guess order.
// The slice is a copy; callers may keep it.
func (s *Session) GuessedCountries() []string {
	out := make([]string, len(s.guessed))
	copy(out, s.guessed)
	return out
}

// IsGuessed reports whether name (canonical form) was correctly identified.
func (s *Session) IsGuessed(name string) bool {
	_, ok := s.guessedSet[name]
	return ok
}

// Rounds is the number of completed rounds so far.
func (s *Session) Rounds() int { return s.total - len(s.pool) }
