// internal/quiz/types.go
//
// Core type definitions for the guessing-session engine.
// Defines:
//   - Verdict: classification of a single submitted guess.
//   - Result: everything a caller needs to render one round's outcome.
//   - Session: state for a single in-progress or finished quiz run.

package quiz

import "errors"

// Verdict classifies one submitted guess.
// Possible values:
//   - "correct":   the typed name matched the target (case-insensitive).
//   - "incorrect": the typed name did not match.
//   - "skipped":   the input was empty or whitespace only.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictSkipped   Verdict = "skipped"
)

// Result reports the outcome of one round.
type Result struct {
	Verdict  Verdict // how the guess was classified
	Answer   string  // the country that was the target this round
	Next     string  // the next target, empty when the session just ended
	GameOver bool    // true when this round emptied the pool
}

// Session holds the state of one quiz run: the pool of countries not yet
// shown, the set correctly named so far, and the current target. It is not
// safe for concurrent use; callers that share a session must serialize.
type Session struct {
	pool       []string            // countries not yet judged; includes the current target
	guessed    []string            // correctly named countries, in guess order
	guessedSet map[string]struct{} // canonical names of guessed, for renderer lookups
	target     string              // current target, empty once terminal
	total      int                 // size of the original dataset
	rng        randSource
}

// randSource is the single RNG method the engine needs. *math/rand.Rand
// satisfies it; tests inject fixed sequences through it.
type randSource interface {
	Intn(n int) int
}

var (
	// ErrEmptyDataset is returned by New when no usable country names were
	// provided. Fatal to session creation; surface it before any UI.
	ErrEmptyDataset = errors.New("quiz: empty country dataset")

	// ErrFinished is returned by SubmitGuess once the session is terminal.
	ErrFinished = errors.New("quiz: session finished")
)
