package quiz

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns queued values (mod n) so tests control draw order exactly.
type scripted struct {
	vals []int
	i    int
}

func (s *scripted) Intn(n int) int {
	if s.i >= len(s.vals) {
		return 0
	}
	v := s.vals[s.i] % n
	s.i++
	return v
}

func TestNewRejectsEmptyDataset(t *testing.T) {
	for _, all := range [][]string{nil, {}, {""}, {"   ", "\t"}} {
		s, err := New(all, nil)
		require.ErrorIs(t, err, ErrEmptyDataset)
		assert.Nil(t, s)
	}
}

func TestNewDropsBlanksAndDuplicates(t *testing.T) {
	s, err := New([]string{"Canada", " ", "canada", "France", "France"}, &scripted{})
	require.NoError(t, err)
	_, total := s.Progress()
	assert.Equal(t, 2, total)
	assert.Equal(t, 2, s.Remaining())
}

func TestGuessIsCaseInsensitive(t *testing.T) {
	for _, typed := range []string{"france", "FRANCE", "FrAnCe", "  France  "} {
		s, err := New([]string{"France"}, &scripted{})
		require.NoError(t, err)
		res, err := s.SubmitGuess(typed)
		require.NoError(t, err)
		assert.Equal(t, VerdictCorrect, res.Verdict, "input %q", typed)
		assert.Equal(t, "France", res.Answer)
	}
}

func TestSkipRevealsWithoutCounting(t *testing.T) {
	s, err := New([]string{"Canada", "France", "Peru"}, &scripted{vals: []int{0, 0, 0}})
	require.NoError(t, err)

	target, ok := s.CurrentTarget()
	require.True(t, ok)
	res, err := s.SubmitGuess("   ")
	require.NoError(t, err)
	assert.Equal(t, VerdictSkipped, res.Verdict)
	assert.Equal(t, target, res.Answer)
	assert.False(t, s.IsGuessed(target))

	guessed, _ := s.Progress()
	assert.Equal(t, 0, guessed)
	assert.Equal(t, 2, s.Remaining())
}

func TestEveryRoundShrinksPoolByOne(t *testing.T) {
	all := []string{"Canada", "France", "Peru", "Chad", "Japan", "Kenya"}
	s, err := New(all, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	for want := len(all) - 1; want >= 0; want-- {
		target, _ := s.CurrentTarget()
		// Alternate correct and wrong guesses; both consume the target.
		input := "definitely not a country"
		if want%2 == 0 {
			input = target
		}
		res, err := s.SubmitGuess(input)
		require.NoError(t, err)
		assert.Equal(t, target, res.Answer)
		assert.Equal(t, want, s.Remaining())
		if res.Verdict == VerdictCorrect {
			assert.True(t, s.IsGuessed(target))
		}
	}
	assert.True(t, s.Finished())
}

func TestProgressIdempotentBetweenRounds(t *testing.T) {
	s, err := New([]string{"Canada", "France", "Peru"}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	g1, t1 := s.Progress()
	g2, t2 := s.Progress()
	assert.Equal(t, g1, g2)
	assert.Equal(t, t1, t2)

	target, _ := s.CurrentTarget()
	_, err = s.SubmitGuess(target)
	require.NoError(t, err)

	g3, _ := s.Progress()
	g4, _ := s.Progress()
	assert.Equal(t, 1, g3)
	assert.Equal(t, g3, g4)
}

func TestFullRunNeverRepeatsAndTerminates(t *testing.T) {
	all := []string{"Canada", "France", "Peru", "Chad", "Japan", "Kenya", "Mali", "Cuba"}
	s, err := New(all, rand.New(rand.NewSource(99)))
	require.NoError(t, err)

	shown := make(map[string]int)
	correct, other := 0, 0
	for i := 0; i < len(all); i++ {
		target, ok := s.CurrentTarget()
		require.True(t, ok)
		shown[target]++

		input := ""
		switch i % 3 {
		case 0:
			input = target
		case 1:
			input = "wrong"
		}
		res, err := s.SubmitGuess(input)
		require.NoError(t, err)
		if res.Verdict == VerdictCorrect {
			correct++
		} else {
			other++
		}
		if i == len(all)-1 {
			assert.True(t, res.GameOver)
			assert.Empty(t, res.Next)
		} else {
			assert.False(t, res.GameOver)
			assert.NotEmpty(t, res.Next)
		}
	}

	for name, n := range shown {
		assert.Equal(t, 1, n, "country %q shown more than once", name)
	}
	assert.Len(t, shown, len(all))
	assert.Equal(t, len(all), correct+other)

	guessed, total := s.Progress()
	assert.Equal(t, correct, guessed)
	assert.Equal(t, len(all), total)
	assert.True(t, s.Finished())
	_, ok := s.CurrentTarget()
	assert.False(t, ok)
	assert.Len(t, s.GuessedCountries(), correct)
}

func TestTwoCountryScenario(t *testing.T) {
	// Script the draws: first target is Canada, then the remaining France.
	s, err := New([]string{"Canada", "France"}, &scripted{vals: []int{0, 0}})
	require.NoError(t, err)

	target, ok := s.CurrentTarget()
	require.True(t, ok)
	require.Equal(t, "Canada", target)

	res, err := s.SubmitGuess("france")
	require.NoError(t, err)
	assert.Equal(t, VerdictIncorrect, res.Verdict)
	assert.Equal(t, "Canada", res.Answer)
	assert.Equal(t, 1, s.Remaining())
	assert.Equal(t, "France", res.Next)

	res, err = s.SubmitGuess("France")
	require.NoError(t, err)
	assert.Equal(t, VerdictCorrect, res.Verdict)
	assert.True(t, res.GameOver)
	assert.Equal(t, 0, s.Remaining())
	assert.Equal(t, []string{"France"}, s.GuessedCountries())
}

func TestSubmitAfterTerminalReturnsErrFinished(t *testing.T) {
	s, err := New([]string{"Canada"}, &scripted{})
	require.NoError(t, err)

	res, err := s.SubmitGuess("Canada")
	require.NoError(t, err)
	require.True(t, res.GameOver)

	_, err = s.SubmitGuess("anything")
	assert.ErrorIs(t, err, ErrFinished)
	_, err = s.SubmitGuess("")
	assert.ErrorIs(t, err, ErrFinished)
}
