// internal/httpserver/routes_daily_test.go

package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonata22/countries-quiz/internal/daily"
	"github.com/sonata22/countries-quiz/internal/history"
)

func TestDailyInfo(t *testing.T) {
	s := newTestServer(t, nil)
	w := doJSON(t, s.Router(), http.MethodGet, "/daily", "")
	require.Equal(t, http.StatusOK, w.Code)
	info := decodeBody[map[string]any](t, w)
	assert.Equal(t, daily.DateKey(time.Now()), info["date"])
	assert.Equal(t, float64(3), info["total"])
}

func TestDailySessionsShareOneBoard(t *testing.T) {
	s := newTestServer(t, nil)
	r := s.Router()

	a := decodeBody[sessionSnapshot](t, doJSON(t, r, http.MethodPost, "/session/new", `{"daily":true}`))
	b := decodeBody[sessionSnapshot](t, doJSON(t, r, http.MethodPost, "/session/new", `{"daily":true}`))

	today := daily.DateKey(time.Now())
	assert.Equal(t, today, a.Daily)
	assert.Equal(t, today, b.Daily)
	assert.NotEqual(t, a.SessionID, b.SessionID)

	// Same date, same salt: both sessions walk the same target order.
	order := func(snap sessionSnapshot) []string {
		t.Helper()
		targets := []string{snap.Target}
		cur := snap
		for !cur.GameOver {
			body, err := json.Marshal(guessReq{SessionID: cur.SessionID, Guess: ""})
			require.NoError(t, err)
			res := decodeBody[guessRes](t, doJSON(t, r, http.MethodPost, "/session/guess", string(body)))
			cur = res.Session
			if cur.Target != "" {
				targets = append(targets, cur.Target)
			}
		}
		return targets
	}
	require.Equal(t, order(a), order(b))

	// Regular sessions carry no date.
	c := decodeBody[sessionSnapshot](t, doJSON(t, r, http.MethodPost, "/session/new", `{}`))
	assert.Empty(t, c.Daily)
}

func TestDailyLeaderboardFlow(t *testing.T) {
	s := newTestServer(t, nil)
	r := s.Router()

	_, ana := signup(t, r, "ana_maps", "longenoughpw")
	require.NotNil(t, ana)
	_, bob := signup(t, r, "bob_maps", "longenoughpw")
	require.NotNil(t, bob)

	// finishDaily plays today's board, naming the first `correct` targets and
	// skipping the rest. A nil cookie plays as a guest.
	finishDaily := func(cookie *http.Cookie, correct int) {
		t.Helper()
		snap := decodeBody[sessionSnapshot](t, doJSON(t, r, http.MethodPost, "/session/new", `{"daily":true}`))
		target := snap.Target
		for done := false; !done; {
			guess := ""
			if correct > 0 {
				guess = target
				correct--
			}
			body, err := json.Marshal(guessReq{SessionID: snap.SessionID, Guess: guess})
			require.NoError(t, err)
			var w *httptest.ResponseRecorder
			if cookie != nil {
				w = doJSONWith(t, r, http.MethodPost, "/session/guess", string(body), cookie)
			} else {
				w = doJSON(t, r, http.MethodPost, "/session/guess", string(body))
			}
			res := decodeBody[guessRes](t, w)
			done = res.GameOver
			target = res.Session.Target
		}
	}

	finishDaily(ana, 3) // names every country
	finishDaily(bob, 1)
	finishDaily(ana, 0) // second run today is not recorded
	finishDaily(nil, 3) // guests never reach the board

	w := doJSON(t, r, http.MethodGet, "/daily/leaderboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeBody[dailyLbRes](t, w)
	assert.Equal(t, daily.DateKey(time.Now()), res.Date)
	require.Len(t, res.Top, 2)
	assert.Equal(t, history.DailyRow{Username: "ana_maps", Correct: 3, Total: 3}, res.Top[0])
	assert.Equal(t, history.DailyRow{Username: "bob_maps", Correct: 1, Total: 3}, res.Top[1])

	// Dates with no finishers read as an empty board.
	w = doJSON(t, r, http.MethodGet, "/daily/leaderboard?date=1999-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody[dailyLbRes](t, w).Top)
}
