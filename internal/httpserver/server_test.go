package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/rankedle/internal/auth"
	"github.com/robalobadob/rankedle/internal/ranked"
	"github.com/robalobadob/rankedle/internal/rating"
	"github.com/robalobadob/rankedle/internal/store"
)

type fixedWords struct{}

func (fixedWords) DailyTarget(time.Time) string { return "crane" }
func (fixedWords) IsAllowed(w string) bool      { return w == "crane" || w == "trace" }
func (fixedWords) Stats() (int, int)            { return 1, 2 }

type testServer struct {
	*httptest.Server
	mem *store.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemoryStore()
	svc := ranked.New(ranked.Options{
		Stats:    mem,
		Sessions: mem,
		Words:    fixedWords{},
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC) },
	})
	srv := New(Deps{
		Service:  svc,
		Accounts: auth.NewAccounts(mem),
		Issuer:   auth.NewIssuer("test-secret", time.Hour),
		Words:    fixedWords{},
		Logger:   zerolog.Nop(),
		Settings: Settings{ClientOrigins: []string{"http://localhost:5173"}},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, mem: mem}
}

// client returns an HTTP client with its own cookie jar (one browser).
func (ts *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func do(t *testing.T, c *http.Client, method, url string, body any, out any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthAndNotFound(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	var health map[string]bool
	resp := do(t, c, http.MethodGet, ts.URL+"/health", nil, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, health["ok"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var nf map[string]string
	resp = do(t, c, http.MethodGet, ts.URL+"/nope", nil, &nf)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", nf["error"])
	assert.Equal(t, "/nope", nf["path"])

	var words map[string]int
	do(t, c, http.MethodGet, ts.URL+"/debug/words", nil, &words)
	assert.Equal(t, map[string]int{"answers": 1, "allowed": 2}, words)
}

func TestGuestDailyFlow(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	var started newRes
	resp := do(t, c, http.MethodPost, ts.URL+"/daily/new", nil, &started)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, started.GameID)
	assert.Equal(t, "2025-06-01", started.Date)
	assert.False(t, started.Played)
	assert.True(t, started.ResetsAt.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))

	var again newRes
	do(t, c, http.MethodPost, ts.URL+"/daily/new", nil, &again)
	assert.Equal(t, started.GameID, again.GameID, "same browser resumes its session")

	var bad map[string]string
	resp = do(t, c, http.MethodPost, ts.URL+"/daily/guess", map[string]string{"gameId": started.GameID, "word": "cat"}, &bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Word must be 5 letters", bad["error"])

	var first ranked.GuessReport
	resp = do(t, c, http.MethodPost, ts.URL+"/daily/guess", map[string]string{"gameId": started.GameID, "word": "trace"}, &first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "playing", string(first.State))
	assert.Equal(t, 1, first.Attempts)
	assert.Nil(t, first.Completion)

	var second ranked.GuessReport
	resp = do(t, c, http.MethodPost, ts.URL+"/daily/guess", map[string]string{"gameId": started.GameID, "guess": "CRANE"}, &second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "won", string(second.State))
	require.NotNil(t, second.Completion)
	assert.Equal(t, 100, second.Completion.RatingChange)
	assert.Equal(t, 1300, second.Completion.Rating)
	assert.Equal(t, "Unranked", string(second.Completion.DisplayTier))

	resp = do(t, c, http.MethodPost, ts.URL+"/daily/guess", map[string]string{"gameId": started.GameID, "word": "crane"}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var done newRes
	do(t, c, http.MethodPost, ts.URL+"/daily/new", nil, &done)
	assert.True(t, done.Played)
	assert.Empty(t, done.GameID)

	var played playedRes
	do(t, c, http.MethodGet, ts.URL+"/daily/played", nil, &played)
	assert.True(t, played.PlayedToday)
	require.NotNil(t, played.Record)
	assert.Equal(t, 2, played.Record.Attempts)

	var me map[string]any
	resp = do(t, c, http.MethodGet, ts.URL+"/stats/me", nil, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, me["guest"])
	assert.EqualValues(t, 1300, me["rating"])
	assert.EqualValues(t, 1, me["position"])

	var lb leaderboardRes
	do(t, c, http.MethodGet, ts.URL+"/leaderboard", nil, &lb)
	require.Len(t, lb.Players, 1)
	assert.Equal(t, 1300, lb.Players[0].Rating)

	var daily lbRes
	do(t, c, http.MethodGet, ts.URL+"/daily/leaderboard", nil, &daily)
	assert.Equal(t, "2025-06-01", daily.Date)
	require.Len(t, daily.Top, 1)
	assert.Equal(t, 2, daily.Top[0].Attempts)
}

func TestGuessOnSomeoneElsesGame(t *testing.T) {
	ts := newTestServer(t)

	var started newRes
	do(t, ts.client(t), http.MethodPost, ts.URL+"/daily/new", nil, &started)

	resp := do(t, ts.client(t), http.MethodPost, ts.URL+"/daily/guess", map[string]string{"gameId": started.GameID, "word": "trace"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, ts.client(t), http.MethodPost, ts.URL+"/daily/guess", map[string]string{"word": "trace"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsMeRequiresIdentity(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, ts.client(t), http.MethodGet, ts.URL+"/stats/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var played playedRes
	resp = do(t, ts.client(t), http.MethodGet, ts.URL+"/daily/played", nil, &played)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, played.PlayedToday)
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	creds := map[string]string{"username": "alice_1", "password": "correct-horse"}

	var signup map[string]any
	resp := do(t, c, http.MethodPost, ts.URL+"/auth/signup", creds, &signup)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice_1", signup["username"])
	id, _ := signup["id"].(string)
	require.NotEmpty(t, id)

	st, err := ts.mem.LoadRatingState(t.Context(), id)
	require.NoError(t, err, "signup creates default stats")
	assert.Equal(t, 1200, st.Rating)

	var errBody map[string]string
	resp = do(t, ts.client(t), http.MethodPost, ts.URL+"/auth/signup", map[string]string{"username": "ALICE_1", "password": "whatever123"}, &errBody)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Username taken", errBody["error"])

	resp = do(t, ts.client(t), http.MethodPost, ts.URL+"/auth/signup", map[string]string{"username": "bob", "password": "short"}, &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "password must be 8-100 chars", errBody["error"])

	var me authUser
	resp = do(t, c, http.MethodGet, ts.URL+"/auth/me", nil, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, me.ID)

	resp = do(t, ts.client(t), http.MethodGet, ts.URL+"/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, ts.client(t), http.MethodPost, ts.URL+"/auth/login", map[string]string{"username": "alice_1", "password": "nope-nope"}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid username or password", errBody["error"])

	// a second browser logs in and plays as the account
	other := ts.client(t)
	resp = do(t, other, http.MethodPost, ts.URL+"/auth/login", map[string]string{"username": " alice_1 ", "password": "correct-horse"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var started newRes
	do(t, other, http.MethodPost, ts.URL+"/daily/new", nil, &started)
	var report ranked.GuessReport
	resp = do(t, other, http.MethodPost, ts.URL+"/daily/guess", map[string]string{"gameId": started.GameID, "word": "crane"}, &report)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, report.Completion)
	assert.Equal(t, 120, report.Completion.RatingChange)

	var games []store.GameRecord
	resp = do(t, c, http.MethodGet, ts.URL+"/games/mine", nil, &games)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, games, 1)
	assert.Equal(t, id, games[0].PlayerID)

	var prof map[string]any
	do(t, c, http.MethodGet, ts.URL+"/stats/me", nil, &prof)
	assert.Equal(t, false, prof["guest"])
	assert.Equal(t, "alice_1", prof["username"])
	assert.Equal(t, true, prof["playedToday"])

	resp = do(t, c, http.MethodPost, ts.URL+"/auth/logout", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, c, http.MethodGet, ts.URL+"/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	ts := newTestServer(t)
	var signup map[string]any
	do(t, ts.client(t), http.MethodPost, ts.URL+"/auth/signup", map[string]string{"username": "carol", "password": "password1"}, &signup)

	tok, _, err := auth.NewIssuer("test-secret", time.Hour).Sign(signup["id"].(string), "carol")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/daily/new", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestRanksAndValidateWord(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	var ranks ranksRes
	do(t, c, http.MethodGet, ts.URL+"/ranks", nil, &ranks)
	assert.Equal(t, "rating", string(ranks.Basis))
	require.Len(t, ranks.Tiers, 7)
	assert.Equal(t, "Arch-Champion", string(ranks.Tiers[6].Tier))
	assert.Equal(t, 2500, ranks.Tiers[6].Min)

	cases := []struct {
		word    string
		valid   bool
		message string
	}{
		{"crane", true, ""},
		{"CRANE", true, ""},
		{"cr4ne", false, "Word must contain only letters"},
		{"cranes", false, "Word must be 5 letters"},
	}
	for _, tc := range cases {
		var res validateRes
		resp := do(t, c, http.MethodGet, ts.URL+"/validate-word/"+tc.word, nil, &res)
		assert.Equal(t, http.StatusOK, resp.StatusCode, tc.word)
		assert.Equal(t, tc.valid, res.Valid, tc.word)
		assert.Equal(t, tc.message, res.Message, tc.word)
	}
}

func TestGuestCookieCannotPlayAsAccount(t *testing.T) {
	ts := newTestServer(t)

	var acct map[string]any
	resp := do(t, ts.client(t), http.MethodPost, ts.URL+"/auth/signup", map[string]string{"username": "victim", "password": "correct-horse"}, &acct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	victim := acct["id"].(string)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	forger := ts.client(t)
	forger.Jar.SetCookies(u, []*http.Cookie{{Name: "wordle_anon", Value: victim, Path: "/"}})

	var started newRes
	resp = do(t, forger, http.MethodPost, ts.URL+"/daily/new", nil, &started)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, started.GameID)
	for i := 0; i < 6; i++ {
		resp = do(t, forger, http.MethodPost, ts.URL+"/daily/guess", map[string]string{"gameId": started.GameID, "word": "trace"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	ctx := context.Background()
	st, err := ts.mem.LoadRatingState(ctx, victim)
	require.NoError(t, err)
	assert.Equal(t, 0, st.GamesPlayed)
	assert.Equal(t, rating.DefaultRating, st.Rating)
	played, err := ts.mem.HasPlayedToday(ctx, victim, "2025-06-01")
	require.NoError(t, err)
	assert.False(t, played)

	// the forger was given a fresh guest identity instead
	var prof map[string]any
	resp = do(t, forger, http.MethodGet, ts.URL+"/stats/me", nil, &prof)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, prof["guest"])
	guest := prof["playerId"].(string)
	assert.True(t, auth.IsGuest(guest))
	assert.NotEqual(t, victim, guest)
	for _, c := range forger.Jar.Cookies(u) {
		if c.Name == "wordle_anon" {
			assert.NotEqual(t, guest, c.Value, "cookie carries a signed token, not the bare ID")
		}
	}

	// a guest ID lifted from the leaderboard is just as useless
	other := ts.client(t)
	other.Jar.SetCookies(u, []*http.Cookie{{Name: "wordle_anon", Value: guest, Path: "/"}})
	resp = do(t, other, http.MethodGet, ts.URL+"/stats/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
