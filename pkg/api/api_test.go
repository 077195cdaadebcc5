package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timoknapp/badminton-buddy/pkg/apiclient"
)

type recorded struct {
	Method   string
	Path     string
	RawQuery string
	Body     string
	CT       string
}

// fakeBackend answers every request with the configured status/content type/body
// and remembers what it was asked.
type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded

	status      int
	contentType string
	body        string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Body:     string(b),
		CT:       r.Header.Get("Content-Type"),
	})
	status, ct, body := f.status, f.contentType, f.body
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeBackend) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestAPI(t *testing.T, body string) (*Client, *fakeBackend) {
	t.Helper()
	fb := &fakeBackend{body: body}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	c, err := apiclient.New(apiclient.Options{BaseURL: srv.URL + "/api", TrailingSlash: true})
	require.NoError(t, err)
	return New(c), fb
}

func TestOperationCatalogue(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name   string
		call   func(c *Client) error
		method string
		path   string
	}{
		{"signup", func(c *Client) error {
			_, err := c.Signup(ctx, SignupRequest{Name: "Ana", Email: "ana@x.com", Password: "pw"})
			return err
		}, "POST", "/api/users/signup/"},
		{"login", func(c *Client) error {
			_, err := c.Login(ctx, LoginRequest{Email: "ana@x.com", Password: "pw"})
			return err
		}, "POST", "/api/users/login/"},
		{"logout", func(c *Client) error { _, err := c.Logout(ctx); return err }, "POST", "/api/users/logout/"},
		{"partners", func(c *Client) error {
			_, err := c.FindPartners(ctx, PartnerQuery{StartTime: "a", EndTime: "b"})
			return err
		}, "GET", "/api/matches/partners/"},
		{"book", func(c *Client) error {
			_, err := c.BookMatch(ctx, BookingRequest{CourtID: 1, StartTime: "a", EndTime: "b"})
			return err
		}, "POST", "/api/matches/book/"},
		{"history", func(c *Client) error { _, err := c.MatchHistory(ctx); return err }, "GET", "/api/matches/history/"},
		{"by-day", func(c *Client) error { _, err := c.MatchesByDay(ctx, "2025-12-28", 0); return err }, "GET", "/api/matches/by-day/"},
		{"open slots", func(c *Client) error { _, err := c.OpenSlots(ctx, "a", "b"); return err }, "GET", "/api/matches/open/"},
		{"join slot", func(c *Client) error { _, err := c.JoinSlot(ctx, 9); return err }, "POST", "/api/matches/9/join/"},
		{"tournaments", func(c *Client) error { _, err := c.Tournaments(ctx); return err }, "GET", "/api/tournaments/"},
		{"create tournament", func(c *Client) error {
			_, err := c.CreateTournament(ctx, TournamentDraft{Name: "Open"})
			return err
		}, "POST", "/api/tournaments/create/"},
		{"join tournament", func(c *Client) error { _, err := c.JoinTournament(ctx, 3); return err }, "POST", "/api/tournaments/3/join/"},
		{"start tournament", func(c *Client) error {
			_, err := c.StartTournament(ctx, 3, StartOptions{})
			return err
		}, "POST", "/api/tournaments/3/start/"},
		{"tournament matches", func(c *Client) error { _, err := c.TournamentMatches(ctx, 3); return err }, "GET", "/api/tournaments/3/matches/"},
		{"report result", func(c *Client) error {
			_, err := c.ReportMatchResult(ctx, 11, MatchResult{WinnerID: 7})
			return err
		}, "POST", "/api/tournaments/match/11/result/"},
		{"complete tournament", func(c *Client) error { _, err := c.CompleteTournament(ctx, 3); return err }, "POST", "/api/tournaments/3/complete/"},
		{"leaderboard", func(c *Client) error { _, err := c.Leaderboard(ctx); return err }, "GET", "/api/tournaments/leaderboard/"},
		{"tournament leaderboard", func(c *Client) error { _, err := c.TournamentLeaderboard(ctx, 3); return err }, "GET", "/api/tournaments/3/leaderboard/"},
		{"calendar status", func(c *Client) error { _, err := c.CalendarStatus(ctx); return err }, "GET", "/api/users/calendar/status/"},
		{"calendar connect", func(c *Client) error {
			_, err := c.CalendarConnect(ctx, CalendarCredentials{GoogleAccountEmail: "a@g.com", AccessToken: "x", RefreshToken: "y", TokenExpiry: "2025-12-30T10:00:00"})
			return err
		}, "POST", "/api/users/calendar/connect/"},
		{"user stats", func(c *Client) error { _, err := c.UserStats(ctx); return err }, "GET", "/api/users/stats/"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, fb := newTestAPI(t, `{}`)
			require.NoError(t, tc.call(c))
			got := fb.last(t)
			assert.Equal(t, tc.method, got.Method)
			assert.Equal(t, tc.path, got.Path)
		})
	}
}

func TestFindPartnersOmitsUnsetFilters(t *testing.T) {
	c, fb := newTestAPI(t, `{"available_partners":[{"user_id":3,"name":"Bo","email":"bo@x.com","skill_rating":5}]}`)

	res, err := c.FindPartners(context.Background(), PartnerQuery{
		StartTime: "2025-12-28T17:00:00",
		EndTime:   "2025-12-28T18:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "end_time=2025-12-28T18%3A00%3A00&start_time=2025-12-28T17%3A00%3A00", fb.last(t).RawQuery)
	require.Len(t, res.Partners, 1)
	assert.Equal(t, "Bo", res.Partners[0].Name)

	_, err = c.FindPartners(context.Background(), PartnerQuery{StartTime: "s", EndTime: "e", MaxSkillDiff: -1, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, "end_time=e&start_time=s", fb.last(t).RawQuery)

	_, err = c.FindPartners(context.Background(), PartnerQuery{StartTime: "s", EndTime: "e", MaxSkillDiff: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, "end_time=e&limit=5&max_skill_diff=2&start_time=s", fb.last(t).RawQuery)
}

func TestMatchesByDayCourtFilter(t *testing.T) {
	c, fb := newTestAPI(t, `{"date":"2025-12-28","items":[{"match_id":1,"court_id":2,"player1_id":7,"player2_id":null,"start_time":"2025-12-28 17:00:00","end_time":"2025-12-28 18:00:00","winner_id":null,"type":"friendly"}]}`)

	agenda, err := c.MatchesByDay(context.Background(), "2025-12-28", 0)
	require.NoError(t, err)
	assert.Equal(t, "date=2025-12-28", fb.last(t).RawQuery)
	require.Len(t, agenda.Items, 1)
	assert.True(t, agenda.Items[0].IsOpenSlot())
	assert.False(t, agenda.Items[0].Played())

	_, err = c.MatchesByDay(context.Background(), "2025-12-28", 2)
	require.NoError(t, err)
	assert.Equal(t, "court_id=2&date=2025-12-28", fb.last(t).RawQuery)
}

func TestBookMatchOpenSlot(t *testing.T) {
	c, fb := newTestAPI(t, `{"message":"Match booked","match_id":42,"open_slot":true}`)

	res, err := c.BookMatch(context.Background(), BookingRequest{
		CourtID:   1,
		StartTime: "2025-12-28T17:00:00",
		EndTime:   "2025-12-28T18:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 42, res.MatchID)
	assert.True(t, res.OpenSlot)
	assert.Equal(t, "Booking confirmed! Match ID: 42 (Open slot created)", res.Summary())

	sent := fb.last(t)
	assert.Equal(t, "application/json", sent.CT)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(sent.Body), &body))
	assert.NotContains(t, body, "opponent_id")
	assert.Equal(t, float64(1), body["court_id"])
}

func TestBookMatchWithOpponent(t *testing.T) {
	c, fb := newTestAPI(t, `{"match_id":43,"open_slot":false}`)

	res, err := c.BookMatch(context.Background(), BookingRequest{CourtID: 1, OpponentID: 3, StartTime: "a", EndTime: "b"})
	require.NoError(t, err)
	assert.Equal(t, "Booking confirmed! Match ID: 43", res.Summary())
	assert.Contains(t, fb.last(t).Body, `"opponent_id":3`)
}

func TestJoinTournamentPlainTextError(t *testing.T) {
	c, fb := newTestAPI(t, "already joined")
	fb.status = http.StatusBadRequest
	fb.contentType = "text/plain"

	_, err := c.JoinTournament(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, "already joined", err.Error())
	assert.Equal(t, http.StatusBadRequest, apiclient.StatusCode(err))
}

func TestMatchHistoryShapes(t *testing.T) {
	row := `{"match_id":1,"court_id":1,"player1_id":7,"player2_id":3,"start_time":"s","end_time":"e","winner_id":7,"score":"21-15"}`
	cases := map[string]string{
		"top-level array": `[` + row + `]`,
		"matches":         `{"matches":[` + row + `]}`,
		"history":         `{"user_id":7,"history":[` + row + `]}`,
		"results":         `{"results":[` + row + `]}`,
		"data array":      `{"data":[` + row + `]}`,
		"nested data":     `{"data":{"history":[` + row + `]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestAPI(t, body)
			list, err := c.MatchHistory(context.Background())
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, 1, list[0].MatchID)
			require.NotNil(t, list[0].WinnerID)
			assert.Equal(t, 7, *list[0].WinnerID)
		})
	}

	t.Run("first location wins", func(t *testing.T) {
		c, _ := newTestAPI(t, `{"matches":[],"history":[`+row+`]}`)
		list, err := c.MatchHistory(context.Background())
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("no array anywhere", func(t *testing.T) {
		c, _ := newTestAPI(t, `{"history":"nope"}`)
		list, err := c.MatchHistory(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})
}

func TestTournamentListShapes(t *testing.T) {
	for name, body := range map[string]string{
		"array":       `[{"tournament_id":1,"name":"Open"}]`,
		"tournaments": `{"tournaments":[{"tournament_id":1,"name":"Open"}]}`,
		"items":       `{"items":[{"tournament_id":1,"name":"Open"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestAPI(t, body)
			list, err := c.Tournaments(context.Background())
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "Open", list[0].Name)
		})
	}
}

func TestReadOperationsAreIdempotent(t *testing.T) {
	c, fb := newTestAPI(t, `{"leaderboard":[],"tournaments":[],"history":[]}`)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.Tournaments(ctx)
		require.NoError(t, err)
		_, err = c.Leaderboard(ctx)
		require.NoError(t, err)
		_, err = c.MatchHistory(ctx)
		require.NoError(t, err)
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	require.Len(t, fb.requests, 6)
	assert.Equal(t, fb.requests[:3], fb.requests[3:])
}

func TestCreateTournamentOmitsEmptyOptionals(t *testing.T) {
	c, fb := newTestAPI(t, `{"message":"Tournament created","tournament_id":8}`)

	res, err := c.CreateTournament(context.Background(), TournamentDraft{Name: "Winter Cup"})
	require.NoError(t, err)
	assert.Equal(t, 8, res.TournamentID)
	assert.JSONEq(t, `{"name":"Winter Cup"}`, fb.last(t).Body)
}

func TestLoginDecodesUser(t *testing.T) {
	c, fb := newTestAPI(t, `{"message":"Login successful","user":{"user_id":7,"name":"Ana","email":"ana@x.com","role":"player"}}`)

	res, err := c.Login(context.Background(), LoginRequest{Email: "ana@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, 7, res.User.UserID)
	assert.Equal(t, "Ana", res.User.Name)
	assert.False(t, res.User.IsAdmin())
	assert.JSONEq(t, `{"email":"ana@x.com","password":"pw"}`, fb.last(t).Body)
}

func TestLeaderboardKeepsServerOrder(t *testing.T) {
	c, _ := newTestAPI(t, `{"leaderboard":[
		{"user_id":2,"name":"Cy","wins":5,"total_matches":6,"skill_rating":9},
		{"user_id":7,"name":"Ana","wins":5,"total_matches":6,"skill_rating":4},
		{"user_id":3,"name":"Bo","wins":1,"total_matches":3,"skill_rating":12}]}`)

	rows, err := c.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{2, 7, 3}, []int{rows[0].UserID, rows[1].UserID, rows[2].UserID})
	assert.Equal(t, 83, rows[0].WinRate())
}
