// Package dashboard derives the player's summary and the list filters from server responses.
package dashboard

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/timoknapp/badminton-buddy/pkg/models"
)

// PreviewSize is how many history rows the summary carries.
const PreviewSize = 3

// Summary is the dashboard view for one user. Leaderboard-derived fields are nil
// when the user has no leaderboard row.
type Summary struct {
	AllCount    int
	PlayedCount int
	Wins        int
	WinRate     int

	Rank        *int
	SkillRating *int
	LbWins      *int
	LbMatches   *int

	Preview []models.Match
}

// Summarize counts bookings and played matches and finds the user's rank.
// A match counts as played only when it has a winner; wins count played matches only.
func Summarize(userID int, history []models.Match, board []models.LeaderboardRow) Summary {
	s := Summary{AllCount: len(history)}

	for _, m := range history {
		if !m.Played() {
			continue
		}
		s.PlayedCount++
		if *m.WinnerID == userID {
			s.Wins++
		}
	}
	if s.PlayedCount > 0 {
		s.WinRate = int(math.Round(float64(s.Wins) / float64(s.PlayedCount) * 100))
	}

	n := len(history)
	if n > PreviewSize {
		n = PreviewSize
	}
	s.Preview = append([]models.Match(nil), history[:n]...)

	// the server orders the board by wins, then matches, then skill
	for i, row := range board {
		if row.UserID != userID {
			continue
		}
		rank, skill, wins, total := i+1, row.SkillRating, row.Wins, row.TotalMatches
		s.Rank, s.SkillRating, s.LbWins, s.LbMatches = &rank, &skill, &wins, &total
		break
	}
	return s
}

// Source is what Load needs from the API.
type Source interface {
	MatchHistory(ctx context.Context) ([]models.Match, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardRow, error)
}

// Load fetches history and leaderboard in parallel and summarizes them.
// If either call fails the whole load fails with that error.
func Load(ctx context.Context, src Source, userID int) (Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		history  []models.Match
		board    []models.LeaderboardRow
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		rows, err := src.MatchHistory(ctx)
		if err != nil {
			fail(err)
			return
		}
		history = rows
	}()
	go func() {
		defer wg.Done()
		rows, err := src.Leaderboard(ctx)
		if err != nil {
			fail(err)
			return
		}
		board = rows
	}()
	wg.Wait()

	if firstErr != nil {
		return Summary{}, firstErr
	}
	return Summarize(userID, history, board), nil
}

// FilterHistory keeps rows whose player names or ids contain the query, or whose
// tournament id equals it. Matching is case-insensitive; an empty query keeps everything.
func FilterHistory(rows []models.Match, query string) []models.Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return rows
	}
	out := make([]models.Match, 0, len(rows))
	for _, m := range rows {
		players := strings.ToLower(m.Player1Name + " " + deref(m.Player2Name))
		ids := strings.Join([]string{
			strconv.Itoa(m.Player1ID),
			intString(m.Player2ID),
			strconv.Itoa(m.MatchID),
			strconv.Itoa(m.CourtID),
		}, " ")
		if strings.Contains(players, q) || strings.Contains(ids, q) ||
			(m.TournamentID != nil && strconv.Itoa(*m.TournamentID) == q) {
			out = append(out, m)
		}
	}
	return out
}

// FilterLeaderboard keeps rows whose name contains the query or whose user id equals it.
func FilterLeaderboard(rows []models.LeaderboardRow, query string) []models.LeaderboardRow {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return rows
	}
	out := make([]models.LeaderboardRow, 0, len(rows))
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Name), q) || strconv.Itoa(r.UserID) == q {
			out = append(out, r)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intString(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
