package tournament

import (
	"context"
	"sync"

	"github.com/timoknapp/badminton-buddy/pkg/logger"
	"github.com/timoknapp/badminton-buddy/pkg/models"
)

// Source is the set of read calls a warmup touches.
type Source interface {
	Tournaments(ctx context.Context) ([]models.Tournament, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardRow, error)
	MatchHistory(ctx context.Context) ([]models.Match, error)
}

// WarmupResult counts what each read returned. Failed lists the reads that errored.
type WarmupResult struct {
	Tournaments int
	Leaderboard int
	History     int
	Failed      []string
}

func (r WarmupResult) Total() int {
	return r.Tournaments + r.Leaderboard + r.History
}

// Warmup fetches tournaments, the global leaderboard and match history concurrently.
// A failing read is logged and recorded; the others still complete. The returned
// error is the context's error if ctx ended during the run.
func Warmup(ctx context.Context, src Source) (WarmupResult, error) {
	logger.Info("Warmup: fetching tournaments, leaderboard and history")

	var res WarmupResult
	var mu sync.Mutex
	var wg sync.WaitGroup

	run := func(name string, fetch func(context.Context) (int, error), into *int) {
		defer wg.Done()
		n, err := fetch(ctx)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			logger.Warn("Warmup: %s failed: %v", name, err)
			res.Failed = append(res.Failed, name)
			return
		}
		*into = n
	}

	wg.Add(3)
	go run("tournaments", func(ctx context.Context) (int, error) {
		l, err := src.Tournaments(ctx)
		return len(l), err
	}, &res.Tournaments)
	go run("leaderboard", func(ctx context.Context) (int, error) {
		l, err := src.Leaderboard(ctx)
		return len(l), err
	}, &res.Leaderboard)
	go run("history", func(ctx context.Context) (int, error) {
		l, err := src.MatchHistory(ctx)
		return len(l), err
	}, &res.History)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return res, err
	}
	logger.Info("Warmup finished. Tournaments: %d, leaderboard rows: %d, history rows: %d",
		res.Tournaments, res.Leaderboard, res.History)
	return res, nil
}
