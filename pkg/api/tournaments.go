package api

import (
	"context"
	"net/http"

	"github.com/timoknapp/badminton-buddy/pkg/apiclient"
	"github.com/timoknapp/badminton-buddy/pkg/models"
)

// TournamentDraft creates a tournament (admin only). Empty description and zero
// max players are left out of the payload.
type TournamentDraft struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MaxPlayers  int    `json:"max_players,omitempty"`
}

type TournamentCreated struct {
	Message      string `json:"message"`
	TournamentID int    `json:"tournament_id"`
}

// StartOptions seed round one. Zero values are left for the server to default.
type StartOptions struct {
	CourtID      int    `json:"court_id,omitempty"`
	StartTime    string `json:"start_time,omitempty"`
	MatchMinutes int    `json:"match_minutes,omitempty"`
}

type TournamentStarted struct {
	Message        string         `json:"message"`
	ByeUserID      *int           `json:"bye_user_id"`
	MatchesCreated []models.Match `json:"matches_created"`
}

type TournamentMatches struct {
	TournamentID int            `json:"tournament_id"`
	Matches      []models.Match `json:"matches"`
}

// MatchResult reports the winner of a tournament match (admin only).
type MatchResult struct {
	WinnerID int    `json:"winner_id"`
	Score    string `json:"score,omitempty"`
}

type TournamentCompleted struct {
	Message      string `json:"message"`
	TournamentID int    `json:"tournament_id"`
	TotalMatches int    `json:"total_matches"`
}

// Tournaments lists every tournament, newest first.
func (c *Client) Tournaments(ctx context.Context) ([]models.Tournament, error) {
	res, err := c.doer.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: pathTournament})
	if err != nil {
		return nil, err
	}
	return extractList[models.Tournament](res, tournamentShape)
}

func (c *Client) CreateTournament(ctx context.Context, draft TournamentDraft) (*TournamentCreated, error) {
	var out TournamentCreated
	if err := c.post(ctx, pathTournament+"/create", draft, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) JoinTournament(ctx context.Context, tournamentID int) (*Message, error) {
	var out Message
	if err := c.postEmpty(ctx, idPath(pathTournament, tournamentID, "join"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartTournament(ctx context.Context, tournamentID int, opts StartOptions) (*TournamentStarted, error) {
	var out TournamentStarted
	if err := c.post(ctx, idPath(pathTournament, tournamentID, "start"), opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TournamentMatches(ctx context.Context, tournamentID int) (*TournamentMatches, error) {
	var out TournamentMatches
	if err := c.get(ctx, idPath(pathTournament, tournamentID, "matches"), nil, &out); err != nil {
		return nil, err
	}
	if out.Matches == nil {
		out.Matches = []models.Match{}
	}
	return &out, nil
}

func (c *Client) ReportMatchResult(ctx context.Context, matchID int, result MatchResult) (*Message, error) {
	var out Message
	if err := c.post(ctx, idPath(pathTournament+"/match", matchID, "result"), result, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteTournament(ctx context.Context, tournamentID int) (*TournamentCompleted, error) {
	var out TournamentCompleted
	if err := c.postEmpty(ctx, idPath(pathTournament, tournamentID, "complete"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard returns the global ranking as ordered by the server.
func (c *Client) Leaderboard(ctx context.Context) ([]models.LeaderboardRow, error) {
	var out struct {
		Leaderboard []models.LeaderboardRow `json:"leaderboard"`
	}
	if err := c.get(ctx, pathTournament+"/leaderboard", nil, &out); err != nil {
		return nil, err
	}
	if out.Leaderboard == nil {
		out.Leaderboard = []models.LeaderboardRow{}
	}
	return out.Leaderboard, nil
}

func (c *Client) TournamentLeaderboard(ctx context.Context, tournamentID int) ([]models.TournamentStanding, error) {
	var out struct {
		Leaderboard []models.TournamentStanding `json:"leaderboard"`
	}
	if err := c.get(ctx, idPath(pathTournament, tournamentID, "leaderboard"), nil, &out); err != nil {
		return nil, err
	}
	if out.Leaderboard == nil {
		out.Leaderboard = []models.TournamentStanding{}
	}
	return out.Leaderboard, nil
}
