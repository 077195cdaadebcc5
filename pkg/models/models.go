package models

// Role of a signed-in user.
type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// User is the session identity returned by login and signup.
type User struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Partner struct {
	UserID      int    `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	SkillRating int    `json:"skill_rating"`
}

// Match is a booking or tournament match as listed by history, by-day and tournament endpoints.
// Nullable columns are pointers; winner is only set once a result is reported.
type Match struct {
	MatchID        int     `json:"match_id"`
	CourtID        int     `json:"court_id,omitempty"`
	Player1ID      int     `json:"player1_id"`
	Player1Name    string  `json:"player1_name,omitempty"`
	Player2ID      *int    `json:"player2_id"`
	Player2Name    *string `json:"player2_name,omitempty"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	TournamentID   *int    `json:"tournament_id,omitempty"`
	TournamentName *string `json:"tournament_name,omitempty"`
	Round          *int    `json:"round,omitempty"`
	WinnerID       *int    `json:"winner_id"`
	Score          *string `json:"score,omitempty"`
	Type           string  `json:"type,omitempty"` // "friendly" or "tournament" (by-day only)
}

// Played reports whether a result was recorded for the match.
func (m Match) Played() bool {
	return m.WinnerID != nil
}

// IsOpenSlot reports whether nobody has taken the second seat yet.
func (m Match) IsOpenSlot() bool {
	return m.Player2ID == nil
}

type OpenSlot struct {
	MatchID    int    `json:"match_id"`
	CourtID    int    `json:"court_id"`
	HostUserID int    `json:"host_user_id"`
	HostName   string `json:"host_name"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type Tournament struct {
	TournamentID int    `json:"tournament_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	CreatedBy    int    `json:"created_by,omitempty"`
	MaxPlayers   int    `json:"max_players,omitempty"`
	Status       string `json:"status,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// LeaderboardRow is one entry of the global leaderboard, pre-sorted by the server
// (wins, then total matches, then skill rating, all descending).
type LeaderboardRow struct {
	UserID       int    `json:"user_id"`
	Name         string `json:"name"`
	Wins         int    `json:"wins"`
	TotalMatches int    `json:"total_matches"`
	SkillRating  int    `json:"skill_rating"`
}

// WinRate is the rounded win percentage, 0 when no matches were played.
func (r LeaderboardRow) WinRate() int {
	if r.TotalMatches <= 0 {
		return 0
	}
	return int(float64(r.Wins)/float64(r.TotalMatches)*100 + 0.5)
}

// TournamentStanding is one entry of a per-tournament leaderboard.
type TournamentStanding struct {
	UserID        int    `json:"user_id"`
	Name          string `json:"name"`
	MatchesPlayed int    `json:"matches_played"`
	Wins          int    `json:"wins"`
}

type CalendarStatus struct {
	Connected          bool    `json:"connected"`
	GoogleAccountEmail string  `json:"google_account_email,omitempty"`
	TokenExpiry        *string `json:"token_expiry,omitempty"`
}

type UserStats struct {
	UserID            int     `json:"user_id"`
	Name              string  `json:"name"`
	Wins              int     `json:"wins"`
	TotalMatches      int     `json:"total_matches"`
	WinRatePercent    float64 `json:"win_rate_percent"`
	SkillRating       int     `json:"skill_rating"`
	FriendlyMatches   int     `json:"friendly_matches"`
	TournamentMatches int     `json:"tournament_matches"`
}

// BookingPrefill is handed from the partner search to the booking flow and consumed once.
type BookingPrefill struct {
	OpponentID   int    `json:"opponent_id"`
	OpponentName string `json:"opponent_name,omitempty"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}
