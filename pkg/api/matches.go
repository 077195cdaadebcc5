package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/timoknapp/badminton-buddy/pkg/apiclient"
	"github.com/timoknapp/badminton-buddy/pkg/models"
)

// PartnerQuery searches for players free in a time window.
// MaxSkillDiff and Limit are left out of the query when not positive.
type PartnerQuery struct {
	StartTime    string // ISO local datetime, e.g. 2025-12-28T17:00:00
	EndTime      string
	MaxSkillDiff int
	Limit        int
}

func (q PartnerQuery) values() url.Values {
	v := url.Values{}
	v.Set("start_time", q.StartTime)
	v.Set("end_time", q.EndTime)
	setPositive(v, "max_skill_diff", q.MaxSkillDiff)
	setPositive(v, "limit", q.Limit)
	return v
}

type PartnerResult struct {
	Me struct {
		UserID      int `json:"user_id"`
		SkillRating int `json:"skill_rating"`
	} `json:"me"`
	Partners []models.Partner `json:"available_partners"`
}

// BookingRequest books a court. A zero OpponentID is not sent, and the server then
// creates an open slot for someone else to join.
type BookingRequest struct {
	CourtID    int    `json:"court_id"`
	OpponentID int    `json:"opponent_id,omitempty"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type BookingResult struct {
	MatchID  int    `json:"match_id"`
	OpenSlot bool   `json:"open_slot,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Summary is the confirmation line shown after booking.
func (b BookingResult) Summary() string {
	s := fmt.Sprintf("Booking confirmed! Match ID: %d", b.MatchID)
	if b.OpenSlot {
		s += " (Open slot created)"
	}
	return s
}

// DayAgenda lists every booking on one date.
type DayAgenda struct {
	Date    string         `json:"date"`
	CourtID *int           `json:"court_id,omitempty"`
	Items   []models.Match `json:"items"`
}

func (c *Client) FindPartners(ctx context.Context, q PartnerQuery) (*PartnerResult, error) {
	var out PartnerResult
	if err := c.get(ctx, pathPartners, q.values(), &out); err != nil {
		return nil, err
	}
	if out.Partners == nil {
		out.Partners = []models.Partner{}
	}
	return &out, nil
}

func (c *Client) BookMatch(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	var out BookingResult
	if err := c.post(ctx, pathBook, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MatchHistory returns the user's recent matches, newest first.
func (c *Client) MatchHistory(ctx context.Context) ([]models.Match, error) {
	res, err := c.doer.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: pathHistory})
	if err != nil {
		return nil, err
	}
	return extractList[models.Match](res, historyShape)
}

// MatchesByDay lists all bookings on date (YYYY-MM-DD). courtID <= 0 means all courts.
func (c *Client) MatchesByDay(ctx context.Context, date string, courtID int) (*DayAgenda, error) {
	q := url.Values{}
	q.Set("date", date)
	setPositive(q, "court_id", courtID)

	var out DayAgenda
	if err := c.get(ctx, pathByDay, q, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []models.Match{}
	}
	return &out, nil
}

// OpenSlots lists bookings without a second player that overlap the window.
func (c *Client) OpenSlots(ctx context.Context, startTime, endTime string) ([]models.OpenSlot, error) {
	q := url.Values{}
	q.Set("start_time", startTime)
	q.Set("end_time", endTime)

	var out struct {
		OpenSlots []models.OpenSlot `json:"open_slots"`
	}
	if err := c.get(ctx, pathOpenSlots, q, &out); err != nil {
		return nil, err
	}
	if out.OpenSlots == nil {
		out.OpenSlots = []models.OpenSlot{}
	}
	return out.OpenSlots, nil
}

// JoinSlot takes the free seat of an open slot.
func (c *Client) JoinSlot(ctx context.Context, matchID int) (*Message, error) {
	var out Message
	if err := c.postEmpty(ctx, idPath("/matches", matchID, "join"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}
