package api

import (
	"context"

	"github.com/timoknapp/badminton-buddy/pkg/models"
)

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by login and signup.
type AuthResponse struct {
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

// CalendarCredentials are the Google Calendar tokens the backend stores for the user.
type CalendarCredentials struct {
	GoogleAccountEmail string `json:"google_account_email"`
	AccessToken        string `json:"access_token"`
	RefreshToken       string `json:"refresh_token"`
	TokenExpiry        string `json:"token_expiry"`
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.post(ctx, pathSignup, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.post(ctx, pathLogin, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the server-side session. It sends no body.
func (c *Client) Logout(ctx context.Context) (*Message, error) {
	var out Message
	if err := c.postEmpty(ctx, pathLogout, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserStats returns the signed-in user's win/loss breakdown.
func (c *Client) UserStats(ctx context.Context) (*models.UserStats, error) {
	var out struct {
		User models.UserStats `json:"user"`
	}
	if err := c.get(ctx, pathUserStats, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) CalendarStatus(ctx context.Context) (*models.CalendarStatus, error) {
	var out models.CalendarStatus
	if err := c.get(ctx, pathCalendarStatus, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CalendarConnect(ctx context.Context, creds CalendarCredentials) (*Message, error) {
	var out Message
	if err := c.post(ctx, pathCalendarLink, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
