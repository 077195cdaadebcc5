// Package api is the catalogue of BadmintonBuddy backend operations. Each operation fixes
// a path, a method and a payload or query shape, and hands the call to apiclient.
// Errors from apiclient are returned unchanged; nothing here retries.
package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/timoknapp/badminton-buddy/pkg/apiclient"
)

const (
	pathSignup         = "/users/signup"
	pathLogin          = "/users/login"
	pathLogout         = "/users/logout"
	pathUserStats      = "/users/stats"
	pathCalendarStatus = "/users/calendar/status"
	pathCalendarLink   = "/users/calendar/connect"

	pathPartners   = "/matches/partners"
	pathBook       = "/matches/book"
	pathHistory    = "/matches/history"
	pathByDay      = "/matches/by-day"
	pathOpenSlots  = "/matches/open"
	pathTournament = "/tournaments"
)

// Doer is the request wrapper the operations are built on.
type Doer interface {
	Do(ctx context.Context, r apiclient.Request) (*apiclient.Response, error)
}

type Client struct {
	doer Doer
}

func New(doer Doer) *Client {
	return &Client{doer: doer}
}

// Message is the generic acknowledgement most mutations return.
type Message struct {
	Message string `json:"message"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, apiclient.Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	return c.call(ctx, apiclient.Request{Method: http.MethodPost, Path: path, JSON: payload}, out)
}

// postEmpty sends a POST without a body.
func (c *Client) postEmpty(ctx context.Context, path string, out any) error {
	return c.call(ctx, apiclient.Request{Method: http.MethodPost, Path: path}, out)
}

func (c *Client) call(ctx context.Context, r apiclient.Request, out any) error {
	res, err := c.doer.Do(ctx, r)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return res.Decode(out)
}

// setPositive adds key to q only for values above zero; zero and negative mean "no filter".
func setPositive(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func idPath(prefix string, id int, suffix string) string {
	return prefix + "/" + strconv.Itoa(id) + "/" + suffix
}
