package apiclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrSuperseded is returned by Latest when a newer call in the same Scope started
// before this one finished. The result of the superseded call is discarded.
var ErrSuperseded = errors.New("request superseded by a newer one")

// Error is the single failure shape every API call surfaces. Error() returns the
// normalized human-readable message and nothing else, so it can be shown verbatim.
//
// StatusCode is 0 when no response was received (transport failure or cancellation);
// Err then holds the cause.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status from an API error, 0 if err is not one or had no response.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// errorFields are checked in this order on a JSON error body.
var errorFields = []string{"error", "detail", "message"}

// errorMessage picks the message for a failed response:
// error field, detail field, message field, raw string body, then a generic status message.
func errorMessage(status int, data any) string {
	if obj, ok := data.(map[string]any); ok {
		for _, field := range errorFields {
			if s, ok := obj[field].(string); ok && s != "" {
				return s
			}
		}
	}
	if s, ok := data.(string); ok && s != "" {
		return s
	}
	return fmt.Sprintf("Request failed: %d", status)
}

// htmlText reduces an HTML error page to something readable: the <title> if present,
// otherwise the collapsed body text. Returns the input unchanged if it can't be parsed.
func htmlText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	if title := collapseSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return collapseSpace(doc.Find("body").Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
