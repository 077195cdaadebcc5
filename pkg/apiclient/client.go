package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timoknapp/badminton-buddy/pkg/logger"
	"golang.org/x/net/publicsuffix"
)

const userAgent = "badminton-buddy-client/1.0"

// Options configure a Client. Only BaseURL is required.
type Options struct {
	BaseURL string

	// TrailingSlash appends "/" to every path; the Django routes require it.
	TrailingSlash bool

	// Jar holds the session credential. A fresh in-memory jar is used when nil.
	Jar http.CookieJar

	// Transport defaults to http.DefaultTransport.
	Transport http.RoundTripper

	// Timeout of 0 means no client-side timeout.
	Timeout time.Duration
}

// Client is the single chokepoint every backend call goes through. It always sends
// the session cookie, parses bodies by content type and normalizes failures into *Error.
type Client struct {
	baseURL       *url.URL
	trailingSlash bool
	http          *http.Client
}

// Request describes one call. Method defaults to GET.
// If JSON is set it is serialized and sent with a JSON content type; otherwise Body is forwarded as is.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	JSON   any
	Body   io.Reader
	Header http.Header
}

// Response carries the parsed body of a successful call.
// Data is the decoded JSON value (map, slice, number...), the raw text for non-JSON bodies,
// or nil when the body could not be read or parsed.
type Response struct {
	StatusCode  int
	ContentType string
	Data        any

	raw    []byte
	isJSON bool
}

func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", opts.BaseURL)
	}

	jar := opts.Jar
	if jar == nil {
		jar, err = NewMemoryJar()
		if err != nil {
			return nil, err
		}
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		baseURL:       base,
		trailingSlash: opts.TrailingSlash,
		http: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   opts.Timeout,
		},
	}, nil
}

// NewMemoryJar returns a cookie jar using the public suffix list for domain matching.
func NewMemoryJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

// URL builds the absolute URL for a path and query. Empty query values are never sent.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.baseURL
	p := "/" + strings.Trim(path, "/")
	if c.trailingSlash && p != "/" {
		p += "/"
	}
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + p
	q := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			if v != "" {
				q.Add(k, v)
			}
		}
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Do sends the request and returns the parsed body on a 2xx status.
// Any other outcome yields exactly one *Error.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	body := r.Body
	header := http.Header{}
	header.Set("Accept", "application/json, text/plain, */*")
	header.Set("User-Agent", userAgent)
	if r.JSON != nil {
		payload, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, &Error{Message: fmt.Sprintf("failed to encode request body: %v", err), Err: err}
		}
		body = bytes.NewReader(payload)
		header.Set("Content-Type", "application/json")
	}
	for k, vs := range r.Header {
		header.Del(k)
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	target := c.URL(r.Path, r.Query)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &Error{Message: err.Error(), Err: err}
	}
	req.Header = header
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	fields := logger.Fields{
		"method":     method,
		"path":       req.URL.Path,
		"request_id": requestID,
	}

	start := time.Now()
	res, err := c.http.Do(req)
	fields["duration"] = time.Since(start)
	if err != nil {
		logger.WithFields(fields).Warnf("request failed: %v", err)
		return nil, &Error{Message: transportMessage(err), Err: err}
	}
	defer res.Body.Close()
	fields["status"] = res.StatusCode

	out := readBody(res)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		data := out.Data
		if s, ok := data.(string); ok && strings.Contains(out.ContentType, "text/html") {
			data = htmlText(s)
		}
		msg := errorMessage(res.StatusCode, data)
		logger.WithFields(fields).Warnf("request rejected: %s", msg)
		return nil, &Error{StatusCode: res.StatusCode, Message: msg}
	}

	logger.WithFields(fields).Debug("request ok")
	return out, nil
}

// readBody parses JSON when the content type says so and falls back to raw text.
// A body that fails to parse or read becomes a nil Data.
func readBody(res *http.Response) *Response {
	out := &Response{
		StatusCode:  res.StatusCode,
		ContentType: res.Header.Get("Content-Type"),
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return out
	}
	out.raw = raw

	if strings.Contains(out.ContentType, "application/json") {
		out.isJSON = true
		var data any
		if err := json.Unmarshal(raw, &data); err != nil {
			return out
		}
		out.Data = data
		return out
	}
	out.Data = string(raw)
	return out
}

// Decode unmarshals the JSON body into v. Non-JSON and empty bodies leave v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || !r.isJSON || r.Data == nil {
		return nil
	}
	if err := json.Unmarshal(r.raw, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// IsJSON reports whether the body was declared as JSON and parsed successfully.
func (r *Response) IsJSON() bool {
	return r != nil && r.isJSON && r.Data != nil
}

// Raw returns the unparsed body bytes.
func (r *Response) Raw() []byte {
	return r.raw
}

func transportMessage(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		err = uerr.Err
	}
	return fmt.Sprintf("Request failed: %v", err)
}
