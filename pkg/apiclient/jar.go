package apiclient

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/timoknapp/badminton-buddy/pkg/logger"
)

// CookieStore persists the session cookies between runs.
type CookieStore interface {
	LoadCookies(host string) ([]*http.Cookie, error)
	SaveCookies(host string, cookies []*http.Cookie) error
}

// PersistentJar is an http.CookieJar that mirrors the cookies for one API host into a CookieStore,
// so the backend session survives process restarts. The client never inspects the cookie values.
type PersistentJar struct {
	mu    sync.Mutex
	inner http.CookieJar
	store CookieStore
	base  *url.URL
}

// NewPersistentJar restores the cookies saved for base and returns the jar.
func NewPersistentJar(base string, store CookieStore) (*PersistentJar, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	inner, err := NewMemoryJar()
	if err != nil {
		return nil, err
	}
	// cookies scoped to the API root (Path=/api/) only match the root with a trailing slash
	u.Path = strings.TrimRight(u.Path, "/") + "/"
	saved, err := store.LoadCookies(u.Host)
	if err != nil {
		logger.Warn("Could not restore saved cookies for %s: %v", u.Host, err)
	} else if len(saved) > 0 {
		inner.SetCookies(u, saved)
		logger.Debug("Restored %d cookie(s) for %s", len(saved), u.Host)
	}
	return &PersistentJar{inner: inner, store: store, base: u}, nil
}

func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.inner.SetCookies(u, cookies)
	if u.Host != j.base.Host {
		return
	}
	if err := j.store.SaveCookies(j.base.Host, j.inner.Cookies(j.base)); err != nil {
		logger.Warn("Could not persist cookies for %s: %v", j.base.Host, err)
	}
}

func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}
