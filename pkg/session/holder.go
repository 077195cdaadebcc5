// Package session holds the identity of the signed-in user for the whole process.
//
// The holder is the only writer of the identity. Every transition into or out of the
// authenticated state writes or erases the durable mirror before the in-memory copy
// changes, so the two never disagree once Restore has run.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/timoknapp/badminton-buddy/pkg/api"
	"github.com/timoknapp/badminton-buddy/pkg/logger"
	"github.com/timoknapp/badminton-buddy/pkg/models"
)

// ErrNotAuthenticated is returned when an operation needs a signed-in user and there is none.
var ErrNotAuthenticated = errors.New("not logged in")

// ErrNoUser is returned when a login or signup succeeds without naming a user.
var ErrNoUser = errors.New("the server did not return a user")

type State int

const (
	Uninitialized State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "uninitialized"
	}
}

// Mirror is durable storage for the serialized identity record.
// LoadIdentity returns nil, nil when nothing is stored.
type Mirror interface {
	LoadIdentity() ([]byte, error)
	SaveIdentity(data []byte) error
	ClearIdentity() error
}

// Authenticator is the subset of the API the holder drives.
type Authenticator interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context) (*api.Message, error)
}

type Holder struct {
	mu      sync.RWMutex
	auth    Authenticator
	mirror  Mirror
	user    *models.User
	state   State
	loading bool
	onEnd   []func()
}

// New returns a holder that has not read the mirror yet; Loading reports true until Restore runs.
func New(auth Authenticator, mirror Mirror) *Holder {
	return &Holder{auth: auth, mirror: mirror, loading: true}
}

// Open returns a holder with the persisted identity already restored.
func Open(auth Authenticator, mirror Mirror) *Holder {
	h := New(auth, mirror)
	h.Restore()
	return h
}

// Restore synchronously reads the mirror. A missing record means Anonymous.
// An unreadable or corrupt record also means Anonymous: it is erased and a warning is logged.
func (h *Holder) Restore() {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer func() { h.loading = false }()

	h.user = nil
	h.state = Anonymous

	data, err := h.mirror.LoadIdentity()
	if err != nil {
		logger.Warn("Could not read saved identity, starting anonymous: %v", err)
		return
	}
	if len(data) == 0 {
		return
	}

	var u models.User
	if err := json.Unmarshal(data, &u); err != nil || u.UserID == 0 {
		logger.Warn("Saved identity is corrupt, starting anonymous")
		if err := h.mirror.ClearIdentity(); err != nil {
			logger.Warn("Could not erase corrupt identity: %v", err)
		}
		return
	}
	h.user = &u
	h.state = Authenticated
	logger.Debug("Restored identity for user %d", u.UserID)
}

// Loading is true only until the initial mirror read has finished.
func (h *Holder) Loading() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loading
}

func (h *Holder) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// User returns a copy of the current identity.
func (h *Holder) User() (models.User, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.user == nil {
		return models.User{}, false
	}
	return *h.user, true
}

// Require returns the current identity or ErrNotAuthenticated.
func (h *Holder) Require() (models.User, error) {
	u, ok := h.User()
	if !ok {
		return models.User{}, ErrNotAuthenticated
	}
	return u, nil
}

// OnEnd registers fn to run after the session ends (logout or Clear).
// Session-scoped records such as the booking prefill hook in here.
func (h *Holder) OnEnd(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEnd = append(h.onEnd, fn)
}

func (h *Holder) Login(ctx context.Context, email, password string) (models.User, error) {
	res, err := h.auth.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return models.User{}, err
	}
	if err := h.set(res.User); err != nil {
		return models.User{}, err
	}
	logger.Info("Logged in as %s (user %d)", res.User.Email, res.User.UserID)
	return res.User, nil
}

func (h *Holder) Signup(ctx context.Context, name, email, password string) (models.User, error) {
	res, err := h.auth.Signup(ctx, api.SignupRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return models.User{}, err
	}
	if err := h.set(res.User); err != nil {
		return models.User{}, err
	}
	logger.Info("Signed up as %s (user %d)", res.User.Email, res.User.UserID)
	return res.User, nil
}

// Logout ends the server session and then clears the identity, whatever the response body said.
// If the call fails the identity is kept and the error is returned.
func (h *Holder) Logout(ctx context.Context) error {
	if _, err := h.auth.Logout(ctx); err != nil {
		return err
	}
	return h.Clear()
}

// Clear drops the identity locally without calling the server.
func (h *Holder) Clear() error {
	h.mu.Lock()
	if err := h.mirror.ClearIdentity(); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("failed to erase saved identity: %w", err)
	}
	h.user = nil
	h.state = Anonymous
	hooks := append([]func(){}, h.onEnd...)
	h.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}

// set replaces the identity as a whole. The mirror is written first; if that fails
// the in-memory identity is left untouched. A record without a user id is refused.
func (h *Holder) set(u models.User) error {
	if u.UserID == 0 {
		return ErrNoUser
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.mirror.SaveIdentity(data); err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	h.user = &u
	h.state = Authenticated
	h.loading = false
	return nil
}
