package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timoknapp/badminton-buddy/pkg/api"
	"github.com/timoknapp/badminton-buddy/pkg/apiclient"
	"github.com/timoknapp/badminton-buddy/pkg/models"
)

type memMirror struct {
	data    []byte
	saveErr error
	loadErr error
	cleared int
}

func (m *memMirror) LoadIdentity() ([]byte, error) { return m.data, m.loadErr }
func (m *memMirror) SaveIdentity(d []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), d...)
	return nil
}
func (m *memMirror) ClearIdentity() error {
	m.cleared++
	m.data = nil
	return nil
}

type fakeAuth struct {
	user      models.User
	loginErr  error
	logoutErr error
	logouts   int
}

func (f *fakeAuth) Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.AuthResponse{Message: "Login successful", User: f.user}, nil
}

func (f *fakeAuth) Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error) {
	u := f.user
	u.Name = req.Name
	return &api.AuthResponse{Message: "Signup successful", User: u}, nil
}

func (f *fakeAuth) Logout(ctx context.Context) (*api.Message, error) {
	f.logouts++
	if f.logoutErr != nil {
		return nil, f.logoutErr
	}
	return &api.Message{}, nil
}

var ana = models.User{UserID: 7, Name: "Ana", Email: "ana@x.com", Role: models.RolePlayer}

func TestLoginTransitionsToAuthenticatedAndMirrors(t *testing.T) {
	mirror := &memMirror{}
	h := Open(&fakeAuth{user: ana}, mirror)
	assert.Equal(t, Anonymous, h.State())
	assert.False(t, h.Loading())

	u, err := h.Login(context.Background(), "ana@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, ana, u)
	assert.Equal(t, Authenticated, h.State())

	var mirrored models.User
	require.NoError(t, json.Unmarshal(mirror.data, &mirrored))
	assert.Equal(t, ana, mirrored)
}

func TestRestoreRoundTrip(t *testing.T) {
	mirror := &memMirror{}
	first := Open(&fakeAuth{user: ana}, mirror)
	_, err := first.Login(context.Background(), "ana@x.com", "pw")
	require.NoError(t, err)

	second := Open(&fakeAuth{}, mirror)
	got, ok := second.User()
	require.True(t, ok)
	assert.Equal(t, ana, got)
	assert.Equal(t, Authenticated, second.State())
}

func TestLoadingOnlyBeforeRestore(t *testing.T) {
	h := New(&fakeAuth{}, &memMirror{})
	assert.True(t, h.Loading())
	assert.Equal(t, Uninitialized, h.State())

	h.Restore()
	assert.False(t, h.Loading())
	assert.Equal(t, Anonymous, h.State())
}

func TestFailedLoginStaysAnonymous(t *testing.T) {
	mirror := &memMirror{}
	h := Open(&fakeAuth{loginErr: &apiclient.Error{StatusCode: 401, Message: "Invalid credentials"}}, mirror)

	_, err := h.Login(context.Background(), "ana@x.com", "bad")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.Equal(t, Anonymous, h.State())
	assert.Nil(t, mirror.data)
}

func TestSignupAuthenticates(t *testing.T) {
	h := Open(&fakeAuth{user: ana}, &memMirror{})
	u, err := h.Signup(context.Background(), "Ana B", "ana@x.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ana B", u.Name)
	assert.Equal(t, Authenticated, h.State())
}

func TestLogoutClearsIdentityAndRunsHooks(t *testing.T) {
	mirror := &memMirror{}
	h := Open(&fakeAuth{user: ana}, mirror)
	_, err := h.Login(context.Background(), "ana@x.com", "pw")
	require.NoError(t, err)

	ended := 0
	h.OnEnd(func() { ended++ })

	require.NoError(t, h.Logout(context.Background()))
	assert.Equal(t, Anonymous, h.State())
	_, ok := h.User()
	assert.False(t, ok)
	assert.Nil(t, mirror.data)
	assert.Equal(t, 1, ended)

	_, err = h.Require()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogoutFailureKeepsIdentity(t *testing.T) {
	mirror := &memMirror{}
	auth := &fakeAuth{user: ana}
	h := Open(auth, mirror)
	_, err := h.Login(context.Background(), "ana@x.com", "pw")
	require.NoError(t, err)

	auth.logoutErr = &apiclient.Error{Message: "Request failed: connection refused", Err: errors.New("refused")}
	err = h.Logout(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Request failed: connection refused", err.Error())
	assert.Equal(t, Authenticated, h.State())
	u, ok := h.User()
	require.True(t, ok)
	assert.Equal(t, ana, u)
	assert.NotNil(t, mirror.data)
	assert.Zero(t, mirror.cleared)
}

func TestCorruptMirrorFallsBackToAnonymous(t *testing.T) {
	for name, data := range map[string]string{
		"not json":   "{user",
		"wrong type": `"just a string"`,
		"no id":      `{"name":"ghost"}`,
	} {
		t.Run(name, func(t *testing.T) {
			mirror := &memMirror{data: []byte(data)}
			h := Open(&fakeAuth{}, mirror)
			assert.Equal(t, Anonymous, h.State())
			assert.False(t, h.Loading())
			assert.Nil(t, mirror.data)
			assert.Equal(t, 1, mirror.cleared)
		})
	}
}

func TestMirrorReadErrorFallsBackToAnonymous(t *testing.T) {
	h := Open(&fakeAuth{}, &memMirror{loadErr: errors.New("disk gone")})
	assert.Equal(t, Anonymous, h.State())
}

func TestMirrorWriteFailureLeavesStateUnchanged(t *testing.T) {
	mirror := &memMirror{saveErr: errors.New("read-only")}
	h := Open(&fakeAuth{user: ana}, mirror)

	_, err := h.Login(context.Background(), "ana@x.com", "pw")
	require.Error(t, err)
	assert.Equal(t, Anonymous, h.State())
	_, ok := h.User()
	assert.False(t, ok)
}

func TestLoginWithoutUserStaysAnonymous(t *testing.T) {
	mirror := &memMirror{}
	h := Open(&fakeAuth{}, mirror)

	_, err := h.Login(context.Background(), "ana@x.com", "pw")
	require.ErrorIs(t, err, ErrNoUser)
	assert.Equal(t, Anonymous, h.State())
	_, ok := h.User()
	assert.False(t, ok)
	assert.Nil(t, mirror.data)

	_, err = h.Signup(context.Background(), "Ana", "ana@x.com", "pw")
	require.ErrorIs(t, err, ErrNoUser)
	assert.Equal(t, Anonymous, h.State())
	assert.Nil(t, mirror.data)
}
