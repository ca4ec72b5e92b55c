package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/client"
	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	loginErr   error
	profileErr error
	updateErr  error
	role       string
	token      string
	updates    []models.ProfileUpdate
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*client.LoginResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &client.LoginResponse{AccessToken: f.token, Role: f.role}, nil
}

func (f *fakeAPI) Signup(_ context.Context, kind string, req client.SignupRequest) (*client.SignupResponse, error) {
	return &client.SignupResponse{Message: "User registered", UserID: "u-1"}, nil
}

func (f *fakeAPI) GetProfile(_ context.Context, token string) (*client.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &client.Profile{Name: "Ada", Phone: "555", City: "Hartford"}, nil
}

func (f *fakeAPI) UpdateProfile(_ context.Context, token string, update models.ProfileUpdate) error {
	f.updates = append(f.updates, update)
	return f.updateErr
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u-1",
		"role": "user",
		"exp":  exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func newManager(t *testing.T, api API, s *store.Store) *SessionManager {
	t.Helper()
	m := NewSessionManager(api, s, "client-1")
	require.NoError(t, m.Init(context.Background()))
	return m
}

func TestLoginBuildsSession(t *testing.T) {
	s := store.NewStore(store.NewMemoryBackend(), "test")
	api := &fakeAPI{role: "admin", token: "opaque-token"}
	m := newManager(t, api, s)

	assert.False(t, m.IsAuthenticated())

	user, err := m.Login(context.Background(), " ada@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.Name)
	assert.True(t, user.IsAdmin)

	assert.True(t, m.IsAuthenticated())
	assert.True(t, m.IsAdmin())
	assert.Equal(t, "opaque-token", m.Token())

	restored := newManager(t, api, s)
	require.True(t, restored.IsAuthenticated())
	assert.Equal(t, "Hartford", restored.User().City)
}

func TestLoginFailuresNeverCreateASession(t *testing.T) {
	s := store.NewStore(store.NewMemoryBackend(), "test")

	for _, api := range []*fakeAPI{
		{loginErr: &client.StatusError{Upstream: "auth", Operation: "login", StatusCode: 401}},
		{loginErr: errors.New("connection refused")},
		{token: "t", role: "user", profileErr: errors.New("profile down")},
	} {
		m := newManager(t, api, s)
		user, err := m.Login(context.Background(), "ada@example.com", "pw")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrLoginFailed)
		assert.False(t, m.IsAuthenticated())
		assert.Empty(t, m.Token())
	}
}

func TestUpdateUserMergesWithoutRefetch(t *testing.T) {
	s := store.NewStore(store.NewMemoryBackend(), "test")
	api := &fakeAPI{role: "user", token: "t"}
	m := newManager(t, api, s)
	ctx := context.Background()

	zip := "06101"
	assert.ErrorIs(t, m.UpdateUser(ctx, models.ProfileUpdate{Zip: &zip}), ErrNotAuthenticated)

	_, err := m.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, m.UpdateUser(ctx, models.ProfileUpdate{Zip: &zip}))
	assert.Equal(t, "06101", m.User().Zip)
	assert.Equal(t, "Ada", m.User().Name)
	require.Len(t, api.updates, 1)
	assert.Nil(t, api.updates[0].Name)

	api.updateErr = errors.New("upstream 500")
	other := "99999"
	assert.Error(t, m.UpdateUser(ctx, models.ProfileUpdate{Zip: &other}))
	assert.Equal(t, "06101", m.User().Zip)

	assert.Equal(t, "06101", newManager(t, api, s).User().Zip)
}

func TestLogoutClearsPersistedSession(t *testing.T) {
	s := store.NewStore(store.NewMemoryBackend(), "test")
	api := &fakeAPI{role: "user", token: "t"}
	m := newManager(t, api, s)
	ctx := context.Background()

	_, err := m.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx))

	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.User())
	assert.False(t, newManager(t, api, s).IsAuthenticated())
}

func TestInitDiscardsExpiredToken(t *testing.T) {
	s := store.NewStore(store.NewMemoryBackend(), "test")
	ctx := context.Background()

	api := &fakeAPI{role: "user", token: signed(t, time.Now().Add(-time.Minute))}
	_, err := newManager(t, api, s).Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	assert.False(t, newManager(t, api, s).IsAuthenticated())

	api.token = signed(t, time.Now().Add(time.Hour))
	_, err = newManager(t, api, s).Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.True(t, newManager(t, api, s).IsAuthenticated())
}

func TestInitIgnoresCorruptSession(t *testing.T) {
	backend := store.NewMemoryBackend()
	s := store.NewStore(backend, "test")
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, "test:"+store.ClientKey("client-1", store.KeyUser), []byte("{oops")))
	require.NoError(t, backend.Set(ctx, "test:"+store.ClientKey("client-1", store.KeyToken), []byte(`"t"`)))

	m := newManager(t, &fakeAPI{}, s)
	assert.False(t, m.IsAuthenticated())
}
