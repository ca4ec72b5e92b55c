package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storefront/internal/client"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	// ErrLoginFailed wraps every login failure
	ErrLoginFailed = errors.New("login failed")
	// ErrNotAuthenticated is returned when an operation needs a session
	ErrNotAuthenticated = errors.New("not authenticated")
)

// API is the subset of the auth/profile service the session needs
type API interface {
	Login(ctx context.Context, email, password string) (*client.LoginResponse, error)
	Signup(ctx context.Context, kind string, req client.SignupRequest) (*client.SignupResponse, error)
	GetProfile(ctx context.Context, token string) (*client.Profile, error)
	UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) error
}

// SessionManager holds one client's signed-in user and bearer token
type SessionManager struct {
	mu       sync.RWMutex
	api      API
	store    *store.Store
	clientID string
	logger   *zap.Logger
	now      func() time.Time

	user  *models.User
	token string
}

// NewSessionManager creates a signed-out session; call Init to restore
func NewSessionManager(api API, s *store.Store, clientID string) *SessionManager {
	return &SessionManager{
		api:      api,
		store:    s,
		clientID: clientID,
		logger:   util.ClientLogger(clientID),
		now:      time.Now,
	}
}

// Init restores the persisted session. A session without a token, or whose
// token is an expired JWT, is discarded.
func (m *SessionManager) Init(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "SessionManager.Init")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	var user models.User
	userRes := m.store.Load(ctx, m.userKey(), &user)
	var token string
	tokenRes := m.store.Load(ctx, m.tokenKey(), &token)

	for _, res := range []store.LoadResult{userRes, tokenRes} {
		if res.Status == store.LoadUnavailable {
			return res.Err
		}
	}

	if !userRes.OK() || !tokenRes.OK() || token == "" {
		m.user, m.token = nil, ""
		return nil
	}

	if tokenExpired(token, m.now()) {
		m.logger.Info("Discarding expired session", zap.String("email", user.Email))
		m.user, m.token = nil, ""
		return m.clearPersisted(ctx)
	}

	m.user = &user
	m.token = token
	return nil
}

// Login authenticates against the auth service and fetches the profile.
// Every failure is logged and returned wrapped in ErrLoginFailed.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*models.User, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.Login")
	defer span.End()

	email = strings.TrimSpace(email)

	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		util.LoginsTotal.WithLabelValues("rejected").Inc()
		m.logger.Warn("Login failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	profile, err := m.api.GetProfile(ctx, resp.AccessToken)
	if err != nil {
		util.LoginsTotal.WithLabelValues("profile_failed").Inc()
		m.logger.Warn("Profile fetch after login failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	user := &models.User{
		Email:   email,
		Name:    profile.Name,
		IsAdmin: resp.Role == "admin",
		Phone:   profile.Phone,
		Address: profile.Address,
		City:    profile.City,
		State:   profile.State,
		Zip:     profile.Zip,
	}

	m.mu.Lock()
	m.user = user
	m.token = resp.AccessToken
	persistErr := m.persist(ctx)
	m.mu.Unlock()

	util.LoginsTotal.WithLabelValues("ok").Inc()
	m.logger.Info("User logged in", zap.String("email", email), zap.Bool("admin", user.IsAdmin))

	out := *user
	return &out, persistErr
}

// Signup registers a new account. It does not sign the account in.
func (m *SessionManager) Signup(ctx context.Context, kind string, req client.SignupRequest) (*client.SignupResponse, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.Signup")
	defer span.End()

	resp, err := m.api.Signup(ctx, kind, req)
	if err != nil {
		m.logger.Warn("Signup failed", zap.String("email", req.Email), zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	m.logger.Info("Account registered", zap.String("email", req.Email), zap.String("kind", kind))
	return resp, nil
}

// UpdateUser sends the set fields to the profile service and, on success,
// merges them into the session without re-fetching the profile.
func (m *SessionManager) UpdateUser(ctx context.Context, update models.ProfileUpdate) error {
	ctx, span := util.StartSpan(ctx, "SessionManager.UpdateUser")
	defer span.End()

	token := m.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	if update.Empty() {
		return nil
	}

	if err := m.api.UpdateProfile(ctx, token, update); err != nil {
		m.logger.Warn("Profile update failed", zap.Error(err))
		return fmt.Errorf("failed to update profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return ErrNotAuthenticated
	}
	update.ApplyTo(m.user)
	return m.persist(ctx)
}

// Logout clears the in-memory and persisted session
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user != nil {
		m.logger.Info("User logged out", zap.String("email", m.user.Email))
	}
	m.user = nil
	m.token = ""
	return m.clearPersisted(ctx)
}

// User returns a copy of the signed-in user, or nil
func (m *SessionManager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Token returns the bearer token, empty when signed out
func (m *SessionManager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.token
}

// IsAuthenticated reports whether a user is signed in
func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.user != nil
}

// IsAdmin reports whether the signed-in user has the admin role
func (m *SessionManager) IsAdmin() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.user != nil && m.user.IsAdmin
}

func (m *SessionManager) persist(ctx context.Context) error {
	if err := m.store.Save(ctx, m.userKey(), m.user); err != nil {
		return err
	}
	return m.store.Save(ctx, m.tokenKey(), m.token)
}

func (m *SessionManager) clearPersisted(ctx context.Context) error {
	if err := m.store.Remove(ctx, m.userKey()); err != nil {
		return err
	}
	return m.store.Remove(ctx, m.tokenKey())
}

func (m *SessionManager) userKey() string {
	return store.ClientKey(m.clientID, store.KeyUser)
}

func (m *SessionManager) tokenKey() string {
	return store.ClientKey(m.clientID, store.KeyToken)
}

// tokenExpired reads the exp claim without verifying the signature; the
// auth service remains the authority. Opaque tokens never expire here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}
