package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/models"
)

// Signup kinds
const (
	SignupUser  = "user"
	SignupAdmin = "admin"
)

// AuthClient talks to the auth/profile service
type AuthClient struct {
	t transport
}

// NewAuthClient creates a new auth/profile client
func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	return &AuthClient{t: newTransport("auth", baseURL, timeout)}
}

// LoginRequest is the auth service login body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token and role
type LoginResponse struct {
	AccessToken string `json:"access_token" validate:"required"`
	TokenType   string `json:"token_type"`
	Role        string `json:"role" validate:"required,oneof=user admin"`
}

// SignupRequest registers a user or admin account
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required"`
	Phone    string `json:"phone,omitempty"`
}

// SignupResponse acknowledges a registration
type SignupResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
	AdminID string `json:"admin_id,omitempty"`
}

// ID returns whichever id the service assigned
func (r SignupResponse) ID() string {
	if r.UserID != "" {
		return r.UserID
	}
	return r.AdminID
}

// Profile is the body of GET /profile/me
type Profile struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Role    string `json:"role"`
	Status  string `json:"status"`
}

type profileUpdateResponse struct {
	Message string `json:"message"`
}

// Login exchanges credentials for a bearer token
func (c *AuthClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.t.do(ctx, call{
		operation: "login",
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      LoginRequest{Email: email, Password: password},
		out:       &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signup registers a user or admin account
func (c *AuthClient) Signup(ctx context.Context, kind string, req SignupRequest) (*SignupResponse, error) {
	if kind != SignupUser && kind != SignupAdmin {
		return nil, fmt.Errorf("%w: unknown signup type %q", ErrInvalidPayload, kind)
	}

	var resp SignupResponse
	err := c.t.do(ctx, call{
		operation: "signup",
		method:    http.MethodPost,
		path:      "/auth/signup/" + kind,
		body:      req,
		out:       &resp,
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProfile fetches the profile of the token's owner
func (c *AuthClient) GetProfile(ctx context.Context, token string) (*Profile, error) {
	var profile Profile
	err := c.t.do(ctx, call{
		operation: "get_profile",
		method:    http.MethodGet,
		path:      "/profile/me",
		token:     token,
		out:       &profile,
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile sends only the fields set in update
func (c *AuthClient) UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) error {
	return c.t.do(ctx, call{
		operation: "update_profile",
		method:    http.MethodPut,
		path:      "/profile/me",
		token:     token,
		body:      update,
		out:       &profileUpdateResponse{},
	})
}
