package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// UsersClient talks to the user administration endpoints; every call needs
// an admin bearer token
type UsersClient struct {
	t transport
}

// NewUsersClient creates a user directory client
func NewUsersClient(baseURL string, timeout time.Duration) *UsersClient {
	return &UsersClient{t: newTransport("users", baseURL, timeout)}
}

// UserRecord is a user or admin account as listed by the service
type UserRecord struct {
	ID          string `json:"id" validate:"required"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt,omitempty"`
	LastLoginAt string `json:"lastLoginAt,omitempty"`
}

// UserUpdate holds the editable account fields; empty values are not sent
type UserUpdate struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Status string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

type usersAck struct {
	Message string `json:"message"`
}

// ListUsers lists customer accounts
func (c *UsersClient) ListUsers(ctx context.Context, token string) ([]UserRecord, error) {
	return c.list(ctx, token, "list_users", "/users")
}

// ListAdmins lists admin accounts
func (c *UsersClient) ListAdmins(ctx context.Context, token string) ([]UserRecord, error) {
	return c.list(ctx, token, "list_admins", "/users/admins")
}

func (c *UsersClient) list(ctx context.Context, token, operation, path string) ([]UserRecord, error) {
	var records []UserRecord
	err := c.t.do(ctx, call{
		operation: operation,
		method:    http.MethodGet,
		path:      path,
		token:     token,
		out:       &records,
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []UserRecord{}
	}
	return records, nil
}

// UpdateUser edits an account; fields travel as query parameters
func (c *UsersClient) UpdateUser(ctx context.Context, token, id string, upd UserUpdate) error {
	if err := validate.Struct(upd); err != nil {
		return fmt.Errorf("%w: update_user request: %v", ErrInvalidPayload, err)
	}

	params := url.Values{}
	if upd.Name != "" {
		params.Set("name", upd.Name)
	}
	if upd.Phone != "" {
		params.Set("phone", upd.Phone)
	}
	if upd.Status != "" {
		params.Set("status", upd.Status)
	}

	path := "/users/" + url.PathEscape(id)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.t.do(ctx, call{
		operation: "update_user",
		method:    http.MethodPut,
		path:      path,
		token:     token,
		out:       &usersAck{},
	})
}

// UpdateUserStatus changes an account's status
func (c *UsersClient) UpdateUserStatus(ctx context.Context, token, id, status string) error {
	if err := validate.Var(status, "required,oneof=active inactive suspended"); err != nil {
		return fmt.Errorf("%w: update_user_status request: %v", ErrInvalidPayload, err)
	}
	return c.t.do(ctx, call{
		operation: "update_user_status",
		method:    http.MethodPut,
		path:      "/users/" + url.PathEscape(id) + "/status?" + url.Values{"status": {status}}.Encode(),
		token:     token,
		out:       &usersAck{},
	})
}

// DeleteUser removes an account
func (c *UsersClient) DeleteUser(ctx context.Context, token, id string) error {
	return c.t.do(ctx, call{
		operation: "delete_user",
		method:    http.MethodDelete,
		path:      "/users/" + url.PathEscape(id),
		token:     token,
		out:       &usersAck{},
	})
}
