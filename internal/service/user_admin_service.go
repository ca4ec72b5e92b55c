package service

import (
	"context"
	"fmt"
	"net/http"

	"storefront/internal/client"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// UsersAPI is the user administration endpoints of the auth service
type UsersAPI interface {
	ListUsers(ctx context.Context, token string) ([]client.UserRecord, error)
	ListAdmins(ctx context.Context, token string) ([]client.UserRecord, error)
	UpdateUser(ctx context.Context, token, id string, upd client.UserUpdate) error
	UpdateUserStatus(ctx context.Context, token, id, status string) error
	DeleteUser(ctx context.Context, token, id string) error
}

// Directory is the users and admins listing. Errors holds one message per
// list that could not be read; that list is then empty.
type Directory struct {
	Users  []client.UserRecord `json:"users"`
	Admins []client.UserRecord `json:"admins"`
	Errors []string            `json:"errors,omitempty"`
}

// UserAdminService proxies account administration with the admin's token
type UserAdminService struct {
	api    UsersAPI
	logger *zap.Logger
}

// NewUserAdminService creates a new user admin service
func NewUserAdminService(api UsersAPI) *UserAdminService {
	return &UserAdminService{api: api, logger: util.GetLogger()}
}

// Directory lists users and admins; a failing list degrades to empty
func (s *UserAdminService) Directory(ctx context.Context, token string) *Directory {
	ctx, span := util.StartSpan(ctx, "UserAdminService.Directory")
	defer span.End()

	dir := &Directory{Users: []client.UserRecord{}, Admins: []client.UserRecord{}}

	type listed struct {
		records []client.UserRecord
		err     error
	}
	usersCh := make(chan listed, 1)
	adminsCh := make(chan listed, 1)
	go func() {
		r, err := s.api.ListUsers(ctx, token)
		usersCh <- listed{r, err}
	}()
	go func() {
		r, err := s.api.ListAdmins(ctx, token)
		adminsCh <- listed{r, err}
	}()

	if res := <-usersCh; res.err != nil {
		s.logger.Warn("Failed to list users", zap.Error(res.err))
		dir.Errors = append(dir.Errors, "users: "+res.err.Error())
	} else if res.records != nil {
		dir.Users = res.records
	}
	if res := <-adminsCh; res.err != nil {
		s.logger.Warn("Failed to list admins", zap.Error(res.err))
		dir.Errors = append(dir.Errors, "admins: "+res.err.Error())
	} else if res.records != nil {
		dir.Admins = res.records
	}

	return dir
}

// UpdateUser edits an account
func (s *UserAdminService) UpdateUser(ctx context.Context, token, id string, upd client.UserUpdate) error {
	ctx, span := util.StartSpan(ctx, "UserAdminService.UpdateUser")
	defer span.End()

	if err := s.api.UpdateUser(ctx, token, id, upd); err != nil {
		util.RecordError(span, err)
		return s.wrap("update user", err)
	}
	s.logger.Info("User updated", zap.String("user_id", id))
	return nil
}

// SetStatus activates, deactivates or suspends an account
func (s *UserAdminService) SetStatus(ctx context.Context, token, id, status string) error {
	ctx, span := util.StartSpan(ctx, "UserAdminService.SetStatus")
	defer span.End()

	if err := s.api.UpdateUserStatus(ctx, token, id, status); err != nil {
		util.RecordError(span, err)
		return s.wrap("update user status", err)
	}
	s.logger.Info("User status changed", zap.String("user_id", id), zap.String("status", status))
	return nil
}

// DeleteUser removes an account
func (s *UserAdminService) DeleteUser(ctx context.Context, token, id string) error {
	ctx, span := util.StartSpan(ctx, "UserAdminService.DeleteUser")
	defer span.End()

	if err := s.api.DeleteUser(ctx, token, id); err != nil {
		util.RecordError(span, err)
		return s.wrap("delete user", err)
	}
	s.logger.Info("User deleted", zap.String("user_id", id))
	return nil
}

func (s *UserAdminService) wrap(action string, err error) error {
	if client.IsStatus(err, http.StatusNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
