// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// UserService exposes directory operations on users: lookup, search, update and removal.
type UserService struct {
	users    UserRepository
	sessions SessionRepository
	auth     *Service
}

// NewUserService creates a new UserService. Password changes are hashed
// through svc so they share its KDF concurrency bound.
func NewUserService(users UserRepository, sessions SessionRepository, svc *Service) (*UserService, error) {
	if users == nil {
		return nil, oops.Code("USER_INVALID_SERVICE").Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("USER_INVALID_SERVICE").Errorf("session repository is required")
	}
	if svc == nil {
		return nil, oops.Code("USER_INVALID_SERVICE").Errorf("auth service is required")
	}
	return &UserService{users: users, sessions: sessions, auth: svc}, nil
}

// FindUser returns the user with the given ID or AUTH_USER_NOT_FOUND.
func (s *UserService) FindUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.users.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound("user_id", id)
		}
		return nil, oops.Code("USER_LOOKUP_FAILED").With("user_id", id).Wrap(err)
	}
	return user, nil
}

// FindUsers returns the users registered under email. An empty email matches nobody.
func (s *UserService) FindUsers(ctx context.Context, email string) ([]*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return []*User{}, nil
	}
	users, err := s.users.Find(ctx, email)
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").With("email", email).Wrap(err)
	}
	if users == nil {
		users = []*User{}
	}
	return users, nil
}

// UpdateUser applies a partial update. A new password replaces the stored
// credential and ends every session the user holds.
func (s *UserService) UpdateUser(ctx context.Context, id int64, update UserUpdate) (*User, error) {
	if update.IsEmpty() {
		return s.FindUser(ctx, id)
	}

	stored := UserUpdate{}
	if update.Email != nil {
		email := NormalizeEmail(*update.Email)
		stored.Email = &email
	}
	if update.Password != nil {
		credential, err := s.auth.hash(ctx, *update.Password)
		if err != nil {
			return nil, oops.With("user_id", id).Wrap(err)
		}
		stored.Password = &credential
	}

	user, err := s.users.Update(ctx, id, stored)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrUserNotFound("user_id", id)
		case errors.Is(err, ErrEmailTaken) && stored.Email != nil:
			return nil, ErrDuplicateEmail(*stored.Email)
		default:
			return nil, oops.Code("USER_UPDATE_FAILED").With("user_id", id).Wrap(err)
		}
	}

	if stored.Password != nil {
		if err := s.sessions.DeleteByUser(ctx, id); err != nil {
			s.auth.logger.WarnContext(ctx, "failed to revoke sessions after password change",
				"user_id", id, "error", err)
		}
	}

	return user, nil
}

// RemoveUser deletes a user and returns the removed record.
func (s *UserService) RemoveUser(ctx context.Context, id int64) (*User, error) {
	user, err := s.users.Remove(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound("user_id", id)
		}
		return nil, oops.Code("USER_REMOVE_FAILED").With("user_id", id).Wrap(err)
	}

	// Postgres cascades; the redis backend needs an explicit sweep.
	if err := s.sessions.DeleteByUser(ctx, id); err != nil {
		s.auth.logger.WarnContext(ctx, "failed to revoke sessions for removed user",
			"user_id", id, "error", err)
	}
	return user, nil
}
