// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/carvalue/carvalue/internal/auth"
	"github.com/carvalue/carvalue/internal/store"
)

const emailUniqueConstraint = "users_email_lower_key"

const userColumns = `id, email, password, created_at, updated_at`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool store.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool store.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Find returns the users whose email matches, case-insensitively, ordered by ID.
func (r *UserRepository) Find(ctx context.Context, email string) ([]*auth.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
		ORDER BY id
	`, email)
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").
			With("operation", "find users by email").
			Wrap(err)
	}
	defer rows.Close()

	users := []*auth.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("USER_SCAN_FAILED").
				With("operation", "scan user row").
				Wrap(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_ROWS_ERROR").
			With("operation", "iterate user rows").
			Wrap(err)
	}
	return users, nil
}

// Create inserts a user and returns it with the database-assigned ID.
func (r *UserRepository) Create(ctx context.Context, email, credential string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password)
		VALUES ($1, $2)
		RETURNING `+userColumns, email, credential)

	user, err := scanUser(row)
	if err != nil {
		if store.IsUniqueViolation(err, emailUniqueConstraint) {
			return nil, oops.Code("USER_EMAIL_TAKEN").
				With("email", email).
				Wrap(auth.ErrEmailTaken)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return user, nil
}

// FindOne retrieves a user by ID.
func (r *UserRepository) FindOne(ctx context.Context, id int64) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return user, nil
}

// Update applies the non-nil fields of update and bumps updated_at.
func (r *UserRepository) Update(ctx context.Context, id int64, update auth.UserUpdate) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = COALESCE($2, email),
		    password = COALESCE($3, password),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, update.Email, update.Password)

	user, err := scanUser(row)
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	case store.IsUniqueViolation(err, emailUniqueConstraint):
		return nil, oops.Code("USER_EMAIL_TAKEN").With("id", id).Wrap(auth.ErrEmailTaken)
	default:
		return nil, oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id).
			Wrap(err)
	}
}

// Remove deletes a user and returns the deleted row. Reports and sessions cascade.
func (r *UserRepository) Remove(ctx context.Context, id int64) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		DELETE FROM users
		WHERE id = $1
		RETURNING `+userColumns, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_DELETE_FAILED").
			With("operation", "delete user").
			With("id", id).
			Wrap(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers add context
	}
	return &u, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
