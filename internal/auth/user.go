// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package auth

import (
	"context"
	"strings"
	"time"
)

// User represents an account in the user directory.
// Password holds the stored credential, never the plaintext.
type User struct {
	ID        int64
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserUpdate describes a partial update. Nil fields are left unchanged.
// Password carries a credential produced by a PasswordHasher once it reaches a repository.
type UserUpdate struct {
	Email    *string
	Password *string
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.Password == nil
}

// NormalizeEmail trims surrounding whitespace. Case is preserved for display;
// repositories compare emails case-insensitively.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Find returns all users whose email matches (case-insensitive).
	// An empty result is not an error.
	Find(ctx context.Context, email string) ([]*User, error)

	// Create stores a new user and returns it with the assigned ID.
	// Returns ErrEmailTaken if the email is already in use.
	Create(ctx context.Context, email, credential string) (*User, error)

	// FindOne retrieves a user by ID. Returns ErrNotFound when absent.
	FindOne(ctx context.Context, id int64) (*User, error)

	// Update applies a partial update and returns the stored user.
	// Returns ErrNotFound when absent and ErrEmailTaken on an email collision.
	Update(ctx context.Context, id int64, update UserUpdate) (*User, error)

	// Remove deletes a user and returns the removed record.
	// Returns ErrNotFound when absent.
	Remove(ctx context.Context, id int64) (*User, error)
}
