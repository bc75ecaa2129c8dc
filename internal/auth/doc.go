// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

// Package auth provides password authentication and session management for CarValue.
//
// # Domain Types
//
// User records live in a UserRepository; Session records in a SessionRepository.
// Sessions should be created with NewSession, which validates the user, token hash
// and expiry. Stored passwords are credentials of the form "<salt>.<digest>"
// produced by a PasswordHasher (ScryptHasher in production).
//
// # Services
//
//   - Service - signup, signin, session start/resolve/end
//   - UserService - find, search, update and remove users
//
// Services are created with New*Service constructors that validate dependencies.
// Failures carry samber/oops codes (see errors.go) that the web layer maps to
// HTTP statuses.
package auth
