// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/carvalue/carvalue/internal/observability"
)

var tracer = otel.Tracer("carvalue/auth")

// dummyCredential is verified against when an email is unknown so signin spends
// the same KDF time either way. It is well-formed and never matches.
//
//nolint:gosec // G101: not a credential
const dummyCredential = "00000000000000000000000000000000." +
	"0000000000000000000000000000000000000000000000000000000000000000"

// Outcome labels for auth metrics.
const (
	outcomeSuccess            = "success"
	outcomeDuplicateEmail     = "duplicate_email"
	outcomeUserNotFound       = "user_not_found"
	outcomeInvalidCredentials = "invalid_credentials"
	outcomeError              = "error"
)

// Service orchestrates signup, signin and the session lifecycle.
type Service struct {
	users      UserRepository
	sessions   SessionRepository
	hasher     PasswordHasher
	kdf        *semaphore.Weighted
	sessionTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for best-effort failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithHashConcurrency bounds the number of concurrent hash and verify calls.
// Values below one select runtime.NumCPU().
func WithHashConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		s.kdf = semaphore.NewWeighted(int64(n))
	}
}

// WithSessionTTL sets how long new sessions remain valid.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new Service.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("session repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}

	s := &Service{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		kdf:        semaphore.NewWeighted(int64(runtime.NumCPU())),
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Signup registers a new user with the given email and password.
// Returns AUTH_DUPLICATE_EMAIL if any user already holds the email.
func (s *Service) Signup(ctx context.Context, email, password string) (user *User, err error) {
	ctx, span := s.startSpan(ctx, "auth.signup")
	defer func() { s.finish(span, "signup", err) }()

	email = NormalizeEmail(email)

	existing, err := s.users.Find(ctx, email)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "find users by email").
			Wrap(err)
	}
	if len(existing) > 0 {
		return nil, ErrDuplicateEmail(email)
	}

	credential, err := s.hash(ctx, password)
	if err != nil {
		return nil, err
	}

	user, err = s.users.Create(ctx, email, credential)
	if err != nil {
		// Lost a race with a concurrent signup for the same email.
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrDuplicateEmail(email)
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	return user, nil
}

// Signin verifies the email and password and returns the matching user.
// Returns AUTH_USER_NOT_FOUND for an unknown email and AUTH_INVALID_CREDENTIALS
// for a wrong password. Signin never mutates stored state.
func (s *Service) Signin(ctx context.Context, email, password string) (user *User, err error) {
	ctx, span := s.startSpan(ctx, "auth.signin")
	defer func() { s.finish(span, "signin", err) }()

	email = NormalizeEmail(email)

	matches, err := s.users.Find(ctx, email)
	if err != nil {
		return nil, oops.Code("AUTH_SIGNIN_FAILED").
			With("operation", "find users by email").
			Wrap(err)
	}

	if len(matches) == 0 {
		// Keep response time independent of whether the account exists.
		if _, verr := s.verify(ctx, password, dummyCredential); verr != nil && ctx.Err() != nil {
			return nil, verr
		}
		return nil, ErrUserNotFound("email", email)
	}

	user = matches[0]
	ok, err := s.verify(ctx, password, user.Password)
	if err != nil {
		return nil, oops.With("user_id", user.ID).Wrap(err)
	}
	if !ok {
		return nil, ErrInvalidCredentials()
	}

	return user, nil
}

// StartSession creates a session for user and returns it with the plaintext token
// to hand to the client.
func (s *Service) StartSession(ctx context.Context, user *User, userAgent, ipAddress string) (*Session, string, error) {
	if user == nil {
		return nil, "", oops.Code("SESSION_INVALID_USER").Errorf("user is required")
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	session, err := NewSession(user.ID, tokenHash, userAgent, ipAddress, now, now.Add(s.sessionTTL))
	if err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "build session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", user.ID).
			Wrap(err)
	}

	return session, token, nil
}

// ResolveSession looks up the session for a plaintext token.
// Returns SESSION_INVALID for unknown tokens and SESSION_EXPIRED for stale ones.
func (s *Service) ResolveSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code(CodeSessionInvalid).Errorf("session token cannot be empty")
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeSessionInvalid).Errorf("invalid session token")
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	now := s.now()
	if session.IsExpiredAt(now) {
		return nil, oops.Code(CodeSessionExpired).
			With("session_id", session.ID.String()).
			Errorf("session has expired")
	}

	if err := s.sessions.UpdateLastSeen(ctx, session, now); err != nil {
		s.logger.WarnContext(ctx, "failed to update session last seen",
			"session_id", session.ID.String(), "error", err)
	} else {
		session.LastSeenAt = now
	}

	return session, nil
}

// EndSession removes the session for a plaintext token. Unknown tokens are not an error.
func (s *Service) EndSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("SESSION_END_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if err := s.sessions.Delete(ctx, session); err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("SESSION_END_FAILED").
			With("operation", "delete session").
			With("session_id", session.ID.String()).
			Wrap(err)
	}
	return nil
}

// PurgeExpiredSessions removes expired sessions and returns how many were deleted.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}

func (s *Service) hash(ctx context.Context, password string) (string, error) {
	if err := s.kdf.Acquire(ctx, 1); err != nil {
		return "", oops.Code("AUTH_KDF_UNAVAILABLE").With("operation", "hash").Wrap(err)
	}
	defer s.kdf.Release(1)

	credential, err := s.hasher.Hash(password)
	if err != nil {
		return "", oops.With("operation", "hash password").Wrap(err)
	}
	return credential, nil
}

func (s *Service) verify(ctx context.Context, password, credential string) (bool, error) {
	if err := s.kdf.Acquire(ctx, 1); err != nil {
		return false, oops.Code("AUTH_KDF_UNAVAILABLE").With("operation", "verify").Wrap(err)
	}
	defer s.kdf.Release(1)

	ok, err := s.hasher.Verify(password, credential)
	if err != nil {
		return false, oops.With("operation", "verify password").Wrap(err)
	}
	return ok, nil
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
}

// finish records the outcome of an auth operation on the span and in metrics.
func (s *Service) finish(span trace.Span, operation string, err error) {
	outcome := outcomeFor(err)
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	if outcome == outcomeError {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	observability.RecordAuthAttempt(operation, outcome)
}

func outcomeFor(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return outcomeError
	}
	switch oopsErr.Code() {
	case CodeDuplicateEmail:
		return outcomeDuplicateEmail
	case CodeUserNotFound:
		return outcomeUserNotFound
	case CodeInvalidCredentials:
		return outcomeInvalidCredentials
	default:
		return outcomeError
	}
}
