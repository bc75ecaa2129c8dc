// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

// Package redis implements auth.SessionRepository on Redis. Session keys carry
// the session's remaining lifetime as their TTL, so Redis expires them itself.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/carvalue/carvalue/internal/auth"
)

const (
	sessionKeyPrefix = "session:"
	userIndexPrefix  = "session:user:"
)

// record is the JSON value stored under session:<token hash>.
type record struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// SessionRepository stores sessions in Redis with a per-user index set.
type SessionRepository struct {
	rdb goredis.Cmdable
	now func() time.Time
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(rdb goredis.Cmdable) *SessionRepository {
	return &SessionRepository{rdb: rdb, now: time.Now}
}

func sessionKey(tokenHash string) string { return sessionKeyPrefix + tokenHash }

func userIndexKey(userID int64) string {
	return userIndexPrefix + strconv.FormatInt(userID, 10)
}

func encode(s *auth.Session) (string, error) {
	data, err := json.Marshal(record{
		ID:         s.ID.String(),
		UserID:     s.UserID,
		UserAgent:  s.UserAgent,
		IPAddress:  s.IPAddress,
		ExpiresAt:  s.ExpiresAt.UTC(),
		CreatedAt:  s.CreatedAt.UTC(),
		LastSeenAt: s.LastSeenAt.UTC(),
	})
	if err != nil {
		return "", oops.Code("SESSION_ENCODE_FAILED").Wrap(err)
	}
	return string(data), nil
}

func decode(tokenHash string, data []byte) (*auth.Session, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").Wrap(err)
	}
	id, err := ulid.Parse(rec.ID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", rec.ID).Wrap(err)
	}
	return &auth.Session{
		ID:         id,
		UserID:     rec.UserID,
		TokenHash:  tokenHash,
		UserAgent:  rec.UserAgent,
		IPAddress:  rec.IPAddress,
		ExpiresAt:  rec.ExpiresAt,
		CreatedAt:  rec.CreatedAt,
		LastSeenAt: rec.LastSeenAt,
	}, nil
}

// Create stores the session with a TTL matching its expiry and indexes it by user.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	ttl := session.TTLAt(r.now())
	if ttl <= 0 {
		return oops.Code("SESSION_INVALID_EXPIRY").
			With("session_id", session.ID.String()).
			Errorf("session already expired")
	}

	value, err := encode(session)
	if err != nil {
		return err
	}

	idx := userIndexKey(session.UserID)
	_, err = r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(session.TokenHash), value, ttl)
		pipe.SAdd(ctx, idx, session.TokenHash)
		pipe.Expire(ctx, idx, ttl)
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "store session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	data, err := r.rdb.Get(ctx, sessionKey(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session").
			Wrap(err)
	}
	return decode(tokenHash, data)
}

// UpdateLastSeen rewrites the record in place, keeping its TTL.
func (r *SessionRepository) UpdateLastSeen(ctx context.Context, session *auth.Session, lastSeen time.Time) error {
	updated := *session
	updated.LastSeenAt = lastSeen

	value, err := encode(&updated)
	if err != nil {
		return err
	}

	err = r.rdb.SetArgs(ctx, sessionKey(session.TokenHash), value, goredis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, goredis.Nil) {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", session.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("SESSION_UPDATE_LAST_SEEN_FAILED").
			With("operation", "update last_seen_at").
			With("id", session.ID.String()).
			Wrap(err)
	}
	return nil
}

// Delete removes a session and its index entry.
func (r *SessionRepository) Delete(ctx context.Context, session *auth.Session) error {
	var del *goredis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		del = pipe.Del(ctx, sessionKey(session.TokenHash))
		pipe.SRem(ctx, userIndexKey(session.UserID), session.TokenHash)
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			With("id", session.ID.String()).
			Wrap(err)
	}
	if del.Val() == 0 {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", session.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes every session listed in the user's index.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID int64) error {
	idx := userIndexKey(userID)
	hashes, err := r.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "list user sessions").
			With("user_id", userID).
			Wrap(err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, sessionKey(h))
	}
	keys = append(keys, idx)

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").
			With("operation", "delete user sessions").
			With("user_id", userID).
			Wrap(err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts session keys when their TTL runs out.
func (r *SessionRepository) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
