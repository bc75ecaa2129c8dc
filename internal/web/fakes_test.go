// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package web

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/carvalue/carvalue/internal/auth"
	"github.com/carvalue/carvalue/internal/reports"
)

// memUsers is an in-memory auth.UserRepository.
type memUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[int64]*auth.User{}}
}

func (m *memUsers) taken(email string, except int64) bool {
	for id, u := range m.byID {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (m *memUsers) Find(_ context.Context, email string) ([]*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*auth.User{}
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memUsers) Create(_ context.Context, email, credential string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken(email, 0) {
		return nil, auth.ErrEmailTaken
	}
	m.nextID++
	now := time.Now()
	u := &auth.User{ID: m.nextID, Email: email, Password: credential, CreatedAt: now, UpdatedAt: now}
	m.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindOne(_ context.Context, id int64) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Update(_ context.Context, id int64, update auth.UserUpdate) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if update.Email != nil {
		if m.taken(*update.Email, id) {
			return nil, auth.ErrEmailTaken
		}
		u.Email = *update.Email
	}
	if update.Password != nil {
		u.Password = *update.Password
	}
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m *memUsers) Remove(_ context.Context, id int64) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	delete(m.byID, id)
	return u, nil
}

// memSessions is an in-memory auth.SessionRepository.
type memSessions struct {
	mu     sync.Mutex
	byHash map[string]*auth.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byHash: map[string]*auth.Session{}}
}

func (m *memSessions) Create(_ context.Context, s *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.byHash[s.TokenHash] = &cp
	return nil
}

func (m *memSessions) GetByTokenHash(_ context.Context, hash string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) UpdateLastSeen(_ context.Context, s *auth.Session, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byHash[s.TokenHash]
	if !ok {
		return auth.ErrNotFound
	}
	stored.LastSeenAt = t
	return nil
}

func (m *memSessions) Delete(_ context.Context, s *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byHash[s.TokenHash]; !ok {
		return auth.ErrNotFound
	}
	delete(m.byHash, s.TokenHash)
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, s := range m.byHash {
		if s.UserID == userID {
			delete(m.byHash, hash)
		}
	}
	return nil
}

func (m *memSessions) DeleteExpired(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for hash, s := range m.byHash {
		if s.IsExpiredAt(now) {
			delete(m.byHash, hash)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHash)
}

// memReports is an in-memory reports.Repository. Setting fail makes every
// call return an infrastructure error.
type memReports struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*reports.Report
	fail   bool
}

func newMemReports() *memReports {
	return &memReports{byID: map[int64]*reports.Report{}}
}

var errStorageDown = errors.New("storage down")

func (m *memReports) Create(_ context.Context, attrs reports.Attributes, userID int64) (*reports.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errStorageDown
	}
	m.nextID++
	r := &reports.Report{
		ID: m.nextID, Price: attrs.Price, Make: attrs.Make, Model: attrs.Model, Year: attrs.Year,
		Lng: attrs.Lng, Lat: attrs.Lat, Mileage: attrs.Mileage, UserID: userID,
	}
	m.byID[r.ID] = r
	cp := *r
	return &cp, nil
}

func (m *memReports) Get(_ context.Context, id int64) (*reports.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errStorageDown
	}
	r, ok := m.byID[id]
	if !ok {
		return nil, reports.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memReports) SetApproval(_ context.Context, id int64, approved bool) (*reports.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errStorageDown
	}
	r, ok := m.byID[id]
	if !ok {
		return nil, reports.ErrNotFound
	}
	r.Approved = approved
	cp := *r
	return &cp, nil
}
