// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

// Package mocks provides testify mocks for the auth repository and hasher interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/carvalue/carvalue/internal/auth"
)

// testingT is satisfied by *testing.T.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Find(ctx context.Context, email string) ([]*auth.User, error) {
	ret := m.Called(ctx, email)
	users, _ := ret.Get(0).([]*auth.User)
	return users, ret.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, email, credential string) (*auth.User, error) {
	ret := m.Called(ctx, email, credential)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

func (m *MockUserRepository) FindOne(ctx context.Context, id int64) (*auth.User, error) {
	ret := m.Called(ctx, id)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, id int64, update auth.UserUpdate) (*auth.User, error) {
	ret := m.Called(ctx, id, update)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

func (m *MockUserRepository) Remove(ctx context.Context, id int64) (*auth.User, error) {
	ret := m.Called(ctx, id)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

// MockSessionRepository is a mock of auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock that asserts its expectations on cleanup.
func NewMockSessionRepository(t testingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	ret := m.Called(ctx, tokenHash)
	session, _ := ret.Get(0).(*auth.Session)
	return session, ret.Error(1)
}

func (m *MockSessionRepository) UpdateLastSeen(ctx context.Context, session *auth.Session, lastSeen time.Time) error {
	return m.Called(ctx, session, lastSeen).Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, session *auth.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) DeleteByUser(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	ret := m.Called(ctx)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, credential string) (bool, error) {
	ret := m.Called(password, credential)
	return ret.Bool(0), ret.Error(1)
}

var (
	_ auth.UserRepository    = (*MockUserRepository)(nil)
	_ auth.SessionRepository = (*MockSessionRepository)(nil)
	_ auth.PasswordHasher    = (*MockPasswordHasher)(nil)
)
