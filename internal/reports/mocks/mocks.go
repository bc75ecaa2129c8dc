// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

// Package mocks holds testify mocks for the reports package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/carvalue/carvalue/internal/reports"
)

// MockRepository is a mock of reports.Repository.
type MockRepository struct {
	mock.Mock
}

// NewMockRepository creates a MockRepository that asserts its expectations
// when the test ends.
func NewMockRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockRepository {
	m := &MockRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockRepository) Create(ctx context.Context, attrs reports.Attributes, userID int64) (*reports.Report, error) {
	args := m.Called(ctx, attrs, userID)
	report, _ := args.Get(0).(*reports.Report)
	return report, args.Error(1)
}

// Get provides a mock function.
func (m *MockRepository) Get(ctx context.Context, id int64) (*reports.Report, error) {
	args := m.Called(ctx, id)
	report, _ := args.Get(0).(*reports.Report)
	return report, args.Error(1)
}

// SetApproval provides a mock function.
func (m *MockRepository) SetApproval(ctx context.Context, id int64, approved bool) (*reports.Report, error) {
	args := m.Called(ctx, id, approved)
	report, _ := args.Get(0).(*reports.Report)
	return report, args.Error(1)
}

var _ reports.Repository = (*MockRepository)(nil)
