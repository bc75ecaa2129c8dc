// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package reports_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/carvalue/carvalue/internal/auth"
	"github.com/carvalue/carvalue/internal/reports"
	"github.com/carvalue/carvalue/internal/reports/mocks"
	"github.com/carvalue/carvalue/pkg/errutil"
)

func validAttrs() reports.Attributes {
	return reports.Attributes{
		Make:    "toyota",
		Model:   "corolla",
		Year:    1980,
		Mileage: 100000,
		Lng:     0,
		Lat:     0,
		Price:   500000,
	}
}

func newService(t *testing.T) (*reports.Service, *mocks.MockRepository) {
	t.Helper()
	repo := mocks.NewMockRepository(t)
	svc, err := reports.NewService(repo, nil)
	require.NoError(t, err)
	return svc, repo
}

func TestNewService_RequiresRepository(t *testing.T) {
	_, err := reports.NewService(nil, nil)
	errutil.AssertErrorCode(t, err, "REPORT_INVALID_SERVICE")
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	owner := &auth.User{ID: 3, Email: "a@b.com"}

	t.Run("stores unapproved report for owner", func(t *testing.T) {
		svc, repo := newService(t)
		attrs := validAttrs()
		repo.On("Create", mock.Anything, attrs, owner.ID).
			Return(&reports.Report{ID: 1, Make: "toyota", UserID: 3}, nil)

		report, err := svc.Create(ctx, attrs, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(1), report.ID)
		assert.Equal(t, int64(3), report.UserID)
		assert.False(t, report.Approved)
	})

	t.Run("nil owner", func(t *testing.T) {
		svc, _ := newService(t)
		_, err := svc.Create(ctx, validAttrs(), nil)
		errutil.AssertErrorCode(t, err, "REPORT_OWNER_REQUIRED")
	})

	t.Run("repository failure", func(t *testing.T) {
		svc, repo := newService(t)
		repo.On("Create", mock.Anything, mock.Anything, owner.ID).Return(nil, errors.New("db down"))

		_, err := svc.Create(ctx, validAttrs(), owner)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestService_Create_Validation(t *testing.T) {
	owner := &auth.User{ID: 3}
	tests := []struct {
		name   string
		mutate func(*reports.Attributes)
		field  string
	}{
		{"missing make", func(a *reports.Attributes) { a.Make = "" }, "make"},
		{"missing model", func(a *reports.Attributes) { a.Model = "" }, "model"},
		{"year too old", func(a *reports.Attributes) { a.Year = 1929 }, "year"},
		{"year too new", func(a *reports.Attributes) { a.Year = 2051 }, "year"},
		{"negative mileage", func(a *reports.Attributes) { a.Mileage = -1 }, "mileage"},
		{"mileage too high", func(a *reports.Attributes) { a.Mileage = 1_000_001 }, "mileage"},
		{"lng out of range", func(a *reports.Attributes) { a.Lng = 180.5 }, "lng"},
		{"lat out of range", func(a *reports.Attributes) { a.Lat = -91 }, "lat"},
		{"negative price", func(a *reports.Attributes) { a.Price = -5 }, "price"},
		{"price too high", func(a *reports.Attributes) { a.Price = 1_000_001 }, "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t)
			attrs := validAttrs()
			tt.mutate(&attrs)

			_, err := svc.Create(context.Background(), attrs, owner)
			errutil.AssertErrorCode(t, err, reports.CodeReportInvalid)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestAttributes_ValidateBoundaries(t *testing.T) {
	attrs := validAttrs()
	attrs.Year, attrs.Mileage, attrs.Price = reports.MaxYear, reports.MaxMileage, reports.MaxPrice
	attrs.Lng, attrs.Lat = -180, 90
	assert.NoError(t, attrs.Validate())

	attrs.Year = reports.MinYear
	assert.NoError(t, attrs.Validate())
}

func TestService_ChangeApproval(t *testing.T) {
	ctx := context.Background()

	t.Run("approves", func(t *testing.T) {
		svc, repo := newService(t)
		repo.On("SetApproval", mock.Anything, int64(4), true).
			Return(&reports.Report{ID: 4, Approved: true}, nil)

		report, err := svc.ChangeApproval(ctx, 4, true)
		require.NoError(t, err)
		assert.True(t, report.Approved)
	})

	t.Run("missing report", func(t *testing.T) {
		svc, repo := newService(t)
		repo.On("SetApproval", mock.Anything, int64(99), true).Return(nil, reports.ErrNotFound)

		_, err := svc.ChangeApproval(ctx, 99, true)
		errutil.AssertErrorCode(t, err, reports.CodeReportNotFound)
		errutil.AssertErrorContext(t, err, "report_id", int64(99))
	})

	t.Run("storage failure", func(t *testing.T) {
		svc, repo := newService(t)
		repo.On("SetApproval", mock.Anything, int64(4), false).Return(nil, errors.New("timeout"))

		_, err := svc.ChangeApproval(ctx, 4, false)
		errutil.AssertErrorCode(t, err, "REPORT_UPDATE_FAILED")
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	svc, repo := newService(t)
	repo.On("Get", mock.Anything, int64(1)).Return(&reports.Report{ID: 1}, nil).Once()
	repo.On("Get", mock.Anything, int64(2)).Return(nil, reports.ErrNotFound).Once()

	report, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.ID)

	_, err = svc.Get(ctx, 2)
	errutil.AssertErrorCode(t, err, reports.CodeReportNotFound)
}
