// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authpg "github.com/carvalue/carvalue/internal/auth/postgres"
	"github.com/carvalue/carvalue/internal/reports"
	"github.com/carvalue/carvalue/internal/reports/postgres"
	"github.com/carvalue/carvalue/internal/store/storetest"
)

var testDB *storetest.Database

func TestMain(m *testing.M) {
	ctx := context.Background()
	db, err := storetest.Start(ctx)
	if err != nil {
		panic("failed to start test database: " + err.Error())
	}
	testDB = db

	code := m.Run()
	db.Close(ctx)
	os.Exit(code)
}

func TestReportRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))

	owner, err := authpg.NewUserRepository(testDB.Pool).Create(ctx, "owner@b.com", "salt.digest")
	require.NoError(t, err)

	repo := postgres.NewReportRepository(testDB.Pool)
	created, err := repo.Create(ctx, reports.Attributes{
		Make: "ford", Model: "mustang", Year: 1982, Mileage: 50000, Lng: 45, Lat: 45, Price: 20000,
	}, owner.ID)
	require.NoError(t, err)
	assert.False(t, created.Approved)
	assert.Equal(t, owner.ID, created.UserID)

	approved, err := repo.SetApproval(ctx, created.ID, true)
	require.NoError(t, err)
	assert.True(t, approved.Approved)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Approved)
	assert.InDelta(t, 45.0, got.Lng, 0)

	_, err = repo.SetApproval(ctx, created.ID+1000, true)
	assert.ErrorIs(t, err, reports.ErrNotFound)

	_, err = authpg.NewUserRepository(testDB.Pool).Remove(ctx, owner.ID)
	require.NoError(t, err)
	_, err = repo.Get(ctx, created.ID)
	assert.ErrorIs(t, err, reports.ErrNotFound, "reports cascade with their owner")
}
