// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package main

import (
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carvalue/carvalue/internal/config"
	"github.com/carvalue/carvalue/internal/store"
	"github.com/carvalue/carvalue/pkg/errutil"
)

const testDatabaseURL = "postgres://carvalue@localhost:5432/carvalue"

type fakeMigrator struct {
	upErr   error
	ups     int
	downs   int
	steps   []int
	forced  []int
	closed  bool
	status  *store.Status
	openURL string
}

func (f *fakeMigrator) Up() error {
	f.ups++
	return f.upErr
}

func (f *fakeMigrator) Down() error {
	f.downs++
	return nil
}

func (f *fakeMigrator) Steps(n int) error {
	f.steps = append(f.steps, n)
	return nil
}

func (f *fakeMigrator) Force(version int) error {
	f.forced = append(f.forced, version)
	return nil
}

func (f *fakeMigrator) Status() (*store.Status, error) { return f.status, nil }

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func migrateRoot(t *testing.T, fake *fakeMigrator, factoryErr error) *cobra.Command {
	t.Helper()
	t.Setenv(config.EnvDatabaseURL, "")

	root := newBareRootCmd()
	root.AddCommand(newMigrateCmd(&MigrateDeps{
		MigratorFactory: func(databaseURL string) (Migrator, error) {
			if factoryErr != nil {
				return nil, factoryErr
			}
			fake.openURL = databaseURL
			return fake, nil
		},
	}))
	return root
}

func TestMigrate_DefaultRunsUp(t *testing.T) {
	fake := &fakeMigrator{}
	out, err := execute(t, migrateRoot(t, fake, nil), "migrate", "--database-url", testDatabaseURL)

	require.NoError(t, err)
	assert.Equal(t, 1, fake.ups)
	assert.Equal(t, testDatabaseURL, fake.openURL)
	assert.True(t, fake.closed)
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMigrate_UpSubcommand(t *testing.T) {
	fake := &fakeMigrator{}
	_, err := execute(t, migrateRoot(t, fake, nil), "migrate", "up", "--database-url", testDatabaseURL)

	require.NoError(t, err)
	assert.Equal(t, 1, fake.ups)
}

func TestMigrate_DatabaseURLFromEnv(t *testing.T) {
	fake := &fakeMigrator{}
	root := migrateRoot(t, fake, nil)
	t.Setenv(config.EnvDatabaseURL, testDatabaseURL)

	_, err := execute(t, root, "migrate")
	require.NoError(t, err)
	assert.Equal(t, testDatabaseURL, fake.openURL)
}

func TestMigrate_Down(t *testing.T) {
	fake := &fakeMigrator{}
	out, err := execute(t, migrateRoot(t, fake, nil), "migrate", "down", "--steps", "2", "--database-url", testDatabaseURL)

	require.NoError(t, err)
	assert.Equal(t, []int{-2}, fake.steps)
	assert.Contains(t, out, "Rolled back 2 migration(s)")
}

func TestMigrate_DownAll(t *testing.T) {
	fake := &fakeMigrator{}
	out, err := execute(t, migrateRoot(t, fake, nil), "migrate", "down", "--all", "--database-url", testDatabaseURL)

	require.NoError(t, err)
	assert.Equal(t, 1, fake.downs)
	assert.Empty(t, fake.steps)
	assert.Contains(t, out, "Rolled back all migrations")
}

func TestMigrate_DownAllExcludesSteps(t *testing.T) {
	fake := &fakeMigrator{}
	_, err := execute(t, migrateRoot(t, fake, nil), "migrate", "down", "--all", "--steps", "2", "--database-url", testDatabaseURL)

	require.Error(t, err)
	assert.Zero(t, fake.downs)
	assert.Empty(t, fake.steps)
}

func TestMigrate_DownRejectsZeroSteps(t *testing.T) {
	fake := &fakeMigrator{}
	_, err := execute(t, migrateRoot(t, fake, nil), "migrate", "down", "--steps", "0", "--database-url", testDatabaseURL)

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_STEPS_INVALID")
	assert.Empty(t, fake.steps)
}

func TestMigrate_Status(t *testing.T) {
	fake := &fakeMigrator{status: &store.Status{
		Current: 1,
		Applied: []store.Migration{{Version: 1, Name: "000001_users"}},
		Pending: []store.Migration{{Version: 2, Name: "000002_reports"}},
	}}
	out, err := execute(t, migrateRoot(t, fake, nil), "migrate", "status", "--database-url", testDatabaseURL)

	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 1 000001_users (clean)")
	assert.Regexp(t, `000001_users\s+applied`, out)
	assert.Regexp(t, `000002_reports\s+pending`, out)
}

func TestMigrate_Force(t *testing.T) {
	fake := &fakeMigrator{}
	_, err := execute(t, migrateRoot(t, fake, nil), "migrate", "force", "3", "--database-url", testDatabaseURL)

	require.NoError(t, err)
	assert.Equal(t, []int{3}, fake.forced)
}

func TestMigrate_ForceRejectsNonNumericVersion(t *testing.T) {
	fake := &fakeMigrator{}
	_, err := execute(t, migrateRoot(t, fake, nil), "migrate", "force", "latest", "--database-url", testDatabaseURL)

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_VERSION_INVALID")
	assert.Empty(t, fake.forced)
}

func TestMigrate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		fake       *fakeMigrator
		factoryErr error
		code       string
	}{
		{
			name: "missing database url",
			args: []string{"migrate"},
			fake: &fakeMigrator{},
			code: "CONFIG_INVALID",
		},
		{
			name:       "migrator cannot open",
			args:       []string{"migrate", "--database-url", testDatabaseURL},
			fake:       &fakeMigrator{},
			factoryErr: errors.New("connection refused"),
			code:       "DB_CONNECT_FAILED",
		},
		{
			name: "up fails",
			args: []string{"migrate", "--database-url", testDatabaseURL},
			fake: &fakeMigrator{upErr: errors.New("dirty database")},
			code: "MIGRATION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, migrateRoot(t, tt.fake, tt.factoryErr), tt.args...)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestMigrate_ClosesAfterFailure(t *testing.T) {
	fake := &fakeMigrator{upErr: errors.New("boom")}
	_, err := execute(t, migrateRoot(t, fake, nil), "migrate", "--database-url", testDatabaseURL)

	require.Error(t, err)
	assert.True(t, fake.closed)
}

func TestFormatMigrationStatus_Dirty(t *testing.T) {
	out := formatMigrationStatus(&store.Status{Current: 2, Dirty: true})
	assert.Contains(t, out, "Current version: 2 000002_reports (dirty)")
	assert.Contains(t, out, "VERSION")
}

func TestFormatMigrationStatus_FreshDatabase(t *testing.T) {
	out := formatMigrationStatus(&store.Status{Current: 0})
	assert.Contains(t, out, "Current version: 0 (clean)")
}
