// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

// Package storetest starts a migrated PostgreSQL container for integration tests.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/carvalue/carvalue/internal/store"
)

// Database is a running, fully migrated PostgreSQL container.
type Database struct {
	ConnString string
	Pool       *pgxpool.Pool
	container  *postgres.PostgresContainer
}

// Start runs postgres:16-alpine, applies every migration and opens a pool.
func Start(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("carvalue_test"),
		postgres.WithUsername("carvalue"),
		postgres.WithPassword("carvalue"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, oops.With("operation", "start postgres container").Wrap(err)
	}

	db := &Database{container: container}
	if err := db.init(ctx); err != nil {
		_ = container.Terminate(ctx) //nolint:errcheck // init error takes precedence
		return nil, err
	}
	return db, nil
}

func (db *Database) init(ctx context.Context) error {
	connStr, err := db.container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return oops.With("operation", "connection string").Wrap(err)
	}
	db.ConnString = connStr

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck // test helper
	if err := migrator.Up(); err != nil {
		return err
	}

	db.Pool, err = store.OpenPool(ctx, store.PoolConfig{URL: connStr, ConnectRetries: 5})
	return err
}

// Truncate empties every application table.
func (db *Database) Truncate(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `TRUNCATE web_sessions, reports, users RESTART IDENTITY CASCADE`)
	return oops.With("operation", "truncate tables").Wrap(err)
}

// Close releases the pool and terminates the container.
func (db *Database) Close(ctx context.Context) {
	if db.Pool != nil {
		db.Pool.Close()
	}
	_ = db.container.Terminate(ctx) //nolint:errcheck // best effort in tests
}
