// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package main

import (
	"context"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/carvalue/carvalue/internal/auth"
	"github.com/carvalue/carvalue/internal/config"
	"github.com/carvalue/carvalue/internal/observability"
	"github.com/carvalue/carvalue/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseOpener connects to PostgreSQL.
	// Default: store.OpenPool
	DatabaseOpener func(ctx context.Context, cfg store.PoolConfig) (Database, error)

	// RedisFactory creates the client used by the redis session backend.
	// Default: goredis.NewClient
	RedisFactory func(cfg config.RedisConfig) RedisClient

	// Hasher hashes and verifies passwords.
	// Default: auth.NewScryptHasher with the production cost
	Hasher auth.PasswordHasher

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// WebServerFactory creates the API server.
	// Default: web.NewServer
	WebServerFactory func(addr string, handler http.Handler, readHeaderTimeout time.Duration) WebServer
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory opens a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

// Database wraps the methods used from *pgxpool.Pool.
type Database interface {
	store.Pool
	Ping(ctx context.Context) error
	Close()
}

// RedisClient wraps the methods used from *goredis.Client.
type RedisClient interface {
	goredis.Cmdable
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// WebServer interface wraps the methods used from web.Server.
type WebServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}
