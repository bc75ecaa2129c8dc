// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/carvalue/carvalue/internal/auth"
	authpg "github.com/carvalue/carvalue/internal/auth/postgres"
	authredis "github.com/carvalue/carvalue/internal/auth/redis"
	"github.com/carvalue/carvalue/internal/config"
	"github.com/carvalue/carvalue/internal/logging"
	"github.com/carvalue/carvalue/internal/observability"
	"github.com/carvalue/carvalue/internal/reports"
	reportpg "github.com/carvalue/carvalue/internal/reports/postgres"
	"github.com/carvalue/carvalue/internal/store"
	"github.com/carvalue/carvalue/internal/web"
)

const serviceName = "carvalue"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the CarValue API server",
		Long: `Start the HTTP API serving signup, signin, the user directory
and vehicle reports, plus the metrics and health endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gin.SetMode(gin.ReleaseMode)
			return runServeWithDeps(ctx, cfg, cmd, nil)
		},
	}
}

// runServeWithDeps runs the API until ctx is cancelled or a server fails.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	if deps.DatabaseOpener == nil {
		deps.DatabaseOpener = func(ctx context.Context, poolCfg store.PoolConfig) (Database, error) {
			return store.OpenPool(ctx, poolCfg)
		}
	}
	if deps.RedisFactory == nil {
		deps.RedisFactory = func(rc config.RedisConfig) RedisClient {
			return goredis.NewClient(&goredis.Options{
				Addr:     rc.Addr,
				Password: rc.Password,
				DB:       rc.DB,
			})
		}
	}
	if deps.Hasher == nil {
		deps.Hasher = auth.NewScryptHasher()
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.WebServerFactory == nil {
		deps.WebServerFactory = func(addr string, handler http.Handler, readHeaderTimeout time.Duration) WebServer {
			return web.NewServer(addr, handler, readHeaderTimeout)
		}
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, level)

	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("database URL is required (set %s or database.url)", config.EnvDatabaseURL)
	}

	db, err := deps.DatabaseOpener(ctx, store.PoolConfig{
		URL:            cfg.Database.URL,
		MaxConns:       cfg.Database.MaxConns,
		ConnectRetries: cfg.Database.ConnectRetries,
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	checks := []dependencyCheck{{name: "postgres", ping: db.Ping}}

	var sessions auth.SessionRepository
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		rdb := deps.RedisFactory(cfg.Redis)
		defer func() {
			if closeErr := rdb.Close(); closeErr != nil {
				logger.Debug("error closing redis client", "error", closeErr)
			}
		}()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return oops.Code("REDIS_CONNECT_FAILED").With("addr", cfg.Redis.Addr).Wrap(err)
		}
		sessions = authredis.NewSessionRepository(rdb)
		checks = append(checks, dependencyCheck{
			name: "redis",
			ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	default:
		sessions = authpg.NewSessionRepository(db)
	}

	users := authpg.NewUserRepository(db)
	authSvc, err := auth.NewService(users, sessions, deps.Hasher,
		auth.WithLogger(logger),
		auth.WithHashConcurrency(cfg.Auth.HashConcurrency),
		auth.WithSessionTTL(cfg.Session.TTL),
	)
	if err != nil {
		return err
	}
	userSvc, err := auth.NewUserService(users, sessions, authSvc)
	if err != nil {
		return err
	}
	reportSvc, err := reports.NewService(reportpg.NewReportRepository(db), logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, readinessOf(checks))
		metrics = obsServer.Metrics()
	}

	router, err := web.NewRouter(web.Deps{
		Auth:    authSvc,
		Users:   userSvc,
		Reports: reportSvc,
		Metrics: metrics,
		Logger:  logger,
	}, web.Options{
		CookieName:           cfg.Session.CookieName,
		CookieSecure:         cfg.Session.CookieSecure,
		HideAccountExistence: cfg.Auth.HideAccountExistence,
		CORSOrigins:          cfg.HTTP.CORSOrigins,
		MaxBodyBytes:         cfg.HTTP.MaxBodyBytes,
	})
	if err != nil {
		return err
	}

	shutdownTimeout := cfg.HTTP.ShutdownTimeout

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if err := obsServer.Stop(stopCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	webServer := deps.WebServerFactory(cfg.HTTP.Addr, router, cfg.HTTP.ReadHeaderTimeout)
	webErrChan, err := webServer.Start()
	if err != nil {
		return oops.Code("WEB_START_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrChan, "web")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweepSessions(gctx, authSvc, cfg.Session.SweepInterval, logger)
		return nil
	})

	cmd.Println("CarValue API listening on", webServer.Addr())
	logger.Info("carvalue ready",
		"http_addr", webServer.Addr(),
		"session_backend", cfg.Session.Backend,
	)

	<-ctx.Done()
	logger.Info("shutting down...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := webServer.Stop(stopCtx); err != nil {
		logger.Warn("error stopping web server", "error", err)
	}

	cancel()
	_ = g.Wait() //nolint:errcheck // sweeper never fails

	logger.Info("shutdown complete")
	return nil
}

// dependencyCheck pings one backing service for readiness.
type dependencyCheck struct {
	name string
	ping func(ctx context.Context) error
}

// readinessOf reports ready only when every dependency answers.
func readinessOf(checks []dependencyCheck) observability.ReadinessChecker {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check.ping(ctx); err != nil {
				return oops.Code("DEPENDENCY_UNAVAILABLE").With("dependency", check.name).Wrap(err)
			}
		}
		return nil
	}
}

// sessionPurger is the part of auth.Service the sweeper needs.
type sessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// sweepSessions deletes expired sessions every interval until ctx is done.
// A non-positive interval disables sweeping.
func sweepSessions(ctx context.Context, purger sessionPurger, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.PurgeExpiredSessions(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.WarnContext(ctx, "session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.InfoContext(ctx, "expired sessions removed", "count", n)
			}
		}
	}
}

// monitorServerErrors watches a server's error channel and cancels the context
// if an error is received. It exits when the channel closes or ctx is done.
// This ensures that server failures trigger graceful shutdown of the entire process.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
