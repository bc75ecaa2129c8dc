// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

// Package web serves the CarValue JSON API over gin.
package web

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/carvalue/carvalue/internal/observability"
)

// DefaultCookieName is used when Options.CookieName is empty.
const DefaultCookieName = "carvalue_session"

// Deps are the services behind the API.
type Deps struct {
	Auth    Authenticator
	Users   Directory
	Reports ReportService
	// Metrics may be nil.
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Options tune the HTTP surface.
type Options struct {
	CookieName   string
	CookieSecure bool
	// HideAccountExistence answers signin for an unknown email exactly like
	// a wrong password.
	HideAccountExistence bool
	// CORSOrigins are glob patterns. Empty disables CORS handling.
	CORSOrigins []string
	// MaxBodyBytes caps request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// DefaultMaxBodyBytes is the request body cap when Options leaves it unset.
const DefaultMaxBodyBytes = 64 << 10

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps, opts Options) (*gin.Engine, error) {
	if deps.Auth == nil || deps.Users == nil || deps.Reports == nil {
		return nil, oops.Code("WEB_INVALID_DEPS").Errorf("auth, users and reports services are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	h := &handlers{
		auth:                 deps.Auth,
		users:                deps.Users,
		reports:              deps.Reports,
		cookie:               cookieConfig{Name: opts.CookieName, Secure: opts.CookieSecure},
		hideAccountExistence: opts.HideAccountExistence,
		logger:               logger,
	}

	r := gin.New()
	r.Use(requestIDMiddleware, recovery(logger), accessLog(logger))
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	if len(opts.CORSOrigins) > 0 {
		corsHandler, err := corsMiddleware(opts.CORSOrigins)
		if err != nil {
			return nil, err
		}
		r.Use(corsHandler)
	}
	r.Use(limitBody(opts.MaxBodyBytes), h.loadSession)

	authGroup := r.Group("/auth")
	authGroup.GET("/currentUser", h.requireSession, h.currentUser)
	authGroup.POST("/signup", h.signup)
	authGroup.POST("/signin", h.signin)
	authGroup.POST("/signout", h.signout)
	authGroup.GET("/:id", h.findUser)
	authGroup.GET("", h.findUsers)
	authGroup.PATCH("/:id", h.requireSession, h.requireSelf, h.updateUser)
	authGroup.DELETE("/:id", h.requireSession, h.requireSelf, h.removeUser)

	reportGroup := r.Group("/reports")
	reportGroup.POST("", h.requireSession, h.createReport)
	reportGroup.PATCH("/:id", h.requireSession, h.changeApproval)
	reportGroup.GET("/:id", h.getReport)

	return r, nil
}
