// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/carvalue/carvalue/internal/observability"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const (
	requestIDContextKey = "carvalue.request_id"
	maxRequestIDLength  = 64
	unmatchedRoute      = "unmatched"
)

// requestIDMiddleware reuses a caller-supplied request ID or assigns a ULID.
func requestIDMiddleware(c *gin.Context) {
	id := c.GetHeader(HeaderRequestID)
	if id == "" || len(id) > maxRequestIDLength {
		id = ulid.Make().String()
	}
	c.Set(requestIDContextKey, id)
	c.Header(HeaderRequestID, id)
	c.Next()
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDContextKey)
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}

// accessLog writes one record per request once the handler chain finishes.
func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []any{
			"request_id", requestID(c),
			"method", c.Request.Method,
			"route", routeOf(c),
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if rs := currentSession(c); rs != nil {
			attrs = append(attrs, "user_id", rs.User.ID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.Last().Error())
		}
		logger.Log(c.Request.Context(), level, "http request", attrs...)
	}
}

// metricsMiddleware records request counts and latency by route template.
func metricsMiddleware(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, routeOf(c), c.Writer.Status(), time.Since(start))
	}
}

// recovery turns a panic into a logged 500.
// limitBody caps request bodies at limit bytes. Reads past the cap fail
// with *http.MaxBytesError.
func limitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		logger.ErrorContext(c.Request.Context(), "panic serving request",
			"request_id", requestID(c),
			"route", routeOf(c),
			"panic", recovered,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{
			StatusCode: http.StatusInternalServerError,
			Message:    "internal server error",
			Error:      http.StatusText(http.StatusInternalServerError),
			Code:       CodeInternal,
		})
	})
}

// corsMiddleware allows credentialed requests from origins matching any of
// the glob patterns, e.g. "http://localhost:*" or "https://*.example.com".
func corsMiddleware(patterns []string) (gin.HandlerFunc, error) {
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, oops.Code("CORS_PATTERN_INVALID").
				With("pattern", p).
				Wrap(err)
		}
		matchers = append(matchers, g)
	}

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			for _, g := range matchers {
				if g.Match(origin) {
					return true
				}
			}
			return false
		},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", HeaderRequestID},
		ExposeHeaders:    []string{HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}), nil
}
