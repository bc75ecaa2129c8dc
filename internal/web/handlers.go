// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carvalue/carvalue/internal/auth"
	"github.com/carvalue/carvalue/internal/reports"
	"github.com/carvalue/carvalue/pkg/errutil"
)

// Authenticator is the part of auth.Service the HTTP layer uses.
type Authenticator interface {
	Signup(ctx context.Context, email, password string) (*auth.User, error)
	Signin(ctx context.Context, email, password string) (*auth.User, error)
	StartSession(ctx context.Context, user *auth.User, userAgent, ipAddress string) (*auth.Session, string, error)
	ResolveSession(ctx context.Context, token string) (*auth.Session, error)
	EndSession(ctx context.Context, token string) error
}

// Directory is the part of auth.UserService the HTTP layer uses.
type Directory interface {
	FindUser(ctx context.Context, id int64) (*auth.User, error)
	FindUsers(ctx context.Context, email string) ([]*auth.User, error)
	UpdateUser(ctx context.Context, id int64, update auth.UserUpdate) (*auth.User, error)
	RemoveUser(ctx context.Context, id int64) (*auth.User, error)
}

// ReportService is the part of reports.Service the HTTP layer uses.
type ReportService interface {
	Create(ctx context.Context, attrs reports.Attributes, owner *auth.User) (*reports.Report, error)
	ChangeApproval(ctx context.Context, id int64, approved bool) (*reports.Report, error)
	Get(ctx context.Context, id int64) (*reports.Report, error)
}

type cookieConfig struct {
	Name   string
	Secure bool
}

type handlers struct {
	auth                 Authenticator
	users                Directory
	reports              ReportService
	cookie               cookieConfig
	hideAccountExistence bool
	logger               *slog.Logger
}

func (h *handlers) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, userView(currentSession(c).User))
}

func (h *handlers) signup(c *gin.Context) {
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		h.abortWithError(c, err)
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusCreated, userView(user))
}

func (h *handlers) signin(c *gin.Context) {
	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		h.abortWithError(c, err)
		return
	}

	user, err := h.auth.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if h.hideAccountExistence && errutil.Code(err) == auth.CodeUserNotFound {
			err = auth.ErrInvalidCredentials()
		}
		h.abortWithError(c, err)
		return
	}
	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, userView(user))
}

// startSession replaces any current session with a new one for user and
// writes the cookie. It reports whether the response may continue.
func (h *handlers) startSession(c *gin.Context, user *auth.User) bool {
	ctx := c.Request.Context()
	if old, err := c.Cookie(h.cookie.Name); err == nil && old != "" {
		if err := h.auth.EndSession(ctx, old); err != nil {
			h.logger.WarnContext(ctx, "failed to end previous session", "error", err)
		}
	}

	session, token, err := h.auth.StartSession(ctx, user, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		h.abortWithError(c, err)
		return false
	}
	h.setSessionCookie(c, session, token)
	return true
}

func (h *handlers) signout(c *gin.Context) {
	if token, err := c.Cookie(h.cookie.Name); err == nil && token != "" {
		if err := h.auth.EndSession(c.Request.Context(), token); err != nil {
			h.abortWithError(c, err)
			return
		}
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

func (h *handlers) findUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	user, err := h.users.FindUser(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, userView(user))
}

func (h *handlers) findUsers(c *gin.Context) {
	users, err := h.users.FindUsers(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, userViews(users))
}

func (h *handlers) updateUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	var req updateUserRequest
	if err := bindJSON(c, &req); err != nil {
		h.abortWithError(c, err)
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), id, auth.UserUpdate{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if req.Password != nil {
		// Changing the password revokes every session, this one included.
		h.clearSessionCookie(c)
	}
	c.JSON(http.StatusOK, userView(user))
}

func (h *handlers) removeUser(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	user, err := h.users.RemoveUser(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, userView(user))
}

func (h *handlers) createReport(c *gin.Context) {
	var attrs reports.Attributes
	if err := c.ShouldBindJSON(&attrs); err != nil {
		h.abortWithError(c, errRequestInvalid(err))
		return
	}

	report, err := h.reports.Create(c.Request.Context(), attrs, currentSession(c).User)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reportView(report))
}

func (h *handlers) changeApproval(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	var req approveReportRequest
	if err := bindJSON(c, &req); err != nil {
		h.abortWithError(c, err)
		return
	}

	report, err := h.reports.ChangeApproval(c.Request.Context(), id, *req.Approved)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reportView(report))
}

func (h *handlers) getReport(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	report, err := h.reports.Get(c.Request.Context(), id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, reportView(report))
}
