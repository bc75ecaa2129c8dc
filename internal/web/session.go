// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/carvalue/carvalue/internal/auth"
	"github.com/carvalue/carvalue/pkg/errutil"
)

const sessionContextKey = "carvalue.session"

// RequestSession is the signed-in state of one request.
type RequestSession struct {
	Session *auth.Session
	User    *auth.User
}

// currentSession returns the session loaded for this request, or nil for
// anonymous requests.
func currentSession(c *gin.Context) *RequestSession {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	rs, _ := v.(*RequestSession)
	return rs
}

func (h *handlers) setSessionCookie(c *gin.Context, session *auth.Session, token string) {
	maxAge := int(session.ExpiresAt.Sub(session.CreatedAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *handlers) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}

// loadSession resolves the session cookie, if any, into a RequestSession.
// Unknown or expired tokens and sessions of removed users leave the request
// anonymous and clear the cookie; storage failures abort with 500.
func (h *handlers) loadSession(c *gin.Context) {
	token, err := c.Cookie(h.cookie.Name)
	if err != nil || token == "" {
		c.Next()
		return
	}

	ctx := c.Request.Context()
	session, err := h.auth.ResolveSession(ctx, token)
	if err != nil {
		switch errutil.Code(err) {
		case auth.CodeSessionInvalid, auth.CodeSessionExpired:
			h.clearSessionCookie(c)
			c.Next()
		default:
			h.abortWithError(c, err)
		}
		return
	}

	user, err := h.users.FindUser(ctx, session.UserID)
	if err != nil {
		if errutil.Code(err) == auth.CodeUserNotFound {
			h.clearSessionCookie(c)
			c.Next()
			return
		}
		h.abortWithError(c, oops.With("session_id", session.ID.String()).Wrap(err))
		return
	}

	c.Set(sessionContextKey, &RequestSession{Session: session, User: user})
	c.Next()
}

// requireSession rejects anonymous requests with 401.
func (h *handlers) requireSession(c *gin.Context) {
	if currentSession(c) == nil {
		h.abortWithError(c, errSessionRequired())
		return
	}
	c.Next()
}

// requireSelf rejects requests whose :id is not the signed-in user.
// Must run after requireSession.
func (h *handlers) requireSelf(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	rs := currentSession(c)
	if rs == nil {
		h.abortWithError(c, errSessionRequired())
		return
	}
	if rs.User.ID != id {
		h.abortWithError(c, errForbidden(rs.User.ID, id))
		return
	}
	c.Next()
}

var errNotAnID = errors.New("id must be a positive integer")
