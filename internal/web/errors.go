// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/carvalue/carvalue/internal/auth"
	"github.com/carvalue/carvalue/internal/reports"
	"github.com/carvalue/carvalue/pkg/errutil"
)

// Error codes raised by the HTTP layer itself.
const (
	CodeRequestInvalid  = "REQUEST_INVALID"
	CodeRequestTooLarge = "REQUEST_TOO_LARGE"
	CodeSessionRequired = "SESSION_REQUIRED"
	CodeForbidden       = "FORBIDDEN"
	CodeInternal        = "INTERNAL"
)

// statusByCode maps user-visible error codes to HTTP statuses. Codes not
// listed are internal failures.
var statusByCode = map[string]int{
	auth.CodeDuplicateEmail:     http.StatusBadRequest,
	auth.CodeInvalidCredentials: http.StatusBadRequest,
	auth.CodeInvalidInput:       http.StatusBadRequest,
	auth.CodeEmptyPassword:      http.StatusBadRequest,
	reports.CodeReportInvalid:   http.StatusBadRequest,
	CodeRequestInvalid:          http.StatusBadRequest,
	CodeRequestTooLarge:         http.StatusRequestEntityTooLarge,
	auth.CodeUserNotFound:       http.StatusNotFound,
	reports.CodeReportNotFound:  http.StatusNotFound,
	CodeSessionRequired:         http.StatusUnauthorized,
	auth.CodeSessionInvalid:     http.StatusUnauthorized,
	auth.CodeSessionExpired:     http.StatusUnauthorized,
	CodeForbidden:               http.StatusForbidden,
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
	Code       string `json:"code"`
}

// statusFor returns the HTTP status and public code for err.
func statusFor(err error) (int, string) {
	code := errutil.Code(err)
	if status, ok := statusByCode[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, CodeInternal
}

func errRequestInvalid(cause error) error {
	return oops.Code(CodeRequestInvalid).Errorf("%s", cause.Error())
}

func errRequestTooLarge(limit int64) error {
	return oops.Code(CodeRequestTooLarge).
		With("limit_bytes", limit).
		Errorf("request body exceeds %d bytes", limit)
}

func errSessionRequired() error {
	return oops.Code(CodeSessionRequired).Errorf("sign in required")
}

func errForbidden(userID, target int64) error {
	return oops.Code(CodeForbidden).
		With("user_id", userID).
		With("target_id", target).
		Errorf("you can only change your own account")
}

// abortWithError writes the error response for err and stops the chain.
// Internal failures are logged and their details withheld.
func (h *handlers) abortWithError(c *gin.Context, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		errutil.LogErrorContext(c.Request.Context(), h.logger.With("request_id", requestID(c)), "request failed", err)
		message = "internal server error"
	}
	_ = c.Error(err) //nolint:errcheck // recorded for the access log
	c.AbortWithStatusJSON(status, ErrorBody{
		StatusCode: status,
		Message:    message,
		Error:      http.StatusText(status),
		Code:       code,
	})
}
