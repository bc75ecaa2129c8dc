// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/samber/oops"
)

const maxPasswordLength = 128

// credentialsRequest is the body of signup and signin.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r credentialsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email, validation.Length(3, 254)),
		validation.Field(&r.Password, validation.Required, validation.Length(1, maxPasswordLength)),
	)
}

// updateUserRequest is the body of PATCH /auth/:id. Absent fields are unchanged.
type updateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (r updateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, is.Email, validation.Length(3, 254)),
		validation.Field(&r.Password, validation.NilOrNotEmpty, validation.Length(1, maxPasswordLength)),
	)
}

// approveReportRequest is the body of PATCH /reports/:id.
type approveReportRequest struct {
	Approved *bool `json:"approved"`
}

func (r approveReportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Approved, validation.NotNil),
	)
}

// bindJSON decodes the body into dst and runs its validation.
func bindJSON(c *gin.Context, dst validation.Validatable) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errRequestTooLarge(tooLarge.Limit)
		}
		return errRequestInvalid(err)
	}
	if err := dst.Validate(); err != nil {
		return errRequestInvalid(err)
	}
	return nil
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, oops.Code(CodeRequestInvalid).
			With("id", raw).
			Errorf("%s", errNotAnID.Error())
	}
	return id, nil
}
