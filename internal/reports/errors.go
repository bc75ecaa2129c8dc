// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package reports

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned by repositories when no report matches.
var ErrNotFound = errors.New("report not found")

// Error codes for report failures.
const (
	CodeReportInvalid  = "REPORT_INVALID"
	CodeReportNotFound = "REPORT_NOT_FOUND"
)

// ErrReportInvalid creates an error for attributes that fail validation.
// The validation errors are kept in the context under "fields".
func ErrReportInvalid(cause error) error {
	return oops.Code(CodeReportInvalid).
		With("fields", cause).
		Errorf("invalid report: %s", cause.Error())
}

// ErrReportNotFound creates an error for a report ID that matched nothing.
func ErrReportNotFound(id int64) error {
	return oops.Code(CodeReportNotFound).
		With("report_id", id).
		Errorf("report not found")
}
