// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

// Package reports manages vehicle sale reports submitted by signed-in users
// and their approval state.
package reports

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Bounds on report attributes.
const (
	MinYear    = 1930
	MaxYear    = 2050
	MaxMileage = 1_000_000
	MaxPrice   = 1_000_000
)

// Report is a stored vehicle sale report.
type Report struct {
	ID       int64
	Price    int
	Make     string
	Model    string
	Year     int
	Lng      float64
	Lat      float64
	Mileage  int
	Approved bool
	// UserID is the owner, the user who submitted the report.
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attributes are the caller-supplied fields of a new report.
type Attributes struct {
	Make    string  `json:"make"`
	Model   string  `json:"model"`
	Year    int     `json:"year"`
	Mileage int     `json:"mileage"`
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
	Price   int     `json:"price"`
}

// Validate implements validation.Validatable.
func (a Attributes) Validate() error {
	//nolint:wrapcheck // ozzo Errors are keyed by field and rendered to clients
	return validation.ValidateStruct(&a,
		validation.Field(&a.Make, validation.Required, validation.Length(1, 100)),
		validation.Field(&a.Model, validation.Required, validation.Length(1, 100)),
		validation.Field(&a.Year, validation.Required, validation.Min(MinYear), validation.Max(MaxYear)),
		validation.Field(&a.Mileage, validation.Min(0), validation.Max(MaxMileage)),
		validation.Field(&a.Lng, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&a.Lat, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&a.Price, validation.Min(0), validation.Max(MaxPrice)),
	)
}

// Repository persists reports.
type Repository interface {
	// Create stores a new report owned by userID. Approved is always false.
	Create(ctx context.Context, attrs Attributes, userID int64) (*Report, error)
	// Get returns ErrNotFound when no report has the ID.
	Get(ctx context.Context, id int64) (*Report, error)
	// SetApproval returns ErrNotFound when no report has the ID.
	SetApproval(ctx context.Context, id int64, approved bool) (*Report, error)
}
