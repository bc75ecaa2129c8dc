// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

// Package postgres implements reports.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/carvalue/carvalue/internal/reports"
	"github.com/carvalue/carvalue/internal/store"
)

const reportColumns = `id, price, make, model, year, lng, lat, mileage, approved, user_id, created_at, updated_at`

// ReportRepository implements reports.Repository.
type ReportRepository struct {
	pool store.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool store.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Create inserts an unapproved report.
func (r *ReportRepository) Create(ctx context.Context, attrs reports.Attributes, userID int64) (*reports.Report, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reports (price, make, model, year, lng, lat, mileage, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+reportColumns,
		attrs.Price, attrs.Make, attrs.Model, attrs.Year, attrs.Lng, attrs.Lat, attrs.Mileage, userID)

	report, err := scanReport(row)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return nil, oops.Code("REPORT_OWNER_MISSING").
				With("user_id", userID).
				Wrap(err)
		}
		return nil, oops.Code("REPORT_INSERT_FAILED").
			With("operation", "insert report").
			With("user_id", userID).
			Wrap(err)
	}
	return report, nil
}

// Get fetches a report by ID.
func (r *ReportRepository) Get(ctx context.Context, id int64) (*reports.Report, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+reportColumns+`
		FROM reports
		WHERE id = $1
	`, id)

	report, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("report_id", id).Wrap(reports.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("REPORT_QUERY_FAILED").
			With("operation", "get report").
			With("report_id", id).
			Wrap(err)
	}
	return report, nil
}

// SetApproval updates the approval flag and returns the updated report.
func (r *ReportRepository) SetApproval(ctx context.Context, id int64, approved bool) (*reports.Report, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE reports SET approved = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+reportColumns, id, approved)

	report, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("report_id", id).Wrap(reports.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("REPORT_APPROVAL_FAILED").
			With("operation", "set report approval").
			With("report_id", id).
			Wrap(err)
	}
	return report, nil
}

func scanReport(row pgx.Row) (*reports.Report, error) {
	var rep reports.Report
	err := row.Scan(
		&rep.ID, &rep.Price, &rep.Make, &rep.Model, &rep.Year,
		&rep.Lng, &rep.Lat, &rep.Mileage, &rep.Approved, &rep.UserID,
		&rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	return &rep, nil
}

var _ reports.Repository = (*ReportRepository)(nil)
