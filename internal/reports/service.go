// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CarValue Contributors

package reports

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/carvalue/carvalue/internal/auth"
)

var tracer = otel.Tracer("carvalue/reports")

// Service creates reports and changes their approval.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new Service. A nil logger selects slog.Default.
func NewService(repo Repository, logger *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("REPORT_INVALID_SERVICE").Errorf("report repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}, nil
}

// Create validates attrs and stores an unapproved report owned by owner.
func (s *Service) Create(ctx context.Context, attrs Attributes, owner *auth.User) (*Report, error) {
	ctx, span := tracer.Start(ctx, "reports.create")
	defer span.End()

	if owner == nil {
		return nil, oops.Code("REPORT_OWNER_REQUIRED").Errorf("report owner is required")
	}
	if err := attrs.Validate(); err != nil {
		span.SetStatus(codes.Error, CodeReportInvalid)
		return nil, ErrReportInvalid(err)
	}

	report, err := s.repo.Create(ctx, attrs, owner.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, oops.Code("REPORT_CREATE_FAILED").
			With("user_id", owner.ID).
			Wrap(err)
	}

	span.SetAttributes(attribute.Int64("report.id", report.ID))
	s.logger.InfoContext(ctx, "report created",
		"report_id", report.ID,
		"user_id", owner.ID,
	)
	return report, nil
}

// ChangeApproval sets the approval flag on a report.
func (s *Service) ChangeApproval(ctx context.Context, id int64, approved bool) (*Report, error) {
	ctx, span := tracer.Start(ctx, "reports.change_approval")
	defer span.End()
	span.SetAttributes(attribute.Int64("report.id", id), attribute.Bool("report.approved", approved))

	report, err := s.repo.SetApproval(ctx, id, approved)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrReportNotFound(id)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "set approval failed")
		return nil, oops.Code("REPORT_UPDATE_FAILED").
			With("report_id", id).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "report approval changed",
		"report_id", id,
		"approved", approved,
	)
	return report, nil
}

// Get returns a report by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Report, error) {
	report, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrReportNotFound(id)
	}
	if err != nil {
		return nil, oops.Code("REPORT_LOOKUP_FAILED").
			With("report_id", id).
			Wrap(err)
	}
	return report, nil
}
