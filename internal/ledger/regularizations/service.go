package regularizations

import (
	"context"
	"errors"
	"time"
)

// Service exposes period lookups and lock checks.
type Service struct {
	repo Repository
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListByYear returns the regularization periods of a fiscal year.
func (s *Service) ListByYear(ctx context.Context, yearCode string) ([]Period, error) {
	return s.repo.ListByYear(ctx, yearCode)
}

// Create records a new regularization period.
// Overlap between periods of the same year is deliberately not rejected:
// correction settlements may cover an already-regularized range.
func (s *Service) Create(ctx context.Context, period Period) (Period, error) {
	if period.FiscalYearCode == "" || period.PeriodCode == "" {
		return Period{}, errors.New("ledger: fiscal year and period code required")
	}
	if period.StartDate.After(period.EndDate) {
		return Period{}, errors.New("ledger: start date cannot be after end date")
	}
	return s.repo.Insert(ctx, period)
}

// IsLocked reports whether date falls inside any regularization period of the year.
func (s *Service) IsLocked(ctx context.Context, yearCode string, date time.Time) (bool, error) {
	period, err := s.repo.FindAt(ctx, yearCode, date)
	if err != nil {
		return false, err
	}
	return period != nil, nil
}

// Delete removes a regularization period, unlocking its date range.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
