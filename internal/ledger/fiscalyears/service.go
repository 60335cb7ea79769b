package fiscalyears

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// Service coordinates fiscal year lifecycle and date resolution.
type Service struct {
	repo  Repository
	cache *Cache
	now   func() time.Time
}

// NewService constructs a Service instance. cache may be nil.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns all fiscal years, newest first.
func (s *Service) List(ctx context.Context) ([]FiscalYear, error) {
	return s.repo.List(ctx)
}

// Get returns one fiscal year by code, consulting the cache first.
func (s *Service) Get(ctx context.Context, code string) (FiscalYear, error) {
	if year, ok := s.cache.Get(ctx, code); ok {
		return year, nil
	}
	year, err := s.repo.Get(ctx, code)
	if err != nil {
		return FiscalYear{}, err
	}
	s.cache.Set(ctx, year)
	return year, nil
}

// Create opens a new fiscal year after checking range exclusivity.
func (s *Service) Create(ctx context.Context, in CreateInput) (FiscalYear, error) {
	if err := in.Validate(); err != nil {
		return FiscalYear{}, err
	}
	conflict, err := s.repo.RangeConflict(ctx, in.StartDate, in.EndDate, in.Code)
	if err != nil {
		return FiscalYear{}, err
	}
	if conflict {
		return FiscalYear{}, shared.ErrRangeOverlap
	}
	year, err := s.repo.Insert(ctx, FiscalYear{
		Code:             in.Code,
		Name:             in.Name,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		Status:           YearStatusOpen,
		SubAccountLength: in.SubAccountLength,
	})
	if err != nil {
		return FiscalYear{}, err
	}
	s.cache.Set(ctx, year)
	return year, nil
}

// EnsureForDate resolves the fiscal year containing date. When none exists and
// allowCreate is set, a calendar year spanning the date's year is synthesized.
func (s *Service) EnsureForDate(ctx context.Context, date time.Time, allowCreate bool) (FiscalYear, error) {
	year, err := s.repo.FindByDate(ctx, date)
	if err == nil {
		return year, nil
	}
	if !errors.Is(err, shared.ErrYearNotFound) {
		return FiscalYear{}, err
	}
	if !allowCreate {
		return FiscalYear{}, shared.ErrYearNotFound
	}
	start := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, date.Location())
	end := time.Date(date.Year(), time.December, 31, 0, 0, 0, 0, date.Location())
	return s.Create(ctx, CreateInput{
		Code:      fmt.Sprintf("%04d", date.Year()),
		Name:      fmt.Sprintf("%04d", date.Year()),
		StartDate: start,
		EndDate:   end,
	})
}

// Close marks a year CLOSED. Its entries become immutable except the
// designated year-end entries.
func (s *Service) Close(ctx context.Context, code string) error {
	year, err := s.repo.Get(ctx, code)
	if err != nil {
		return err
	}
	if !year.IsOpen() {
		return shared.ErrYearClosed
	}
	if err := s.repo.UpdateStatus(ctx, code, YearStatusClosed); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, code)
	return nil
}

// SetSystemEntries records the opening, closing and profit-and-loss entries
// produced by the year-end routine.
func (s *Service) SetSystemEntries(ctx context.Context, code string, opening, closing, profitLoss *int64) error {
	if err := s.repo.SetSystemEntries(ctx, code, opening, closing, profitLoss); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, code)
	return nil
}
