package fiscalyears

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

type memoryYearRepo struct {
	years map[string]FiscalYear
}

func newMemoryYearRepo() *memoryYearRepo {
	return &memoryYearRepo{years: make(map[string]FiscalYear)}
}

func (r *memoryYearRepo) Get(ctx context.Context, code string) (FiscalYear, error) {
	year, ok := r.years[code]
	if !ok {
		return FiscalYear{}, shared.ErrYearNotFound
	}
	return year, nil
}

func (r *memoryYearRepo) List(ctx context.Context) ([]FiscalYear, error) {
	var out []FiscalYear
	for _, year := range r.years {
		out = append(out, year)
	}
	return out, nil
}

func (r *memoryYearRepo) FindByDate(ctx context.Context, date time.Time) (FiscalYear, error) {
	for _, year := range r.years {
		if year.Contains(date) {
			return year, nil
		}
	}
	return FiscalYear{}, shared.ErrYearNotFound
}

func (r *memoryYearRepo) RangeConflict(ctx context.Context, start, end time.Time, excludeCode string) (bool, error) {
	for _, year := range r.years {
		if year.Code == excludeCode {
			continue
		}
		if !year.StartDate.After(end) && !year.EndDate.Before(start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryYearRepo) Insert(ctx context.Context, year FiscalYear) (FiscalYear, error) {
	if year.SubAccountLength == 0 {
		year.SubAccountLength = 10
	}
	r.years[year.Code] = year
	return year, nil
}

func (r *memoryYearRepo) UpdateStatus(ctx context.Context, code string, status YearStatus) error {
	year, ok := r.years[code]
	if !ok {
		return shared.ErrYearNotFound
	}
	year.Status = status
	r.years[code] = year
	return nil
}

func (r *memoryYearRepo) SetSystemEntries(ctx context.Context, code string, opening, closing, profitLoss *int64) error {
	year, ok := r.years[code]
	if !ok {
		return shared.ErrYearNotFound
	}
	year.OpeningEntryID = opening
	year.ClosingEntryID = closing
	year.ProfitLossEntryID = profitLoss
	r.years[code] = year
	return nil
}

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestCreateRejectsOverlappingRange(t *testing.T) {
	repo := newMemoryYearRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Code:      "2024",
		StartDate: day(2024, 1, 1),
		EndDate:   day(2024, 12, 31),
	})
	require.NoError(t, err)

	// A fiscal year straddling the calendar boundary still collides.
	_, err = svc.Create(context.Background(), CreateInput{
		Code:      "2024-25",
		StartDate: day(2024, 6, 1),
		EndDate:   day(2025, 5, 31),
	})
	require.ErrorIs(t, err, shared.ErrRangeOverlap)
}

func TestCreateAllowsAdjacentRanges(t *testing.T) {
	repo := newMemoryYearRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Code:      "2024",
		StartDate: day(2024, 1, 1),
		EndDate:   day(2024, 12, 31),
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{
		Code:      "2025",
		StartDate: day(2025, 1, 1),
		EndDate:   day(2025, 12, 31),
	})
	require.NoError(t, err)
}

func TestCreateRejectsInvertedRange(t *testing.T) {
	svc := NewService(newMemoryYearRepo(), nil)
	_, err := svc.Create(context.Background(), CreateInput{
		Code:      "2024",
		StartDate: day(2024, 12, 31),
		EndDate:   day(2024, 1, 1),
	})
	require.Error(t, err)
}

func TestEnsureForDateSynthesizesCalendarYear(t *testing.T) {
	repo := newMemoryYearRepo()
	svc := NewService(repo, nil)

	year, err := svc.EnsureForDate(context.Background(), day(2026, 7, 15), true)
	require.NoError(t, err)
	require.Equal(t, "2026", year.Code)
	require.Equal(t, day(2026, 1, 1), year.StartDate)
	require.Equal(t, day(2026, 12, 31), year.EndDate)
	require.Equal(t, 10, year.SubAccountLength)
}

func TestEnsureForDateWithoutCreateFails(t *testing.T) {
	svc := NewService(newMemoryYearRepo(), nil)
	_, err := svc.EnsureForDate(context.Background(), day(2026, 7, 15), false)
	require.ErrorIs(t, err, shared.ErrYearNotFound)
}

func TestEnsureForDateReturnsExistingYear(t *testing.T) {
	repo := newMemoryYearRepo()
	svc := NewService(repo, nil)
	_, err := svc.Create(context.Background(), CreateInput{
		Code:      "2024-25",
		StartDate: day(2024, 7, 1),
		EndDate:   day(2025, 6, 30),
	})
	require.NoError(t, err)

	year, err := svc.EnsureForDate(context.Background(), day(2025, 2, 10), true)
	require.NoError(t, err)
	require.Equal(t, "2024-25", year.Code)
}

func TestCloseIsIdempotentRejected(t *testing.T) {
	repo := newMemoryYearRepo()
	svc := NewService(repo, nil)
	_, err := svc.Create(context.Background(), CreateInput{
		Code:      "2024",
		StartDate: day(2024, 1, 1),
		EndDate:   day(2024, 12, 31),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Close(context.Background(), "2024"))
	require.ErrorIs(t, svc.Close(context.Background(), "2024"), shared.ErrYearClosed)
}

func TestSetSystemEntriesMarksYearEnd(t *testing.T) {
	repo := newMemoryYearRepo()
	svc := NewService(repo, nil)
	_, err := svc.Create(context.Background(), CreateInput{
		Code:      "2024",
		StartDate: day(2024, 1, 1),
		EndDate:   day(2024, 12, 31),
	})
	require.NoError(t, err)

	opening, closing, pl := int64(101), int64(102), int64(103)
	require.NoError(t, svc.SetSystemEntries(context.Background(), "2024", &opening, &closing, &pl))

	year, err := svc.Get(context.Background(), "2024")
	require.NoError(t, err)
	require.True(t, year.IsSystemEntry(101))
	require.True(t, year.IsSystemEntry(102))
	require.True(t, year.IsSystemEntry(103))
	require.False(t, year.IsSystemEntry(104))
}

func TestContainsIsInclusive(t *testing.T) {
	year := FiscalYear{StartDate: day(2024, 1, 1), EndDate: day(2024, 12, 31)}
	require.True(t, year.Contains(day(2024, 1, 1)))
	require.True(t, year.Contains(day(2024, 12, 31)))
	require.False(t, year.Contains(day(2025, 1, 1)))
	require.False(t, year.Contains(day(2023, 12, 31)))
}
