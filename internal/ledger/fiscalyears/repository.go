package fiscalyears

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// Repository encapsulates DB operations for fiscal years.
type Repository interface {
	Get(ctx context.Context, code string) (FiscalYear, error)
	List(ctx context.Context) ([]FiscalYear, error)
	FindByDate(ctx context.Context, date time.Time) (FiscalYear, error)
	RangeConflict(ctx context.Context, start, end time.Time, excludeCode string) (bool, error)
	Insert(ctx context.Context, year FiscalYear) (FiscalYear, error)
	UpdateStatus(ctx context.Context, code string, status YearStatus) error
	SetSystemEntries(ctx context.Context, code string, opening, closing, profitLoss *int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const yearColumns = `code, name, start_date, end_date, status, opening_entry_id, closing_entry_id, profit_loss_entry_id, subaccount_length, created_at, updated_at`

func scanYear(row pgx.Row) (FiscalYear, error) {
	var y FiscalYear
	err := row.Scan(&y.Code, &y.Name, &y.StartDate, &y.EndDate, &y.Status,
		&y.OpeningEntryID, &y.ClosingEntryID, &y.ProfitLossEntryID,
		&y.SubAccountLength, &y.CreatedAt, &y.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FiscalYear{}, shared.ErrYearNotFound
		}
		return FiscalYear{}, err
	}
	return y, nil
}

func (r *repository) Get(ctx context.Context, code string) (FiscalYear, error) {
	return scanYear(r.db.QueryRow(ctx, `SELECT `+yearColumns+` FROM fiscal_years WHERE code=$1`, code))
}

func (r *repository) List(ctx context.Context) ([]FiscalYear, error) {
	rows, err := r.db.Query(ctx, `SELECT `+yearColumns+` FROM fiscal_years ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []FiscalYear
	for rows.Next() {
		y, err := scanYear(rows)
		if err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

func (r *repository) FindByDate(ctx context.Context, date time.Time) (FiscalYear, error) {
	return scanYear(r.db.QueryRow(ctx, `SELECT `+yearColumns+` FROM fiscal_years
WHERE $1 BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date))
}

func (r *repository) RangeConflict(ctx context.Context, start, end time.Time, excludeCode string) (bool, error) {
	var conflict bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
SELECT 1 FROM fiscal_years WHERE code <> $3 AND start_date <= $2 AND end_date >= $1)`,
		start, end, excludeCode).Scan(&conflict)
	return conflict, err
}

func (r *repository) Insert(ctx context.Context, year FiscalYear) (FiscalYear, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO fiscal_years (code, name, start_date, end_date, status, subaccount_length)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING created_at, updated_at`,
		year.Code, year.Name, year.StartDate, year.EndDate, year.Status, year.SubAccountLength)
	if err := row.Scan(&year.CreatedAt, &year.UpdatedAt); err != nil {
		return FiscalYear{}, err
	}
	return year, nil
}

func (r *repository) UpdateStatus(ctx context.Context, code string, status YearStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fiscal_years SET status=$2, updated_at=NOW() WHERE code=$1`, code, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrYearNotFound
	}
	return nil
}

func (r *repository) SetSystemEntries(ctx context.Context, code string, opening, closing, profitLoss *int64) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fiscal_years SET opening_entry_id=$2, closing_entry_id=$3, profit_loss_entry_id=$4, updated_at=NOW() WHERE code=$1`,
		code, opening, closing, profitLoss)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrYearNotFound
	}
	return nil
}
