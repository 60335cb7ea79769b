package regularizations

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository encapsulates DB operations for tax regularization periods.
type Repository interface {
	ListByYear(ctx context.Context, yearCode string) ([]Period, error)
	FindAt(ctx context.Context, yearCode string, date time.Time) (*Period, error)
	Insert(ctx context.Context, period Period) (Period, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const periodColumns = `id, fiscal_year_code, period_code, start_date, end_date, creditor_subaccount_id, debtor_subaccount_id, entry_id, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.FiscalYearCode, &p.PeriodCode, &p.StartDate, &p.EndDate,
		&p.CreditorSubAccount, &p.DebtorSubAccount, &p.EntryID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) ListByYear(ctx context.Context, yearCode string) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM tax_regularizations
WHERE fiscal_year_code=$1 ORDER BY start_date ASC`, yearCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var periods []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *repository) FindAt(ctx context.Context, yearCode string, date time.Time) (*Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM tax_regularizations
WHERE fiscal_year_code=$1 AND $2 BETWEEN start_date AND end_date LIMIT 1`, yearCode, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanPeriod(rows)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) Insert(ctx context.Context, period Period) (Period, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO tax_regularizations
(fiscal_year_code, period_code, start_date, end_date, creditor_subaccount_id, debtor_subaccount_id, entry_id)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
		period.FiscalYearCode, period.PeriodCode, period.StartDate, period.EndDate,
		period.CreditorSubAccount, period.DebtorSubAccount, period.EntryID)
	if err := row.Scan(&period.ID, &period.CreatedAt, &period.UpdatedAt); err != nil {
		return Period{}, err
	}
	return period, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tax_regularizations WHERE id=$1`, id)
	return err
}
