package subaccounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// Repository encapsulates DB operations for sub-accounts.
type Repository interface {
	Get(ctx context.Context, id int64) (SubAccount, error)
	GetByCode(ctx context.Context, yearCode, code string) (SubAccount, error)
	ListByYear(ctx context.Context, yearCode string) ([]SubAccount, error)
	Insert(ctx context.Context, sub SubAccount) (SubAccount, error)
	Recompute(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const subColumns = `id, code, fiscal_year_code, account_code, description, currency, tax_code, debit, credit, balance, created_at, updated_at`

func scanSub(row pgx.Row) (SubAccount, error) {
	var s SubAccount
	err := row.Scan(&s.ID, &s.Code, &s.FiscalYearCode, &s.AccountCode, &s.Description,
		&s.Currency, &s.TaxCode, &s.Debit, &s.Credit, &s.Balance, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubAccount{}, shared.ErrSubAccountNotFound
		}
		return SubAccount{}, err
	}
	return s, nil
}

func (r *repository) Get(ctx context.Context, id int64) (SubAccount, error) {
	return scanSub(r.db.QueryRow(ctx, `SELECT `+subColumns+` FROM subaccounts WHERE id=$1`, id))
}

func (r *repository) GetByCode(ctx context.Context, yearCode, code string) (SubAccount, error) {
	return scanSub(r.db.QueryRow(ctx, `SELECT `+subColumns+` FROM subaccounts
WHERE fiscal_year_code=$1 AND code=$2`, yearCode, code))
}

func (r *repository) ListByYear(ctx context.Context, yearCode string) ([]SubAccount, error) {
	rows, err := r.db.Query(ctx, `SELECT `+subColumns+` FROM subaccounts
WHERE fiscal_year_code=$1 ORDER BY code ASC`, yearCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []SubAccount
	for rows.Next() {
		s, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *repository) Insert(ctx context.Context, sub SubAccount) (SubAccount, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO subaccounts (code, fiscal_year_code, account_code, description, currency, tax_code)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, debit, credit, balance, created_at, updated_at`,
		sub.Code, sub.FiscalYearCode, sub.AccountCode, sub.Description, sub.Currency, sub.TaxCode)
	if err := row.Scan(&sub.ID, &sub.Debit, &sub.Credit, &sub.Balance, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return SubAccount{}, err
	}
	return sub, nil
}

// Recompute refreshes the cached totals from the sub-account's ledger lines.
func (r *repository) Recompute(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, recomputeSQL, id)
	return err
}

const recomputeSQL = `UPDATE subaccounts SET
debit = s.debit, credit = s.credit, balance = s.debit - s.credit, updated_at = NOW()
FROM (SELECT COALESCE(SUM(debit),0) AS debit, COALESCE(SUM(credit),0) AS credit
      FROM ledger_lines WHERE subaccount_id = $1) s
WHERE id = $1`
