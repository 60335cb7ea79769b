package journals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/ledger/fiscalyears"
	"github.com/meridian-erp/meridian-erp/internal/ledger/regularizations"
	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	"github.com/meridian-erp/meridian-erp/internal/ledger/subaccounts"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository encapsulates DB operations for journal entries.
// Mutations run through WithTx so each invariant-maintaining operation (line
// writes plus sub-account recompute) commits atomically.
type Repository interface {
	Get(ctx context.Context, id int64) (JournalEntry, []LedgerLine, error)
	List(ctx context.Context, filter ListFilter) ([]JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. Fiscal year and
// regularization lookups are duplicated here so gate checks share the
// transaction with the mutation they protect.
type TxRepository interface {
	GetFiscalYearForUpdate(ctx context.Context, code string) (fiscalyears.FiscalYear, error)
	RegularizationAt(ctx context.Context, yearCode string, date time.Time) (*regularizations.Period, error)
	GetSubAccountByCode(ctx context.Context, yearCode, code string) (subaccounts.SubAccount, error)

	NumbersForYear(ctx context.Context, yearCode string) ([]int64, error)
	UpsertSequence(ctx context.Context, yearCode string, next int64) error

	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	InsertLine(ctx context.Context, line LedgerLine) (LedgerLine, error)
	LinkSource(ctx context.Context, docType string, sourceID uuid.UUID, entryID int64) error
	GetEntryWithLines(ctx context.Context, id int64) (JournalEntry, []LedgerLine, error)
	UpdateLineAmounts(ctx context.Context, id int64, debit, credit float64) error
	UpdateEntryAmount(ctx context.Context, id int64, amount float64) error
	UpdateEntryNumber(ctx context.Context, id, number int64) error
	DeleteLine(ctx context.Context, id int64) error
	DeleteEntry(ctx context.Context, id int64) error
	UnlinkInvoiceEntry(ctx context.Context, entryID int64) error
	RecomputeSubAccount(ctx context.Context, subAccountID int64) error

	PageForRenumber(ctx context.Context, yearCode string, offset, limit int) ([]EntryRef, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, number, fiscal_year_code, date, concept, editable, doc_type, doc_code, source_id, amount, created_at, updated_at`
const lineColumns = `id, entry_id, subaccount_id, subaccount_code, counter_subaccount_code, debit, credit, currency, conversion_rate, doc_type, doc_code, tax_id, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.Number, &e.FiscalYearCode, &e.Date, &e.Concept, &e.Editable,
		&e.DocType, &e.DocCode, &e.SourceID, &e.Amount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrEntryNotFound
		}
		return JournalEntry{}, err
	}
	return e, nil
}

func scanLine(row pgx.Row) (LedgerLine, error) {
	var l LedgerLine
	err := row.Scan(&l.ID, &l.EntryID, &l.SubAccountID, &l.SubAccountCode, &l.CounterSubAccount,
		&l.Debit, &l.Credit, &l.Currency, &l.ConversionRate, &l.DocType, &l.DocCode, &l.TaxID,
		&l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func getEntryWithLines(ctx context.Context, q db.Querier, id int64) (JournalEntry, []LedgerLine, error) {
	entry, err := scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		return JournalEntry{}, nil, err
	}
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM ledger_lines WHERE entry_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return JournalEntry{}, nil, err
	}
	defer rows.Close()
	var lines []LedgerLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return JournalEntry{}, nil, err
		}
		lines = append(lines, line)
	}
	return entry, lines, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (JournalEntry, []LedgerLine, error) {
	return getEntryWithLines(ctx, r.db, id)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JournalEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries
WHERE ($1 = '' OR fiscal_year_code = $1) ORDER BY date DESC, id DESC LIMIT $2 OFFSET $3`,
		filter.FiscalYearCode, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetFiscalYearForUpdate(ctx context.Context, code string) (fiscalyears.FiscalYear, error) {
	var y fiscalyears.FiscalYear
	err := r.tx.QueryRow(ctx, `SELECT code, name, start_date, end_date, status, opening_entry_id, closing_entry_id, profit_loss_entry_id, subaccount_length, created_at, updated_at
FROM fiscal_years WHERE code=$1 FOR UPDATE`, code).
		Scan(&y.Code, &y.Name, &y.StartDate, &y.EndDate, &y.Status,
			&y.OpeningEntryID, &y.ClosingEntryID, &y.ProfitLossEntryID,
			&y.SubAccountLength, &y.CreatedAt, &y.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fiscalyears.FiscalYear{}, shared.ErrYearNotFound
		}
		return fiscalyears.FiscalYear{}, err
	}
	return y, nil
}

func (r *txRepository) RegularizationAt(ctx context.Context, yearCode string, date time.Time) (*regularizations.Period, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, fiscal_year_code, period_code, start_date, end_date, creditor_subaccount_id, debtor_subaccount_id, entry_id, created_at, updated_at
FROM tax_regularizations WHERE fiscal_year_code=$1 AND $2 BETWEEN start_date AND end_date LIMIT 1`, yearCode, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var p regularizations.Period
	if err := rows.Scan(&p.ID, &p.FiscalYearCode, &p.PeriodCode, &p.StartDate, &p.EndDate,
		&p.CreditorSubAccount, &p.DebtorSubAccount, &p.EntryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *txRepository) GetSubAccountByCode(ctx context.Context, yearCode, code string) (subaccounts.SubAccount, error) {
	var s subaccounts.SubAccount
	err := r.tx.QueryRow(ctx, `SELECT id, code, fiscal_year_code, account_code, description, currency, tax_code, debit, credit, balance, created_at, updated_at
FROM subaccounts WHERE fiscal_year_code=$1 AND code=$2`, yearCode, code).
		Scan(&s.ID, &s.Code, &s.FiscalYearCode, &s.AccountCode, &s.Description,
			&s.Currency, &s.TaxCode, &s.Debit, &s.Credit, &s.Balance, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return subaccounts.SubAccount{}, shared.ErrSubAccountNotFound
		}
		return subaccounts.SubAccount{}, err
	}
	return s, nil
}

func (r *txRepository) NumbersForYear(ctx context.Context, yearCode string) ([]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT number FROM journal_entries WHERE fiscal_year_code=$1 ORDER BY number ASC`, yearCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var numbers []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// UpsertSequence keeps the compatibility sequence record external tools read.
func (r *txRepository) UpsertSequence(ctx context.Context, yearCode string, next int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO sequences (name, fiscal_year_code, next_value)
VALUES ('journal_entries', $1, $2)
ON CONFLICT (name, fiscal_year_code) DO UPDATE SET next_value = EXCLUDED.next_value, updated_at = NOW()`,
		yearCode, next)
	return err
}

func (r *txRepository) InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (number, fiscal_year_code, date, concept, editable, doc_type, doc_code, source_id, amount)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id, created_at, updated_at`,
		entry.Number, entry.FiscalYearCode, entry.Date, entry.Concept, entry.Editable,
		entry.DocType, entry.DocCode, entry.SourceID, entry.Amount)
	if err := row.Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLine(ctx context.Context, line LedgerLine) (LedgerLine, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO ledger_lines (entry_id, subaccount_id, subaccount_code, counter_subaccount_code, debit, credit, currency, conversion_rate, doc_type, doc_code, tax_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id, created_at, updated_at`,
		line.EntryID, line.SubAccountID, line.SubAccountCode, line.CounterSubAccount,
		line.Debit, line.Credit, line.Currency, line.ConversionRate,
		line.DocType, line.DocCode, line.TaxID)
	if err := row.Scan(&line.ID, &line.CreatedAt, &line.UpdatedAt); err != nil {
		return LedgerLine{}, err
	}
	return line, nil
}

func (r *txRepository) LinkSource(ctx context.Context, docType string, sourceID uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (doc_type, ref_id, entry_id) VALUES ($1,$2,$3)`, docType, sourceID, entryID)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.ConstraintName == "uq_source_links" {
			return shared.ErrSourceConflict
		}
		return err
	}
	return nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, id int64) (JournalEntry, []LedgerLine, error) {
	return getEntryWithLines(ctx, r.tx, id)
}

func (r *txRepository) UpdateLineAmounts(ctx context.Context, id int64, debit, credit float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledger_lines SET debit=$2, credit=$3, updated_at=NOW() WHERE id=$1`, id, debit, credit)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

func (r *txRepository) UpdateEntryAmount(ctx context.Context, id int64, amount float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE journal_entries SET amount=$2, updated_at=NOW() WHERE id=$1`, id, amount)
	return err
}

func (r *txRepository) UpdateEntryNumber(ctx context.Context, id, number int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE journal_entries SET number=$2, updated_at=NOW() WHERE id=$1`, id, number)
	return err
}

func (r *txRepository) DeleteLine(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM ledger_lines WHERE id=$1`, id)
	return err
}

func (r *txRepository) DeleteEntry(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

// UnlinkInvoiceEntry clears invoice rows still pointing at the entry so the
// delete never leaves dangling references.
func (r *txRepository) UnlinkInvoiceEntry(ctx context.Context, entryID int64) error {
	if _, err := r.tx.Exec(ctx, `UPDATE invoices SET entry_id=NULL, updated_at=NOW() WHERE entry_id=$1`, entryID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET payment_entry_id=NULL, updated_at=NOW() WHERE payment_entry_id=$1`, entryID)
	return err
}

func (r *txRepository) RecomputeSubAccount(ctx context.Context, subAccountID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE subaccounts SET
debit = s.debit, credit = s.credit, balance = s.debit - s.credit, updated_at = NOW()
FROM (SELECT COALESCE(SUM(debit),0) AS debit, COALESCE(SUM(credit),0) AS credit
      FROM ledger_lines WHERE subaccount_id = $1) s
WHERE id = $1`, subAccountID)
	return err
}

func (r *txRepository) PageForRenumber(ctx context.Context, yearCode string, offset, limit int) ([]EntryRef, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, number FROM journal_entries
WHERE fiscal_year_code=$1 ORDER BY date ASC, id ASC LIMIT $2 OFFSET $3`, yearCode, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []EntryRef
	for rows.Next() {
		var ref EntryRef
		if err := rows.Scan(&ref.ID, &ref.Number); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
