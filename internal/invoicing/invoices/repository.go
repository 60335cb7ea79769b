package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository exposes invoice reads plus a transactional scope for mutations.
type Repository interface {
	Get(ctx context.Context, code string) (Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
	FindDuplicateCandidates(ctx context.Context, inv Invoice) ([]Invoice, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository groups the invoice mutations that must share one transaction.
// Delivery note and receipt cleanup live here so the cascade commits or rolls
// back as a unit.
type TxRepository interface {
	Get(ctx context.Context, code string) (Invoice, error)
	NextNumber(ctx context.Context, kind Kind, yearCode, series string) (int64, error)
	Insert(ctx context.Context, inv *Invoice) error
	InsertLine(ctx context.Context, line *InvoiceLine) error
	UpdateHeaderFiscal(ctx context.Context, code, yearCode string, number int64, newCode string, date time.Time) error
	UpdateEntryRefs(ctx context.Context, code string, entryID, paymentEntryID *int64) error
	SetPaid(ctx context.Context, code string, paid bool) error
	UnlinkDeliveryNotes(ctx context.Context, invoiceCode string) (int64, error)
	DeleteReceipts(ctx context.Context, invoiceCode string) error
	DeleteLines(ctx context.Context, invoiceCode string) error
	Delete(ctx context.Context, code string) error
	MoveRefs(ctx context.Context, oldCode, newCode string) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed invoice repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const invoiceColumns = `id, kind, code, fiscal_year_code, series, number, party_id, agent_id,
	date, net, tax, withholding, surcharge, total, entry_id, payment_entry_id,
	paid, void, rectified_code, observations, source_id, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(
		&inv.ID, &inv.Kind, &inv.Code, &inv.FiscalYearCode, &inv.Series, &inv.Number,
		&inv.PartyID, &inv.AgentID, &inv.Date, &inv.Net, &inv.Tax, &inv.Withholding,
		&inv.Surcharge, &inv.Total, &inv.EntryID, &inv.PaymentEntryID, &inv.Paid,
		&inv.Void, &inv.RectifiedCode, &inv.Observations, &inv.SourceID,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("scan invoice: %w", err)
	}
	return inv, nil
}

func getInvoice(ctx context.Context, q db.Querier, code string) (Invoice, error) {
	row := q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE code = $1`, code)
	inv, err := scanInvoice(row)
	if err != nil {
		return Invoice{}, err
	}
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, product_ref, description, quantity, unit_price,
		       discount_pct, tax_pct, surcharge_pct, withholding_pct, created_at
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY id ASC`, inv.ID)
	if err != nil {
		return Invoice{}, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductRef, &l.Description,
			&l.Quantity, &l.UnitPrice, &l.DiscountPct, &l.TaxPct,
			&l.SurchargePct, &l.WithholdingPct, &l.CreatedAt); err != nil {
			return Invoice{}, fmt.Errorf("scan invoice line: %w", err)
		}
		inv.Lines = append(inv.Lines, l)
	}
	return inv, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, code string) (Invoice, error) {
	return getInvoice(ctx, r.pool, code)
}

func (r *pgRepository) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := []any{}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.FiscalYearCode != "" {
		args = append(args, filter.FiscalYearCode)
		query += fmt.Sprintf(" AND fiscal_year_code = $%d", len(args))
	}
	if filter.PartyID != 0 {
		args = append(args, filter.PartyID)
		query += fmt.Sprintf(" AND party_id = $%d", len(args))
	}
	query += " ORDER BY date DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// FindDuplicateCandidates returns other invoices sharing the same kind,
// party, date, agent, total and observations. Line-level comparison is left
// to the caller.
func (r *pgRepository) FindDuplicateCandidates(ctx context.Context, inv Invoice) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE kind = $1 AND party_id = $2 AND date = $3 AND total = $4
		  AND observations = $5 AND agent_id IS NOT DISTINCT FROM $6
		  AND id <> $7`,
		inv.Kind, inv.PartyID, inv.Date, inv.Total, inv.Observations, inv.AgentID, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("find duplicate candidates: %w", err)
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		cand, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cand)
	}
	return out, rows.Err()
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) Get(ctx context.Context, code string) (Invoice, error) {
	return getInvoice(ctx, r.tx, code)
}

// NextNumber allocates the next invoice number for the year and series.
// Postgres rejects FOR UPDATE on aggregates, so the highest-numbered row is
// locked instead; concurrent allocators in the same series serialize on it.
func (r *pgTxRepository) NextNumber(ctx context.Context, kind Kind, yearCode, series string) (int64, error) {
	var last int64
	err := r.tx.QueryRow(ctx, `
		SELECT number FROM invoices
		WHERE kind = $1 AND fiscal_year_code = $2 AND series = $3
		ORDER BY number DESC
		LIMIT 1
		FOR UPDATE`, kind, yearCode, series).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("next invoice number: %w", err)
	}
	return last + 1, nil
}

func (r *pgTxRepository) Insert(ctx context.Context, inv *Invoice) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO invoices (kind, code, fiscal_year_code, series, number, party_id,
			agent_id, date, net, tax, withholding, surcharge, total, entry_id,
			payment_entry_id, paid, void, rectified_code, observations, source_id,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,NOW(),NOW())
		RETURNING id, created_at, updated_at`,
		inv.Kind, inv.Code, inv.FiscalYearCode, inv.Series, inv.Number, inv.PartyID,
		inv.AgentID, inv.Date, inv.Net, inv.Tax, inv.Withholding, inv.Surcharge,
		inv.Total, inv.EntryID, inv.PaymentEntryID, inv.Paid, inv.Void,
		inv.RectifiedCode, inv.Observations, inv.SourceID,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *pgTxRepository) InsertLine(ctx context.Context, line *InvoiceLine) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO invoice_lines (invoice_id, product_ref, description, quantity,
			unit_price, discount_pct, tax_pct, surcharge_pct, withholding_pct, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW())
		RETURNING id, created_at`,
		line.InvoiceID, line.ProductRef, line.Description, line.Quantity,
		line.UnitPrice, line.DiscountPct, line.TaxPct, line.SurchargePct,
		line.WithholdingPct,
	).Scan(&line.ID, &line.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invoice line: %w", err)
	}
	return nil
}

func (r *pgTxRepository) UpdateHeaderFiscal(ctx context.Context, code, yearCode string, number int64, newCode string, date time.Time) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE invoices
		SET fiscal_year_code = $2, number = $3, code = $4, date = $5, updated_at = NOW()
		WHERE code = $1`, code, yearCode, number, newCode, date)
	if err != nil {
		return fmt.Errorf("update invoice fiscal header: %w", err)
	}
	return nil
}

func (r *pgTxRepository) UpdateEntryRefs(ctx context.Context, code string, entryID, paymentEntryID *int64) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE invoices SET entry_id = $2, payment_entry_id = $3, updated_at = NOW()
		WHERE code = $1`, code, entryID, paymentEntryID)
	if err != nil {
		return fmt.Errorf("update invoice entry refs: %w", err)
	}
	return nil
}

func (r *pgTxRepository) SetPaid(ctx context.Context, code string, paid bool) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE invoices SET paid = $2, updated_at = NOW() WHERE code = $1`, code, paid)
	if err != nil {
		return fmt.Errorf("set invoice paid: %w", err)
	}
	return nil
}

// UnlinkDeliveryNotes detaches every delivery note referencing the invoice
// and returns them to the pending pool.
func (r *pgTxRepository) UnlinkDeliveryNotes(ctx context.Context, invoiceCode string) (int64, error) {
	tag, err := r.tx.Exec(ctx, `
		UPDATE delivery_notes SET invoice_code = NULL, status = 'PENDING', updated_at = NOW()
		WHERE invoice_code = $1`, invoiceCode)
	if err != nil {
		return 0, fmt.Errorf("unlink delivery notes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *pgTxRepository) DeleteReceipts(ctx context.Context, invoiceCode string) error {
	if _, err := r.tx.Exec(ctx,
		`DELETE FROM payment_history WHERE invoice_code = $1`, invoiceCode); err != nil {
		return fmt.Errorf("delete payment history: %w", err)
	}
	if _, err := r.tx.Exec(ctx,
		`DELETE FROM receipts WHERE invoice_code = $1`, invoiceCode); err != nil {
		return fmt.Errorf("delete receipts: %w", err)
	}
	return nil
}

func (r *pgTxRepository) DeleteLines(ctx context.Context, invoiceCode string) error {
	_, err := r.tx.Exec(ctx, `
		DELETE FROM invoice_lines
		WHERE invoice_id = (SELECT id FROM invoices WHERE code = $1)`, invoiceCode)
	if err != nil {
		return fmt.Errorf("delete invoice lines: %w", err)
	}
	return nil
}

func (r *pgTxRepository) Delete(ctx context.Context, code string) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM invoices WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// MoveRefs repoints documents referencing an invoice after its code changed.
func (r *pgTxRepository) MoveRefs(ctx context.Context, oldCode, newCode string) error {
	if _, err := r.tx.Exec(ctx,
		`UPDATE receipts SET invoice_code = $2 WHERE invoice_code = $1`, oldCode, newCode); err != nil {
		return fmt.Errorf("move receipt refs: %w", err)
	}
	if _, err := r.tx.Exec(ctx,
		`UPDATE payment_history SET invoice_code = $2 WHERE invoice_code = $1`, oldCode, newCode); err != nil {
		return fmt.Errorf("move payment history refs: %w", err)
	}
	if _, err := r.tx.Exec(ctx,
		`UPDATE delivery_notes SET invoice_code = $2 WHERE invoice_code = $1`, oldCode, newCode); err != nil {
		return fmt.Errorf("move delivery note refs: %w", err)
	}
	if _, err := r.tx.Exec(ctx,
		`UPDATE journal_entries SET doc_code = $2 WHERE doc_code = $1`, oldCode, newCode); err != nil {
		return fmt.Errorf("move entry doc refs: %w", err)
	}
	if _, err := r.tx.Exec(ctx,
		`UPDATE ledger_lines SET doc_code = $2 WHERE doc_code = $1`, oldCode, newCode); err != nil {
		return fmt.Errorf("move line doc refs: %w", err)
	}
	return nil
}
