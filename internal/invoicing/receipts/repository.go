package receipts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository exposes receipt reads plus a transactional scope for schedule
// rewrites.
type Repository interface {
	Get(ctx context.Context, id int64) (Receipt, error)
	ListByInvoice(ctx context.Context, invoiceCode string) ([]Receipt, error)
	History(ctx context.Context, invoiceCode string) ([]PaymentEvent, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository groups receipt mutations sharing one transaction.
type TxRepository interface {
	Get(ctx context.Context, id int64) (Receipt, error)
	ListByInvoice(ctx context.Context, invoiceCode string) ([]Receipt, error)
	Insert(ctx context.Context, rec *Receipt) error
	Update(ctx context.Context, rec Receipt) error
	Delete(ctx context.Context, id int64) error
	DeleteUnpaidByInvoice(ctx context.Context, invoiceCode string) error
	RecordEvent(ctx context.Context, ev PaymentEvent) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed receipt repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const receiptColumns = `id, invoice_code, sequence, amount, due_date, paid, paid_date,
	method, bank_account, created_at, updated_at`

func scanReceipt(row pgx.Row) (Receipt, error) {
	var rec Receipt
	err := row.Scan(&rec.ID, &rec.InvoiceCode, &rec.Sequence, &rec.Amount, &rec.DueDate,
		&rec.Paid, &rec.PaidDate, &rec.Method, &rec.BankAccount, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Receipt{}, ErrReceiptNotFound
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("scan receipt: %w", err)
	}
	return rec, nil
}

func getReceipt(ctx context.Context, q db.Querier, id int64) (Receipt, error) {
	return scanReceipt(q.QueryRow(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = $1`, id))
}

func listByInvoice(ctx context.Context, q db.Querier, invoiceCode string) ([]Receipt, error) {
	rows, err := q.Query(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE invoice_code = $1 ORDER BY sequence ASC`, invoiceCode)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()
	var out []Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Receipt, error) {
	return getReceipt(ctx, r.pool, id)
}

func (r *pgRepository) ListByInvoice(ctx context.Context, invoiceCode string) ([]Receipt, error) {
	return listByInvoice(ctx, r.pool, invoiceCode)
}

func (r *pgRepository) History(ctx context.Context, invoiceCode string) ([]PaymentEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, receipt_id, invoice_code, amount, event, occurred_at
		FROM payment_history WHERE invoice_code = $1 ORDER BY occurred_at ASC, id ASC`, invoiceCode)
	if err != nil {
		return nil, fmt.Errorf("list payment history: %w", err)
	}
	defer rows.Close()
	var out []PaymentEvent
	for rows.Next() {
		var ev PaymentEvent
		if err := rows.Scan(&ev.ID, &ev.ReceiptID, &ev.InvoiceCode, &ev.Amount, &ev.Event, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan payment event: %w", err)
		}
		out = append(out, ev)
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

func (r *pgTxRepository) Get(ctx context.Context, id int64) (Receipt, error) {
	return getReceipt(ctx, r.tx, id)
}

func (r *pgTxRepository) ListByInvoice(ctx context.Context, invoiceCode string) ([]Receipt, error) {
	return listByInvoice(ctx, r.tx, invoiceCode)
}

func (r *pgTxRepository) Insert(ctx context.Context, rec *Receipt) error {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO receipts (invoice_code, sequence, amount, due_date, paid, paid_date,
			method, bank_account, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
		RETURNING id, created_at, updated_at`,
		rec.InvoiceCode, rec.Sequence, rec.Amount, rec.DueDate, rec.Paid, rec.PaidDate,
		rec.Method, rec.BankAccount,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

func (r *pgTxRepository) Update(ctx context.Context, rec Receipt) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE receipts
		SET amount = $2, due_date = $3, paid = $4, paid_date = $5, method = $6,
		    bank_account = $7, updated_at = NOW()
		WHERE id = $1`,
		rec.ID, rec.Amount, rec.DueDate, rec.Paid, rec.PaidDate, rec.Method, rec.BankAccount)
	if err != nil {
		return fmt.Errorf("update receipt: %w", err)
	}
	return nil
}

func (r *pgTxRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM receipts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	return nil
}

func (r *pgTxRepository) DeleteUnpaidByInvoice(ctx context.Context, invoiceCode string) error {
	_, err := r.tx.Exec(ctx,
		`DELETE FROM receipts WHERE invoice_code = $1 AND paid = FALSE`, invoiceCode)
	if err != nil {
		return fmt.Errorf("delete unpaid receipts: %w", err)
	}
	return nil
}

func (r *pgTxRepository) RecordEvent(ctx context.Context, ev PaymentEvent) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO payment_history (receipt_id, invoice_code, amount, event, occurred_at)
		VALUES ($1,$2,$3,$4,$5)`,
		ev.ReceiptID, ev.InvoiceCode, ev.Amount, ev.Event, ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("record payment event: %w", err)
	}
	return nil
}
