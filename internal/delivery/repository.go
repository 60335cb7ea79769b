package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/invoicing/invoices"
)

// Repository exposes delivery note persistence.
type Repository interface {
	Get(ctx context.Context, code string) (Note, error)
	ListPendingByParty(ctx context.Context, kind invoices.Kind, partyID int64) ([]Note, error)
	ListByInvoice(ctx context.Context, invoiceCode string) ([]Note, error)
	Insert(ctx context.Context, note *Note) error
	SetInvoice(ctx context.Context, code string, invoiceCode *string, status string) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the Postgres-backed delivery note repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const noteColumns = `id, code, kind, party_id, date, total, invoice_code, status, created_at, updated_at`

func scanNote(row pgx.Row) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.Code, &n.Kind, &n.PartyID, &n.Date, &n.Total,
		&n.InvoiceCode, &n.Status, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNoteNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("scan delivery note: %w", err)
	}
	return n, nil
}

func (r *pgRepository) Get(ctx context.Context, code string) (Note, error) {
	return scanNote(r.pool.QueryRow(ctx,
		`SELECT `+noteColumns+` FROM delivery_notes WHERE code = $1`, code))
}

func (r *pgRepository) ListPendingByParty(ctx context.Context, kind invoices.Kind, partyID int64) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+noteColumns+` FROM delivery_notes
		WHERE kind = $1 AND party_id = $2 AND status = 'PENDING'
		ORDER BY date ASC, id ASC`, kind, partyID)
	if err != nil {
		return nil, fmt.Errorf("list pending delivery notes: %w", err)
	}
	return collectNotes(rows)
}

func (r *pgRepository) ListByInvoice(ctx context.Context, invoiceCode string) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+noteColumns+` FROM delivery_notes
		WHERE invoice_code = $1 ORDER BY date ASC, id ASC`, invoiceCode)
	if err != nil {
		return nil, fmt.Errorf("list delivery notes by invoice: %w", err)
	}
	return collectNotes(rows)
}

func collectNotes(rows pgx.Rows) ([]Note, error) {
	defer rows.Close()
	var out []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *pgRepository) Insert(ctx context.Context, note *Note) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO delivery_notes (code, kind, party_id, date, total, invoice_code, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
		RETURNING id, created_at, updated_at`,
		note.Code, note.Kind, note.PartyID, note.Date, note.Total, note.InvoiceCode, note.Status,
	).Scan(&note.ID, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery note: %w", err)
	}
	return nil
}

func (r *pgRepository) SetInvoice(ctx context.Context, code string, invoiceCode *string, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE delivery_notes SET invoice_code = $2, status = $3, updated_at = NOW()
		WHERE code = $1`, code, invoiceCode, status)
	if err != nil {
		return fmt.Errorf("set delivery note invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}
