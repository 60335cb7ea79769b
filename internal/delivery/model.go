package delivery

import (
	"errors"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/invoicing/invoices"
)

// Note statuses.
const (
	StatusPending  = "PENDING"
	StatusInvoiced = "INVOICED"
)

var (
	// ErrNoteNotFound indicates a missing delivery note.
	ErrNoteNotFound = errors.New("delivery: note not found")
	// ErrAlreadyInvoiced indicates an attach against a note already linked.
	ErrAlreadyInvoiced = errors.New("delivery: note already invoiced")
	// ErrNotInvoiced indicates an unlink against a pending note.
	ErrNotInvoiced = errors.New("delivery: note is not invoiced")
)

// Note is a goods movement document awaiting invoicing. A pending note has no
// invoice reference; attaching one flips the status and the invoice delete
// cascade flips it back.
type Note struct {
	ID          int64
	Code        string
	Kind        invoices.Kind
	PartyID     int64
	Date        time.Time
	Total       float64
	InvoiceCode *string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
