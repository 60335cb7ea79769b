package invoices

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind separates customer from supplier invoices. Both share the same shape
// and numbering rules; posting direction differs.
type Kind string

const (
	KindCustomer Kind = "CUSTOMER"
	KindSupplier Kind = "SUPPLIER"
)

var (
	// ErrInvoiceNotFound indicates a missing invoice.
	ErrInvoiceNotFound = errors.New("invoicing: invoice not found")
	// ErrTotalMismatch indicates header totals disagree with their parts.
	ErrTotalMismatch = errors.New("invoicing: total does not match net + tax - withholding + surcharge")
	// ErrAlreadyPosted indicates the invoice already references a journal entry.
	ErrAlreadyPosted = errors.New("invoicing: invoice already posted to ledger")
	// ErrInvoiceVoid indicates a mutation against a voided invoice.
	ErrInvoiceVoid = errors.New("invoicing: invoice is void")
)

// Invoice is the header row of a customer or supplier invoice. The
// (FiscalYearCode, Series, Number) triple is unique per kind.
type Invoice struct {
	ID             int64
	Kind           Kind
	Code           string
	FiscalYearCode string
	Series         string
	Number         int64
	PartyID        int64
	AgentID        *int64
	Date           time.Time
	Net            float64
	Tax            float64
	Withholding    float64
	Surcharge      float64
	Total          float64
	EntryID        *int64
	PaymentEntryID *int64
	Paid           bool
	Void           bool
	RectifiedCode  *string
	Observations   string
	SourceID       uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []InvoiceLine
}

// InvoiceLine carries the per-line amounts header totals derive from.
type InvoiceLine struct {
	ID             int64
	InvoiceID      int64
	ProductRef     *string
	Description    string
	Quantity       float64
	UnitPrice      float64
	DiscountPct    float64
	TaxPct         float64
	SurchargePct   float64
	WithholdingPct float64
	CreatedAt      time.Time
}

// NetAmount returns the line's net after discount.
func (l InvoiceLine) NetAmount() float64 {
	return l.Quantity * l.UnitPrice * (1 - l.DiscountPct/100)
}

// Issue is one finding of the integrity audit. Findings are reported, not
// auto-corrected, except dangling entry references which are cleaned in place.
type Issue struct {
	Kind    string
	Message string
	Context map[string]any
}

// Audit issue kinds.
const (
	IssueTotalsMismatch   = "totals-mismatch"
	IssueEntryMismatch    = "entry-mismatch"
	IssueDuplicateSuspect = "duplicate-suspect"
	IssueDanglingEntry    = "dangling-entry"
)
