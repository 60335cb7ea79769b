package journals

import (
	"time"

	"github.com/google/uuid"
)

// DocType values link a journal entry back to its source document.
const (
	DocTypeCustomerInvoice = "customer-invoice"
	DocTypeSupplierInvoice = "supplier-invoice"
	DocTypePayment         = "payment"
	DocTypeYearEnd         = "year-end"
)

// JournalEntry is a numbered, balanced accounting transaction.
type JournalEntry struct {
	ID             int64
	Number         int64
	FiscalYearCode string
	Date           time.Time
	Concept        string
	Editable       bool
	DocType        string
	DocCode        string
	SourceID       uuid.UUID
	// Amount is max(|sum debit|, |sum credit|) over the entry's lines.
	Amount    float64
	CreatedAt time.Time
	UpdatedAt time.Time
	Lines     []LedgerLine
}

// LedgerLine is one debit or credit movement against a sub-account. Lines are
// mutated only through their owning entry.
type LedgerLine struct {
	ID                 int64
	EntryID            int64
	SubAccountID       int64
	SubAccountCode     string
	CounterSubAccount  *string
	Debit              float64
	Credit             float64
	Currency           string
	ConversionRate     float64
	DocType            string
	DocCode            string
	TaxID              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// EntryRef is the minimal projection used by the renumbering pass.
type EntryRef struct {
	ID     int64
	Number int64
}
