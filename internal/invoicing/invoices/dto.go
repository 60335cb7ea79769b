package invoices

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// LineInput is one invoice line as submitted by a caller.
type LineInput struct {
	ProductRef     *string
	Description    string
	Quantity       float64
	UnitPrice      float64
	DiscountPct    float64
	TaxPct         float64
	SurchargePct   float64
	WithholdingPct float64
}

// CreateInput is the payload for creating an invoice. Header totals are
// always recomputed from the lines; a non-zero Total is checked against the
// recomputed value and rejected when it disagrees beyond the money tolerance.
type CreateInput struct {
	Kind         Kind
	Series       string
	PartyID      int64
	AgentID      *int64
	Date         time.Time
	Observations string
	SourceID     uuid.UUID
	Total        float64
	Lines        []LineInput
}

// Totals holds the derived header amounts of an invoice.
type Totals struct {
	Net         float64
	Tax         float64
	Withholding float64
	Surcharge   float64
	Total       float64
}

// ComputeTotals derives header totals from the lines, rounded to cents.
func ComputeTotals(lines []LineInput) Totals {
	var t Totals
	for _, l := range lines {
		net := ledgershared.Round(l.Quantity * l.UnitPrice * (1 - l.DiscountPct/100))
		t.Net += net
		t.Tax += ledgershared.Round(net * l.TaxPct / 100)
		t.Surcharge += ledgershared.Round(net * l.SurchargePct / 100)
		t.Withholding += ledgershared.Round(net * l.WithholdingPct / 100)
	}
	t.Net = ledgershared.Round(t.Net)
	t.Tax = ledgershared.Round(t.Tax)
	t.Surcharge = ledgershared.Round(t.Surcharge)
	t.Withholding = ledgershared.Round(t.Withholding)
	t.Total = ledgershared.Round(t.Net + t.Tax - t.Withholding + t.Surcharge)
	return t
}

// Validate normalizes the input and derives totals.
func (in *CreateInput) Validate() (Totals, error) {
	if in.Kind != KindCustomer && in.Kind != KindSupplier {
		return Totals{}, errors.New("invoicing: kind must be CUSTOMER or SUPPLIER")
	}
	if in.PartyID == 0 {
		return Totals{}, errors.New("invoicing: party is required")
	}
	if in.Date.IsZero() {
		return Totals{}, errors.New("invoicing: date is required")
	}
	if len(in.Lines) == 0 {
		return Totals{}, errors.New("invoicing: at least one line is required")
	}
	in.Series = strings.ToUpper(strings.TrimSpace(in.Series))
	if in.Series == "" {
		in.Series = "A"
	}
	totals := ComputeTotals(in.Lines)
	if in.Total != 0 && !ledgershared.WithinTolerance(in.Total-totals.Total, ledgershared.Tolerance) {
		return Totals{}, ErrTotalMismatch
	}
	return totals, nil
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	Kind           Kind
	FiscalYearCode string
	PartyID        int64
	Limit          int
	Offset         int
}
