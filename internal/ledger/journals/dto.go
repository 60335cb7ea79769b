package journals

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/currency"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// LineInput describes one ledger line for a creation request.
type LineInput struct {
	SubAccountCode    string
	CounterSubAccount *string
	Debit             float64
	Credit            float64
	Currency          string
	ConversionRate    float64
	DocType           string
	DocCode           string
	TaxID             string
}

// CreateInput groups fields required to create a journal entry.
type CreateInput struct {
	FiscalYearCode string
	Date           time.Time
	Concept        string
	DocType        string
	DocCode        string
	SourceID       uuid.UUID
	// Override bypasses the regularization lock. Reserved for the year-end
	// routine posting opening/closing entries into settled ranges.
	Override bool
	Lines    []LineInput
}

// Validate checks structural rules: at least one line, no line carrying both
// debit and credit, known currency codes, and the balance invariant within
// the ledger tolerance.
func (in *CreateInput) Validate() error {
	if in.FiscalYearCode == "" {
		return errors.New("ledger: fiscal year required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: date required")
	}
	if len(in.Lines) == 0 {
		return shared.ErrNoLines
	}
	var debit, credit float64
	for idx := range in.Lines {
		line := &in.Lines[idx]
		if line.SubAccountCode == "" {
			return fmt.Errorf("ledger: line %d missing sub-account", idx)
		}
		if line.Debit != 0 && line.Credit != 0 {
			return fmt.Errorf("ledger: line %d: %w", idx, shared.ErrLineConflict)
		}
		if line.Currency != "" {
			if _, err := currency.ParseISO(line.Currency); err != nil {
				return fmt.Errorf("ledger: line %d: %w", idx, shared.ErrInvalidCurrency)
			}
		}
		if line.ConversionRate == 0 {
			line.ConversionRate = 1
		}
		debit += line.Debit
		credit += line.Credit
	}
	if !shared.Balanced(shared.Round(debit), shared.Round(credit)) {
		return shared.ErrUnbalanced
	}
	return nil
}

// ListFilter narrows entry listings.
type ListFilter struct {
	FiscalYearCode string
	Limit          int
	Offset         int
}
