package subaccounts

import "time"

// SubAccount is the finest-grained ledger account, scoped to one fiscal year.
// Debit, Credit and Balance are cached aggregates over its ledger lines and
// are recomputed synchronously on every line mutation.
type SubAccount struct {
	ID             int64
	Code           string
	FiscalYearCode string
	AccountCode    string
	Description    string
	Currency       string
	TaxCode        string
	Debit          float64
	Credit         float64
	Balance        float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
