package fiscalyears

import "time"

// YearStatus enumerates fiscal year lifecycle values.
type YearStatus string

const (
	YearStatusOpen   YearStatus = "OPEN"
	YearStatusClosed YearStatus = "CLOSED"
)

// FiscalYear bounds the journal entries and invoices of one accounting year.
type FiscalYear struct {
	Code              string
	Name              string
	StartDate         time.Time
	EndDate           time.Time
	Status            YearStatus
	OpeningEntryID    *int64
	ClosingEntryID    *int64
	ProfitLossEntryID *int64
	SubAccountLength  int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsOpen reports whether the year still accepts mutations.
func (y FiscalYear) IsOpen() bool {
	return y.Status == YearStatusOpen
}

// Contains reports whether date falls inside the year's range, inclusive.
func (y FiscalYear) Contains(date time.Time) bool {
	return !date.Before(y.StartDate) && !date.After(y.EndDate)
}

// IsSystemEntry reports whether entryID is the year's opening, closing or
// profit-and-loss entry. System entries stay mutable after close.
func (y FiscalYear) IsSystemEntry(entryID int64) bool {
	for _, ref := range []*int64{y.OpeningEntryID, y.ClosingEntryID, y.ProfitLossEntryID} {
		if ref != nil && *ref == entryID {
			return true
		}
	}
	return false
}
