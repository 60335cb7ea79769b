package regularizations

import "time"

// Period is a tax regularization window. Journal entries dated inside it are
// locked against edits and deletes once the VAT settlement has been posted.
type Period struct {
	ID                  int64
	FiscalYearCode      string
	PeriodCode          string
	StartDate           time.Time
	EndDate             time.Time
	CreditorSubAccount  string
	DebtorSubAccount    string
	EntryID             *int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Contains reports whether date falls inside the period, inclusive.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}
