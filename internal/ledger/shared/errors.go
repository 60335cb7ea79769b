package shared

import "errors"

var (
	// ErrUnbalanced indicates debit != credit within tolerance.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrNoLines indicates an entry with no lines.
	ErrNoLines = errors.New("ledger: journal requires at least one line")
	// ErrLineConflict indicates a line carrying both debit and credit.
	ErrLineConflict = errors.New("ledger: line cannot carry both debit and credit")
	// ErrYearNotFound indicates a missing fiscal year.
	ErrYearNotFound = errors.New("ledger: fiscal year not found")
	// ErrYearClosed indicates mutation of a closed fiscal year.
	ErrYearClosed = errors.New("ledger: fiscal year is closed")
	// ErrRangeOverlap indicates fiscal year date ranges intersect.
	ErrRangeOverlap = errors.New("ledger: fiscal year range overlaps existing year")
	// ErrDateOutOfRange indicates the date falls outside the fiscal year.
	ErrDateOutOfRange = errors.New("ledger: date outside fiscal year")
	// ErrPeriodLocked indicates the date falls inside a tax regularization period.
	ErrPeriodLocked = errors.New("ledger: date inside locked regularization period")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrSubAccountNotFound indicates a missing sub-account.
	ErrSubAccountNotFound = errors.New("ledger: sub-account not found")
	// ErrInvalidCurrency indicates an unknown ISO currency code.
	ErrInvalidCurrency = errors.New("ledger: invalid currency code")
	// ErrSourceConflict indicates the source link already exists.
	ErrSourceConflict = errors.New("ledger: source link conflict")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = errors.New("ledger: source already linked")
)
