package fiscalyears

import (
	"errors"
	"strings"
	"time"
)

const defaultSubAccountLength = 10

// CreateInput groups fields required to open a fiscal year.
type CreateInput struct {
	Code             string
	Name             string
	StartDate        time.Time
	EndDate          time.Time
	SubAccountLength int
}

// Validate ensures the input describes a coherent year.
func (in *CreateInput) Validate() error {
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("ledger: fiscal year code required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return errors.New("ledger: start and end date required")
	}
	if in.StartDate.After(in.EndDate) {
		return errors.New("ledger: start date cannot be after end date")
	}
	if in.SubAccountLength <= 0 {
		in.SubAccountLength = defaultSubAccountLength
	}
	if in.Name == "" {
		in.Name = in.Code
	}
	return nil
}
