package subaccounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
)

// Service handles sub-account lookups and on-demand creation.
type Service struct {
	repo Repository
}

// NewService constructs a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns a sub-account by id.
func (s *Service) Get(ctx context.Context, id int64) (SubAccount, error) {
	return s.repo.Get(ctx, id)
}

// GetByCode returns a sub-account by its code within a fiscal year.
func (s *Service) GetByCode(ctx context.Context, yearCode, code string) (SubAccount, error) {
	return s.repo.GetByCode(ctx, yearCode, code)
}

// ListByYear returns the sub-accounts of one fiscal year ordered by code.
func (s *Service) ListByYear(ctx context.Context, yearCode string) ([]SubAccount, error) {
	return s.repo.ListByYear(ctx, yearCode)
}

// EnsureForParty finds or creates the fiscal-year-specific sub-account for a
// customer or supplier: parent account code padded with the party suffix to
// the year's sub-account length.
func (s *Service) EnsureForParty(ctx context.Context, yearCode, accountCode, partySuffix, description string, codeLength int) (SubAccount, error) {
	code, err := PartyCode(accountCode, partySuffix, codeLength)
	if err != nil {
		return SubAccount{}, err
	}
	sub, err := s.repo.GetByCode(ctx, yearCode, code)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, shared.ErrSubAccountNotFound) {
		return SubAccount{}, err
	}
	return s.repo.Insert(ctx, SubAccount{
		Code:           code,
		FiscalYearCode: yearCode,
		AccountCode:    accountCode,
		Description:    description,
	})
}

// PartyCode pads accountCode with zeroes and appends the party suffix so the
// result is exactly length characters.
func PartyCode(accountCode, partySuffix string, length int) (string, error) {
	if len(accountCode)+len(partySuffix) > length {
		return "", fmt.Errorf("ledger: sub-account code %s%s exceeds length %d", accountCode, partySuffix, length)
	}
	padding := length - len(accountCode) - len(partySuffix)
	return accountCode + strings.Repeat("0", padding) + partySuffix, nil
}
