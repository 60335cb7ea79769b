package delivery

import (
	"context"
	"strings"
	"time"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"

	"github.com/meridian-erp/meridian-erp/internal/invoicing/invoices"
)

// Service manages delivery notes and their linkage to invoices.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the delivery note service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns one note.
func (s *Service) Get(ctx context.Context, code string) (Note, error) {
	return s.repo.Get(ctx, code)
}

// ListPendingByParty returns a party's uninvoiced notes oldest first, the
// order invoicing consumes them in.
func (s *Service) ListPendingByParty(ctx context.Context, kind invoices.Kind, partyID int64) ([]Note, error) {
	return s.repo.ListPendingByParty(ctx, kind, partyID)
}

// ListByInvoice returns the notes consumed by an invoice.
func (s *Service) ListByInvoice(ctx context.Context, invoiceCode string) ([]Note, error) {
	return s.repo.ListByInvoice(ctx, invoiceCode)
}

// CreateInput carries the fields of a new delivery note.
type CreateInput struct {
	Code    string
	Kind    invoices.Kind
	PartyID int64
	Date    time.Time
	Total   float64
}

// Create registers a pending note.
func (s *Service) Create(ctx context.Context, in CreateInput) (Note, error) {
	note := Note{
		Code:    strings.ToUpper(strings.TrimSpace(in.Code)),
		Kind:    in.Kind,
		PartyID: in.PartyID,
		Date:    in.Date,
		Total:   ledgershared.Round(in.Total),
		Status:  StatusPending,
	}
	if err := s.repo.Insert(ctx, &note); err != nil {
		return Note{}, err
	}
	return note, nil
}

// AttachInvoice links a pending note to an invoice.
func (s *Service) AttachInvoice(ctx context.Context, noteCode, invoiceCode string) (Note, error) {
	note, err := s.repo.Get(ctx, noteCode)
	if err != nil {
		return Note{}, err
	}
	if note.Status == StatusInvoiced {
		return Note{}, ErrAlreadyInvoiced
	}
	if err := s.repo.SetInvoice(ctx, noteCode, &invoiceCode, StatusInvoiced); err != nil {
		return Note{}, err
	}
	note.InvoiceCode = &invoiceCode
	note.Status = StatusInvoiced
	return note, nil
}

// UnlinkInvoice returns an invoiced note to the pending pool.
func (s *Service) UnlinkInvoice(ctx context.Context, noteCode string) (Note, error) {
	note, err := s.repo.Get(ctx, noteCode)
	if err != nil {
		return Note{}, err
	}
	if note.Status != StatusInvoiced {
		return Note{}, ErrNotInvoiced
	}
	if err := s.repo.SetInvoice(ctx, noteCode, nil, StatusPending); err != nil {
		return Note{}, err
	}
	note.InvoiceCode = nil
	note.Status = StatusPending
	return note, nil
}
