package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerRenumber compacts journal entry numbers of open fiscal years.
	TaskLedgerRenumber = "ledger:renumber"
	// TaskLedgerIntegrity sweeps the ledger for balance and cache drift.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskReceiptRefresh reconciles invoice paid flags with their schedules.
	TaskReceiptRefresh = "invoicing:receipt_refresh"
)

// RenumberPayload narrows a renumber run to specific years. Empty means every
// open year.
type RenumberPayload struct {
	FiscalYears []string `json:"fiscal_years,omitempty"`
}

// NewRenumberTask constructs a renumber task.
func NewRenumberTask(payload RenumberPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerRenumber, data), nil
}

// IntegrityPayload narrows an integrity sweep to specific years.
type IntegrityPayload struct {
	FiscalYears []string `json:"fiscal_years,omitempty"`
}

// NewIntegrityTask constructs an integrity sweep task.
func NewIntegrityTask(payload IntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// ReceiptRefreshPayload narrows a refresh to one invoice. Empty means every
// unpaid invoice.
type ReceiptRefreshPayload struct {
	InvoiceCode string `json:"invoice_code,omitempty"`
}

// NewReceiptRefreshTask constructs a receipt refresh task.
func NewReceiptRefreshTask(payload ReceiptRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceiptRefresh, data), nil
}
