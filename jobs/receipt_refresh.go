package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/invoicing/invoices"
	"github.com/meridian-erp/meridian-erp/internal/invoicing/receipts"
)

// NewReceiptRefreshHandler reconciles invoice paid flags with their receipt
// schedules. Targeted at one invoice when the payload names it, otherwise a
// full sweep over unpaid invoices.
func NewReceiptRefreshHandler(logger *slog.Logger, invoiceSvc *invoices.Service, receiptSvc *receipts.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReceiptRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		if payload.InvoiceCode != "" {
			return receiptSvc.Refresh(ctx, payload.InvoiceCode)
		}

		all, err := invoiceSvc.List(ctx, invoices.ListFilter{})
		if err != nil {
			return err
		}
		var failed int
		for _, inv := range all {
			if inv.Paid || inv.Void {
				continue
			}
			if err := receiptSvc.Refresh(ctx, inv.Code); err != nil {
				failed++
				logger.Warn("receipt refresh failed", slog.String("invoice", inv.Code), slog.Any("error", err))
			}
		}
		logger.Info("receipt refresh sweep finished", slog.Int("invoices", len(all)), slog.Int("failed", failed))
		return nil
	}
}
