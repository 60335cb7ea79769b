package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/ledger/fiscalyears"
	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/observability"
)

// NewRenumberHandler compacts journal numbering across open fiscal years.
// Failures are isolated per year so one locked year does not block the rest.
func NewRenumberHandler(logger *slog.Logger, years *fiscalyears.Service, ledger *journals.Service, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RenumberPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		codes := payload.FiscalYears
		if len(codes) == 0 {
			all, err := years.List(ctx)
			if err != nil {
				return err
			}
			for _, year := range all {
				if year.IsOpen() {
					codes = append(codes, year.Code)
				}
			}
		}

		var failed int
		for _, code := range codes {
			err := ledger.Renumber(ctx, code)
			outcome := "ok"
			if err != nil {
				outcome = "error"
				failed++
				logger.Warn("renumber failed", slog.String("fiscal_year", code), slog.Any("error", err))
			}
			if metrics != nil {
				metrics.RenumberRuns.WithLabelValues(code, outcome).Inc()
			}
		}
		logger.Info("renumber sweep finished",
			slog.Int("years", len(codes)), slog.Int("failed", failed))
		return nil
	}
}
