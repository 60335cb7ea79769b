package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/ledger/fiscalyears"
	"github.com/meridian-erp/meridian-erp/internal/observability"
)

// integrityConcurrency bounds parallel year sweeps against the pool.
const integrityConcurrency = 4

// NewIntegrityHandler sweeps the ledger for entries whose lines no longer
// balance and sub-accounts whose cached totals drifted from their lines.
// Findings are logged and counted; repair stays a manual operation.
func NewIntegrityHandler(logger *slog.Logger, years *fiscalyears.Service, pool *pgxpool.Pool, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload IntegrityPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		codes := payload.FiscalYears
		if len(codes) == 0 {
			all, err := years.List(ctx)
			if err != nil {
				return err
			}
			codes = openYearCodes(all)
		}

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(integrityConcurrency)
		for _, code := range codes {
			code := code
			g.Go(func() error {
				found, err := sweepYear(ctx, pool, code, logger)
				if err != nil {
					return fmt.Errorf("integrity sweep %s: %w", code, err)
				}
				if metrics != nil && found > 0 {
					metrics.IntegrityMismatches.WithLabelValues(code).Add(float64(found))
				}
				return nil
			})
		}
		return g.Wait()
	}
}

// openYearCodes selects the years eligible for a sweep. Closed years are
// immutable, so only open ones can drift.
func openYearCodes(all []fiscalyears.FiscalYear) []string {
	var codes []string
	for _, year := range all {
		if year.IsOpen() {
			codes = append(codes, year.Code)
		}
	}
	return codes
}

func sweepYear(ctx context.Context, pool *pgxpool.Pool, yearCode string, logger *slog.Logger) (int, error) {
	found := 0

	rows, err := pool.Query(ctx, `
		SELECT e.id, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_entries e
		JOIN ledger_lines l ON l.entry_id = e.id
		WHERE e.fiscal_year_code = $1
		GROUP BY e.id
		HAVING ABS(COALESCE(SUM(l.debit), 0) - COALESCE(SUM(l.credit), 0)) > 0.005`, yearCode)
	if err != nil {
		return 0, err
	}
	for rows.Next() {
		var id int64
		var debit, credit float64
		if err := rows.Scan(&id, &debit, &credit); err != nil {
			rows.Close()
			return 0, err
		}
		found++
		logger.Warn("unbalanced journal entry",
			slog.String("fiscal_year", yearCode), slog.Int64("entry", id),
			slog.Float64("debit", debit), slog.Float64("credit", credit))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	rows, err = pool.Query(ctx, `
		SELECT s.id, s.code, s.debit, s.credit,
		       COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM subaccounts s
		LEFT JOIN ledger_lines l ON l.subaccount_id = s.id
		WHERE s.fiscal_year_code = $1
		GROUP BY s.id, s.code, s.debit, s.credit
		HAVING ABS(s.debit - COALESCE(SUM(l.debit), 0)) > 0.005
		    OR ABS(s.credit - COALESCE(SUM(l.credit), 0)) > 0.005`, yearCode)
	if err != nil {
		return found, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var code string
		var cachedDebit, cachedCredit, lineDebit, lineCredit float64
		if err := rows.Scan(&id, &code, &cachedDebit, &cachedCredit, &lineDebit, &lineCredit); err != nil {
			return found, err
		}
		found++
		logger.Warn("sub-account totals drifted",
			slog.String("fiscal_year", yearCode), slog.String("subaccount", code),
			slog.Float64("cached_debit", cachedDebit), slog.Float64("line_debit", lineDebit),
			slog.Float64("cached_credit", cachedCredit), slog.Float64("line_credit", lineCredit))
	}
	return found, rows.Err()
}
