package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-erp/meridian-erp/internal/delivery"
	"github.com/meridian-erp/meridian-erp/internal/invoicing/invoices"
	"github.com/meridian-erp/meridian-erp/internal/invoicing/receipts"
	"github.com/meridian-erp/meridian-erp/internal/ledger/fiscalyears"
	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/ledger/regularizations"
	"github.com/meridian-erp/meridian-erp/internal/ledger/subaccounts"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	FiscalYearHandler     *fiscalyears.Handler
	JournalHandler        *journals.Handler
	SubAccountHandler     *subaccounts.Handler
	RegularizationHandler *regularizations.Handler
	InvoiceHandler        *invoices.Handler
	ReceiptHandler        *receipts.Handler
	DeliveryHandler       *delivery.Handler
	JobHandler            *jobs.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.FiscalYearHandler != nil {
		r.Route("/ledger/fiscal-years", params.FiscalYearHandler.MountRoutes)
	}
	if params.JournalHandler != nil {
		r.Route("/ledger/journals", params.JournalHandler.MountRoutes)
	}
	if params.SubAccountHandler != nil {
		r.Route("/ledger/subaccounts", params.SubAccountHandler.MountRoutes)
	}
	if params.RegularizationHandler != nil {
		r.Route("/ledger/regularizations", params.RegularizationHandler.MountRoutes)
	}
	if params.InvoiceHandler != nil {
		r.Route("/invoicing/invoices", params.InvoiceHandler.MountRoutes)
	}
	if params.ReceiptHandler != nil {
		r.Route("/invoicing/receipts", params.ReceiptHandler.MountRoutes)
	}
	if params.DeliveryHandler != nil {
		r.Route("/delivery/notes", params.DeliveryHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
