package journals

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// WithMetrics enables ledger counters on mutating endpoints.
func (h *Handler) WithMetrics(m *observability.Metrics) *Handler {
	h.metrics = m
	return h
}

type lineRequest struct {
	SubAccountCode    string  `json:"subaccount_code" validate:"required"`
	CounterSubAccount *string `json:"counter_subaccount_code,omitempty"`
	Debit             float64 `json:"debit"`
	Credit            float64 `json:"credit"`
	Currency          string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	ConversionRate    float64 `json:"conversion_rate,omitempty"`
	DocType           string  `json:"doc_type,omitempty"`
	DocCode           string  `json:"doc_code,omitempty"`
	TaxID             string  `json:"tax_id,omitempty"`
}

type createRequest struct {
	FiscalYearCode string        `json:"fiscal_year" validate:"required"`
	Date           string        `json:"date" validate:"required,datetime=2006-01-02"`
	Concept        string        `json:"concept" validate:"required,max=255"`
	DocType        string        `json:"doc_type,omitempty"`
	DocCode        string        `json:"doc_code,omitempty"`
	SourceID       string        `json:"source_id,omitempty" validate:"omitempty,uuid4"`
	Lines          []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	entries, err := h.service.List(r.Context(), ListFilter{
		FiscalYearCode: r.URL.Query().Get("fiscal_year"),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		h.logger.Error("list journal entries", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid date")
		return
	}
	input := CreateInput{
		FiscalYearCode: req.FiscalYearCode,
		Date:           date,
		Concept:        req.Concept,
		DocType:        req.DocType,
		DocCode:        req.DocCode,
	}
	if req.SourceID != "" {
		input.SourceID, _ = uuid.Parse(req.SourceID)
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			SubAccountCode:    line.SubAccountCode,
			CounterSubAccount: line.CounterSubAccount,
			Debit:             line.Debit,
			Credit:            line.Credit,
			Currency:          line.Currency,
			ConversionRate:    line.ConversionRate,
			DocType:           line.DocType,
			DocCode:           line.DocCode,
			TaxID:             line.TaxID,
		})
	}
	entry, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create journal entry", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	if h.metrics != nil {
		docType := entry.DocType
		if docType == "" {
			docType = "manual"
		}
		h.metrics.EntriesCreated.WithLabelValues(docType).Inc()
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Fix(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.Fix(r.Context(), id)
	if err != nil {
		h.logger.Warn("fix journal entry", slog.Int64("entry", id), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.EntriesFixed.Inc()
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Warn("delete journal entry", slog.Int64("entry", id), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Renumber(w http.ResponseWriter, r *http.Request) {
	yearCode := chi.URLParam(r, "year")
	if err := h.service.Renumber(r.Context(), yearCode); err != nil {
		h.logger.Error("renumber fiscal year", slog.String("year", yearCode), slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"fiscal_year": yearCode, "status": "renumbered"})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrEntryNotFound),
		errors.Is(err, shared.ErrYearNotFound),
		errors.Is(err, shared.ErrSubAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrPeriodLocked), errors.Is(err, shared.ErrYearClosed):
		httpx.Problem(w, http.StatusLocked, "Locked", err.Error())
	case errors.Is(err, shared.ErrSourceAlreadyLinked):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrNoLines),
		errors.Is(err, shared.ErrLineConflict),
		errors.Is(err, shared.ErrDateOutOfRange),
		errors.Is(err, shared.ErrInvalidCurrency):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
