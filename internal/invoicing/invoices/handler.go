package invoices

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	ledgershared "github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

type lineRequest struct {
	ProductRef     *string `json:"product_ref,omitempty"`
	Description    string  `json:"description" validate:"required,max=255"`
	Quantity       float64 `json:"quantity" validate:"required"`
	UnitPrice      float64 `json:"unit_price"`
	DiscountPct    float64 `json:"discount_pct" validate:"gte=0,lte=100"`
	TaxPct         float64 `json:"tax_pct" validate:"gte=0,lte=100"`
	SurchargePct   float64 `json:"surcharge_pct" validate:"gte=0,lte=100"`
	WithholdingPct float64 `json:"withholding_pct" validate:"gte=0,lte=100"`
}

type createRequest struct {
	Kind         string        `json:"kind" validate:"required,oneof=CUSTOMER SUPPLIER"`
	Series       string        `json:"series" validate:"omitempty,max=10"`
	PartyID      int64         `json:"party_id" validate:"required"`
	AgentID      *int64        `json:"agent_id,omitempty"`
	Date         string        `json:"date" validate:"required,datetime=2006-01-02"`
	Observations string        `json:"observations,omitempty" validate:"max=1000"`
	SourceID     string        `json:"source_id,omitempty" validate:"omitempty,uuid4"`
	Total        float64       `json:"total,omitempty"`
	Lines        []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type postRequest struct {
	PartyAccount       string `json:"party_account" validate:"required"`
	CounterpartAccount string `json:"counterpart_account" validate:"required"`
	TaxAccount         string `json:"tax_account,omitempty"`
	WithholdingAccount string `json:"withholding_account,omitempty"`
}

type changeDateRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	partyID, _ := strconv.ParseInt(r.URL.Query().Get("party_id"), 10, 64)
	out, err := h.service.List(r.Context(), ListFilter{
		Kind:           Kind(r.URL.Query().Get("kind")),
		FiscalYearCode: r.URL.Query().Get("fiscal_year"),
		PartyID:        partyID,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": out})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
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
		Kind:         Kind(req.Kind),
		Series:       req.Series,
		PartyID:      req.PartyID,
		AgentID:      req.AgentID,
		Date:         date,
		Observations: req.Observations,
		Total:        req.Total,
	}
	if req.SourceID != "" {
		input.SourceID, _ = uuid.Parse(req.SourceID)
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, LineInput{
			ProductRef:     line.ProductRef,
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPrice:      line.UnitPrice,
			DiscountPct:    line.DiscountPct,
			TaxPct:         line.TaxPct,
			SurchargePct:   line.SurchargePct,
			WithholdingPct: line.WithholdingPct,
		})
	}
	inv, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create invoice", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.Post(r.Context(), chi.URLParam(r, "code"), PostingAccounts{
		Party:       req.PartyAccount,
		Counterpart: req.CounterpartAccount,
		Tax:         req.TaxAccount,
		Withholding: req.WithholdingAccount,
	})
	if err != nil {
		h.logger.Error("post invoice", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) ChangeDate(w http.ResponseWriter, r *http.Request) {
	var req changeDateRequest
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
	inv, err := h.service.ChangeDate(r.Context(), chi.URLParam(r, "code"), date)
	if err != nil {
		h.logger.Error("change invoice date", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.logger.Error("delete invoice", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	issues, err := h.service.Audit(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"issues": issues, "clean": len(issues) == 0})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, ledgershared.ErrYearNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ledgershared.ErrYearClosed), errors.Is(err, ledgershared.ErrPeriodLocked):
		httpx.RespondError(w, httpx.ErrLocked)
	case errors.Is(err, ErrAlreadyPosted), errors.Is(err, ErrInvoiceVoid):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrTotalMismatch), errors.Is(err, ledgershared.ErrUnbalanced):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
