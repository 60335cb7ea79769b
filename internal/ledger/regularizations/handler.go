package regularizations

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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

type createRequest struct {
	FiscalYearCode     string `json:"fiscal_year" validate:"required"`
	PeriodCode         string `json:"period_code" validate:"required,max=10"`
	StartDate          string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string `json:"end_date" validate:"required,datetime=2006-01-02"`
	CreditorSubAccount string `json:"creditor_subaccount" validate:"max=20"`
	DebtorSubAccount   string `json:"debtor_subaccount" validate:"max=20"`
}

func (h *Handler) ListByYear(w http.ResponseWriter, r *http.Request) {
	yearCode := r.URL.Query().Get("fiscal_year")
	if yearCode == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fiscal_year query parameter required")
		return
	}
	periods, err := h.service.ListByYear(r.Context(), yearCode)
	if err != nil {
		h.logger.Error("list regularization periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": periods})
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
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid start date")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid end date")
		return
	}
	period, err := h.service.Create(r.Context(), Period{
		FiscalYearCode:     req.FiscalYearCode,
		PeriodCode:         req.PeriodCode,
		StartDate:          start,
		EndDate:            end,
		CreditorSubAccount: req.CreditorSubAccount,
		DebtorSubAccount:   req.DebtorSubAccount,
	})
	if err != nil {
		h.logger.Error("create regularization period", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid period id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete regularization period", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ListByYear)
	r.Post("/", h.Create)
	r.Delete("/{id}", h.Delete)
}
