package subaccounts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
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

type ensurePartyRequest struct {
	FiscalYearCode string `json:"fiscal_year" validate:"required"`
	AccountCode    string `json:"account_code" validate:"required,max=10"`
	PartySuffix    string `json:"party_suffix" validate:"required,max=6"`
	Description    string `json:"description" validate:"max=255"`
	CodeLength     int    `json:"code_length" validate:"required,min=4,max=20"`
}

func (h *Handler) ListByYear(w http.ResponseWriter, r *http.Request) {
	yearCode := r.URL.Query().Get("fiscal_year")
	if yearCode == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fiscal_year query parameter required")
		return
	}
	subs, err := h.service.ListByYear(r.Context(), yearCode)
	if err != nil {
		h.logger.Error("list sub-accounts", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"subaccounts": subs})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	yearCode := r.URL.Query().Get("fiscal_year")
	if yearCode == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "fiscal_year query parameter required")
		return
	}
	sub, err := h.service.GetByCode(r.Context(), yearCode, chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

func (h *Handler) EnsureParty(w http.ResponseWriter, r *http.Request) {
	var req ensurePartyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sub, err := h.service.EnsureForParty(r.Context(), req.FiscalYearCode, req.AccountCode, req.PartySuffix, req.Description, req.CodeLength)
	if err != nil {
		h.logger.Error("ensure party sub-account", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sub)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrSubAccountNotFound), errors.Is(err, shared.ErrYearNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	default:
		httpx.RespondError(w, err)
	}
}
