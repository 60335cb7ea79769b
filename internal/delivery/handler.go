package delivery

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/invoicing/invoices"
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
	Code    string  `json:"code" validate:"required,max=30"`
	Kind    string  `json:"kind" validate:"required,oneof=CUSTOMER SUPPLIER"`
	PartyID int64   `json:"party_id" validate:"required"`
	Date    string  `json:"date" validate:"required,datetime=2006-01-02"`
	Total   float64 `json:"total" validate:"gte=0"`
}

type attachRequest struct {
	InvoiceCode string `json:"invoice_code" validate:"required"`
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	partyID, err := strconv.ParseInt(r.URL.Query().Get("party_id"), 10, 64)
	if err != nil || partyID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "party_id query parameter required")
		return
	}
	kind := invoices.Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = invoices.KindCustomer
	}
	notes, err := h.service.ListPendingByParty(r.Context(), kind, partyID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notes": notes})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
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
	note, err := h.service.Create(r.Context(), CreateInput{
		Code:    req.Code,
		Kind:    invoices.Kind(req.Kind),
		PartyID: req.PartyID,
		Date:    date,
		Total:   req.Total,
	})
	if err != nil {
		h.logger.Error("create delivery note", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, note)
}

func (h *Handler) Attach(w http.ResponseWriter, r *http.Request) {
	var req attachRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	note, err := h.service.AttachInvoice(r.Context(), chi.URLParam(r, "code"), req.InvoiceCode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
}

func (h *Handler) Unlink(w http.ResponseWriter, r *http.Request) {
	note, err := h.service.UnlinkInvoice(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, note)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoteNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrAlreadyInvoiced), errors.Is(err, ErrNotInvoiced):
		httpx.RespondError(w, httpx.ErrDuplicate)
	default:
		httpx.RespondError(w, err)
	}
}
