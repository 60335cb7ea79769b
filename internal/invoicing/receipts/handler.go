package receipts

import (
	"errors"
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

type generateRequest struct {
	InvoiceCode  string  `json:"invoice_code" validate:"required"`
	Total        float64 `json:"total" validate:"required,gt=0"`
	FirstDue     string  `json:"first_due" validate:"required,datetime=2006-01-02"`
	Installments int     `json:"installments" validate:"required,min=1,max=120"`
}

type markPaidRequest struct {
	PaidDate    string `json:"paid_date" validate:"omitempty,datetime=2006-01-02"`
	Method      string `json:"method,omitempty" validate:"max=50"`
	BankAccount string `json:"bank_account,omitempty" validate:"max=50"`
}

type updateRequest struct {
	Amount      float64 `json:"amount" validate:"omitempty,gt=0"`
	DueDate     string  `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Method      string  `json:"method,omitempty" validate:"max=50"`
	BankAccount string  `json:"bank_account,omitempty" validate:"max=50"`
}

func (h *Handler) ListByInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceCode := r.URL.Query().Get("invoice")
	if invoiceCode == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invoice query parameter required")
		return
	}
	recs, err := h.service.ListByInvoice(r.Context(), invoiceCode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"receipts": recs})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	invoiceCode := r.URL.Query().Get("invoice")
	if invoiceCode == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invoice query parameter required")
		return
	}
	events, err := h.service.History(r.Context(), invoiceCode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	due, err := time.Parse("2006-01-02", req.FirstDue)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid first due date")
		return
	}
	if err := h.service.GenerateForInvoice(r.Context(), req.InvoiceCode, req.Total, due, req.Installments); err != nil {
		h.logger.Error("generate receipts", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	recs, err := h.service.ListByInvoice(r.Context(), req.InvoiceCode)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"receipts": recs})
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	var req markPaidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	when := time.Now()
	if req.PaidDate != "" {
		when, _ = time.Parse("2006-01-02", req.PaidDate)
	}
	rec, err := h.service.MarkPaid(r.Context(), id, when, req.Method, req.BankAccount)
	if err != nil {
		h.logger.Error("mark receipt paid", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	in := UpdateInput{Amount: req.Amount, Method: req.Method, BankAccount: req.BankAccount}
	if req.DueDate != "" {
		in.DueDate, _ = time.Parse("2006-01-02", req.DueDate)
	}
	rec, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid receipt id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrReceiptNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrReceiptPaid):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, ErrNoInstallments):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
