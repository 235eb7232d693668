package ledger

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-klaim/internal/common"
)

// Handler exposes transaction endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Routes mounts the ledger endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/balance", h.Balance)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List returns all transactions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	txns, err := h.Svc.List(r.Context())
	if err != nil {
		common.WriteError(w, err, ledgerErrors...)
		return
	}
	common.Data(w, http.StatusOK, txns, "")
}

// Get returns one transaction.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err, ledgerErrors...)
		return
	}
	common.Data(w, http.StatusOK, txn, "")
}

// Create stores a new transaction.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !decodeBody(w, r, &in) {
		return
	}
	if err := h.validator().Struct(in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid transaction", common.ValidationDetails(err))
		return
	}
	txn, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err, ledgerErrors...)
		return
	}
	common.Data(w, http.StatusCreated, txn, "")
}

// Update modifies an existing transaction.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var p Patch
	if !decodeBody(w, r, &p) {
		return
	}
	if err := h.validator().Struct(p); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid transaction", common.ValidationDetails(err))
		return
	}
	txn, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		common.WriteError(w, err, ledgerErrors...)
		return
	}
	common.Data(w, http.StatusOK, txn, "")
}

// Delete removes a transaction.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err, ledgerErrors...)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Balance returns the whole-ledger balance summary.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Svc.Balance(r.Context())
	if err != nil {
		common.WriteError(w, err, ledgerErrors...)
		return
	}
	common.Data(w, http.StatusOK, summary, "")
}

func (h *Handler) validator() *validator.Validate {
	if h.Validate != nil {
		return h.Validate
	}
	return defaultValidator
}

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", nil)
		return false
	}
	common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
	return false
}

var ledgerErrors = []common.ErrorMapping{
	{Target: ErrTransactionNotFound, Status: http.StatusNotFound, Code: "TRANSACTION_NOT_FOUND", Message: "transaction not found"},
	{Target: ErrInvalidTransaction, Status: http.StatusBadRequest, Code: "INVALID_TRANSACTION"},
}
