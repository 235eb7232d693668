package claims

import (
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/common"
)

// Handler exposes claim status and claim report endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Status looks up a claim by ?hospitalId= and one of claimNumber, policyNumber or patientName.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := SearchParams{
		HospitalID:   strings.TrimSpace(q.Get("hospitalId")),
		ClaimNumber:  q.Get("claimNumber"),
		PolicyNumber: q.Get("policyNumber"),
		PatientName:  q.Get("patientName"),
	}
	if err := h.validator().Struct(params); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "hospitalId is required", common.ValidationDetails(err))
		return
	}
	claim, err := h.Svc.Lookup(r.Context(), params)
	if err != nil {
		common.WriteError(w, err, claimsErrors...)
		return
	}
	common.Data(w, http.StatusOK, claim, "")
}

// Report renders the total-claims report for the optional hospitalId, dateFrom and dateTo filters.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ReportFilters{HospitalID: q.Get("hospitalId")}
	loc := h.Svc.location()
	var err error
	if raw := q.Get("dateFrom"); raw != "" {
		if filters.DateFrom, err = common.ParseDateIn(raw, loc); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid dateFrom", nil)
			return
		}
	}
	if raw := q.Get("dateTo"); raw != "" {
		if filters.DateTo, err = common.ParseDateIn(raw, loc); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid dateTo", nil)
			return
		}
	}
	items, err := h.Svc.TotalClaimsReport(r.Context(), filters)
	if err != nil {
		common.WriteError(w, err, claimsErrors...)
		return
	}
	common.Data(w, http.StatusOK, items, "")
}

func (h *Handler) validator() *validator.Validate {
	if h.Validate != nil {
		return h.Validate
	}
	return defaultValidator
}

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

var claimsErrors = []common.ErrorMapping{
	{Target: ErrClaimNotFound, Status: http.StatusNotFound, Code: "CLAIM_NOT_FOUND", Message: "No claim found matching the provided details."},
	{Target: ErrInvalidSearch, Status: http.StatusBadRequest, Code: "BAD_REQUEST"},
	{Target: billing.ErrInvalidDateRange, Status: http.StatusBadRequest, Code: "INVALID_DATE_RANGE", Message: "End date cannot be earlier than start date."},
}
