package billing

import (
	"net/http"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-klaim/internal/commission"
	"github.com/noah-isme/backend-klaim/internal/common"
	"github.com/noah-isme/backend-klaim/internal/pricing"
)

// Handler exposes bill report endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// HospitalReport renders the bill report for ?hospitalId=&dateFrom=&dateTo=.
// Dates are calendar days in the report timezone. ?cached=true accepts a
// report precomputed by the warm-up jobs.
func (h *Handler) HospitalReport(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "BILLING_NOT_CONFIGURED", "billing service not configured", nil)
		return
	}
	query := r.URL.Query()
	filters := Filters{HospitalID: strings.TrimSpace(query.Get("hospitalId"))}
	loc := h.Svc.Builder.Location
	var err error
	if raw := query.Get("dateFrom"); raw != "" {
		if filters.DateFrom, err = common.ParseDateIn(raw, loc); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid dateFrom", nil)
			return
		}
	}
	if raw := query.Get("dateTo"); raw != "" {
		if filters.DateTo, err = common.ParseDateIn(raw, loc); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid dateTo", nil)
			return
		}
	}
	if err := h.validator().Struct(filters); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "hospitalId, dateFrom and dateTo are required", common.ValidationDetails(err))
		return
	}

	generate := h.Svc.GenerateHospitalBillReport
	if cached, _ := strconv.ParseBool(query.Get("cached")); cached {
		generate = h.Svc.CachedHospitalBillReport
	}
	report, err := generate(r.Context(), filters)
	if err != nil {
		common.WriteError(w, err, billingErrors...)
		return
	}
	message := "Hospital bill report generated successfully."
	if len(report.Entries) == 0 {
		message = "No billable entries found for the selected criteria."
	}
	common.Data(w, http.StatusOK, report, message)
}

// Hospitals lists active hospitals that can be billed.
func (h *Handler) Hospitals(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "BILLING_NOT_CONFIGURED", "billing service not configured", nil)
		return
	}
	options, err := h.Svc.BillingHospitals(r.Context())
	if err != nil {
		common.WriteError(w, err, billingErrors...)
		return
	}
	common.Data(w, http.StatusOK, options, "")
}

func (h *Handler) validator() *validator.Validate {
	if h.Validate != nil {
		return h.Validate
	}
	return defaultValidator
}

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

var billingErrors = []common.ErrorMapping{
	{Target: ErrInvalidDateRange, Status: http.StatusBadRequest, Code: "INVALID_DATE_RANGE", Message: "End date cannot be earlier than start date."},
	{Target: ErrHospitalNotFound, Status: http.StatusNotFound, Code: "HOSPITAL_NOT_FOUND", Message: "hospital not found"},
	{Target: pricing.ErrInvalidPricing, Status: http.StatusUnprocessableEntity, Code: "BILLING_DATA_INVALID"},
	{Target: commission.ErrInvalidCommissionPolicy, Status: http.StatusUnprocessableEntity, Code: "BILLING_DATA_INVALID"},
	{Target: commission.ErrNegativeBase, Status: http.StatusUnprocessableEntity, Code: "BILLING_DATA_INVALID"},
	{Target: ErrServiceNotFound, Status: http.StatusUnprocessableEntity, Code: "BILLING_DATA_INVALID"},
	{Target: ErrInvalidRecord, Status: http.StatusUnprocessableEntity, Code: "BILLING_DATA_INVALID"},
}
