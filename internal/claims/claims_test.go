package claims_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/claims"
)

type stubQueries struct {
	claims []claims.Claim
	names  map[string]string
}

func (s *stubQueries) ListClaims(_ context.Context, hospitalID string) ([]claims.Claim, error) {
	out := make([]claims.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		if hospitalID == "" || c.HospitalID == hospitalID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubQueries) HospitalNames(context.Context) (map[string]string, error) {
	return s.names, nil
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func newStub() *stubQueries {
	return &stubQueries{
		names: map[string]string{"hosp1": "City General Hospital", "hosp2": "Apollo Clinic"},
		claims: []claims.Claim{
			{ReferenceNo: "REF001", HospitalID: "hosp1", ClaimNumber: "12345", Stage: "Settled", StatusDate: date(2023, 10, 15), PatientName: "Alice Johnson"},
			{ReferenceNo: "REF005", HospitalID: "hosp1", PolicyNumber: "POL123XYZ", Stage: "Denied", StatusDate: date(2023, 10, 25), PatientName: "Carol White"},
			{ReferenceNo: "REF003", HospitalID: "hosp1", ClaimNumber: "10001", Stage: "Admitted", StatusDate: date(2023, 9, 20), PatientName: "John Doe"},
			{ReferenceNo: "REF002", HospitalID: "hosp2", ClaimNumber: "20001", PolicyNumber: "POL9876", Stage: "Submitted", StatusDate: date(2023, 11, 1), PatientName: "Bob Williams"},
			{ReferenceNo: "REF099", HospitalID: "hosp9", ClaimNumber: "99999", Stage: "Submitted", StatusDate: date(2023, 11, 30)},
		},
	}
}

func TestLookupPrecedence(t *testing.T) {
	svc := &claims.Service{Q: newStub()}
	ctx := context.Background()

	c, err := svc.Lookup(ctx, claims.SearchParams{HospitalID: "hosp1", ClaimNumber: "10001", PatientName: "alice"})
	require.NoError(t, err)
	require.Equal(t, "REF003", c.ReferenceNo)
	require.Equal(t, "City General Hospital", c.HospitalName)

	c, err = svc.Lookup(ctx, claims.SearchParams{HospitalID: "hosp1", PolicyNumber: "POL123XYZ"})
	require.NoError(t, err)
	require.Equal(t, "REF005", c.ReferenceNo)

	c, err = svc.Lookup(ctx, claims.SearchParams{HospitalID: "hosp1", PatientName: "DOE"})
	require.NoError(t, err)
	require.Equal(t, "REF003", c.ReferenceNo)
}

func TestLookupScopedToHospital(t *testing.T) {
	svc := &claims.Service{Q: newStub()}
	_, err := svc.Lookup(context.Background(), claims.SearchParams{HospitalID: "hosp2", ClaimNumber: "12345"})
	require.ErrorIs(t, err, claims.ErrClaimNotFound)
}

func TestLookupRequiresCriteria(t *testing.T) {
	svc := &claims.Service{Q: newStub()}
	_, err := svc.Lookup(context.Background(), claims.SearchParams{HospitalID: "hosp1"})
	require.ErrorIs(t, err, claims.ErrInvalidSearch)
	_, err = svc.Lookup(context.Background(), claims.SearchParams{ClaimNumber: "12345"})
	require.ErrorIs(t, err, claims.ErrInvalidSearch)
}

func TestTotalClaimsReport(t *testing.T) {
	svc := &claims.Service{Q: newStub()}
	ctx := context.Background()

	all, err := svc.TotalClaimsReport(ctx, claims.ReportFilters{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, "N/A", all[0].PolicyNumber)
	require.Equal(t, "N/A", all[1].ClaimNumber)
	require.Equal(t, "October 15th, 2023", all[0].AdmissionDate)
	require.Equal(t, "Unknown Hospital", all[4].HospitalName)
	require.Equal(t, "N/A", all[4].PatientName)

	hosp1, err := svc.TotalClaimsReport(ctx, claims.ReportFilters{HospitalID: "hosp1", DateFrom: date(2023, 10, 1), DateTo: date(2023, 10, 25)})
	require.NoError(t, err)
	require.Len(t, hosp1, 2)
	require.Equal(t, "REF005", hosp1[1].ID)

	_, err = svc.TotalClaimsReport(ctx, claims.ReportFilters{DateFrom: date(2023, 10, 25), DateTo: date(2023, 10, 1)})
	require.ErrorIs(t, err, billing.ErrInvalidDateRange)
}

func TestStatusHandler(t *testing.T) {
	h := &claims.Handler{Svc: &claims.Service{Q: newStub()}}

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/claims/status?hospitalId=hosp2&policyNumber=POL9876", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data claims.Claim `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Apollo Clinic", body.Data.HospitalName)
	require.Equal(t, "Submitted", body.Data.Stage)

	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/claims/status?hospitalId=hosp2&claimNumber=nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/claims/status?claimNumber=12345", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportHandler(t *testing.T) {
	h := &claims.Handler{Svc: &claims.Service{Q: newStub()}}

	rec := httptest.NewRecorder()
	h.Report(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/claims?hospitalId=hosp1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []claims.ReportItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 3)

	rec = httptest.NewRecorder()
	h.Report(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/claims?dateFrom=2024-02-01&dateTo=2024-01-01", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_DATE_RANGE")
}

func TestReportHandlerUsesReportTimezone(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	stub := &stubQueries{
		names: map[string]string{"hosp1": "City General Hospital"},
		claims: []claims.Claim{
			{ReferenceNo: "REF010", HospitalID: "hosp1", ClaimNumber: "1", Stage: "Submitted", StatusDate: time.Date(2023, 10, 24, 23, 30, 0, 0, est)},
			{ReferenceNo: "REF011", HospitalID: "hosp1", ClaimNumber: "2", Stage: "Submitted", StatusDate: time.Date(2023, 10, 25, 22, 0, 0, 0, est)},
			{ReferenceNo: "REF012", HospitalID: "hosp1", ClaimNumber: "3", Stage: "Submitted", StatusDate: time.Date(2023, 10, 26, 0, 30, 0, 0, est)},
		},
	}
	h := &claims.Handler{Svc: &claims.Service{Q: stub, Location: est}}

	rec := httptest.NewRecorder()
	h.Report(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/claims?hospitalId=hosp1&dateFrom=2023-10-25&dateTo=2023-10-25", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []claims.ReportItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "REF011", body.Data[0].ID)
	require.Equal(t, "October 25th, 2023", body.Data[0].AdmissionDate)
}
