package billing_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-klaim/internal/billing"
	"github.com/noah-isme/backend-klaim/internal/cache"
)

type reportResponse struct {
	Data    billing.Report `json:"data"`
	Message string         `json:"message"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newRouter() http.Handler {
	h := &billing.Handler{Svc: &billing.Service{Q: newStub()}}
	r := chi.NewRouter()
	r.Get("/api/v1/bills/hospital", h.HospitalReport)
	r.Get("/api/v1/bills/hospitals", h.Hospitals)
	return r
}

func doGet(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHospitalReportHandler(t *testing.T) {
	router := newRouter()

	t.Run("report", func(t *testing.T) {
		rec := doGet(t, router, "/api/v1/bills/hospital?hospitalId=hosp1&dateFrom=2024-03-01&dateTo=2024-03-31")
		require.Equal(t, http.StatusOK, rec.Code)
		var body reportResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "City General Hospital", body.Data.HospitalName)
		require.Len(t, body.Data.Entries, 2)
		require.True(t, body.Data.Entries[0].CalculatedCommission.Equal(dec("150")))
		require.True(t, body.Data.Summary.TotalNetToHospital.Equal(dec("5700")))
	})

	t.Run("empty", func(t *testing.T) {
		rec := doGet(t, router, "/api/v1/bills/hospital?hospitalId=hosp1&dateFrom=2020-01-01&dateTo=2020-01-31")
		require.Equal(t, http.StatusOK, rec.Code)
		var body reportResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Empty(t, body.Data.Entries)
		require.Equal(t, "No billable entries found for the selected criteria.", body.Message)
	})

	cases := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"missing params", "/api/v1/bills/hospital?hospitalId=hosp1", http.StatusBadRequest, "BAD_REQUEST"},
		{"bad date", "/api/v1/bills/hospital?hospitalId=hosp1&dateFrom=March&dateTo=2024-03-31", http.StatusBadRequest, "BAD_REQUEST"},
		{"reversed range", "/api/v1/bills/hospital?hospitalId=hosp1&dateFrom=2024-03-31&dateTo=2024-03-01", http.StatusBadRequest, "INVALID_DATE_RANGE"},
		{"unknown hospital", "/api/v1/bills/hospital?hospitalId=ghost&dateFrom=2024-03-01&dateTo=2024-03-31", http.StatusNotFound, "HOSPITAL_NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doGet(t, router, tc.target)
			require.Equal(t, tc.status, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestHospitalsHandler(t *testing.T) {
	rec := doGet(t, newRouter(), "/api/v1/bills/hospitals")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []billing.HospitalOption `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	require.Equal(t, "hosp2", body.Data[0].Value)
}

func TestHospitalReportHandlerUsesReportTimezone(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	stub := newStub()
	stub.records = []billing.UsageRecord{
		record("before", "hosp1", "Early Patient", time.Date(2024, 1, 14, 20, 0, 0, 0, est)),
		record("first", "hosp1", "First Day", time.Date(2024, 1, 15, 0, 30, 0, 0, est)),
		record("last", "hosp1", "Last Day", time.Date(2024, 1, 20, 10, 0, 0, 0, est)),
		record("late", "hosp1", "Late Night", time.Date(2024, 1, 20, 23, 59, 0, 0, est)),
		record("after", "hosp1", "Next Day", time.Date(2024, 1, 21, 0, 0, 0, 0, est)),
	}
	h := &billing.Handler{Svc: &billing.Service{Q: stub, Builder: billing.Builder{Location: est}}}
	r := chi.NewRouter()
	r.Get("/api/v1/bills/hospital", h.HospitalReport)

	rec := doGet(t, r, "/api/v1/bills/hospital?hospitalId=hosp1&dateFrom=2024-01-15&dateTo=2024-01-20")
	require.Equal(t, http.StatusOK, rec.Code)
	var body reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "January 15th, 2024", body.Data.DateFrom)
	require.Equal(t, "January 20th, 2024", body.Data.DateTo)
	ids := make([]string, 0, len(body.Data.Entries))
	for _, e := range body.Data.Entries {
		ids = append(ids, e.AdmissionID)
	}
	require.Equal(t, []string{"first", "last", "late"}, ids)
	require.Equal(t, "January 20th, 2024", body.Data.Entries[2].AdmissionDate)
}

func TestHospitalReportHandlerCachedOptIn(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := &billing.Service{Q: newStub(), Cache: cache.NewJSON(client, "klaim", time.Minute)}
	h := &billing.Handler{Svc: svc}
	r := chi.NewRouter()
	r.Get("/api/v1/bills/hospital", h.HospitalReport)

	key := "klaim:" + billing.CacheKey(marchFilters("hosp1"))
	require.NoError(t, mr.Set(key, `{"hospitalName":"Warmed Copy","entries":[]}`))

	rec := doGet(t, r, "/api/v1/bills/hospital?hospitalId=hosp1&dateFrom=2024-03-01&dateTo=2024-03-31")
	require.Equal(t, http.StatusOK, rec.Code)
	var body reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "City General Hospital", body.Data.HospitalName)

	rec = doGet(t, r, "/api/v1/bills/hospital?hospitalId=hosp1&dateFrom=2024-03-01&dateTo=2024-03-31&cached=true")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Warmed Copy", body.Data.HospitalName)
}
