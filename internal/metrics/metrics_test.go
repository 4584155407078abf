package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentHandler_labelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.InstrumentHandler)
	r.Get("/api/temples/{id}/poojas", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/temples/"+id+"/poojas", nil))
		require.Equal(t, http.StatusTeapot, rec.Code)
	}

	got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/temples/{id}/poojas", "418"))
	assert.Equal(t, 2.0, got)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
}

func TestRecordOnboarding_outcomes(t *testing.T) {
	m := New()
	m.RecordOnboarding("create", nil)
	m.RecordOnboarding("create", errors.New("boom"))
	m.RecordOnboarding("create", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.onboardingTx.WithLabelValues("create", "committed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.onboardingTx.WithLabelValues("create", "rolled_back")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordOTP(OTPIssued)
		m.RecordOnboarding("delete", nil)
		m.RecordRateLimited("send-otp")
		m.RecordOTPsCleared(3)
	})
}

func TestHandler_exposesCounters(t *testing.T) {
	m := New()
	m.RecordOTP(OTPIssued)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `devbhakti_auth_otp_events_total{event="issued"} 1`))
}
