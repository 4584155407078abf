package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ShivpalBellway/DevBhakti/internal/apperr"
)

func TestError_mapsKinds(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{apperr.Validation("phone is required"), http.StatusBadRequest, "phone is required"},
		{apperr.NotFound("User not found"), http.StatusNotFound, "User not found"},
		{apperr.InvalidOTP(), http.StatusBadRequest, "Invalid or expired OTP"},
		{apperr.Unauthenticated("missing token"), http.StatusUnauthorized, "missing token"},
		{apperr.Forbidden("admins only"), http.StatusForbidden, "admins only"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body Envelope
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestError_logsOnlyInternal(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/send-otp", nil)

	Error(httptest.NewRecorder(), req, logger, apperr.Validation("bad"))
	assert.Equal(t, 0, logs.Len())

	Error(httptest.NewRecorder(), req, logger, errors.New("db down"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "request failed", logs.All()[0].Message)
}

func TestOK_omitsEmptyFields(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, http.StatusCreated, "", map[string]string{"phone": "+919876543210"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"phone":"+919876543210"}}`, rec.Body.String())
}
