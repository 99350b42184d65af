package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/41vi4p/TankLens/internal/models"
)

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   models.ErrorCode
	}{
		{models.NewValidationError("level", "must be between 0 and 100"), http.StatusBadRequest, models.ErrorCodeValidationFailed},
		{models.ErrNotFound, http.StatusNotFound, models.ErrorCodeResourceNotFound},
		{models.ErrDuplicate, http.StatusConflict, models.ErrorCodeDuplicateResource},
		{models.ErrBackendUnavailable, http.StatusServiceUnavailable, models.ErrorCodeServiceUnavailable},
		{fmt.Errorf("wrapped: %w", models.ErrBackendUnavailable), http.StatusServiceUnavailable, models.ErrorCodeServiceUnavailable},
		{fmt.Errorf("something else"), http.StatusInternalServerError, models.ErrorCodeInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		RespondWithServiceError(rec, tt.err)

		assert.Equal(t, tt.wantStatus, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body models.APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tt.wantCode, body.Code)
	}
}

func TestRespondWithJSONOmitsBodyForNilPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithJSON(rec, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
