package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/41vi4p/TankLens/internal/models"
)

// RespondWithError sends a JSON error response using the APIError model.
// It sets the HTTP status code from the APIError and encodes the entire struct.
func RespondWithError(writer http.ResponseWriter, apiErr models.APIError) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(apiErr.StatusCode)

	if err := json.NewEncoder(writer).Encode(apiErr); err != nil {
		log.Printf("Failed to encode error response: %v", err)
		http.Error(writer, "Failed to send error response", http.StatusInternalServerError)
	}
}

// RespondWithJSON sends a JSON success response.
func RespondWithJSON(writer http.ResponseWriter, statusCode int, payload interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(writer).Encode(payload); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
		http.Error(writer, "Failed to send JSON response", http.StatusInternalServerError)
	}
}

// RespondWithServiceError maps the service error taxonomy onto APIError
// codes. Nothing here is fatal; failed operations leave last known state
// in place on the client.
func RespondWithServiceError(writer http.ResponseWriter, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		RespondWithError(writer, models.NewAPIError(
			models.ErrorCodeValidationFailed, ve.Error(), map[string]string{"field": ve.Field}, http.StatusBadRequest))
	case errors.Is(err, models.ErrNotFound):
		RespondWithError(writer, models.NewAPIError(
			models.ErrorCodeResourceNotFound, "Device ID not found", nil, http.StatusNotFound))
	case errors.Is(err, models.ErrDuplicate):
		RespondWithError(writer, models.NewAPIError(
			models.ErrorCodeDuplicateResource, "Device ID already exists. You can link to it instead.", nil, http.StatusConflict))
	case errors.Is(err, models.ErrBackendUnavailable):
		RespondWithError(writer, models.NewAPIError(
			models.ErrorCodeServiceUnavailable, "Backend temporarily unavailable, please retry", nil, http.StatusServiceUnavailable))
	default:
		RespondWithError(writer, models.NewAPIError(
			models.ErrorCodeInternalServerError, err.Error(), nil, http.StatusInternalServerError))
	}
}
