// Package controller translates HTTP requests into service calls and maps
// service errors onto the API error model.
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/41vi4p/TankLens/internal/metrics"
	"github.com/41vi4p/TankLens/internal/middleware"
	"github.com/41vi4p/TankLens/internal/models"
	"github.com/41vi4p/TankLens/internal/service"
	"github.com/41vi4p/TankLens/internal/utils"
)

// DeviceController handles the dashboard's device endpoints.
type DeviceController struct {
	service *service.DeviceService
}

// NewDeviceController creates a new DeviceController.
func NewDeviceController(service *service.DeviceService) *DeviceController {
	return &DeviceController{service: service}
}

// RegisterDevice handles POST /devices.
func (c *DeviceController) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		respondUnauthenticated(w)
		return
	}

	var req models.DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, models.NewAPIError(
			models.ErrorCodeBadRequest, "Invalid request body", nil, http.StatusBadRequest))
		return
	}
	defer r.Body.Close()

	device, err := c.service.RegisterDevice(r.Context(), userID, req)
	if err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, device)
}

// LinkDevice handles POST /devices/{deviceID}/link.
func (c *DeviceController) LinkDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		respondUnauthenticated(w)
		return
	}
	deviceID := mux.Vars(r)["deviceID"]

	if err := c.service.LinkDevice(r.Context(), userID, deviceID); err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Device linked"})
}

// ShareDevice handles POST /devices/{deviceID}/share.
func (c *DeviceController) ShareDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		respondUnauthenticated(w)
		return
	}
	deviceID := mux.Vars(r)["deviceID"]

	var req models.ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, models.NewAPIError(
			models.ErrorCodeBadRequest, "Invalid request body", nil, http.StatusBadRequest))
		return
	}
	defer r.Body.Close()

	if err := c.service.ShareDevice(r.Context(), userID, deviceID, req.UserID); err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Device shared"})
}

// ListDevices handles GET /devices.
func (c *DeviceController) ListDevices(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		respondUnauthenticated(w)
		return
	}

	window, err := models.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}

	views, err := c.service.ListDevices(r.Context(), userID, window)
	if err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, views)
}

// GetDevice handles GET /devices/{deviceID}.
func (c *DeviceController) GetDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		respondUnauthenticated(w)
		return
	}
	deviceID := mux.Vars(r)["deviceID"]

	window, err := models.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}

	view, err := c.service.GetDevice(r.Context(), userID, deviceID, window)
	if err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

// UpdateDevice handles PUT /devices/{deviceID}.
func (c *DeviceController) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		respondUnauthenticated(w)
		return
	}
	deviceID := mux.Vars(r)["deviceID"]

	var req models.DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, models.NewAPIError(
			models.ErrorCodeBadRequest, "Invalid request body", nil, http.StatusBadRequest))
		return
	}
	defer r.Body.Close()

	if err := c.service.UpdateDevice(r.Context(), userID, deviceID, req); err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Device updated"})
}

// CalibrateDevice handles POST /devices/{deviceID}/calibrate.
func (c *DeviceController) CalibrateDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		respondUnauthenticated(w)
		return
	}
	deviceID := mux.Vars(r)["deviceID"]

	var req models.CalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, models.NewAPIError(
			models.ErrorCodeBadRequest, "Invalid request body", nil, http.StatusBadRequest))
		return
	}
	defer r.Body.Close()

	if err := c.service.Calibrate(r.Context(), userID, deviceID, req.Level); err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Calibration saved"})
}

// DeleteDevice handles DELETE /devices/{deviceID}.
func (c *DeviceController) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		respondUnauthenticated(w)
		return
	}
	deviceID := mux.Vars(r)["deviceID"]

	if err := c.service.DeleteDevice(r.Context(), userID, deviceID); err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Device deleted"})
}

// IngestSample handles POST /ingest: a sensor reporting its latest raw
// sample. Authenticated by device token, not user JWT.
func (c *DeviceController) IngestSample(w http.ResponseWriter, r *http.Request) {
	var sample models.RawSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		metrics.ObserveIngest(err)
		utils.RespondWithError(w, models.NewAPIError(
			models.ErrorCodeBadRequest, "Invalid JSON format", nil, http.StatusBadRequest))
		return
	}
	defer r.Body.Close()

	err := c.service.Ingest(r.Context(), sample)
	metrics.ObserveIngest(err)
	if err != nil {
		utils.RespondWithServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{"message": "Sample recorded"})
}

func respondUnauthenticated(w http.ResponseWriter) {
	utils.RespondWithError(w, models.NewAPIError(
		models.ErrorCodeUnauthorized, "Missing user identity", nil, http.StatusUnauthorized))
}
