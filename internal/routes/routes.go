// Package routes defines all API routes.
package routes

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/41vi4p/TankLens/internal/controller"
	"github.com/41vi4p/TankLens/internal/middleware"
)

// SetupRouter registers all application routes.
func SetupRouter(devices *controller.DeviceController, sync *controller.SyncController, auth *middleware.Authenticator, ingestToken string) *mux.Router {
	router := mux.NewRouter()

	// Dashboard API, user-authenticated.
	router.Handle("/devices", auth.EnsureValidToken(http.HandlerFunc(devices.ListDevices))).Methods("GET")
	router.Handle("/devices", auth.EnsureValidToken(http.HandlerFunc(devices.RegisterDevice))).Methods("POST")
	router.Handle("/devices/{deviceID}", auth.EnsureValidToken(http.HandlerFunc(devices.GetDevice))).Methods("GET")
	router.Handle("/devices/{deviceID}", auth.EnsureValidToken(http.HandlerFunc(devices.UpdateDevice))).Methods("PUT")
	router.Handle("/devices/{deviceID}", auth.EnsureValidToken(http.HandlerFunc(devices.DeleteDevice))).Methods("DELETE")
	router.Handle("/devices/{deviceID}/link", auth.EnsureValidToken(http.HandlerFunc(devices.LinkDevice))).Methods("POST")
	router.Handle("/devices/{deviceID}/share", auth.EnsureValidToken(http.HandlerFunc(devices.ShareDevice))).Methods("POST")
	router.Handle("/devices/{deviceID}/calibrate", auth.EnsureValidToken(http.HandlerFunc(devices.CalibrateDevice))).Methods("POST")

	// Sensor ingest, device-token authenticated.
	router.Handle("/ingest", middleware.EnsureDeviceToken(ingestToken, http.HandlerFunc(devices.IngestSample))).Methods("POST")

	// Poller control.
	router.Handle("/sync", auth.EnsureValidToken(http.HandlerFunc(sync.SyncStatus))).Methods("GET")
	router.Handle("/sync/pause", auth.EnsureValidToken(http.HandlerFunc(sync.PauseSync))).Methods("POST")
	router.Handle("/sync/resume", auth.EnsureValidToken(http.HandlerFunc(sync.ResumeSync))).Methods("POST")

	// Operational endpoints.
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}).Methods("GET")

	return router
}
