package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/41vi4p/TankLens/internal/models"
	"github.com/41vi4p/TankLens/internal/utils"
)

// DeviceTokenHeader carries the shared secret the sensors present on the
// ingest endpoint. Sensors hold no user identity; this is the device-side
// counterpart of the user JWT.
const DeviceTokenHeader = "X-Device-Token"

// EnsureDeviceToken authenticates sensor requests with a shared token. An
// empty configured token disables ingestion entirely rather than leaving
// it open.
func EnsureDeviceToken(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := r.Header.Get(DeviceTokenHeader)
		if presented == "" {
			log.Println("device authentication failed: token header missing")
			utils.RespondWithError(w, models.NewAPIError(
				models.ErrorCodeUnauthorized, "Device token header missing", nil, http.StatusUnauthorized))
			return
		}
		if token == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			log.Println("device authentication failed: invalid token")
			utils.RespondWithError(w, models.NewAPIError(
				models.ErrorCodeUnauthorized, "Invalid device token", nil, http.StatusUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}
