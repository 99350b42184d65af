// Package service implements the dashboard's operations on top of the
// storage clients: device registration and sharing, the refresh pipeline
// that folds live samples into persisted history, and sensor ingestion.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/41vi4p/TankLens/internal/models"
	"github.com/41vi4p/TankLens/internal/repository"
	"github.com/41vi4p/TankLens/internal/tank"
)

// DeviceService owns the device lifecycle and the refresh pipeline.
type DeviceService struct {
	devices repository.DeviceStore
	history repository.HistoryStore
	samples repository.SampleStore
	now     func() time.Time
}

// NewDeviceService constructs the service over the three stores.
func NewDeviceService(devices repository.DeviceStore, history repository.HistoryStore, samples repository.SampleStore) *DeviceService {
	return &DeviceService{
		devices: devices,
		history: history,
		samples: samples,
		now:     time.Now,
	}
}

// RegisterDevice creates a device document with the creator as owner and
// seeds the history with a level-zero reading so the device renders
// immediately.
func (s *DeviceService) RegisterDevice(ctx context.Context, userID string, req models.DeviceRequest) (*models.Device, error) {
	if req.DeviceID == "" {
		return nil, models.NewValidationError("deviceId", "must not be empty")
	}
	if req.Name == "" || req.Location == "" {
		return nil, models.NewValidationError("name", "all fields are required for new devices")
	}
	if req.MaxCapacity <= 0 {
		return nil, models.NewValidationError("maxCapacity", "capacity must be greater than 0")
	}

	now := s.now().UTC()
	device := models.Device{
		ID:                req.DeviceID,
		Name:              req.Name,
		Location:          req.Location,
		MaxCapacityLiters: req.MaxCapacity,
		CreatedBy:         userID,
		CreatedAt:         now,
		LastUpdated:       now,
	}

	owner := models.AccessGrant{
		DeviceID:  req.DeviceID,
		UserID:    userID,
		Role:      models.RoleOwner,
		GrantedAt: now,
	}
	if err := s.devices.CreateDevice(ctx, device, owner); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, err
		}
		return nil, backendErr(err)
	}

	seed := models.Reading{Timestamp: now, Level: 0, Status: models.StatusOffline}
	if err := s.history.WriteReading(ctx, req.DeviceID, seed); err != nil {
		// The device exists either way; the first reported sample
		// writes the first point.
		log.Printf("seed reading for %s failed: %v", req.DeviceID, err)
	}
	device.Readings = []models.Reading{seed}

	return &device, nil
}

// LinkDevice grants the caller viewer access to an already registered
// device. Knowing the device id is the only credential required; sharing
// a tank works by handing out its id.
func (s *DeviceService) LinkDevice(ctx context.Context, userID, deviceID string) error {
	if deviceID == "" {
		return models.NewValidationError("deviceId", "must not be empty")
	}

	if _, err := s.devices.GetDevice(ctx, deviceID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return backendErr(err)
	}

	return s.GrantAccess(ctx, deviceID, userID, models.RoleViewer)
}

// ShareDevice grants another user viewer access. The caller must hold a
// grant on the device.
func (s *DeviceService) ShareDevice(ctx context.Context, callerID, deviceID, targetUserID string) error {
	if targetUserID == "" {
		return models.NewValidationError("userId", "must not be empty")
	}
	if err := s.requireAccess(ctx, deviceID, callerID); err != nil {
		return err
	}
	return s.GrantAccess(ctx, deviceID, targetUserID, models.RoleViewer)
}

// GrantAccess idempotently upserts an access grant.
func (s *DeviceService) GrantAccess(ctx context.Context, deviceID, userID string, role models.AccessRole) error {
	grant := models.AccessGrant{
		DeviceID:  deviceID,
		UserID:    userID,
		Role:      role,
		GrantedAt: s.now().UTC(),
	}
	if err := s.devices.GrantAccess(ctx, grant); err != nil {
		return backendErr(err)
	}
	return nil
}

// ListDevices returns every device the user can see, each refreshed with
// the latest live sample and filtered to the requested window. A device
// whose backing data cannot be fetched is served from last known state;
// one failing device does not fail the listing.
func (s *DeviceService) ListDevices(ctx context.Context, userID string, window models.Window) ([]models.DeviceView, error) {
	ids, err := s.devices.ListAccessibleDevices(ctx, userID)
	if err != nil {
		return nil, backendErr(err)
	}

	views := []models.DeviceView{}
	for _, id := range ids {
		view, err := s.loadDevice(ctx, id, window)
		if errors.Is(err, models.ErrNotFound) {
			// Dangling grant after another user deleted the device.
			continue
		}
		if err != nil {
			log.Printf("loading device %s: %v", id, err)
			continue
		}
		views = append(views, *view)
	}
	return views, nil
}

// GetDevice returns one refreshed, window-filtered device. A device the
// user holds no grant for is reported as not found.
func (s *DeviceService) GetDevice(ctx context.Context, userID, deviceID string, window models.Window) (*models.DeviceView, error) {
	if err := s.requireAccess(ctx, deviceID, userID); err != nil {
		return nil, err
	}
	return s.loadDevice(ctx, deviceID, window)
}

// UpdateDevice edits name, location and capacity.
func (s *DeviceService) UpdateDevice(ctx context.Context, userID, deviceID string, req models.DeviceRequest) error {
	if req.Name == "" || req.Location == "" {
		return models.NewValidationError("name", "name and location must not be empty")
	}
	if req.MaxCapacity <= 0 {
		return models.NewValidationError("maxCapacity", "capacity must be greater than 0")
	}
	if err := s.requireAccess(ctx, deviceID, userID); err != nil {
		return err
	}

	if err := s.devices.UpdateDevice(ctx, deviceID, req.Name, req.Location, req.MaxCapacity); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return backendErr(err)
	}
	return nil
}

// Calibrate overwrites the latest reading's level with a user-supplied
// value. The point keeps its timestamp; with no history yet a fresh point
// is appended instead.
func (s *DeviceService) Calibrate(ctx context.Context, userID, deviceID string, level float64) error {
	if level < 0 || level > 100 {
		return models.NewValidationError("level", "must be between 0 and 100")
	}
	if err := s.requireAccess(ctx, deviceID, userID); err != nil {
		return err
	}

	readings, err := s.history.QueryReadings(ctx, deviceID, time.Time{})
	if err != nil {
		return backendErr(err)
	}

	now := s.now().UTC()
	corrected := models.Reading{Timestamp: now, Level: level, Status: models.StatusEstimated}
	if len(readings) > 0 {
		corrected.Timestamp = readings[len(readings)-1].Timestamp
	}

	if err := s.history.WriteReading(ctx, deviceID, corrected); err != nil {
		return backendErr(err)
	}
	if err := s.devices.TouchDevice(ctx, deviceID, now); err != nil {
		return backendErr(err)
	}
	return nil
}

// DeleteDevice removes the device document, its history and snapshot, and
// the requesting user's grant. The document goes first: if that fails the
// caller keeps their grant and the device stays visible. Grants held by
// other users are left behind; listings skip ids whose document is gone.
func (s *DeviceService) DeleteDevice(ctx context.Context, userID, deviceID string) error {
	if err := s.requireAccess(ctx, deviceID, userID); err != nil {
		return err
	}

	if err := s.devices.DeleteDevice(ctx, deviceID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		return backendErr(err)
	}

	if err := s.devices.RevokeAccess(ctx, deviceID, userID); err != nil {
		// The grant dangles until revoked; listings already tolerate that.
		log.Printf("revoking grant %s/%s: %v", deviceID, userID, err)
	}
	if err := s.history.DeleteReadings(ctx, deviceID); err != nil {
		log.Printf("clearing history for %s: %v", deviceID, err)
	}
	if err := s.samples.DeleteLatest(ctx, deviceID); err != nil {
		log.Printf("clearing sample for %s: %v", deviceID, err)
	}
	return nil
}

// RevokeAccess removes one grant; not finding one is not an error.
func (s *DeviceService) RevokeAccess(ctx context.Context, deviceID, userID string) error {
	if err := s.devices.RevokeAccess(ctx, deviceID, userID); err != nil {
		return backendErr(err)
	}
	return nil
}

// Ingest records the latest raw sample a sensor reported.
func (s *DeviceService) Ingest(ctx context.Context, sample models.RawSample) error {
	if sample.DeviceID == "" {
		return models.NewValidationError("deviceId", "must not be empty")
	}
	if sample.WaterLevel < 0 || sample.WaterLevel > 100 {
		return models.NewValidationError("waterLevel", "must be between 0 and 100")
	}
	if err := s.samples.SetLatest(ctx, sample.DeviceID, sample); err != nil {
		return backendErr(err)
	}
	return nil
}

// RefreshAll runs the sync pipeline for every device that has an owner
// grant. Returns how many devices synced cleanly; per-device failures are
// logged and retried on the next run.
func (s *DeviceService) RefreshAll(ctx context.Context) (int, error) {
	ids, err := s.devices.ListOwnedDevices(ctx)
	if err != nil {
		return 0, backendErr(err)
	}

	synced := 0
	for _, id := range ids {
		if err := s.refreshDevice(ctx, id); err != nil {
			log.Printf("sync device %s: %v", id, err)
			continue
		}
		synced++
	}
	return synced, nil
}

// refreshDevice merges the live sample into persisted history for one
// device. Stale or repeated samples are no-ops, and a device that has
// never reported leaves its history untouched.
func (s *DeviceService) refreshDevice(ctx context.Context, deviceID string) error {
	if _, err := s.devices.GetDevice(ctx, deviceID); err != nil {
		return err
	}

	sample, err := s.samples.GetLatest(ctx, deviceID)
	if err != nil {
		return backendErr(err)
	}
	if sample == nil {
		return nil
	}

	now := s.now().UTC()
	live := tank.Normalize(sample, now)

	readings, err := s.history.QueryReadings(ctx, deviceID, time.Time{})
	if err != nil {
		return backendErr(err)
	}

	if len(readings) > 0 && !live.Timestamp.After(readings[len(readings)-1].Timestamp) {
		return nil
	}

	if err := s.history.WriteReading(ctx, deviceID, live); err != nil {
		return backendErr(err)
	}
	if err := s.devices.TouchDevice(ctx, deviceID, now); err != nil {
		return backendErr(err)
	}
	return nil
}

// loadDevice assembles the presentation view: persisted history unioned
// with the live sample, window-filtered, with volume and online state
// derived from the latest reading.
func (s *DeviceService) loadDevice(ctx context.Context, deviceID string, window models.Window) (*models.DeviceView, error) {
	device, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, backendErr(err)
	}

	readings, err := s.history.QueryReadings(ctx, deviceID, time.Time{})
	if err != nil {
		return nil, backendErr(err)
	}

	now := s.now().UTC()
	online := false

	sample, err := s.samples.GetLatest(ctx, deviceID)
	if err != nil {
		// Live feed unreachable: serve last known state unchanged.
		log.Printf("live sample for %s unavailable: %v", deviceID, err)
		readings = tank.Dedupe(readings)
	} else {
		live := tank.Normalize(sample, now)
		online = sample != nil && tank.IsOnline(sample.Timestamp, now)

		// A device that has never reported still gets the synthetic
		// offline reading in the view, but only real samples are
		// persisted.
		appended := sample != nil &&
			(len(readings) == 0 || live.Timestamp.After(readings[len(readings)-1].Timestamp))
		merged := tank.Merge(readings, live)
		if appended {
			if err := s.history.WriteReading(ctx, deviceID, live); err != nil {
				log.Printf("persist reading for %s: %v", deviceID, err)
			} else if err := s.devices.TouchDevice(ctx, deviceID, now); err != nil {
				log.Printf("touch device %s: %v", deviceID, err)
			} else {
				device.LastUpdated = now
			}
		}
		readings = merged
	}

	view := &models.DeviceView{Device: *device, Online: online}
	if len(readings) > 0 {
		last := readings[len(readings)-1]
		view.VolumeLiters = tank.Volume(last.Level, device.MaxCapacityLiters)
	}
	view.Readings = tank.FilterWindow(readings, window, now)

	return view, nil
}

func (s *DeviceService) requireAccess(ctx context.Context, deviceID, userID string) error {
	ok, err := s.devices.HasAccess(ctx, deviceID, userID)
	if err != nil {
		return backendErr(err)
	}
	if !ok {
		// Presence of a grant is the entire authorization model; without
		// one the device is simply not in the user's visible set.
		return models.ErrNotFound
	}
	return nil
}

// backendErr classifies an unexpected store failure as BackendUnavailable
// while letting the domain sentinels pass through.
func backendErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrDuplicate) || models.IsValidation(err) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
}
