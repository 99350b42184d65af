package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/41vi4p/TankLens/internal/models"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type env struct {
	svc     *DeviceService
	devices *fakeDeviceStore
	history *fakeHistoryStore
	samples *fakeSampleStore
	now     time.Time
}

func newEnv() *env {
	devices := newFakeDeviceStore()
	history := newFakeHistoryStore()
	samples := newFakeSampleStore()
	e := &env{devices: devices, history: history, samples: samples, now: testNow}
	e.svc = NewDeviceService(devices, history, samples)
	e.svc.now = func() time.Time { return e.now }
	return e
}

func (e *env) register(t *testing.T, userID, deviceID string, capacity float64) {
	t.Helper()
	_, err := e.svc.RegisterDevice(context.Background(), userID, models.DeviceRequest{
		DeviceID:    deviceID,
		Name:        "Rooftop Tank",
		Location:    "Roof",
		MaxCapacity: capacity,
	})
	require.NoError(t, err)
}

func TestRegisterDevice(t *testing.T) {
	e := newEnv()

	device, err := e.svc.RegisterDevice(context.Background(), "user-1", models.DeviceRequest{
		DeviceID:    "ESP32_ABCD1234",
		Name:        "Kitchen Tank",
		Location:    "Kitchen",
		MaxCapacity: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", device.CreatedBy)

	grant, ok := e.devices.grants[grantKey("ESP32_ABCD1234", "user-1")]
	require.True(t, ok, "registration installs an owner grant")
	assert.Equal(t, models.RoleOwner, grant.Role)

	readings := e.history.series["ESP32_ABCD1234"]
	require.Len(t, readings, 1, "history is seeded with one reading")
	assert.Equal(t, 0.0, readings[0].Level)
	assert.Equal(t, models.StatusOffline, readings[0].Status)
}

func TestRegisterDeviceValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.svc.RegisterDevice(ctx, "user-1", models.DeviceRequest{Name: "x", Location: "y", MaxCapacity: 10})
	assert.True(t, models.IsValidation(err), "missing device id")

	_, err = e.svc.RegisterDevice(ctx, "user-1", models.DeviceRequest{DeviceID: "d", MaxCapacity: 10})
	assert.True(t, models.IsValidation(err), "missing name/location")

	_, err = e.svc.RegisterDevice(ctx, "user-1", models.DeviceRequest{DeviceID: "d", Name: "x", Location: "y", MaxCapacity: 0})
	assert.True(t, models.IsValidation(err), "non-positive capacity")

	assert.Empty(t, e.devices.devices, "no device is created on validation failure")
}

func TestRegisterDuplicateDevice(t *testing.T) {
	e := newEnv()
	e.register(t, "user-1", "tank-1", 500)

	_, err := e.svc.RegisterDevice(context.Background(), "user-2", models.DeviceRequest{
		DeviceID: "tank-1", Name: "Another", Location: "Elsewhere", MaxCapacity: 100,
	})
	assert.ErrorIs(t, err, models.ErrDuplicate)
}

func TestRegisterDeviceBackendDownLeavesNoPartialState(t *testing.T) {
	e := newEnv()
	e.devices.down = true

	_, err := e.svc.RegisterDevice(context.Background(), "user-1", models.DeviceRequest{
		DeviceID: "tank-1", Name: "Kitchen Tank", Location: "Kitchen", MaxCapacity: 1000,
	})

	assert.ErrorIs(t, err, models.ErrBackendUnavailable)
	assert.Empty(t, e.devices.devices)
	assert.Empty(t, e.devices.grants, "device row and owner grant are written atomically")
}

func TestLinkUnknownDeviceCreatesNoGrant(t *testing.T) {
	e := newEnv()

	err := e.svc.LinkDevice(context.Background(), "user-1", "no-such-device")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, e.devices.grants)
}

func TestTwoViewersAreIndependent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.register(t, "owner", "tank-1", 500)

	require.NoError(t, e.svc.LinkDevice(ctx, "viewer-a", "tank-1"))
	require.NoError(t, e.svc.LinkDevice(ctx, "viewer-b", "tank-1"))

	idsA, err := e.devices.ListAccessibleDevices(ctx, "viewer-a")
	require.NoError(t, err)
	idsB, err := e.devices.ListAccessibleDevices(ctx, "viewer-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"tank-1"}, idsA)
	assert.Equal(t, []string{"tank-1"}, idsB)

	require.NoError(t, e.svc.RevokeAccess(ctx, "tank-1", "viewer-a"))

	idsA, _ = e.devices.ListAccessibleDevices(ctx, "viewer-a")
	idsB, _ = e.devices.ListAccessibleDevices(ctx, "viewer-b")
	assert.Empty(t, idsA)
	assert.Equal(t, []string{"tank-1"}, idsB, "revoking one viewer leaves the other intact")
}

func TestGrantAccessIsIdempotent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.register(t, "owner", "tank-1", 500)

	require.NoError(t, e.svc.GrantAccess(ctx, "tank-1", "viewer", models.RoleViewer))
	require.NoError(t, e.svc.GrantAccess(ctx, "tank-1", "viewer", models.RoleViewer))

	ids, err := e.devices.ListAccessibleDevices(ctx, "viewer")
	require.NoError(t, err)
	assert.Equal(t, []string{"tank-1"}, ids)
}

func TestRevokeMissingGrantIsNotAnError(t *testing.T) {
	e := newEnv()
	assert.NoError(t, e.svc.RevokeAccess(context.Background(), "tank-1", "nobody"))
}

func TestGrantAccessBackendDown(t *testing.T) {
	e := newEnv()
	e.devices.down = true

	err := e.svc.GrantAccess(context.Background(), "tank-1", "user", models.RoleViewer)
	assert.ErrorIs(t, err, models.ErrBackendUnavailable)
}

func TestGetDeviceScenarioFreshSample(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.now = testNow.Add(-time.Hour)
	e.register(t, "owner", "tank-1", 1000)
	e.now = testNow

	e.samples.samples["tank-1"] = models.RawSample{
		WaterLevel: 45.3,
		Timestamp:  testNow.Add(-10 * time.Second).Unix(),
	}

	view, err := e.svc.GetDevice(ctx, "owner", "tank-1", models.Window24Hr)
	require.NoError(t, err)

	assert.True(t, view.Online)
	assert.Equal(t, int64(453), view.VolumeLiters)

	last := view.Readings[len(view.Readings)-1]
	assert.Equal(t, 45.3, last.Level)
	assert.Equal(t, models.StatusMeasured, last.Status)
}

func TestGetDeviceScenarioStaleSample(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.now = testNow.Add(-time.Hour)
	e.register(t, "owner", "tank-1", 1000)
	e.now = testNow

	e.samples.samples["tank-1"] = models.RawSample{
		WaterLevel: 45.3,
		Timestamp:  testNow.Add(-60 * time.Second).Unix(),
	}

	view, err := e.svc.GetDevice(ctx, "owner", "tank-1", models.Window24Hr)
	require.NoError(t, err)

	assert.False(t, view.Online)
	last := view.Readings[len(view.Readings)-1]
	assert.Equal(t, models.StatusOffline, last.Status, "stale sample is forced offline")
}

func TestGetDevicePersistsMergedReading(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.now = testNow.Add(-time.Hour)
	e.register(t, "owner", "tank-1", 1000)
	e.now = testNow

	e.samples.samples["tank-1"] = models.RawSample{WaterLevel: 50, Timestamp: testNow.Unix()}

	_, err := e.svc.GetDevice(ctx, "owner", "tank-1", models.Window24Hr)
	require.NoError(t, err)
	require.Len(t, e.history.series["tank-1"], 2, "live reading persisted alongside the seed")

	// A second fetch of the same sample must not append again.
	_, err = e.svc.GetDevice(ctx, "owner", "tank-1", models.Window24Hr)
	require.NoError(t, err)
	assert.Len(t, e.history.series["tank-1"], 2)
}

func TestGetDeviceWithoutGrant(t *testing.T) {
	e := newEnv()
	e.register(t, "owner", "tank-1", 1000)

	_, err := e.svc.GetDevice(context.Background(), "stranger", "tank-1", models.Window24Hr)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetDeviceLiveFeedDownServesHistory(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.register(t, "owner", "tank-1", 1000)
	e.samples.down = true

	view, err := e.svc.GetDevice(ctx, "owner", "tank-1", models.Window24Hr)
	require.NoError(t, err, "live feed failure degrades, it does not fail the read")
	assert.False(t, view.Online)
	assert.Len(t, view.Readings, 1, "last known state is served unchanged")
}

func TestListDevicesSkipsDanglingGrants(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.register(t, "owner", "tank-1", 500)
	e.register(t, "owner", "tank-2", 500)

	// tank-2's document vanishes (deleted by another user), the grant stays.
	delete(e.devices.devices, "tank-2")

	views, err := e.svc.ListDevices(ctx, "owner", models.Window24Hr)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "tank-1", views[0].ID)
}

func TestListDevicesEmptyForNewUser(t *testing.T) {
	e := newEnv()

	views, err := e.svc.ListDevices(context.Background(), "newcomer", models.Window24Hr)
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.NotNil(t, views)
}

func TestUpdateDeviceValidation(t *testing.T) {
	e := newEnv()
	e.register(t, "owner", "tank-1", 500)

	err := e.svc.UpdateDevice(context.Background(), "owner", "tank-1", models.DeviceRequest{
		Name: "New Name", Location: "Basement", MaxCapacity: -1,
	})
	assert.True(t, models.IsValidation(err))

	require.NoError(t, e.svc.UpdateDevice(context.Background(), "owner", "tank-1", models.DeviceRequest{
		Name: "New Name", Location: "Basement", MaxCapacity: 750,
	}))
	assert.Equal(t, 750.0, e.devices.devices["tank-1"].MaxCapacityLiters)
}

func TestCalibrateOverwritesLatestReading(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.register(t, "owner", "tank-1", 500)

	seedTS := e.history.series["tank-1"][0].Timestamp

	require.NoError(t, e.svc.Calibrate(ctx, "owner", "tank-1", 72))

	readings := e.history.series["tank-1"]
	require.Len(t, readings, 1, "calibration overwrites, it does not append")
	assert.Equal(t, seedTS, readings[0].Timestamp)
	assert.Equal(t, 72.0, readings[0].Level)
	assert.Equal(t, models.StatusEstimated, readings[0].Status)
}

func TestCalibrateRejectsOutOfRange(t *testing.T) {
	e := newEnv()
	e.register(t, "owner", "tank-1", 500)

	assert.True(t, models.IsValidation(e.svc.Calibrate(context.Background(), "owner", "tank-1", 101)))
	assert.True(t, models.IsValidation(e.svc.Calibrate(context.Background(), "owner", "tank-1", -1)))
}

func TestDeleteDeviceRemovesCallerGrantOnly(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.register(t, "owner", "tank-1", 500)
	require.NoError(t, e.svc.LinkDevice(ctx, "viewer", "tank-1"))

	require.NoError(t, e.svc.DeleteDevice(ctx, "owner", "tank-1"))

	_, hasOwner := e.devices.grants[grantKey("tank-1", "owner")]
	_, hasViewer := e.devices.grants[grantKey("tank-1", "viewer")]
	assert.False(t, hasOwner)
	assert.True(t, hasViewer, "other users' grants are left dangling and skipped by listings")

	assert.Empty(t, e.devices.devices)
	assert.Empty(t, e.history.series["tank-1"])
	_, ok := e.samples.samples["tank-1"]
	assert.False(t, ok)
}

func TestDeleteDeviceFailureKeepsDeviceVisible(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.register(t, "owner", "tank-1", 500)
	e.devices.deleteErr = errDown

	err := e.svc.DeleteDevice(ctx, "owner", "tank-1")
	assert.ErrorIs(t, err, models.ErrBackendUnavailable)

	_, hasOwner := e.devices.grants[grantKey("tank-1", "owner")]
	assert.True(t, hasOwner, "grant survives a failed document delete")
	assert.Contains(t, e.devices.devices, "tank-1")

	ids, err := e.devices.ListAccessibleDevices(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"tank-1"}, ids)
}

func TestIngestValidatesAndStores(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	err := e.svc.Ingest(ctx, models.RawSample{WaterLevel: 50, Timestamp: testNow.Unix()})
	assert.True(t, models.IsValidation(err), "device id is required")

	err = e.svc.Ingest(ctx, models.RawSample{DeviceID: "tank-1", WaterLevel: 120, Timestamp: testNow.Unix()})
	assert.True(t, models.IsValidation(err), "level outside 0..100")

	require.NoError(t, e.svc.Ingest(ctx, models.RawSample{DeviceID: "tank-1", WaterLevel: 50, Timestamp: testNow.Unix()}))
	assert.Contains(t, e.samples.samples, "tank-1")
}

func TestRefreshAllSyncsOwnedDevices(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.now = testNow.Add(-time.Hour)
	e.register(t, "owner", "tank-1", 500)
	e.register(t, "owner", "tank-2", 500)
	e.now = testNow

	e.samples.samples["tank-1"] = models.RawSample{WaterLevel: 64.2, Timestamp: testNow.Unix()}

	synced, err := e.svc.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)

	readings := e.history.series["tank-1"]
	require.Len(t, readings, 2)
	assert.Equal(t, 64.2, readings[1].Level)
	assert.Equal(t, testNow, e.devices.devices["tank-1"].LastUpdated)

	// tank-2 never reported, so nothing beyond the seed is persisted.
	assert.Len(t, e.history.series["tank-2"], 1)

	// A second run with unchanged samples appends nothing.
	synced, err = e.svc.RefreshAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)
	assert.Len(t, e.history.series["tank-1"], 2)
}

func TestRefreshAllNeverReportingDeviceAppendsNothing(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.now = testNow.Add(-time.Hour)
	e.register(t, "owner", "tank-1", 500)
	e.now = testNow

	for i := 0; i < 5; i++ {
		synced, err := e.svc.RefreshAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, synced)
		e.now = e.now.Add(5 * time.Second)
	}

	assert.Len(t, e.history.series["tank-1"], 1,
		"a device with no sample keeps only its registration seed")
}

func TestGetDeviceNeverReportedSyntheticReadingNotPersisted(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.now = testNow.Add(-time.Hour)
	e.register(t, "owner", "tank-1", 500)
	e.now = testNow

	view, err := e.svc.GetDevice(ctx, "owner", "tank-1", models.Window24Hr)
	require.NoError(t, err)

	assert.False(t, view.Online)
	last := view.Readings[len(view.Readings)-1]
	assert.Equal(t, 0.0, last.Level)
	assert.Equal(t, models.StatusOffline, last.Status)
	assert.Equal(t, testNow, last.Timestamp, "the view shows a synthetic point at now")

	assert.Len(t, e.history.series["tank-1"], 1, "the synthetic point is display-only")
}
