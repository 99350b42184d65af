package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/41vi4p/TankLens/internal/models"
)

var errDown = errors.New("connection refused")

// fakeDeviceStore is an in-memory DeviceStore. Setting down simulates an
// unreachable backend.
type fakeDeviceStore struct {
	devices   map[string]models.Device
	grants    map[string]models.AccessGrant
	down      bool
	deleteErr error
}

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{
		devices: map[string]models.Device{},
		grants:  map[string]models.AccessGrant{},
	}
}

func grantKey(deviceID, userID string) string { return deviceID + "_" + userID }

func (f *fakeDeviceStore) CreateDevice(ctx context.Context, device models.Device, owner models.AccessGrant) error {
	if f.down {
		return errDown
	}
	if _, ok := f.devices[device.ID]; ok {
		return models.ErrDuplicate
	}
	f.devices[device.ID] = device
	f.grants[grantKey(owner.DeviceID, owner.UserID)] = owner
	return nil
}

func (f *fakeDeviceStore) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	if f.down {
		return nil, errDown
	}
	d, ok := f.devices[deviceID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &d, nil
}

func (f *fakeDeviceStore) UpdateDevice(ctx context.Context, deviceID, name, location string, maxCapacity float64) error {
	if f.down {
		return errDown
	}
	d, ok := f.devices[deviceID]
	if !ok {
		return models.ErrNotFound
	}
	d.Name, d.Location, d.MaxCapacityLiters = name, location, maxCapacity
	f.devices[deviceID] = d
	return nil
}

func (f *fakeDeviceStore) TouchDevice(ctx context.Context, deviceID string, lastUpdated time.Time) error {
	if f.down {
		return errDown
	}
	d, ok := f.devices[deviceID]
	if !ok {
		return models.ErrNotFound
	}
	d.LastUpdated = lastUpdated
	f.devices[deviceID] = d
	return nil
}

func (f *fakeDeviceStore) DeleteDevice(ctx context.Context, deviceID string) error {
	if f.down {
		return errDown
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.devices[deviceID]; !ok {
		return models.ErrNotFound
	}
	delete(f.devices, deviceID)
	return nil
}

func (f *fakeDeviceStore) GrantAccess(ctx context.Context, grant models.AccessGrant) error {
	if f.down {
		return errDown
	}
	f.grants[grantKey(grant.DeviceID, grant.UserID)] = grant
	return nil
}

func (f *fakeDeviceStore) ListAccessibleDevices(ctx context.Context, userID string) ([]string, error) {
	if f.down {
		return nil, errDown
	}
	ids := []string{}
	for _, g := range f.grants {
		if g.UserID == userID {
			ids = append(ids, g.DeviceID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeDeviceStore) ListOwnedDevices(ctx context.Context) ([]string, error) {
	if f.down {
		return nil, errDown
	}
	seen := map[string]bool{}
	ids := []string{}
	for _, g := range f.grants {
		if g.Role == models.RoleOwner && !seen[g.DeviceID] {
			seen[g.DeviceID] = true
			ids = append(ids, g.DeviceID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeDeviceStore) HasAccess(ctx context.Context, deviceID, userID string) (bool, error) {
	if f.down {
		return false, errDown
	}
	_, ok := f.grants[grantKey(deviceID, userID)]
	return ok, nil
}

func (f *fakeDeviceStore) RevokeAccess(ctx context.Context, deviceID, userID string) error {
	if f.down {
		return errDown
	}
	delete(f.grants, grantKey(deviceID, userID))
	return nil
}

// fakeHistoryStore mimics the InfluxDB series semantics: points keyed by
// timestamp, writes at an existing timestamp overwrite, reads come back
// sorted.
type fakeHistoryStore struct {
	series map[string][]models.Reading
	down   bool
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{series: map[string][]models.Reading{}}
}

func (f *fakeHistoryStore) WriteReading(ctx context.Context, deviceID string, reading models.Reading) error {
	if f.down {
		return errDown
	}
	readings := f.series[deviceID]
	for i, r := range readings {
		if r.Timestamp.Equal(reading.Timestamp) {
			readings[i] = reading
			return nil
		}
	}
	readings = append(readings, reading)
	sort.Slice(readings, func(i, j int) bool { return readings[i].Timestamp.Before(readings[j].Timestamp) })
	f.series[deviceID] = readings
	return nil
}

func (f *fakeHistoryStore) QueryReadings(ctx context.Context, deviceID string, since time.Time) ([]models.Reading, error) {
	if f.down {
		return nil, errDown
	}
	out := []models.Reading{}
	for _, r := range f.series[deviceID] {
		if since.IsZero() || !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeHistoryStore) DeleteReadings(ctx context.Context, deviceID string) error {
	if f.down {
		return errDown
	}
	delete(f.series, deviceID)
	return nil
}

// fakeSampleStore is an in-memory SampleStore.
type fakeSampleStore struct {
	samples map[string]models.RawSample
	down    bool
}

func newFakeSampleStore() *fakeSampleStore {
	return &fakeSampleStore{samples: map[string]models.RawSample{}}
}

func (f *fakeSampleStore) SetLatest(ctx context.Context, deviceID string, sample models.RawSample) error {
	if f.down {
		return errDown
	}
	f.samples[deviceID] = sample
	return nil
}

func (f *fakeSampleStore) GetLatest(ctx context.Context, deviceID string) (*models.RawSample, error) {
	if f.down {
		return nil, errDown
	}
	s, ok := f.samples[deviceID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeSampleStore) DeleteLatest(ctx context.Context, deviceID string) error {
	if f.down {
		return errDown
	}
	delete(f.samples, deviceID)
	return nil
}
