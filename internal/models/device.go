package models

import "time"

// Device represents one registered sensor endpoint (one physical tank).
type Device struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Location          string    `json:"location"`
	MaxCapacityLiters float64   `json:"maxCapacity"`
	Readings          []Reading `json:"data"`
	LastUpdated       time.Time `json:"lastUpdated"`
	CreatedBy         string    `json:"createdBy,omitempty"`
	CreatedAt         time.Time `json:"createdAt,omitempty"`
}

// LastReading returns the most recent reading, or nil for an empty series.
func (d *Device) LastReading() *Reading {
	if len(d.Readings) == 0 {
		return nil
	}
	return &d.Readings[len(d.Readings)-1]
}

// DeviceView is the presentation shape returned by the API: the device
// plus the quantities derived from its latest reading.
type DeviceView struct {
	Device
	VolumeLiters int64 `json:"volumeLiters"`
	Online       bool  `json:"online"`
}

// DeviceRequest is the registration/edit form payload.
type DeviceRequest struct {
	DeviceID    string  `json:"deviceId"`
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	MaxCapacity float64 `json:"maxCapacity"`
}

// CalibrationRequest sets the latest reading's level to a known-good value.
type CalibrationRequest struct {
	Level float64 `json:"level"`
}

// ShareRequest grants another user viewer access to a device.
type ShareRequest struct {
	UserID string `json:"userId"`
}
