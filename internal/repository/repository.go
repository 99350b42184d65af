// Package repository contains the storage clients: PostgreSQL for device
// documents and access grants, InfluxDB for the reading history, and Redis
// for the latest raw sample reported by each sensor.
package repository

import (
	"context"
	"time"

	"github.com/41vi4p/TankLens/internal/models"
)

// DeviceStore is document access for devices and access grants.
type DeviceStore interface {
	// CreateDevice inserts the device and its owner grant atomically. A
	// device row never exists without at least one owner grant.
	CreateDevice(ctx context.Context, device models.Device, owner models.AccessGrant) error
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	UpdateDevice(ctx context.Context, deviceID, name, location string, maxCapacity float64) error
	TouchDevice(ctx context.Context, deviceID string, lastUpdated time.Time) error
	DeleteDevice(ctx context.Context, deviceID string) error

	GrantAccess(ctx context.Context, grant models.AccessGrant) error
	ListAccessibleDevices(ctx context.Context, userID string) ([]string, error)
	ListOwnedDevices(ctx context.Context) ([]string, error)
	HasAccess(ctx context.Context, deviceID, userID string) (bool, error)
	RevokeAccess(ctx context.Context, deviceID, userID string) error
}

// HistoryStore is the persisted reading series per device.
type HistoryStore interface {
	WriteReading(ctx context.Context, deviceID string, reading models.Reading) error
	QueryReadings(ctx context.Context, deviceID string, since time.Time) ([]models.Reading, error)
	DeleteReadings(ctx context.Context, deviceID string) error
}

// SampleStore is the realtime latest-sample snapshot per device.
type SampleStore interface {
	SetLatest(ctx context.Context, deviceID string, sample models.RawSample) error
	// GetLatest returns (nil, nil) when the device has never reported.
	GetLatest(ctx context.Context, deviceID string) (*models.RawSample, error)
	DeleteLatest(ctx context.Context, deviceID string) error
}
