package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/41vi4p/TankLens/internal/models"
)

// PostgresStore persists device documents and access grants.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a store over an open connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema returns the DDL the store expects. cmd/server applies it on
// boot; kept here so tests and tooling share one definition.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS devices (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	location     TEXT NOT NULL,
	max_capacity DOUBLE PRECISION NOT NULL,
	created_by   TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	last_updated TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS device_access (
	device_id  TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	access_type TEXT NOT NULL,
	granted_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (device_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_device_access_user ON device_access (user_id);
`
}

// CreateDevice inserts a device row together with its owner grant, in one
// transaction. A device id that already exists reports models.ErrDuplicate
// so the caller can suggest the link flow.
func (s *PostgresStore) CreateDevice(ctx context.Context, device models.Device, owner models.AccessGrant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create device %s: %w", device.ID, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO devices (id, name, location, max_capacity, created_by, created_at, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`,
		device.ID, device.Name, device.Location, device.MaxCapacityLiters,
		device.CreatedBy, device.CreatedAt, device.LastUpdated)
	if err != nil {
		return fmt.Errorf("insert device %s: %w", device.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert device %s: %w", device.ID, err)
	}
	if rows == 0 {
		return models.ErrDuplicate
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO device_access (device_id, user_id, access_type, granted_at)
VALUES ($1, $2, $3, $4)`,
		owner.DeviceID, owner.UserID, owner.Role, owner.GrantedAt)
	if err != nil {
		return fmt.Errorf("grant owner for %s: %w", device.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create device %s: %w", device.ID, err)
	}
	return nil
}

// GetDevice fetches one device row; readings are not stored here and come
// back empty.
func (s *PostgresStore) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, location, max_capacity, created_by, created_at, last_updated
FROM devices WHERE id = $1`, deviceID)

	var d models.Device
	err := row.Scan(&d.ID, &d.Name, &d.Location, &d.MaxCapacityLiters,
		&d.CreatedBy, &d.CreatedAt, &d.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get device %s: %w", deviceID, err)
	}
	return &d, nil
}

// UpdateDevice edits the user-editable fields.
func (s *PostgresStore) UpdateDevice(ctx context.Context, deviceID, name, location string, maxCapacity float64) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE devices SET name = $2, location = $3, max_capacity = $4 WHERE id = $1`,
		deviceID, name, location, maxCapacity)
	if err != nil {
		return fmt.Errorf("update device %s: %w", deviceID, err)
	}
	return requireRow(res, deviceID)
}

// TouchDevice advances last_updated after a reading was persisted.
func (s *PostgresStore) TouchDevice(ctx context.Context, deviceID string, lastUpdated time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE devices SET last_updated = $2 WHERE id = $1`, deviceID, lastUpdated)
	if err != nil {
		return fmt.Errorf("touch device %s: %w", deviceID, err)
	}
	return requireRow(res, deviceID)
}

// DeleteDevice removes the device row.
func (s *PostgresStore) DeleteDevice(ctx context.Context, deviceID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = $1`, deviceID)
	if err != nil {
		return fmt.Errorf("delete device %s: %w", deviceID, err)
	}
	return requireRow(res, deviceID)
}

// GrantAccess upserts an access grant. Granting the same (device, user)
// pair twice is a no-op apart from refreshing role and timestamp.
func (s *PostgresStore) GrantAccess(ctx context.Context, grant models.AccessGrant) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO device_access (device_id, user_id, access_type, granted_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (device_id, user_id) DO UPDATE
SET access_type = EXCLUDED.access_type, granted_at = EXCLUDED.granted_at`,
		grant.DeviceID, grant.UserID, grant.Role, grant.GrantedAt)
	if err != nil {
		return fmt.Errorf("grant access %s/%s: %w", grant.DeviceID, grant.UserID, err)
	}
	return nil
}

// ListAccessibleDevices returns the device ids the user holds any grant
// for. A new user with no devices gets an empty slice.
func (s *PostgresStore) ListAccessibleDevices(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT device_id FROM device_access WHERE user_id = $1 ORDER BY device_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// ListOwnedDevices returns every device id that has at least one owner
// grant, the set the background sync iterates.
func (s *PostgresStore) ListOwnedDevices(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT DISTINCT device_id FROM device_access WHERE access_type = $1 ORDER BY device_id`,
		models.RoleOwner)
	if err != nil {
		return nil, fmt.Errorf("list owned devices: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// HasAccess reports whether any grant exists for the pair.
func (s *PostgresStore) HasAccess(ctx context.Context, deviceID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM device_access WHERE device_id = $1 AND user_id = $2`,
		deviceID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check access %s/%s: %w", deviceID, userID, err)
	}
	return n > 0, nil
}

// RevokeAccess removes one grant. Not finding one is not an error; the
// grant is already gone.
func (s *PostgresStore) RevokeAccess(ctx context.Context, deviceID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
DELETE FROM device_access WHERE device_id = $1 AND user_id = $2`, deviceID, userID)
	if err != nil {
		return fmt.Errorf("revoke access %s/%s: %w", deviceID, userID, err)
	}
	return nil
}

func requireRow(res sql.Result, deviceID string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("device %s: %w", deviceID, err)
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
