package models

import "time"

// AccessRole is the level of access a user holds on a device.
type AccessRole string

const (
	RoleOwner  AccessRole = "owner"
	RoleViewer AccessRole = "viewer"
)

// AccessGrant is a (device, user, role) authorization record. At most one
// grant exists per (DeviceID, UserID) pair; writes upsert.
type AccessGrant struct {
	DeviceID  string     `json:"deviceId"`
	UserID    string     `json:"userId"`
	Role      AccessRole `json:"accessType"`
	GrantedAt time.Time  `json:"addedAt"`
}
