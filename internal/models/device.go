package models

import "time"

// Device types supported by the tracking pipeline
const (
	DeviceTypeGPSTracker = "gps_tracker"
	DeviceTypeSmartphone = "smartphone"
	DeviceTypeSatellite  = "satellite"
)

// Device represents a physical tracking unit bound to one owning account
type Device struct {
	ID                int64      `json:"id" db:"id"`
	DeviceID          string     `json:"deviceId" db:"device_id"`
	IMEI              string     `json:"imei,omitempty" db:"imei"`
	PhoneNumber       string     `json:"phoneNumber,omitempty" db:"phone_number"`
	DeviceType        string     `json:"deviceType" db:"device_type"`
	AccountID         string     `json:"accountId" db:"account_id"`
	IsActive          bool       `json:"isActive" db:"is_active"`
	BatteryLevel      *int       `json:"batteryLevel,omitempty" db:"battery_level"`
	SignalStrength    *int       `json:"signalStrength,omitempty" db:"signal_strength"`
	LastCommunication *time.Time `json:"lastCommunication,omitempty" db:"last_communication"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`
}

// Account is the minimal owner record the core holds. Profile and
// credential management live in the external user service; accounts
// created by device auto-provisioning are marked provisional.
type Account struct {
	ID          string    `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	DisplayName string    `json:"displayName,omitempty" db:"display_name"`
	Provisional bool      `json:"provisional" db:"provisional"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Label returns the best human-readable name for the account.
func (a *Account) Label() string {
	if a == nil {
		return ""
	}
	if a.DisplayName != "" {
		return a.DisplayName
	}
	if a.Username != "" {
		return a.Username
	}
	return a.ID
}

// DeviceStatus is the read-surface view of a device with its owner
// and last known position.
type DeviceStatus struct {
	Device       Device   `json:"device"`
	Owner        *Account `json:"owner,omitempty"`
	LastPosition *Fix     `json:"lastPosition,omitempty"`
}
