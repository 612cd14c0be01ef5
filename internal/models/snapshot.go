package models

import "time"

// SnapshotEntry is the latest known fix for one account, enriched
// with device telemetry and display fields. This is the unit both the
// live bootstrap and the incremental updates carry.
type SnapshotEntry struct {
	AccountID         string     `json:"accountId"`
	DisplayName       string     `json:"displayName"`
	DeviceID          string     `json:"deviceId,omitempty"`
	DeviceType        string     `json:"deviceType,omitempty"`
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	Speed             float64    `json:"speed"`
	Heading           int        `json:"heading"`
	Altitude          float64    `json:"altitude"`
	Accuracy          float64    `json:"accuracy"`
	BatteryLevel      *int       `json:"batteryLevel,omitempty"`
	SignalStrength    *int       `json:"signalStrength,omitempty"`
	LastCommunication *time.Time `json:"lastCommunication,omitempty"`
	Timestamp         time.Time  `json:"timestamp"`
}

// LivePositionsResponse wraps a full snapshot for the read API.
type LivePositionsResponse struct {
	Data        []SnapshotEntry `json:"data"`
	Total       int             `json:"total"`
	WindowHours int             `json:"windowHours"`
	GeneratedAt time.Time       `json:"generatedAt"`
}
