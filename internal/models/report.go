package models

// TrackerReport is the raw inbound payload from a field tracker.
// Field trackers disagree on key names and types, so the payload is
// kept loosely typed and resolved through the normalizer's alias
// tables.
type TrackerReport map[string]interface{}

// IngestAck is the acknowledgement returned to a tracker on a
// successfully ingested report.
type IngestAck struct {
	DeviceID    string      `json:"deviceId"`
	AccountID   string      `json:"accountId"`
	FixID       int64       `json:"fixId"`
	Coordinates Coordinates `json:"coordinates"`
}

// Coordinates is a normalized latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
