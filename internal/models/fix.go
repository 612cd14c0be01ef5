package models

import "time"

// Fix is one normalized GPS position report. Fixes are immutable once
// stored; recency queries order by timestamp, ingestion audit by
// created_at.
type Fix struct {
	ID        int64     `json:"id" db:"id"`
	AccountID string    `json:"accountId" db:"account_id"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	Speed     float64   `json:"speed" db:"speed"`
	Heading   int       `json:"heading" db:"heading"`
	Altitude  float64   `json:"altitude" db:"altitude"`
	Accuracy  float64   `json:"accuracy" db:"accuracy"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// PositionFilter holds query parameters for the recent-positions read
// surface.
type PositionFilter struct {
	AccountID   string `form:"accountId"`
	WindowHours int    `form:"window"`
	Limit       int    `form:"limit"`
}

// ActivityZone is the circular area covering a set of fixes: the
// spherical centroid and the smallest centered radius containing all
// points.
type ActivityZone struct {
	CenterLatitude  float64 `json:"centerLatitude"`
	CenterLongitude float64 `json:"centerLongitude"`
	RadiusMeters    float64 `json:"radiusMeters"`
}

// PositionsResponse is the recent-positions payload, including the
// cumulative travel distance over the returned window and the activity
// zone the fixes cluster in.
type PositionsResponse struct {
	Data           []Fix         `json:"data"`
	Total          int           `json:"total"`
	WindowHours    int           `json:"windowHours"`
	DistanceMeters float64       `json:"distanceMeters"`
	Zone           *ActivityZone `json:"zone,omitempty"`
}
