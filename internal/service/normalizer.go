package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bluetrack/tracking-backend-go/internal/apperr"
	"github.com/bluetrack/tracking-backend-go/internal/models"
)

// Field alias tables for heterogeneous tracker firmware. Per logical
// field, the first present-and-non-empty key wins, in order.
var (
	identifierAliases = []string{"device_id", "imei", "id"}
	latitudeAliases   = []string{"latitude", "lat"}
	longitudeAliases  = []string{"longitude", "lon", "lng"}
	speedAliases      = []string{"speed"}
	headingAliases    = []string{"heading", "direction"}
	altitudeAliases   = []string{"altitude"}
	accuracyAliases   = []string{"accuracy"}
	batteryAliases    = []string{"battery_level", "battery"}
	signalAliases     = []string{"signal_strength", "signal"}
	timestampAliases  = []string{"timestamp"}
)

// NormalizedReport is the validated canonical form of a tracker payload
type NormalizedReport struct {
	DeviceID  string
	IMEI      string
	Latitude  float64
	Longitude float64
	Speed     float64
	Heading   int
	Altitude  float64
	Accuracy  float64
	Battery   *int
	Signal    *int
	Timestamp time.Time
}

// Normalize validates a raw tracker report and produces its canonical
// form. Missing optional telemetry defaults to zero/absent;
// present-but-unparseable telemetry is rejected. An unparseable
// timestamp falls back to now because GPS hardware clocks are
// unreliable.
func Normalize(report models.TrackerReport, now time.Time) (*NormalizedReport, error) {
	deviceID, _ := stringField(report, identifierAliases)
	if deviceID == "" {
		return nil, apperr.MissingIdentifier()
	}

	lat, latOK, err := floatField(report, latitudeAliases)
	if err != nil {
		return nil, err
	}
	lon, lonOK, err := floatField(report, longitudeAliases)
	if err != nil {
		return nil, err
	}
	if !latOK || !lonOK {
		return nil, apperr.MissingCoordinates()
	}
	if lat < -90 || lat > 90 {
		return nil, apperr.Validation("latitude", "out of range [-90, 90]")
	}
	if lon < -180 || lon > 180 {
		return nil, apperr.Validation("longitude", "out of range [-180, 180]")
	}

	speed, _, err := floatField(report, speedAliases)
	if err != nil {
		return nil, err
	}
	if speed < 0 {
		return nil, apperr.Validation("speed", "must be non-negative")
	}

	headingRaw, _, err := floatField(report, headingAliases)
	if err != nil {
		return nil, err
	}
	heading := ((int(headingRaw) % 360) + 360) % 360

	altitude, _, err := floatField(report, altitudeAliases)
	if err != nil {
		return nil, err
	}

	accuracy, _, err := floatField(report, accuracyAliases)
	if err != nil {
		return nil, err
	}
	if accuracy < 0 {
		return nil, apperr.Validation("accuracy", "must be non-negative")
	}

	battery, err := intField(report, batteryAliases)
	if err != nil {
		return nil, err
	}
	if battery != nil {
		*battery = clamp(*battery, 0, 100)
	}

	signal, err := intField(report, signalAliases)
	if err != nil {
		return nil, err
	}

	imei, _ := stringField(report, []string{"imei"})

	return &NormalizedReport{
		DeviceID:  deviceID,
		IMEI:      imei,
		Latitude:  lat,
		Longitude: lon,
		Speed:     speed,
		Heading:   heading,
		Altitude:  altitude,
		Accuracy:  accuracy,
		Battery:   battery,
		Signal:    signal,
		Timestamp: timestampField(report, now),
	}, nil
}

// stringField resolves the first non-empty alias as a string. Numeric
// identifiers are formatted, since some trackers send ids as numbers.
func stringField(report models.TrackerReport, aliases []string) (string, bool) {
	for _, key := range aliases {
		raw, ok := report[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s, true
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case int:
			return strconv.Itoa(v), true
		case int64:
			return strconv.FormatInt(v, 10), true
		case json.Number:
			if s := v.String(); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// floatField resolves the first non-empty alias as a float. Absent or
// empty-string aliases fall through to the next; a non-empty value
// that does not parse is a field-specific rejection, never a silent
// zero.
func floatField(report models.TrackerReport, aliases []string) (float64, bool, error) {
	for _, key := range aliases {
		raw, ok := report[key]
		if !ok || raw == nil {
			continue
		}
		if s, isStr := raw.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		f, err := toFloat(raw)
		if err != nil {
			return 0, false, apperr.Validation(key, fmt.Sprintf("unparseable value %v", raw))
		}
		return f, true, nil
	}
	return 0, false, nil
}

func intField(report models.TrackerReport, aliases []string) (*int, error) {
	f, ok, err := floatField(report, aliases)
	if err != nil || !ok {
		return nil, err
	}
	n := int(f)
	return &n, nil
}

func toFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

// timestampField parses the event time, falling back to now on
// absence or any parse failure.
func timestampField(report models.TrackerReport, now time.Time) time.Time {
	for _, key := range timestampAliases {
		raw, ok := report[key]
		if !ok || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(v)); err == nil {
				return t
			}
			if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return unixTime(n)
			}
		case float64:
			return unixTime(v)
		case int64:
			return unixTime(float64(v))
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return unixTime(f)
			}
		}
		return now
	}
	return now
}

// unixTime interprets a numeric timestamp as milliseconds when it is
// too large to be seconds.
func unixTime(n float64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(int64(n))
	}
	return time.Unix(int64(n), 0)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
