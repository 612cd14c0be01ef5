package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/bluetrack/tracking-backend-go/internal/models"
)

// DeviceRepository handles database operations for tracker devices
type DeviceRepository struct {
	db *sql.DB
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

const deviceColumns = `id, device_id, imei, phone_number, device_type, account_id, is_active,
	battery_level, signal_strength, last_communication, created_at, updated_at`

func scanDevice(row interface{ Scan(...interface{}) error }) (*models.Device, error) {
	var d models.Device
	var lastComm sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&d.ID, &d.DeviceID, &d.IMEI, &d.PhoneNumber, &d.DeviceType, &d.AccountID, &d.IsActive,
		&d.BatteryLevel, &d.SignalStrength, &lastComm, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastComm.Valid {
		t := time.UnixMilli(lastComm.Int64)
		d.LastCommunication = &t
	}
	d.CreatedAt = time.UnixMilli(createdAt)
	d.UpdatedAt = time.UnixMilli(updatedAt)

	return &d, nil
}

// ResolveActive retrieves the active device bound to the external
// identifier, nil if none
func (r *DeviceRepository) ResolveActive(deviceID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE device_id = ? AND is_active = 1`

	device, err := scanDevice(r.db.QueryRow(query, deviceID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve device: %w", err)
	}

	return device, nil
}

// GetByDeviceID retrieves a device regardless of active state, nil if absent
func (r *DeviceRepository) GetByDeviceID(deviceID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE device_id = ?`

	device, err := scanDevice(r.db.QueryRow(query, deviceID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return device, nil
}

// ActiveByAccount retrieves the active device for an account, nil if none
func (r *DeviceRepository) ActiveByAccount(accountID string) (*models.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices
		WHERE account_id = ? AND is_active = 1 ORDER BY updated_at DESC LIMIT 1`

	device, err := scanDevice(r.db.QueryRow(query, accountID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device by account: %w", err)
	}

	return device, nil
}

// Create inserts a new device row. ErrDeviceExists is returned when
// the device_id is already taken, so the caller can fall back to a
// plain resolve (the auto-provision race loser path).
func (r *DeviceRepository) Create(d *models.Device, now time.Time) error {
	query := `INSERT INTO devices (device_id, imei, phone_number, device_type, account_id, is_active,
		battery_level, signal_strength, last_communication, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`

	result, err := r.db.Exec(query,
		d.DeviceID, d.IMEI, d.PhoneNumber, d.DeviceType, d.AccountID, d.IsActive,
		d.BatteryLevel, d.SignalStrength, now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("failed to create device: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read device id: %w", err)
	}
	d.ID = id
	d.CreatedAt = time.UnixMilli(now.UnixMilli())
	d.UpdatedAt = d.CreatedAt

	return nil
}

// Touch records telemetry from an accepted report. Last write wins;
// nil battery/signal leave the stored values untouched.
func (r *DeviceRepository) Touch(deviceID string, battery, signal *int, now time.Time) error {
	query := `UPDATE devices SET
		last_communication = ?,
		battery_level = COALESCE(?, battery_level),
		signal_strength = COALESCE(?, signal_strength),
		updated_at = ?
		WHERE device_id = ?`

	if _, err := r.db.Exec(query, now.UnixMilli(), battery, signal, now.UnixMilli(), deviceID); err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}

	return nil
}

// Deactivate soft-deletes a device
func (r *DeviceRepository) Deactivate(deviceID string, now time.Time) error {
	query := `UPDATE devices SET is_active = 0, updated_at = ? WHERE device_id = ?`

	result, err := r.db.Exec(query, now.UnixMilli(), deviceID)
	if err != nil {
		return fmt.Errorf("failed to deactivate device: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Reassign moves a device to a different owning account
func (r *DeviceRepository) Reassign(deviceID, accountID string, now time.Time) error {
	query := `UPDATE devices SET account_id = ?, updated_at = ? WHERE device_id = ?`

	result, err := r.db.Exec(query, accountID, now.UnixMilli(), deviceID)
	if err != nil {
		return fmt.Errorf("failed to reassign device: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// ErrDeviceExists signals a device_id uniqueness conflict on Create
var ErrDeviceExists = fmt.Errorf("device already exists")

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
