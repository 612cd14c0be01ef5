package service

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bluetrack/tracking-backend-go/internal/apperr"
	"github.com/bluetrack/tracking-backend-go/internal/live"
	"github.com/bluetrack/tracking-backend-go/internal/models"
	"github.com/bluetrack/tracking-backend-go/internal/repository"
)

// IngestService is the location ingestion pipeline: normalize,
// resolve the device (auto-provisioning recognized hardware), append
// the fix, touch device telemetry, update the live snapshot and fan
// the entry out. Device, snapshot and broadcast effects only happen
// after the fix is durably stored.
type IngestService struct {
	deviceRepo   *repository.DeviceRepository
	accountRepo  *repository.AccountRepository
	positionRepo *repository.PositionRepository
	snapshots    *SnapshotService
	broadcaster  *live.Broadcaster
	logger       zerolog.Logger

	now func() time.Time
}

// NewIngestService creates a new ingestion service
func NewIngestService(
	deviceRepo *repository.DeviceRepository,
	accountRepo *repository.AccountRepository,
	positionRepo *repository.PositionRepository,
	snapshots *SnapshotService,
	broadcaster *live.Broadcaster,
	logger zerolog.Logger,
) *IngestService {
	return &IngestService{
		deviceRepo:   deviceRepo,
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		snapshots:    snapshots,
		broadcaster:  broadcaster,
		logger:       logger,
		now:          time.Now,
	}
}

// Ingest processes one tracker report end to end and returns the
// acknowledgement for the tracker, or a classified rejection.
func (s *IngestService) Ingest(report models.TrackerReport) (*models.IngestAck, error) {
	now := s.now()

	norm, err := Normalize(report, now)
	if err != nil {
		return nil, err
	}

	device, err := s.resolveDevice(norm, now)
	if err != nil {
		return nil, err
	}

	fix := models.Fix{
		AccountID: device.AccountID,
		Latitude:  norm.Latitude,
		Longitude: norm.Longitude,
		Speed:     norm.Speed,
		Heading:   norm.Heading,
		Altitude:  norm.Altitude,
		Accuracy:  norm.Accuracy,
		Timestamp: norm.Timestamp,
	}

	fixID, err := s.positionRepo.Append(&fix, now)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	// Post-append effects. The fix is durable at this point; a touch
	// failure leaves telemetry stale but the report accepted.
	if err := s.deviceRepo.Touch(device.DeviceID, norm.Battery, norm.Signal, now); err != nil {
		s.logger.Error().Err(err).Str("device", device.DeviceID).Msg("telemetry update failed")
	} else {
		if norm.Battery != nil {
			device.BatteryLevel = norm.Battery
		}
		if norm.Signal != nil {
			device.SignalStrength = norm.Signal
		}
		t := now
		device.LastCommunication = &t
	}

	entry := s.snapshots.BuildEntry(fix, device)
	s.snapshots.Index().Upsert(entry)
	s.broadcaster.Publish(entry)

	s.logger.Info().
		Str("device", device.DeviceID).
		Str("account", device.AccountID).
		Float64("lat", fix.Latitude).
		Float64("lon", fix.Longitude).
		Msg("position ingested")

	return &models.IngestAck{
		DeviceID:  device.DeviceID,
		AccountID: device.AccountID,
		FixID:     fixID,
		Coordinates: models.Coordinates{
			Latitude:  fix.Latitude,
			Longitude: fix.Longitude,
		},
	}, nil
}

// resolveDevice looks up the active device for the report, creating a
// placeholder owner and a gps_tracker device row on first contact
// from unregistered hardware that carries an IMEI.
func (s *IngestService) resolveDevice(norm *NormalizedReport, now time.Time) (*models.Device, error) {
	device, err := s.deviceRepo.ResolveActive(norm.DeviceID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if device != nil {
		return device, nil
	}

	if norm.IMEI == "" {
		return nil, apperr.NotFound("device not found")
	}

	return s.autoProvision(norm, now)
}

// autoProvision self-registers field hardware: a provisional account
// keyed deterministically by device id plus a new gps_tracker device.
// Idempotent under races through the device_id uniqueness constraint;
// the loser retries as a plain resolve.
func (s *IngestService) autoProvision(norm *NormalizedReport, now time.Time) (*models.Device, error) {
	accountID := provisionalAccountID(norm.DeviceID)

	account, err := s.accountRepo.GetOrCreateProvisional(accountID, accountID, now)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	device := &models.Device{
		DeviceID:   norm.DeviceID,
		IMEI:       norm.IMEI,
		DeviceType: models.DeviceTypeGPSTracker,
		AccountID:  account.ID,
		IsActive:   true,
	}

	err = s.deviceRepo.Create(device, now)
	if err == repository.ErrDeviceExists {
		existing, resolveErr := s.deviceRepo.ResolveActive(norm.DeviceID)
		if resolveErr != nil {
			return nil, apperr.Storage(resolveErr)
		}
		if existing == nil {
			return nil, apperr.NotFound("device exists but is deactivated")
		}
		return existing, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}

	s.logger.Info().Str("device", device.DeviceID).Str("account", account.ID).Msg("device auto-provisioned")
	return device, nil
}

func provisionalAccountID(deviceID string) string {
	return fmt.Sprintf("tracker_%s", deviceID)
}
