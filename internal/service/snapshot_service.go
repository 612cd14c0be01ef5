package service

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bluetrack/tracking-backend-go/internal/live"
	"github.com/bluetrack/tracking-backend-go/internal/models"
	"github.com/bluetrack/tracking-backend-go/internal/repository"
)

// SnapshotService owns the live snapshot index: it rebuilds it from
// the position store and enriches raw fixes into snapshot entries.
type SnapshotService struct {
	index        *live.SnapshotIndex
	positionRepo *repository.PositionRepository
	deviceRepo   *repository.DeviceRepository
	accountRepo  *repository.AccountRepository
	logger       zerolog.Logger

	now func() time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(
	index *live.SnapshotIndex,
	positionRepo *repository.PositionRepository,
	deviceRepo *repository.DeviceRepository,
	accountRepo *repository.AccountRepository,
	logger zerolog.Logger,
) *SnapshotService {
	return &SnapshotService{
		index:        index,
		positionRepo: positionRepo,
		deviceRepo:   deviceRepo,
		accountRepo:  accountRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Index exposes the underlying snapshot index
func (s *SnapshotService) Index() *live.SnapshotIndex {
	return s.index
}

// Rebuild recomputes the full index from the position store. Run at
// process start and periodically, so entries that aged out of the
// window with no new traffic get reclaimed.
func (s *SnapshotService) Rebuild() error {
	latest, err := s.positionRepo.LatestPerAccount(s.index.Window(), s.now())
	if err != nil {
		return fmt.Errorf("failed to rebuild snapshot: %w", err)
	}

	entries := make(map[string]models.SnapshotEntry, len(latest))
	for accountID, fix := range latest {
		device, err := s.deviceRepo.ActiveByAccount(accountID)
		if err != nil {
			s.logger.Warn().Err(err).Str("account", accountID).Msg("device lookup failed during rebuild")
			device = nil
		}
		entries[accountID] = s.BuildEntry(fix, device)
	}

	s.index.ReplaceAll(entries)
	s.logger.Debug().Int("entries", len(entries)).Msg("snapshot rebuilt")

	return nil
}

// BuildEntry enriches a fix with device telemetry and display fields.
// Missing enrichment degrades to identifiers, never to an error.
func (s *SnapshotService) BuildEntry(fix models.Fix, device *models.Device) models.SnapshotEntry {
	entry := models.SnapshotEntry{
		AccountID:   fix.AccountID,
		DisplayName: s.accountRepo.LabelFor(fix.AccountID),
		Latitude:    fix.Latitude,
		Longitude:   fix.Longitude,
		Speed:       fix.Speed,
		Heading:     fix.Heading,
		Altitude:    fix.Altitude,
		Accuracy:    fix.Accuracy,
		Timestamp:   fix.Timestamp,
	}

	if device != nil {
		entry.DeviceID = device.DeviceID
		entry.DeviceType = device.DeviceType
		entry.BatteryLevel = device.BatteryLevel
		entry.SignalStrength = device.SignalStrength
		entry.LastCommunication = device.LastCommunication
	}

	return entry
}

// LivePositions is the read-API view over the current snapshot
func (s *SnapshotService) LivePositions() models.LivePositionsResponse {
	entries := s.index.Snapshot()
	return models.LivePositionsResponse{
		Data:        entries,
		Total:       len(entries),
		WindowHours: int(s.index.Window() / time.Hour),
		GeneratedAt: s.now(),
	}
}
