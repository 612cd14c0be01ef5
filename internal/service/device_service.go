package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bluetrack/tracking-backend-go/internal/apperr"
	"github.com/bluetrack/tracking-backend-go/internal/models"
	"github.com/bluetrack/tracking-backend-go/internal/repository"
)

// DeviceService covers the device read surface and the
// administrative operations off the ingestion hot path.
type DeviceService struct {
	deviceRepo   *repository.DeviceRepository
	accountRepo  *repository.AccountRepository
	positionRepo *repository.PositionRepository

	now func() time.Time
}

// NewDeviceService creates a new device service
func NewDeviceService(
	deviceRepo *repository.DeviceRepository,
	accountRepo *repository.AccountRepository,
	positionRepo *repository.PositionRepository,
) *DeviceService {
	return &DeviceService{
		deviceRepo:   deviceRepo,
		accountRepo:  accountRepo,
		positionRepo: positionRepo,
		now:          time.Now,
	}
}

// Status returns a device with its owner and last known position
func (s *DeviceService) Status(deviceID string) (*models.DeviceStatus, error) {
	device, err := s.deviceRepo.GetByDeviceID(deviceID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if device == nil {
		return nil, apperr.NotFound("device not found")
	}

	status := &models.DeviceStatus{Device: *device}

	owner, err := s.accountRepo.GetByID(device.AccountID)
	if err == nil && owner != nil {
		status.Owner = owner
	}

	last, err := s.positionRepo.LatestByAccount(device.AccountID)
	if err == nil && last != nil {
		status.LastPosition = last
	}

	return status, nil
}

// Deactivate soft-deletes a device; it stops resolving on ingestion
func (s *DeviceService) Deactivate(deviceID string) error {
	err := s.deviceRepo.Deactivate(deviceID, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("device not found")
	}
	if err != nil {
		return fmt.Errorf("failed to deactivate device: %w", err)
	}
	return nil
}

// Reassign moves a device to another owning account
func (s *DeviceService) Reassign(deviceID, accountID string) error {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	if account == nil {
		return apperr.NotFound("account not found")
	}

	err = s.deviceRepo.Reassign(deviceID, accountID, s.now())
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("device not found")
	}
	if err != nil {
		return fmt.Errorf("failed to reassign device: %w", err)
	}
	return nil
}
