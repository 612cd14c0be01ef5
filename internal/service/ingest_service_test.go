package service

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluetrack/tracking-backend-go/internal/apperr"
	"github.com/bluetrack/tracking-backend-go/internal/database"
	"github.com/bluetrack/tracking-backend-go/internal/live"
	"github.com/bluetrack/tracking-backend-go/internal/models"
	"github.com/bluetrack/tracking-backend-go/internal/repository"
)

type testEnv struct {
	accounts    *repository.AccountRepository
	devices     *repository.DeviceRepository
	positions   *repository.PositionRepository
	index       *live.SnapshotIndex
	broadcaster *live.Broadcaster
	snapshots   *SnapshotService
	ingest      *IngestService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))

	accounts := repository.NewAccountRepository(db)
	devices := repository.NewDeviceRepository(db)
	positions := repository.NewPositionRepository(db)

	index := live.NewSnapshotIndex(24 * time.Hour)
	broadcaster := live.NewBroadcaster(index, 16, zerolog.Nop())
	snapshots := NewSnapshotService(index, positions, devices, accounts, zerolog.Nop())
	ingest := NewIngestService(devices, accounts, positions, snapshots, broadcaster, zerolog.Nop())

	return &testEnv{
		accounts:    accounts,
		devices:     devices,
		positions:   positions,
		index:       index,
		broadcaster: broadcaster,
		snapshots:   snapshots,
		ingest:      ingest,
	}
}

func (e *testEnv) seedDevice(t *testing.T, deviceID, accountID string) *models.Device {
	t.Helper()

	_, err := e.accounts.GetOrCreateProvisional(accountID, accountID, time.Now())
	require.NoError(t, err)

	device := &models.Device{
		DeviceID:   deviceID,
		DeviceType: models.DeviceTypeSmartphone,
		AccountID:  accountID,
		IsActive:   true,
	}
	require.NoError(t, e.devices.Create(device, time.Now()))

	return device
}

func TestIngest_AutoProvisionScenario(t *testing.T) {
	env := newTestEnv(t)

	ack, err := env.ingest.Ingest(models.TrackerReport{
		"device_id": "TRK001",
		"imei":      "123456789012345",
		"lat":       14.7167,
		"lng":       -17.4677,
		"speed":     5.5,
		"heading":   180.0,
		"battery":   85.0,
		"signal":    4.0,
	})
	require.NoError(t, err)

	assert.Equal(t, "TRK001", ack.DeviceID)
	assert.Equal(t, "tracker_TRK001", ack.AccountID)
	assert.Equal(t, 14.7167, ack.Coordinates.Latitude)
	assert.Equal(t, -17.4677, ack.Coordinates.Longitude)

	device, err := env.devices.ResolveActive("TRK001")
	require.NoError(t, err)
	require.NotNil(t, device)
	assert.Equal(t, models.DeviceTypeGPSTracker, device.DeviceType)
	assert.Equal(t, "123456789012345", device.IMEI)
	require.NotNil(t, device.BatteryLevel)
	require.NotNil(t, device.SignalStrength)
	assert.Equal(t, 85, *device.BatteryLevel)
	assert.Equal(t, 4, *device.SignalStrength)
	assert.NotNil(t, device.LastCommunication)

	fix, err := env.positions.LatestByAccount(ack.AccountID)
	require.NoError(t, err)
	require.NotNil(t, fix)
	assert.Equal(t, 14.7167, fix.Latitude)
	assert.Equal(t, -17.4677, fix.Longitude)
	assert.Equal(t, 5.5, fix.Speed)
	assert.Equal(t, 180, fix.Heading)
}

func TestIngest_SecondReportWins(t *testing.T) {
	env := newTestEnv(t)

	base := time.Now()
	env.ingest.now = func() time.Time { return base }
	_, err := env.ingest.Ingest(models.TrackerReport{
		"device_id": "TRK001", "imei": "123", "lat": 14.7167, "lng": -17.4677,
	})
	require.NoError(t, err)

	env.ingest.now = func() time.Time { return base.Add(time.Second) }
	_, err = env.ingest.Ingest(models.TrackerReport{
		"device_id": "TRK001", "latitude": 14.8, "longitude": -17.5,
	})
	require.NoError(t, err)

	latest, err := env.positions.LatestPerAccount(24*time.Hour, base.Add(2*time.Second))
	require.NoError(t, err)
	fix, ok := latest["tracker_TRK001"]
	require.True(t, ok)
	assert.Equal(t, 14.8, fix.Latitude)
	assert.Equal(t, -17.5, fix.Longitude)

	entry, ok := env.index.Get("tracker_TRK001")
	require.True(t, ok)
	assert.Equal(t, 14.8, entry.Latitude)
	assert.Equal(t, -17.5, entry.Longitude)
}

func TestIngest_UnknownDeviceWithoutIMEI(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ingest.Ingest(models.TrackerReport{
		"device_id": "GHOST", "lat": 1.0, "lon": 2.0,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	// zero side effects
	latest, err := env.positions.LatestPerAccount(24*time.Hour, time.Now())
	require.NoError(t, err)
	assert.Empty(t, latest)
	assert.Zero(t, env.index.Len())
}

func TestIngest_MissingIdentifierNoSideEffects(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ingest.Ingest(models.TrackerReport{"lat": 1.0, "lon": 2.0})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindMissingIdentifier))

	latest, err := env.positions.LatestPerAccount(24*time.Hour, time.Now())
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestIngest_MissingCoordinatesDeviceUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.seedDevice(t, "TRK001", "acct1")

	_, err := env.ingest.Ingest(models.TrackerReport{"device_id": "TRK001", "battery": 50.0})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindMissingCoordinates))

	device, err := env.devices.ResolveActive("TRK001")
	require.NoError(t, err)
	assert.Nil(t, device.LastCommunication)
	assert.Nil(t, device.BatteryLevel)

	fix, err := env.positions.LatestByAccount("acct1")
	require.NoError(t, err)
	assert.Nil(t, fix)
}

func TestIngest_ConcurrentAutoProvisionIdempotent(t *testing.T) {
	env := newTestEnv(t)

	const workers = 8
	acks := make([]*models.IngestAck, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			acks[n], errs[n] = env.ingest.Ingest(models.TrackerReport{
				"device_id": "TRK900", "imei": "999888777", "lat": 5.0, "lon": 6.0,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tracker_TRK900", acks[i].AccountID)
	}

	// exactly one device row resulted
	device, err := env.devices.ResolveActive("TRK900")
	require.NoError(t, err)
	require.NotNil(t, device)

	count, err := env.positions.CountByAccount("tracker_TRK900", 24*time.Hour, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(workers), count)
}

func TestIngest_DeactivatedDeviceRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedDevice(t, "TRK001", "acct1")
	require.NoError(t, env.devices.Deactivate("TRK001", time.Now()))

	_, err := env.ingest.Ingest(models.TrackerReport{
		"device_id": "TRK001", "lat": 1.0, "lon": 2.0,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestIngest_PublishesToSubscribers(t *testing.T) {
	env := newTestEnv(t)

	sub := env.broadcaster.Subscribe()
	defer env.broadcaster.Unsubscribe(sub)
	assert.Empty(t, sub.Bootstrap)

	_, err := env.ingest.Ingest(models.TrackerReport{
		"device_id": "TRK001", "imei": "123", "lat": 14.7167, "lng": -17.4677,
	})
	require.NoError(t, err)

	select {
	case entry := <-sub.Updates():
		assert.Equal(t, "tracker_TRK001", entry.AccountID)
		assert.Equal(t, 14.7167, entry.Latitude)
		assert.Equal(t, "TRK001", entry.DeviceID)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestSnapshotService_Rebuild(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ingest.Ingest(models.TrackerReport{
		"device_id": "TRK001", "imei": "123", "lat": 1.0, "lon": 2.0,
	})
	require.NoError(t, err)
	_, err = env.ingest.Ingest(models.TrackerReport{
		"device_id": "TRK002", "imei": "456", "lat": 3.0, "lon": 4.0,
	})
	require.NoError(t, err)

	// wipe and rebuild from the store
	env.index.ReplaceAll(nil)
	require.Zero(t, env.index.Len())
	require.NoError(t, env.snapshots.Rebuild())

	entries := env.index.Snapshot()
	require.Len(t, entries, 2)

	entry, ok := env.index.Get("tracker_TRK001")
	require.True(t, ok)
	assert.Equal(t, "TRK001", entry.DeviceID)
	assert.Equal(t, models.DeviceTypeGPSTracker, entry.DeviceType)
}
