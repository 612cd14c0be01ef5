package live

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluetrack/tracking-backend-go/internal/models"
)

func entryAt(accountID string, lat float64, ts time.Time) models.SnapshotEntry {
	return models.SnapshotEntry{AccountID: accountID, Latitude: lat, Timestamp: ts}
}

func TestSnapshotIndex_UpsertReplacesUnconditionally(t *testing.T) {
	index := NewSnapshotIndex(24 * time.Hour)
	now := time.Now()

	for i := 1; i <= 5; i++ {
		index.Upsert(entryAt("acct1", float64(i), now.Add(time.Duration(i)*time.Second)))
	}

	entries := index.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, 5.0, entries[0].Latitude)
}

func TestSnapshotIndex_SnapshotOrder(t *testing.T) {
	index := NewSnapshotIndex(24 * time.Hour)
	now := time.Now()

	for i := 0; i < 4; i++ {
		index.Upsert(entryAt(fmt.Sprintf("acct%d", i), float64(i), now.Add(time.Duration(i)*time.Minute)))
	}

	entries := index.Snapshot()
	require.Len(t, entries, 4)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Timestamp.After(entries[i-1].Timestamp))
	}
}

func TestSnapshotIndex_WindowExpiry(t *testing.T) {
	index := NewSnapshotIndex(24 * time.Hour)
	now := time.Now()
	index.now = func() time.Time { return now }

	index.Upsert(entryAt("fresh", 1, now.Add(-time.Hour)))
	index.Upsert(entryAt("stale", 2, now.Add(-25*time.Hour)))

	entries := index.Snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].AccountID)

	_, ok := index.Get("stale")
	assert.False(t, ok)

	// lazily held until a rebuild replaces the map
	assert.Equal(t, 2, index.Len())
	index.ReplaceAll(map[string]models.SnapshotEntry{
		"fresh": entryAt("fresh", 1, now.Add(-time.Hour)),
	})
	assert.Equal(t, 1, index.Len())
}

func TestSnapshotIndex_ConcurrentAccess(t *testing.T) {
	index := NewSnapshotIndex(24 * time.Hour)
	now := time.Now()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			index.Upsert(entryAt(fmt.Sprintf("acct%d", i%10), float64(i), now))
		}
	}()

	for i := 0; i < 500; i++ {
		index.Snapshot()
	}
	<-done

	assert.Equal(t, 10, index.Len())
}
