package live

import (
	"sort"
	"sync"
	"time"

	"github.com/bluetrack/tracking-backend-go/internal/models"
)

// SnapshotIndex is the in-memory latest-fix-per-account table backing
// subscriber bootstraps. It is derived state: always reconstructible
// from the position store and device registry via ReplaceAll.
//
// Upsert replaces an account's entry unconditionally (ingestion per
// device is sequential at the source, so the caller only ever hands
// it the newest accepted fix). Window expiry is lazy: entries older
// than the window are filtered on read and dropped on the next
// rebuild.
type SnapshotIndex struct {
	mu      sync.RWMutex
	entries map[string]models.SnapshotEntry
	window  time.Duration

	now func() time.Time
}

// NewSnapshotIndex creates an empty index with the given recency window
func NewSnapshotIndex(window time.Duration) *SnapshotIndex {
	return &SnapshotIndex{
		entries: make(map[string]models.SnapshotEntry),
		window:  window,
		now:     time.Now,
	}
}

// Window returns the active recency window
func (i *SnapshotIndex) Window() time.Duration {
	return i.window
}

// Upsert installs the entry for its account, replacing any prior one
func (i *SnapshotIndex) Upsert(entry models.SnapshotEntry) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[entry.AccountID] = entry
}

// ReplaceAll swaps in a freshly rebuilt entry set
func (i *SnapshotIndex) ReplaceAll(entries map[string]models.SnapshotEntry) {
	next := make(map[string]models.SnapshotEntry, len(entries))
	for id, e := range entries {
		next[id] = e
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries = next
}

// Snapshot returns all current in-window entries, newest first.
// Entries that have aged out of the window since the last rebuild are
// skipped here and reclaimed by the periodic rebuild sweep.
func (i *SnapshotIndex) Snapshot() []models.SnapshotEntry {
	cutoff := i.now().Add(-i.window)

	i.mu.RLock()
	entries := make([]models.SnapshotEntry, 0, len(i.entries))
	for _, e := range i.entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		entries = append(entries, e)
	}
	i.mu.RUnlock()

	sort.Slice(entries, func(a, b int) bool {
		if !entries[a].Timestamp.Equal(entries[b].Timestamp) {
			return entries[a].Timestamp.After(entries[b].Timestamp)
		}
		return entries[a].AccountID < entries[b].AccountID
	})

	return entries
}

// Get returns the entry for one account, if present and in-window
func (i *SnapshotIndex) Get(accountID string) (models.SnapshotEntry, bool) {
	i.mu.RLock()
	entry, ok := i.entries[accountID]
	i.mu.RUnlock()

	if !ok || entry.Timestamp.Before(i.now().Add(-i.window)) {
		return models.SnapshotEntry{}, false
	}
	return entry, true
}

// Len reports the number of held entries, expired or not
func (i *SnapshotIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}
