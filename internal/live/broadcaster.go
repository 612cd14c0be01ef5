package live

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bluetrack/tracking-backend-go/internal/models"
)

// Subscription is one live feed consumer. Lifecycle: created by
// Subscribe with its bootstrap already captured, receives incremental
// entries on Updates until Close, after which it receives nothing
// further. Close is idempotent and safe to call concurrently with an
// in-flight publish.
type Subscription struct {
	ID        string
	Bootstrap []models.SnapshotEntry

	updates   chan models.SnapshotEntry
	done      chan struct{}
	closeOnce sync.Once
}

// Updates is the incremental entry stream
func (s *Subscription) Updates() <-chan models.SnapshotEntry {
	return s.updates
}

// Done is closed when the subscription is terminated
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close terminates the subscription. The updates channel is never
// closed; publishers race-freely keep writing into its buffer and
// closed subscribers simply stop draining it.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Subscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Broadcaster fans accepted snapshot entries out to all live
// subscribers. Delivery is best-effort at-least-once: a stalled or
// closed subscriber never blocks the ingestion path or delivery to
// its peers.
type Broadcaster struct {
	index  *SnapshotIndex
	buffer int
	logger zerolog.Logger

	mu   sync.Mutex
	subs map[string]*Subscription
}

// NewBroadcaster creates a broadcaster over the given snapshot index
func NewBroadcaster(index *SnapshotIndex, buffer int, logger zerolog.Logger) *Broadcaster {
	if buffer < 1 {
		buffer = 64
	}
	return &Broadcaster{
		index:  index,
		buffer: buffer,
		logger: logger,
		subs:   make(map[string]*Subscription),
	}
}

// Subscribe registers a new consumer and captures its bootstrap
// snapshot atomically with the registration, so a sequentially prior
// ingest appears only in the bootstrap and a later one only in the
// update stream.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		ID:        uuid.NewString(),
		Bootstrap: b.index.Snapshot(),
		updates:   make(chan models.SnapshotEntry, b.buffer),
		done:      make(chan struct{}),
	}
	b.subs[sub.ID] = sub

	b.logger.Debug().Str("subscriber", sub.ID).Int("bootstrap", len(sub.Bootstrap)).Msg("subscriber joined")
	return sub
}

// Unsubscribe removes and closes a subscription. Safe to call for an
// already removed subscription.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub.ID)
	b.mu.Unlock()

	sub.Close()
	b.logger.Debug().Str("subscriber", sub.ID).Msg("subscriber left")
}

// Publish pushes one entry to every active subscriber without
// blocking. A subscriber whose buffer is full has stalled and is
// dropped; one that closed mid-iteration is skipped silently.
func (b *Broadcaster) Publish(entry models.SnapshotEntry) {
	b.mu.Lock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, sub := range targets {
		if sub.closed() {
			continue
		}
		select {
		case sub.updates <- entry:
		default:
			b.logger.Warn().Str("subscriber", sub.ID).Msg("subscriber stalled, dropping")
			b.Unsubscribe(sub)
		}
	}
}

// SubscriberCount reports the current number of registered subscribers
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// CloseAll terminates every subscription, used at shutdown
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]*Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
