package live

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster(buffer int) (*Broadcaster, *SnapshotIndex) {
	index := NewSnapshotIndex(24 * time.Hour)
	return NewBroadcaster(index, buffer, zerolog.Nop()), index
}

func TestBroadcaster_BootstrapThenUpdates(t *testing.T) {
	b, index := newTestBroadcaster(16)
	now := time.Now()

	// K accounts ingested before the join
	for i := 0; i < 3; i++ {
		index.Upsert(entryAt(fmt.Sprintf("acct%d", i), float64(i), now))
	}

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	require.Len(t, sub.Bootstrap, 3)

	// nothing pending: the bootstrap is not replayed as updates
	select {
	case entry := <-sub.Updates():
		t.Fatalf("unexpected update %v", entry)
	default:
	}

	next := entryAt("acct9", 9, now.Add(time.Second))
	index.Upsert(next)
	b.Publish(next)

	select {
	case entry := <-sub.Updates():
		assert.Equal(t, "acct9", entry.AccountID)
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestBroadcaster_DeliveryIsolation(t *testing.T) {
	b, _ := newTestBroadcaster(16)
	now := time.Now()

	alive := b.Subscribe()
	defer b.Unsubscribe(alive)
	closing := b.Subscribe()

	// close one subscriber mid-stream; the other keeps receiving
	b.Unsubscribe(closing)
	b.Publish(entryAt("acct1", 1, now))

	select {
	case entry := <-alive.Updates():
		assert.Equal(t, "acct1", entry.AccountID)
	case <-time.After(time.Second):
		t.Fatal("surviving subscriber missed the update")
	}

	select {
	case <-closing.Updates():
		t.Fatal("closed subscriber received an update")
	default:
	}
}

func TestBroadcaster_ConcurrentCloseDuringPublish(t *testing.T) {
	b, _ := newTestBroadcaster(1)
	now := time.Now()

	subs := make([]*Subscription, 50)
	for i := range subs {
		subs[i] = b.Subscribe()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			b.Publish(entryAt("acct1", float64(i), now))
		}
	}()
	go func() {
		defer wg.Done()
		for _, sub := range subs {
			b.Unsubscribe(sub)
		}
	}()
	wg.Wait()

	assert.Zero(t, b.SubscriberCount())
}

func TestBroadcaster_StalledSubscriberDropped(t *testing.T) {
	b, _ := newTestBroadcaster(1)
	now := time.Now()

	stalled := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	// buffer of one: the second undrained publish drops the subscriber
	b.Publish(entryAt("acct1", 1, now))
	b.Publish(entryAt("acct1", 2, now.Add(time.Second)))

	assert.Zero(t, b.SubscriberCount())
	select {
	case <-stalled.Done():
	default:
		t.Fatal("stalled subscriber not closed")
	}
}

func TestBroadcaster_CloseAll(t *testing.T) {
	b, _ := newTestBroadcaster(4)

	s1 := b.Subscribe()
	s2 := b.Subscribe()
	require.Equal(t, 2, b.SubscriberCount())

	b.CloseAll()
	assert.Zero(t, b.SubscriberCount())

	for _, s := range []*Subscription{s1, s2} {
		select {
		case <-s.Done():
		default:
			t.Fatal("subscription not closed")
		}
	}
}

func TestBroadcaster_SubscribeSeesAtomicSnapshot(t *testing.T) {
	b, index := newTestBroadcaster(64)
	now := time.Now()

	index.Upsert(entryAt("acct1", 1, now))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 2; i <= 20; i++ {
			e := entryAt("acct1", float64(i), now.Add(time.Duration(i)*time.Second))
			index.Upsert(e)
			b.Publish(e)
		}
	}()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)
	wg.Wait()

	require.Len(t, sub.Bootstrap, 1)
	last := sub.Bootstrap[0].Latitude

	// updates resume at or after the bootstrapped state, never behind
	// the final published value overall
	final := last
	for {
		select {
		case e := <-sub.Updates():
			final = e.Latitude
			continue
		default:
		}
		break
	}
	assert.Equal(t, 20.0, final)
}
