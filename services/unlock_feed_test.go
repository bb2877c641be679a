package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"virtual-campus/logger"
	"virtual-campus/storage"
)

func TestUnlockFeedNewestFirstAndCapped(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV(0)
	feed := NewUnlockFeed(kv, 3)

	events, err := feed.List(ctx, "ana")
	require.NoError(t, err)
	require.Empty(t, events)

	for i := 0; i < 5; i++ {
		require.NoError(t, feed.Append(ctx, unlockEvent("ana", fmt.Sprintf("b%d", i))))
	}
	require.NoError(t, feed.Append(ctx, unlockEvent("bea", "other")))

	events, err = feed.List(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, events, 3)
	require.Equal(t, []string{"b4", "b3", "b2"}, []string{events[0].Badge.ID, events[1].Badge.ID, events[2].Badge.ID})

	events, err = feed.List(ctx, "bea")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestUnlockFeedCorruptIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV(0)
	require.NoError(t, kv.Set(ctx, UnlockFeedKey("ana"), "[oops"))

	feed := NewUnlockFeed(kv, 0)
	require.Equal(t, DefaultFeedLimit, feed.Limit)

	events, err := feed.List(ctx, "ana")
	require.NoError(t, err)
	require.Empty(t, events)

	require.NoError(t, feed.Append(ctx, unlockEvent("ana", "mentor")))
	events, err = feed.List(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestRegistrySharesStores(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV(0)
	registry := newTestRegistry(t, kv)

	a1, err := registry.Store(ctx, "ana")
	require.NoError(t, err)
	a2, err := registry.Store(ctx, "ana")
	require.NoError(t, err)
	require.Same(t, a1, a2)

	_, err = registry.Store(ctx, "bea")
	require.NoError(t, err)
	require.Equal(t, []string{"ana", "bea"}, registry.Scopes())

	_, err = a1.Unlock(ctx, "mentor")
	require.NoError(t, err)

	registry.Forget("ana")
	require.Equal(t, []string{"bea"}, registry.Scopes())

	a3, err := registry.Store(ctx, "ana")
	require.NoError(t, err)
	require.NotSame(t, a1, a3)
	mentor, _ := a3.GetByID("mentor")
	require.True(t, mentor.Unlocked)
}

func TestRegistryReturnsStoreOnReadError(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryKV(0)
	seeded := newTestRegistry(t, mem)
	ana, err := seeded.Store(ctx, "ana")
	require.NoError(t, err)
	_, err = ana.Unlock(ctx, "mentor")
	require.NoError(t, err)

	kv := &flakyKV{KV: mem, failGet: fmt.Errorf("timeout")}
	registry := newTestRegistry(t, kv)
	store, err := registry.Store(ctx, "ana")
	require.True(t, IsPersistenceError(err))
	require.NotNil(t, store)
	require.False(t, store.Loaded())
	require.Equal(t, 235, store.GetTotalPoints())

	// still failing: the unlock is refused and nothing is written
	unlocked, err := store.Unlock(ctx, "traveler")
	require.False(t, unlocked)
	require.True(t, IsPersistenceError(err))
	require.Zero(t, kv.setCount())
	traveler, _ := store.GetByID("traveler")
	require.False(t, traveler.Unlocked)

	kv.failGets(nil)

	unlocked, err = store.Unlock(ctx, "traveler")
	require.NoError(t, err)
	require.True(t, unlocked)
	mentor, _ := store.GetByID("mentor")
	require.True(t, mentor.Unlocked)

	fresh := NewBadgeStore(mem, campusCatalog(t), "ana", WithLogger(logger.Nop()))
	_, err = fresh.Load(ctx)
	require.NoError(t, err)
	for _, id := range []string{"mentor", "traveler"} {
		b, _ := fresh.GetByID(id)
		require.True(t, b.Unlocked, id)
	}
}

func TestRegistryRetriesFailedLoad(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryKV(0)
	seeded, err := newTestRegistry(t, mem).Store(ctx, "ana")
	require.NoError(t, err)
	_, err = seeded.Unlock(ctx, "mentor")
	require.NoError(t, err)

	kv := &flakyKV{KV: mem, failGet: fmt.Errorf("timeout")}
	registry := newTestRegistry(t, kv)
	first, err := registry.Store(ctx, "ana")
	require.Error(t, err)

	kv.failGets(nil)
	second, err := registry.Store(ctx, "ana")
	require.NoError(t, err)
	require.Same(t, first, second)
	require.True(t, second.Loaded())
	mentor, _ := second.GetByID("mentor")
	require.True(t, mentor.Unlocked)
}

// blockingKV holds every Get of one key until release is closed.
type blockingKV struct {
	storage.KV
	key     string
	started chan struct{}
	release chan struct{}
}

func (b *blockingKV) Get(ctx context.Context, key string) (string, error) {
	if key == b.key {
		select {
		case b.started <- struct{}{}:
		default:
		}
		<-b.release
	}
	return b.KV.Get(ctx, key)
}

func TestRegistrySlowScopeDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	kv := &blockingKV{
		KV:      storage.NewMemoryKV(0),
		key:     BadgesKey("slow"),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	registry := newTestRegistry(t, kv)

	slowDone := make(chan error, 1)
	go func() {
		_, err := registry.Store(ctx, "slow")
		slowDone <- err
	}()
	<-kv.started

	fastDone := make(chan error, 1)
	go func() {
		_, err := registry.Store(ctx, "fast")
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		close(kv.release)
		t.Fatal("loading one scope blocked another")
	}

	close(kv.release)
	require.NoError(t, <-slowDone)
	require.Equal(t, []string{"fast", "slow"}, registry.Scopes())
}
