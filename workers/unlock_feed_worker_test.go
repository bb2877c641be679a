package workers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"virtual-campus/logger"
	"virtual-campus/models"
	"virtual-campus/services"
	"virtual-campus/storage"
)

func TestUnlockFeedWorkerRecordsUnlocks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	kv := storage.NewMemoryKV(0)
	catalog, err := models.LoadCatalog("campus")
	require.NoError(t, err)

	notifier := services.NewUnlockNotifier(8)
	feed := services.NewUnlockFeed(kv, 0)
	worker := NewUnlockFeedWorker(notifier, feed)

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return notifier.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	registry := services.NewBadgeRegistry(kv, catalog, services.WithPublisher(notifier), services.WithLogger(logger.Nop()))
	store, err := registry.Store(ctx, "ana")
	require.NoError(t, err)
	for _, id := range []string{"mentor", "traveler", "mentor"} {
		_, err := store.Unlock(ctx, id)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		events, err := feed.List(ctx, "ana")
		return err == nil && len(events) == 2
	}, time.Second, 5*time.Millisecond)

	events, err := feed.List(ctx, "ana")
	require.NoError(t, err)
	require.Equal(t, "traveler", events[0].Badge.ID)
	require.Equal(t, "mentor", events[1].Badge.ID)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	require.Zero(t, notifier.Subscribers())
}
