package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"virtual-campus/logger"
	"virtual-campus/models"
	"virtual-campus/storage"
)

var testEpoch = time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// flakyKV wraps a KV and fails selected operations on demand.
type flakyKV struct {
	storage.KV
	mu      sync.Mutex
	failGet error
	failSet error
	sets    int
}

func (f *flakyKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	err := f.failGet
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.KV.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	err := f.failSet
	f.sets++
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.KV.Set(ctx, key, value)
}

func (f *flakyKV) failGets(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = err
}

func (f *flakyKV) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.UnlockEvent
}

func (p *recordingPublisher) Publish(ev models.UnlockEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) all() []models.UnlockEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.UnlockEvent(nil), p.events...)
}

func campusCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	c, err := models.LoadCatalog("campus")
	require.NoError(t, err)
	return c
}

func miraiCatalog(t *testing.T) *models.Catalog {
	t.Helper()
	c, err := models.LoadCatalog("mirai")
	require.NoError(t, err)
	return c
}

func newTestStore(t *testing.T, kv storage.KV, catalog *models.Catalog, opts ...BadgeStoreOption) *BadgeStore {
	t.Helper()
	opts = append([]BadgeStoreOption{WithLogger(logger.Nop()), WithClock(fixedClock(testEpoch))}, opts...)
	return NewBadgeStore(kv, catalog, "tester", opts...)
}
