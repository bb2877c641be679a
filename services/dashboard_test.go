package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"virtual-campus/logger"
	"virtual-campus/models"
	"virtual-campus/storage"
)

func newTestRegistry(t *testing.T, kv storage.KV) *BadgeRegistry {
	t.Helper()
	return NewBadgeRegistry(kv, campusCatalog(t), WithLogger(logger.Nop()), WithClock(fixedClock(testEpoch)))
}

func TestExportCSVGolden(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t, storage.NewMemoryKV(0))
	store, err := registry.Store(ctx, "tester")
	require.NoError(t, err)
	_, err = store.Unlock(ctx, "mentor")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, store.GetAll()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "badges_export", buf.Bytes())
}

func TestDashboardSummary(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t, storage.NewMemoryKV(0))
	dashboard := NewDashboardService(registry)
	user := &models.User{Email: "ana@example.com", Points: 125, Scope: "ana-example-com"}

	summary, err := dashboard.Summary(ctx, user)
	require.NoError(t, err)
	require.Same(t, user, summary.User)
	require.Equal(t, BadgeStats{TotalPoints: 235, Progress: 63, Unlocked: 5, Total: 8}, summary.Stats)
	require.Len(t, summary.UnlockedBadges, 5)
	require.Equal(t, "Futuro del Trabajo", summary.CurrentSession.Title)
	require.Equal(t, DashboardMetrics{SessionsAttended: 15, ImmersiveHours: 23, LocationsVisited: 5}, summary.Metrics)

	store, _ := registry.Store(ctx, user.Scope)
	_, err = store.Unlock(ctx, "traveler")
	require.NoError(t, err)

	summary, err = dashboard.Summary(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 265, summary.Stats.TotalPoints)
	require.Equal(t, 6, summary.Metrics.LocationsVisited)
}

type memoryUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    error
}

func (u *memoryUploader) Upload(_ context.Context, key string, body []byte, contentType string) (string, error) {
	if u.fail != nil {
		return "", u.fail
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[key] = body
	return "https://cdn.example/" + key, nil
}

func TestExportKey(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*3600))
	require.Equal(t, "exports/ana/badges-20250101-180405.csv", ExportKey("ana", at))
}

func TestExportAll(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t, storage.NewMemoryKV(0))
	for _, scope := range []string{"bea", "ana"} {
		_, err := registry.Store(ctx, scope)
		require.NoError(t, err)
	}

	uploader := &memoryUploader{}
	exporter := NewExportService(registry, uploader)
	exporter.Clock = fixedClock(testEpoch)

	results, err := exporter.ExportAll(ctx)
	require.NoError(t, err)
	require.Equal(t, []ExportResult{
		{Scope: "ana", Key: "exports/ana/badges-20250314-092653.csv", URL: "https://cdn.example/exports/ana/badges-20250314-092653.csv"},
		{Scope: "bea", Key: "exports/bea/badges-20250314-092653.csv", URL: "https://cdn.example/exports/bea/badges-20250314-092653.csv"},
	}, results)
	require.Contains(t, string(uploader.objects["exports/ana/badges-20250314-092653.csv"]), "mentor,Mentor Experto")

	uploader.fail = errors.New("bucket gone")
	results, err = exporter.ExportAll(ctx)
	require.ErrorContains(t, err, "bucket gone")
	require.Empty(t, results)
}

func TestExportSchedulerRuns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := newTestRegistry(t, storage.NewMemoryKV(0))
	_, err := registry.Store(ctx, "ana")
	require.NoError(t, err)

	uploader := &memoryUploader{}
	sched, err := NewExportService(registry, uploader).StartExportScheduler(ctx, 20*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = sched.Shutdown() }()

	require.Eventually(t, func() bool {
		uploader.mu.Lock()
		defer uploader.mu.Unlock()
		return len(uploader.objects) > 0
	}, 2*time.Second, 10*time.Millisecond)
}
