package services

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"virtual-campus/models"
)

type BadgeStats struct {
	TotalPoints int `json:"totalPoints"`
	Progress    int `json:"progress"`
	Unlocked    int `json:"unlocked"`
	Total       int `json:"total"`
}

// DashboardMetrics are demo figures derived from the unlocked badges.
type DashboardMetrics struct {
	SessionsAttended int `json:"sessionsAttended"`
	ImmersiveHours   int `json:"immersiveHours"`
	LocationsVisited int `json:"locationsVisited"`
}

type DashboardSummary struct {
	User           *models.User           `json:"user"`
	Stats          BadgeStats             `json:"stats"`
	UnlockedBadges models.BadgeCollection `json:"unlockedBadges"`
	CurrentSession models.CampusSession   `json:"currentSession"`
	Metrics        DashboardMetrics       `json:"metrics"`
}

type DashboardService struct {
	Registry *BadgeRegistry
}

func NewDashboardService(registry *BadgeRegistry) *DashboardService {
	return &DashboardService{Registry: registry}
}

// Summary never fails on a storage read error: the store falls back to its
// working copy and the error is returned alongside a usable summary.
func (s *DashboardService) Summary(ctx context.Context, user *models.User) (*DashboardSummary, error) {
	store, err := s.Registry.Store(ctx, user.Scope)

	all := store.GetAll()
	unlocked := all.Unlocked()

	return &DashboardSummary{
		User: user,
		Stats: BadgeStats{
			TotalPoints: all.TotalPoints(),
			Progress:    store.GetProgressPercentage(),
			Unlocked:    len(unlocked),
			Total:       len(all),
		},
		UnlockedBadges: unlocked,
		CurrentSession: models.CurrentCampusSession,
		Metrics:        metricsFor(unlocked),
	}, err
}

func metricsFor(unlocked models.BadgeCollection) DashboardMetrics {
	categories := map[models.BadgeCategory]bool{}
	for _, b := range unlocked {
		categories[b.Category] = true
	}
	return DashboardMetrics{
		SessionsAttended: 3 * len(unlocked),
		ImmersiveHours:   unlocked.TotalPoints() / 10,
		LocationsVisited: len(categories),
	}
}

var csvHeader = []string{"id", "name", "category", "rarity", "points", "unlocked", "unlocked_at"}

// ExportCSV writes the collection in catalog order. unlocked_at is RFC 3339 or empty.
func ExportCSV(w io.Writer, badges models.BadgeCollection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range badges {
		unlockedAt := ""
		if b.UnlockedAt != nil {
			unlockedAt = b.UnlockedAt.UTC().Format(time.RFC3339Nano)
		}
		row := []string{
			b.ID,
			b.Name,
			string(b.Category),
			string(b.Rarity),
			strconv.Itoa(b.Points),
			strconv.FormatBool(b.Unlocked),
			unlockedAt,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
