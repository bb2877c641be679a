package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"virtual-campus/models"
)

// persistedBadge is one element of the stored JSON array: every definition
// field merged with the unlock state.
type persistedBadge struct {
	ID              string               `json:"id"`
	Name            string               `json:"name"`
	Description     string               `json:"description"`
	LongDescription string               `json:"longDescription,omitempty"`
	Requirements    string               `json:"requirements,omitempty"`
	Category        models.BadgeCategory `json:"category"`
	Rarity          models.BadgeRarity   `json:"rarity"`
	Points          int                  `json:"points"`
	Icon            string               `json:"icon"`
	Unlocked        bool                 `json:"unlocked"`
	UnlockedAt      *time.Time           `json:"unlockedAt,omitempty"`
}

// decodedBadge is the lenient read shape. Pointers tell "absent" from "zero";
// any field present with the wrong JSON type fails the whole record.
type decodedBadge struct {
	ID              *string `json:"id"`
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	LongDescription *string `json:"longDescription"`
	Requirements    *string `json:"requirements"`
	Category        *string `json:"category"`
	Rarity          *string `json:"rarity"`
	Points          *int    `json:"points"`
	Icon            *string `json:"icon"`
	Unlocked        *bool   `json:"unlocked"`
	UnlockedAt      *string `json:"unlockedAt"`
	UnlockedDate    *string `json:"unlockedDate"` // older records
}

func encodeRecord(catalog *models.Catalog, states []models.BadgeState) (string, error) {
	record := make([]persistedBadge, len(catalog.Badges))
	for i, def := range catalog.Badges {
		record[i] = persistedBadge{
			ID:              def.ID,
			Name:            def.Name,
			Description:     def.Description,
			LongDescription: def.LongDescription,
			Requirements:    def.Requirements,
			Category:        def.Category,
			Rarity:          def.Rarity,
			Points:          def.Points,
			Icon:            def.Icon,
			Unlocked:        states[i].Unlocked,
			UnlockedAt:      states[i].UnlockedAt,
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeRecord validates a stored record against the catalog and returns the
// states in catalog order. Catalog entries missing from the record are locked;
// record entries unknown to the catalog are dropped.
func decodeRecord(catalog *models.Catalog, raw string) ([]models.BadgeState, error) {
	var entries []*decodedBadge
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("record is not a badge array: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("record is null")
	}

	states := make([]models.BadgeState, catalog.Len())
	for i, def := range catalog.Badges {
		states[i] = models.BadgeState{BadgeID: def.ID}
	}

	seen := make(map[string]bool, len(entries))
	for n, entry := range entries {
		if entry == nil {
			return nil, fmt.Errorf("entry #%d is null", n)
		}
		if entry.ID == nil || strings.TrimSpace(*entry.ID) == "" {
			return nil, fmt.Errorf("entry #%d has no id", n)
		}
		id := *entry.ID
		if seen[id] {
			return nil, fmt.Errorf("duplicate entry %q", id)
		}
		seen[id] = true

		unlockedAt, err := entry.timestamp()
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", id, err)
		}

		i := catalog.IndexOf(id)
		if i < 0 {
			continue
		}
		if entry.Unlocked == nil || !*entry.Unlocked {
			continue
		}

		if unlockedAt == nil {
			at := catalog.DefaultUnlockedAt
			unlockedAt = &at
		}
		states[i].Unlocked = true
		states[i].UnlockedAt = unlockedAt
	}

	return states, nil
}

func (d *decodedBadge) timestamp() (*time.Time, error) {
	raw := d.UnlockedAt
	if raw == nil || *raw == "" {
		raw = d.UnlockedDate
	}
	if raw == nil || *raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339Nano, *raw)
	if err != nil {
		return nil, fmt.Errorf("bad unlock timestamp %q: %w", *raw, err)
	}
	t = t.UTC()
	return &t, nil
}
