package models

import (
	"time"
)

// BadgeCategory groups badges for display.
type BadgeCategory string

const (
	BadgeCategoryExplorer     BadgeCategory = "explorer"
	BadgeCategoryLouvre       BadgeCategory = "louvre"
	BadgeCategoryThinker      BadgeCategory = "thinker"
	BadgeCategoryCollaborator BadgeCategory = "collaborator"
	BadgeCategoryChampion     BadgeCategory = "champion"
	BadgeCategoryInnovator    BadgeCategory = "innovator"
	BadgeCategoryTraveler     BadgeCategory = "traveler"
	BadgeCategoryMentor       BadgeCategory = "mentor"
	BadgeCategorySpecial      BadgeCategory = "special"
)

var badgeCategories = map[BadgeCategory]bool{
	BadgeCategoryExplorer:     true,
	BadgeCategoryLouvre:       true,
	BadgeCategoryThinker:      true,
	BadgeCategoryCollaborator: true,
	BadgeCategoryChampion:     true,
	BadgeCategoryInnovator:    true,
	BadgeCategoryTraveler:     true,
	BadgeCategoryMentor:       true,
	BadgeCategorySpecial:      true,
}

func (c BadgeCategory) Valid() bool {
	return badgeCategories[c]
}

// BadgeRarity: common, uncommon, rare, epic, legendary
type BadgeRarity string

const (
	BadgeRarityCommon    BadgeRarity = "common"
	BadgeRarityUncommon  BadgeRarity = "uncommon"
	BadgeRarityRare      BadgeRarity = "rare"
	BadgeRarityEpic      BadgeRarity = "epic"
	BadgeRarityLegendary BadgeRarity = "legendary"
)

func (r BadgeRarity) Valid() bool {
	switch r {
	case BadgeRarityCommon, BadgeRarityUncommon, BadgeRarityRare, BadgeRarityEpic, BadgeRarityLegendary:
		return true
	}
	return false
}

// BadgeDefinition is an immutable catalog entry.
type BadgeDefinition struct {
	ID              string        `yaml:"id" json:"id"`
	Name            string        `yaml:"name" json:"name"`
	Description     string        `yaml:"description" json:"description"`
	LongDescription string        `yaml:"long_description" json:"longDescription,omitempty"`
	Requirements    string        `yaml:"requirements" json:"requirements,omitempty"`
	Category        BadgeCategory `yaml:"category" json:"category"`
	Rarity          BadgeRarity   `yaml:"rarity" json:"rarity"`
	Points          int           `yaml:"points" json:"points"`
	Icon            string        `yaml:"icon" json:"icon"` // opaque, never interpreted here

	// DefaultUnlocked is the initial unlock pattern applied on first load and on reset.
	DefaultUnlocked bool `yaml:"default_unlocked" json:"-"`
}

// BadgeState is the per-user status of one definition.
// UnlockedAt is set if and only if Unlocked is true.
type BadgeState struct {
	BadgeID    string     `json:"badgeId"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// Badge joins a definition with its current state.
type Badge struct {
	BadgeDefinition
	BadgeState
}

// BadgeCollection is always in catalog declaration order.
type BadgeCollection []Badge

// Unlocked returns the unlocked badges, order preserved.
func (c BadgeCollection) Unlocked() BadgeCollection {
	return c.Filter(func(b Badge) bool { return b.Unlocked })
}

// Locked returns the locked badges, order preserved.
func (c BadgeCollection) Locked() BadgeCollection {
	return c.Filter(func(b Badge) bool { return !b.Unlocked })
}

func (c BadgeCollection) Filter(keep func(Badge) bool) BadgeCollection {
	out := BadgeCollection{}
	for _, b := range c {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// TotalPoints sums the points of unlocked badges.
func (c BadgeCollection) TotalPoints() int {
	total := 0
	for _, b := range c {
		if b.Unlocked {
			total += b.Points
		}
	}
	return total
}
