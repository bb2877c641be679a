package models

import "time"

// UnlockEvent is emitted once per locked→unlocked transition.
// It carries the full definition so clients can render a toast without a lookup.
type UnlockEvent struct {
	ID         string          `json:"id"`
	Scope      string          `json:"scope"`
	Badge      BadgeDefinition `json:"badge"`
	UnlockedAt time.Time       `json:"unlockedAt"`
}
