package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/unidecode"
	"github.com/rs/zerolog"

	"virtual-campus/logger"
	"virtual-campus/models"
	"virtual-campus/storage"
)

// Clock returns the current time. Tests swap it for a fixed one.
type Clock func() time.Time

// Publisher receives an event for every successful unlock.
type Publisher interface {
	Publish(event models.UnlockEvent)
}

type BadgeStoreOption func(*BadgeStore)

func WithClock(clock Clock) BadgeStoreOption {
	return func(s *BadgeStore) { s.clock = clock }
}

func WithPublisher(p Publisher) BadgeStoreOption {
	return func(s *BadgeStore) { s.publisher = p }
}

// WithReconcile makes Unlock merge the persisted record into the working copy
// first, so unlocks written by another process are not overwritten.
func WithReconcile(enabled bool) BadgeStoreOption {
	return func(s *BadgeStore) { s.reconcile = enabled }
}

// WithResetOnCatalogChange makes Load reset the record whenever the stored
// catalog version differs from the current one.
func WithResetOnCatalogChange(enabled bool) BadgeStoreOption {
	return func(s *BadgeStore) { s.resetOnCatalogChange = enabled }
}

func WithLogger(l zerolog.Logger) BadgeStoreOption {
	return func(s *BadgeStore) { s.log = l }
}

// BadgeStore keeps one scope's badge collection in memory and mirrors it to
// a single JSON record in the key-value store.
type BadgeStore struct {
	kv      storage.KV
	catalog *models.Catalog
	scope   string

	clock                Clock
	publisher            Publisher
	reconcile            bool
	resetOnCatalogChange bool
	log                  zerolog.Logger

	mu     sync.Mutex
	states []models.BadgeState
	loaded bool
}

func NewBadgeStore(kv storage.KV, catalog *models.Catalog, scope string, opts ...BadgeStoreOption) *BadgeStore {
	s := &BadgeStore{
		kv:      kv,
		catalog: catalog,
		scope:   scope,
		clock:   time.Now,
		log:     logger.Log.With().Str("scope", scope).Logger(),
		states:  catalog.DefaultStates(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BadgeStore) Scope() string {
	return s.scope
}

func (s *BadgeStore) Catalog() *models.Catalog {
	return s.catalog
}

func (s *BadgeStore) key() string {
	return BadgesKey(s.scope)
}

// Load reads the persisted record into the working copy.
//
// A missing record is initialised from the catalog defaults and written back.
// A malformed record is replaced by the defaults without an error. A storage
// read failure keeps the current working copy (the defaults on first load)
// and returns a *PersistenceError; nothing is written in that case, and the
// store refuses to unlock until a later read succeeds.
func (s *BadgeStore) Load(ctx context.Context) (models.BadgeCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.loadLocked(ctx)
	return s.snapshotLocked(), err
}

// EnsureLoaded runs Load unless a read has already succeeded.
func (s *BadgeStore) EnsureLoaded(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}
	return s.loadLocked(ctx)
}

// Loaded reports whether the working copy reflects the persisted record.
func (s *BadgeStore) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *BadgeStore) loadLocked(ctx context.Context) error {
	if s.resetOnCatalogChange && s.catalogChanged(ctx) {
		s.log.Info().Str("version", s.catalog.Version).Msg("[BADGES] catalog changed, resetting record")
		return s.resetLocked(ctx)
	}

	raw, err := s.kv.Get(ctx, s.key())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.states = s.catalog.DefaultStates()
		s.loaded = true
		return s.persistDefaultsLocked(ctx)
	case err != nil:
		s.log.Error().Err(err).Msg("[BADGES] failed to read record")
		if !s.loaded {
			s.states = s.catalog.DefaultStates()
		}
		return &PersistenceError{Op: "read", Key: s.key(), Err: err}
	}

	states, err := decodeRecord(s.catalog, raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("[BADGES] malformed record, falling back to defaults")
		s.states = s.catalog.DefaultStates()
		s.loaded = true
		return s.persistDefaultsLocked(ctx)
	}

	s.states = states
	s.loaded = true
	return nil
}

func (s *BadgeStore) catalogChanged(ctx context.Context) bool {
	version, err := s.kv.Get(ctx, BadgesResetKey(s.scope))
	if errors.Is(err, storage.ErrNotFound) {
		return true
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("[BADGES] could not read catalog sentinel")
		return false
	}
	return version != s.catalog.Version
}

func (s *BadgeStore) GetAll() models.BadgeCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *BadgeStore) GetUnlocked() models.BadgeCollection {
	return s.GetAll().Unlocked()
}

func (s *BadgeStore) GetLocked() models.BadgeCollection {
	return s.GetAll().Locked()
}

func (s *BadgeStore) GetByCategory(category models.BadgeCategory) models.BadgeCollection {
	return s.GetAll().Filter(func(b models.Badge) bool { return b.Category == category })
}

// GetByID returns false for ids the catalog does not know.
func (s *BadgeStore) GetByID(id string) (models.Badge, bool) {
	i := s.catalog.IndexOf(id)
	if i < 0 {
		return models.Badge{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.badgeLocked(i), true
}

// Search matches the query against name and description, ignoring case and accents.
func (s *BadgeStore) Search(query string) models.BadgeCollection {
	q := normalize(query)
	all := s.GetAll()
	if q == "" {
		return all
	}
	return all.Filter(func(b models.Badge) bool {
		return strings.Contains(normalize(b.Name), q) || strings.Contains(normalize(b.Description), q)
	})
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}

// GetTotalPoints is always derived from the unlocked badges.
func (s *BadgeStore) GetTotalPoints() int {
	return s.GetAll().TotalPoints()
}

// GetProgressPercentage returns round(100 * unlocked / total), 0 for an empty catalog.
func (s *BadgeStore) GetProgressPercentage() int {
	all := s.GetAll()
	if len(all) == 0 {
		return 0
	}
	unlocked := len(all.Unlocked())
	return int(math.Round(100 * float64(unlocked) / float64(len(all))))
}

// Unlock marks a badge as unlocked and persists the record.
//
// It returns false with no side effects when the badge is already unlocked,
// and ErrBadgeNotFound for unknown ids. A store whose record was never read
// successfully retries the read first and returns (false, *PersistenceError)
// if it still fails, so the stored record is never replaced by defaults.
// When the write fails the unlock stays in memory, the event is still
// published and the call returns (true, *PersistenceError).
func (s *BadgeStore) Unlock(ctx context.Context, id string) (bool, error) {
	i := s.catalog.IndexOf(id)
	if i < 0 {
		return false, fmt.Errorf("%w: %q", ErrBadgeNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if err := s.loadLocked(ctx); err != nil && !s.loaded {
			return false, err
		}
	}

	if s.reconcile {
		s.reconcileLocked(ctx)
	}

	if s.states[i].Unlocked {
		return false, nil
	}

	now := s.clock().UTC()
	s.states[i] = models.BadgeState{BadgeID: id, Unlocked: true, UnlockedAt: &now}
	persistErr := s.persistLocked(ctx)

	def := s.catalog.Badges[i]
	s.log.Info().Str("badge", id).Int("points", def.Points).Msg("[BADGES] unlocked")

	if s.publisher != nil {
		s.publisher.Publish(models.UnlockEvent{
			ID:         uuid.NewString(),
			Scope:      s.scope,
			Badge:      def,
			UnlockedAt: now,
		})
	}

	if persistErr != nil {
		return true, persistErr
	}
	return true, nil
}

// Reset deletes the record and reinitialises it from the catalog defaults.
// Calling it twice yields the same collection.
func (s *BadgeStore) Reset(ctx context.Context) (models.BadgeCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.resetLocked(ctx)
	s.log.Info().Msg("[BADGES] reset to defaults")
	return s.snapshotLocked(), err
}

func (s *BadgeStore) resetLocked(ctx context.Context) error {
	s.states = s.catalog.DefaultStates()
	s.loaded = true

	if err := s.kv.Delete(ctx, s.key()); err != nil {
		return &PersistenceError{Op: "delete", Key: s.key(), Err: err}
	}
	return s.persistDefaultsLocked(ctx)
}

// reconcileLocked adopts unlocks found in the persisted record. For badges
// unlocked on both sides the earlier timestamp wins.
func (s *BadgeStore) reconcileLocked(ctx context.Context) {
	raw, err := s.kv.Get(ctx, s.key())
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Msg("[BADGES] reconcile read failed")
		}
		return
	}
	persisted, err := decodeRecord(s.catalog, raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("[BADGES] reconcile skipped malformed record")
		return
	}

	for i, p := range persisted {
		if !p.Unlocked {
			continue
		}
		local := s.states[i]
		if !local.Unlocked || p.UnlockedAt.Before(*local.UnlockedAt) {
			s.states[i] = p
		}
	}
}

func (s *BadgeStore) persistLocked(ctx context.Context) error {
	record, err := encodeRecord(s.catalog, s.states)
	if err != nil {
		return &PersistenceError{Op: "write", Key: s.key(), Err: err}
	}
	if err := s.kv.Set(ctx, s.key(), record); err != nil {
		s.log.Error().Err(err).Msg("[BADGES] failed to write record")
		return &PersistenceError{Op: "write", Key: s.key(), Err: err}
	}
	return nil
}

// persistDefaultsLocked writes the record together with the catalog sentinel.
func (s *BadgeStore) persistDefaultsLocked(ctx context.Context) error {
	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, BadgesResetKey(s.scope), s.catalog.Version); err != nil {
		return &PersistenceError{Op: "write", Key: BadgesResetKey(s.scope), Err: err}
	}
	return nil
}

func (s *BadgeStore) snapshotLocked() models.BadgeCollection {
	out := make(models.BadgeCollection, len(s.states))
	for i := range s.states {
		out[i] = s.badgeLocked(i)
	}
	return out
}

func (s *BadgeStore) badgeLocked(i int) models.Badge {
	state := s.states[i]
	if state.UnlockedAt != nil {
		at := *state.UnlockedAt
		state.UnlockedAt = &at
	}
	return models.Badge{BadgeDefinition: s.catalog.Badges[i], BadgeState: state}
}
