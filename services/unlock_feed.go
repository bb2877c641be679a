package services

import (
	"context"
	"encoding/json"
	"errors"

	"virtual-campus/models"
	"virtual-campus/storage"
)

const DefaultFeedLimit = 20

// UnlockFeed keeps the most recent unlock events of each scope, newest first.
type UnlockFeed struct {
	KV    storage.KV
	Limit int
}

func NewUnlockFeed(kv storage.KV, limit int) *UnlockFeed {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	return &UnlockFeed{KV: kv, Limit: limit}
}

// List returns an empty slice for a scope without events. A corrupt feed is treated as empty.
func (f *UnlockFeed) List(ctx context.Context, scope string) ([]models.UnlockEvent, error) {
	raw, err := f.KV.Get(ctx, UnlockFeedKey(scope))
	if errors.Is(err, storage.ErrNotFound) {
		return []models.UnlockEvent{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Key: UnlockFeedKey(scope), Err: err}
	}

	var events []models.UnlockEvent
	if err := json.Unmarshal([]byte(raw), &events); err != nil || events == nil {
		return []models.UnlockEvent{}, nil
	}
	return events, nil
}

func (f *UnlockFeed) Append(ctx context.Context, event models.UnlockEvent) error {
	events, err := f.List(ctx, event.Scope)
	if err != nil {
		return err
	}

	events = append([]models.UnlockEvent{event}, events...)
	if len(events) > f.Limit {
		events = events[:f.Limit]
	}

	data, err := json.Marshal(events)
	if err != nil {
		return err
	}
	if err := f.KV.Set(ctx, UnlockFeedKey(event.Scope), string(data)); err != nil {
		return &PersistenceError{Op: "write", Key: UnlockFeedKey(event.Scope), Err: err}
	}
	return nil
}
