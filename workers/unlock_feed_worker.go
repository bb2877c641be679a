package workers

import (
	"context"

	"virtual-campus/logger"
	"virtual-campus/services"
)

// UnlockFeedWorker records every unlock event in the per-scope feed.
type UnlockFeedWorker struct {
	Notifier *services.UnlockNotifier
	Feed     *services.UnlockFeed
}

func NewUnlockFeedWorker(notifier *services.UnlockNotifier, feed *services.UnlockFeed) *UnlockFeedWorker {
	return &UnlockFeedWorker{Notifier: notifier, Feed: feed}
}

// Start blocks until ctx is cancelled.
func (w *UnlockFeedWorker) Start(ctx context.Context) {
	events, cancel := w.Notifier.Subscribe("")
	defer cancel()

	logger.Info().Msg("[FEED] unlock feed worker started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("[FEED] unlock feed worker stopped")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := w.Feed.Append(ctx, ev); err != nil {
				logger.Error().Err(err).Str("scope", ev.Scope).Str("badge", ev.Badge.ID).
					Msg("[FEED] failed to record unlock")
			}
		}
	}
}
