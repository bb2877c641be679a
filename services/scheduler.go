package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"virtual-campus/logger"
)

// StartExportScheduler runs ExportAll every interval until ctx is done.
// The caller shuts the returned scheduler down.
func (s *ExportService) StartExportScheduler(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := s.ExportAll(ctx); err != nil {
				logger.Error().Err(err).Msg("[Scheduler] export run had failures")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	logger.Info().Dur("interval", interval).Msg("[Scheduler] export job started")
	return sched, nil
}
