package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"virtual-campus/logger"
)

// Uploader stores an export object and returns where it can be fetched.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type ExportResult struct {
	Scope string `json:"scope"`
	Key   string `json:"key"`
	URL   string `json:"url"`
}

// ExportService snapshots badge collections as CSV objects.
type ExportService struct {
	Registry *BadgeRegistry
	Uploader Uploader
	Clock    Clock
}

func NewExportService(registry *BadgeRegistry, uploader Uploader) *ExportService {
	return &ExportService{Registry: registry, Uploader: uploader, Clock: time.Now}
}

// ExportKey is exports/<scope>/badges-<YYYYMMDD-HHMMSS>.csv in UTC.
func ExportKey(scope string, at time.Time) string {
	return fmt.Sprintf("exports/%s/badges-%s.csv", scope, at.UTC().Format("20060102-150405"))
}

func (s *ExportService) ExportScope(ctx context.Context, scope string) (*ExportResult, error) {
	store, err := s.Registry.Store(ctx, scope)
	if err != nil {
		if !store.Loaded() {
			return nil, fmt.Errorf("failed to load %s: %w", scope, err)
		}
		logger.Warn().Err(err).Str("scope", scope).Msg("[EXPORT] exporting working copy after load error")
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, store.GetAll()); err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}

	key := ExportKey(scope, s.Clock())
	url, err := s.Uploader.Upload(ctx, key, buf.Bytes(), "text/csv")
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return &ExportResult{Scope: scope, Key: key, URL: url}, nil
}

// ExportAll exports every loaded scope. It keeps going after a failure and
// returns the first error.
func (s *ExportService) ExportAll(ctx context.Context) ([]ExportResult, error) {
	results := []ExportResult{}
	var firstErr error
	for _, scope := range s.Registry.Scopes() {
		res, err := s.ExportScope(ctx, scope)
		if err != nil {
			logger.Error().Err(err).Str("scope", scope).Msg("[EXPORT] failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, *res)
	}
	logger.Info().Int("exported", len(results)).Msg("[EXPORT] run finished")
	return results, firstErr
}
