package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/fdg312/coach-hub/internal/blob"
	"github.com/fdg312/coach-hub/internal/storage"
	"github.com/robfig/cron"
)

// Janitor удаляет экспорты старше ttl по расписанию cron
type Janitor struct {
	exports   storage.ExportsStorage
	blobStore blob.Store
	ttl       time.Duration
	logger    Logger
	now       func() time.Time
	cron      *cron.Cron
}

func NewJanitor(exports storage.ExportsStorage, blobStore blob.Store, ttl time.Duration, logger Logger) *Janitor {
	return &Janitor{
		exports:   exports,
		blobStore: blobStore,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// PurgeExpired deletes every export created before now-ttl and returns how many were removed.
func (j *Janitor) PurgeExpired(ctx context.Context) (int, error) {
	if j.ttl <= 0 {
		return 0, nil
	}

	expired, err := j.exports.ListExpiredExports(ctx, j.now().Add(-j.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to list expired exports: %w", err)
	}

	removed := 0
	for _, meta := range expired {
		if err := removeExport(ctx, j.exports, j.blobStore, meta, j.logger); err != nil {
			if j.logger != nil {
				j.logger.Printf("WARN exports.janitor: failed to delete %s: %v", meta.ID, err)
			}
			continue
		}
		removed++
	}
	return removed, nil
}

// Start schedules PurgeExpired. A zero ttl disables the purge.
func (j *Janitor) Start(schedule string) error {
	if j.ttl <= 0 {
		j.logf("INFO exports.janitor: disabled (EXPORTS_TTL_HOURS=0)")
		return nil
	}

	c := cron.New()
	err := c.AddFunc(schedule, func() {
		n, err := j.PurgeExpired(context.Background())
		if err != nil {
			j.logf("WARN exports.janitor: %v", err)
			return
		}
		if n > 0 {
			j.logf("INFO exports.janitor: purged %d exports", n)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}

	c.Start()
	j.cron = c
	j.logf("INFO exports.janitor: schedule=%q ttl=%s", schedule, j.ttl)
	return nil
}

func (j *Janitor) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}

func (j *Janitor) logf(format string, v ...any) {
	if j.logger != nil {
		j.logger.Printf(format, v...)
	}
}
