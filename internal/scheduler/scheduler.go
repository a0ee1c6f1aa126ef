package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"journal-backend/internal/config"
	"journal-backend/internal/metrics"
	"journal-backend/internal/repositories"
	"journal-backend/internal/services"

	logger "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
)

const (
	jobSweep = "reconcile_sweep"
	jobGC    = "retention_gc"
)

// Scheduler runs the periodic reconciliation sweep and the retention jobs.
type Scheduler struct {
	reconciler services.ReconciliationService
	tokens     repositories.LinkTokenRepository
	events     repositories.EventProcessingRepository
	metrics    *metrics.Metrics

	sweepInterval  time.Duration
	gcInterval     time.Duration
	tokenRetention time.Duration
	eventRetention time.Duration

	now func() time.Time
	log *logger.Entry
}

// New creates a scheduler. A zero interval disables that job.
func New(reconciler services.ReconciliationService, repos *repositories.Repositories, cfg *config.Config, m *metrics.Metrics) *Scheduler {
	s := &Scheduler{
		reconciler:     reconciler,
		tokens:         repos.LinkToken,
		events:         repos.EventProcessing,
		metrics:        m,
		gcInterval:     cfg.Reconcile.GCInterval,
		tokenRetention: cfg.Link.TokenRetention,
		eventRetention: cfg.Reconcile.EventRetention,
		now:            func() time.Time { return time.Now().UTC() },
		log:            logger.WithField("component", "scheduler"),
	}
	if cfg.Reconcile.Enabled {
		s.sweepInterval = cfg.Reconcile.SweepInterval
	}
	return s
}

// Run blocks until ctx is cancelled. Each job runs once immediately and then
// on its interval; a failed run is logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	var wg conc.WaitGroup
	if s.sweepInterval > 0 {
		wg.Go(func() {
			s.loop(ctx, jobSweep, s.sweepInterval, func(ctx context.Context) error {
				_, err := s.Sweep(ctx)
				return err
			})
		})
	}
	if s.gcInterval > 0 {
		wg.Go(func() {
			s.loop(ctx, jobGC, s.gcInterval, s.CollectGarbage)
		})
	}

	s.log.WithFields(logger.Fields{
		"sweep_interval": s.sweepInterval.String(),
		"gc_interval":    s.gcInterval.String(),
	}).Info("Scheduler started")

	wg.Wait()
	s.log.Info("Scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx, job, fn)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job string, fn func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	err := fn(ctx)
	if errors.Is(err, context.Canceled) {
		return
	}
	s.metrics.RecordJobRun(job, err)
	if err != nil {
		s.log.WithError(err).WithField("job", job).Error("Scheduled job failed")
	}
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Batches int `json:"batches"`
	Failed  int `json:"failed"`
	services.ReconcileSummary
}

// Sweep reconciles every copy configuration with pending records. A failing
// batch does not stop the others; the sweep only errors if none succeeded.
func (s *Scheduler) Sweep(ctx context.Context) (*SweepResult, error) {
	ids, err := s.reconciler.PendingBatches(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	var lastErr error
	for _, id := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		summary, err := s.reconciler.Reconcile(ctx, id, services.SystemCaller())
		if err != nil {
			result.Failed++
			lastErr = err
			s.log.WithError(err).WithField("copy_params_id", id).Warn("Scheduled reconciliation failed")
			continue
		}

		result.Batches++
		result.Reconciled += summary.Reconciled
		result.Matched += summary.Matched
		result.Mismatch += summary.Mismatch
		result.Missing += summary.Missing
	}

	if len(ids) > 0 {
		s.log.WithFields(logger.Fields{
			"batches":    result.Batches,
			"failed":     result.Failed,
			"reconciled": result.Reconciled,
		}).Info("Reconciliation sweep finished")
	}

	if result.Failed > 0 && result.Batches == 0 {
		return result, fmt.Errorf("all %d batches failed: %w", result.Failed, lastErr)
	}
	return result, nil
}

// CollectGarbage purges link tokens and dedup records past their retention.
func (s *Scheduler) CollectGarbage(ctx context.Context) error {
	now := s.now()
	var errs []error

	if s.tokenRetention > 0 {
		n, err := s.tokens.DeleteDead(ctx, now.Add(-s.tokenRetention))
		if err != nil {
			errs = append(errs, fmt.Errorf("purge link tokens: %w", err))
		} else {
			s.metrics.RecordPurged("link_token", n)
			if n > 0 {
				s.log.WithField("deleted", n).Info("Purged dead link tokens")
			}
		}
	}

	if s.eventRetention > 0 {
		n, err := s.events.DeleteOldEvents(ctx, now.Add(-s.eventRetention))
		if err != nil {
			errs = append(errs, fmt.Errorf("purge copy events: %w", err))
		} else {
			s.metrics.RecordPurged("copy_event", n)
			if n > 0 {
				s.log.WithField("deleted", n).Info("Purged processed copy events")
			}
		}
	}

	return errors.Join(errs...)
}
