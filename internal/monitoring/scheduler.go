package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/realty-be/internal/auth"
	"github.com/isdelr/realty-be/internal/config"
	"github.com/isdelr/realty-be/internal/metrics"
	"github.com/isdelr/realty-be/internal/services"
)

// Job names reported in logs and metrics.
const (
	JobPurgeRevokedTokens = "purge_revoked_tokens"
	JobPruneEvents        = "prune_events"
)

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron        *cron.Cron
	revocations auth.RevocationStore
	eventSvc    services.EventServiceProvider
	metrics     *metrics.Metrics
	retention   time.Duration
	now         func() time.Time
}

// NewScheduler creates a new scheduler and registers its jobs. Invalid cron
// specs are reported here rather than at run time.
func NewScheduler(cfg config.MaintenanceConfig, revocations auth.RevocationStore, eventSvc services.EventServiceProvider, m *metrics.Metrics) (*Scheduler, error) {
	s := &Scheduler{
		cron:        cron.New(),
		revocations: revocations,
		eventSvc:    eventSvc,
		metrics:     m,
		retention:   cfg.EventRetention,
		now:         time.Now,
	}

	if _, err := s.cron.AddFunc(cfg.RevocationSweep, func() { s.run(JobPurgeRevokedTokens, s.purgeRevokedTokens) }); err != nil {
		return nil, fmt.Errorf("invalid revocation sweep schedule %q: %w", cfg.RevocationSweep, err)
	}
	if _, err := s.cron.AddFunc(cfg.EventSweep, func() { s.run(JobPruneEvents, s.pruneEvents) }); err != nil {
		return nil, fmt.Errorf("invalid event sweep schedule %q: %w", cfg.EventSweep, err)
	}
	return s, nil
}

// Run starts the scheduler in its own goroutine.
func (s *Scheduler) Run() {
	log.Info().Int("jobs", len(s.cron.Entries())).Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

func (s *Scheduler) run(job string, fn func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := fn(ctx)
	s.metrics.MaintenanceRun(job, err)
	if err != nil {
		log.Error().Err(err).Str("job", job).Msg("Scheduler: Job failed")
		return
	}
	log.Info().Str("job", job).Int64("removed", n).Msg("Scheduler: Job finished")
}

func (s *Scheduler) purgeRevokedTokens(ctx context.Context) (int64, error) {
	return s.revocations.PurgeExpired(ctx, s.now())
}

func (s *Scheduler) pruneEvents(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	return s.eventSvc.PurgeOlderThan(ctx, s.now().Add(-s.retention))
}
