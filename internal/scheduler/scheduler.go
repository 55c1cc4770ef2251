// Package scheduler runs the periodic maintenance jobs on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"zedcmms/internal/config"
	"zedcmms/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job names accepted by RunNow.
const (
	JobPMStatus        = "pm_status"
	JobPMNotifications = "pm_notifications"
	JobCleanup         = "cleanup"
)

const defaultJobTimeout = 5 * time.Minute

// Deps are the services the jobs drive.
type Deps struct {
	PM            service.PMService
	Reservations  service.ReservationService
	Notifications service.NotificationService
	Audit         service.AuditService
}

type job struct {
	spec string
	run  func(ctx context.Context) (map[string]any, error)
}

// Scheduler owns the registered jobs and, while running, a cron instance.
type Scheduler struct {
	mu        sync.Mutex
	cron      *cron.Cron
	jobs      map[string]job
	running   atomic.Bool
	timeout   time.Duration
	retention int
}

func New(cfg *config.Config, deps Deps) *Scheduler {
	s := &Scheduler{
		timeout:   defaultJobTimeout,
		retention: cfg.AuditRetention,
	}
	s.jobs = map[string]job{
		JobPMStatus: {spec: cfg.PMStatusCron, run: func(ctx context.Context) (map[string]any, error) {
			stats, err := deps.PM.UpdatePMTaskStatuses(ctx)
			if err != nil {
				return nil, err
			}
			removed, err := deps.Reservations.CleanupExpiredReservations(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"updated": stats.Updated, "overdue": stats.Overdue, "due_today": stats.DueToday,
				"reservations_removed": removed,
			}, nil
		}},
		JobPMNotifications: {spec: cfg.PMNotifyCron, run: func(ctx context.Context) (map[string]any, error) {
			sent, err := deps.Notifications.CheckPMNotifications(ctx)
			return map[string]any{"sent": sent}, err
		}},
		JobCleanup: {spec: cfg.CleanupCron, run: func(ctx context.Context) (map[string]any, error) {
			purged, err := deps.Audit.Purge(ctx, s.retention)
			if err != nil {
				return nil, err
			}
			removed, err := deps.Reservations.CleanupExpiredReservations(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"audit_purged": purged, "reservations_removed": removed}, nil
		}},
	}
	return s
}

func newCron() *cron.Cron {
	return cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
		cron.WithLogger(cronLogger{}),
	)
}

// Start registers every job with a fresh cron instance and starts it.
// A second call while running is a no-op. On error nothing is scheduled.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return nil
	}

	c := newCron()
	for _, name := range s.JobNames() {
		name, j := name, s.jobs[name]
		if j.spec == "" {
			log.Warn().Str("job", name).Msg("scheduler: no cron spec, job disabled")
			continue
		}
		if _, err := c.AddFunc(j.spec, func() { _, _ = s.RunNow(context.Background(), name) }); err != nil {
			return fmt.Errorf("scheduler: job %s spec %q: %w", name, j.spec, err)
		}
		log.Info().Str("job", name).Str("spec", j.spec).Msg("scheduler: job registered")
	}
	s.cron = c
	s.cron.Start()
	s.running.Store(true)
	log.Info().Msg("scheduler started")
	return nil
}

// Stop halts cron and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	select {
	case <-s.cron.Stop().Done():
		log.Info().Msg("scheduler stopped")
	case <-ctx.Done():
		log.Warn().Msg("scheduler: stop timed out with jobs still running")
	}
}

func (s *Scheduler) Running() bool { return s.running.Load() }

// JobNames lists the registered jobs in stable order.
func (s *Scheduler) JobNames() []string {
	names := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// RunNow runs the named job synchronously under the job timeout.
func (s *Scheduler) RunNow(ctx context.Context, name string) (map[string]any, error) {
	j, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("scheduler: unknown job %q", name)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := j.run(ctx)
	if err != nil {
		log.Error().Err(err).Str("job", name).Dur("took", time.Since(start)).Msg("scheduler: job failed")
		return nil, err
	}
	log.Info().Str("job", name).Fields(result).Dur("took", time.Since(start)).Msg("scheduler: job done")
	return result, nil
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
