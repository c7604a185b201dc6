// Package scheduler runs named jobs on cron or interval schedules inside the
// current process. A job is never started while its previous run is still
// in progress; such ticks are skipped.
package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/apimgmt/pkg/logger"
)

// Job is the work executed on every due tick.
type Job func(ctx context.Context) error

// JobInfo describes a registered job.
type JobInfo struct {
	Name     string
	Schedule string
	Next     time.Time
	Running  bool
}

type entry struct {
	name     string
	schedule Schedule
	job      Job
	next     time.Time
	running  atomic.Bool
}

// Scheduler triggers registered jobs when their schedule is due.
type Scheduler struct {
	mu       sync.Mutex
	jobs     map[string]*entry
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

// New creates a scheduler checking for due jobs every 250ms by default.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs:     make(map[string]*entry),
		interval: 250 * time.Millisecond,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("scheduler"))
	return s
}

// Add registers job under name. Jobs may be added before or after Start.
func (s *Scheduler) Add(name string, schedule Schedule, job Job) error {
	if job == nil {
		return ErrJobNil
	}
	if schedule == nil {
		return fmt.Errorf("%w: nil schedule for %q", ErrInvalidSchedule, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %q", ErrJobAlreadyRegistered, name)
	}
	s.jobs[name] = &entry{name: name, schedule: schedule, job: job}

	s.logger.Info("registered job", logger.Job(name), slog.String("schedule", schedule.String()))
	return nil
}

// Remove unregisters name. A run already in progress finishes normally.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; !ok {
		return false
	}
	delete(s.jobs, name)
	return true
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, e := range s.jobs {
		out = append(out, JobInfo{
			Name:     e.name,
			Schedule: e.schedule.String(),
			Next:     e.next,
			Running:  e.running.Load(),
		})
	}
	slices.SortFunc(out, func(a, b JobInfo) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Start blocks until ctx is done, then waits for running jobs and returns
// ctx.Err().
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	jobCount := len(s.jobs)
	s.mu.Unlock()

	if jobCount == 0 {
		return ErrSchedulerNotConfigured
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.checkJobs(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler shutting down")
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.checkJobs(ctx)
		}
	}
}

// checkJobs starts every job whose next run time has passed.
func (s *Scheduler) checkJobs(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.jobs {
		if e.next.IsZero() {
			e.next = e.schedule.Next(now)
			continue
		}
		if now.Before(e.next) {
			continue
		}
		e.next = e.schedule.Next(now)

		if !e.running.CompareAndSwap(false, true) {
			s.logger.DebugContext(ctx, "job still running, tick skipped", logger.Job(e.name))
			continue
		}

		s.wg.Add(1)
		go s.run(ctx, e)
	}
}

func (s *Scheduler) run(ctx context.Context, e *entry) {
	defer s.wg.Done()
	defer e.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "job panicked", logger.Job(e.name), slog.Any("panic", r))
		}
	}()

	start := s.now()
	if err := e.job(ctx); err != nil {
		s.logger.ErrorContext(ctx, "job failed", logger.Job(e.name), logger.Error(err))
		return
	}
	s.logger.DebugContext(ctx, "job finished", logger.Job(e.name), logger.Duration(s.now().Sub(start)))
}
