// Package scheduler runs named jobs on cron specs for unattended operation.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// JobFunc is one scheduled unit of work.
type JobFunc func(ctx context.Context) error

// JobScheduler manages cron jobs. Runs of the same job never overlap.
type JobScheduler struct {
	cron            *cron.Cron
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          map[string]cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
	ctx             context.Context
	cancel          context.CancelFunc
}

// NewJobScheduler creates a scheduler evaluating specs in loc. Specs accept
// an optional leading seconds field. jobTimeout bounds each run; zero means
// unbounded.
func NewJobScheduler(loc *time.Location, jobTimeout time.Duration, logger *logrus.Logger) *JobScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logrus.New()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	return &JobScheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:          logger,
		jobIDs:          make(map[string]cron.EntryID),
		jobTimeout:      jobTimeout,
		gracefulTimeout: 30 * time.Second,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// Schedule registers a named job on a cron spec.
func (s *JobScheduler) Schedule(name, spec string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if _, exists := s.jobIDs[name]; exists {
		return fmt.Errorf("job %q already scheduled", name)
	}

	entryID, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("failed to add job %q: %w", name, err)
	}

	s.jobIDs[name] = entryID
	s.logger.WithFields(logrus.Fields{"job": name, "spec": spec}).Info("Scheduled job")
	return nil
}

func (s *JobScheduler) run(name string, job JobFunc) {
	ctx := s.ctx
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	started := time.Now()
	entry := s.logger.WithField("job", name)
	entry.Info("Job started")

	if err := job(ctx); err != nil {
		entry.WithError(err).WithField("elapsed", time.Since(started).String()).Error("Job failed")
		return
	}
	entry.WithField("elapsed", time.Since(started).String()).Info("Job completed")
}

// RunNow executes a registered job synchronously, outside its schedule.
func (s *JobScheduler) RunNow(name string) error {
	s.mu.RLock()
	entryID, ok := s.jobIDs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q not scheduled", name)
	}
	s.cron.Entry(entryID).Job.Run()
	return nil
}

// Start starts the scheduler
func (s *JobScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Job scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them, up to the graceful timeout.
func (s *JobScheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.cancel()
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("jobs still running after %s", s.gracefulTimeout)
	}

	s.isRunning = false
	s.logger.Info("Job scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *JobScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns the earliest upcoming run across all jobs.
func (s *JobScheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next time.Time
	for _, id := range s.jobIDs {
		entry := s.cron.Entry(id)
		if !entry.Valid() || entry.Next.IsZero() {
			continue
		}
		if next.IsZero() || entry.Next.Before(next) {
			next = entry.Next
		}
	}
	return next
}

// Jobs returns the registered job names with their next run time.
func (s *JobScheduler) Jobs() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]time.Time, len(s.jobIDs))
	for name, id := range s.jobIDs {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

// Remove unregisters a job.
func (s *JobScheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot remove job while scheduler is running")
	}
	id, ok := s.jobIDs[name]
	if !ok {
		return fmt.Errorf("job %q not scheduled", name)
	}
	s.cron.Remove(id)
	delete(s.jobIDs, name)
	return nil
}
