// Package scheduler runs the screening pipeline on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/luqian/astock-screener/pkg/logger"
)

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	Schedule() string // cron spec, with seconds field
	Run(ctx context.Context) error
}

// Scheduler manages scheduled jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger

	mu   sync.Mutex
	jobs map[string]Job
}

// New creates a scheduler.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: log,
		jobs:   make(map[string]Job),
	}
}

// AddJob registers a job with the cron runner.
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}
	if _, err := s.cron.AddFunc(job.Schedule(), func() { s.runJob(job) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	s.jobs[name] = job
	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("job scheduled")
	return nil
}

func (s *Scheduler) runJob(job Job) {
	start := time.Now()
	log := s.logger.WithField("job", job.Name())
	log.Info("job started")

	if err := job.Run(context.Background()); err != nil {
		log.WithError(err).WithField("duration", time.Since(start)).Error("job failed")
		return
	}
	log.WithField("duration", time.Since(start)).Info("job completed")
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Infof("scheduler started with %d jobs", len(s.jobs))
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// FuncJob adapts a plain function to the Job interface.
type FuncJob struct {
	JobName string
	Spec    string
	Fn      func(ctx context.Context) error
}

func (j FuncJob) Name() string                  { return j.JobName }
func (j FuncJob) Schedule() string              { return j.Spec }
func (j FuncJob) Run(ctx context.Context) error { return j.Fn(ctx) }
