// Package scheduler runs the periodic follow-up jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rtepass1986/reallifeberlin/internal/metrics"
	"github.com/rtepass1986/reallifeberlin/internal/service"
)

const (
	JobDueTasks = "due-tasks"
	JobAdvance  = "advance"

	DefaultDueTasksSpec = "0 8 * * *"
	DefaultAdvanceSpec  = "0 9 * * 1"
)

var ErrUnknownJob = errors.New("unknown job")

// Workflows is the part of the workflow service the jobs drive.
type Workflows interface {
	NotifyDueTasks(ctx context.Context) (int, error)
	AdvanceWorkflows(ctx context.Context) (service.AdvanceReport, error)
}

type Config struct {
	DueTasksSpec string
	AdvanceSpec  string
	Location     *time.Location
	JobTimeout   time.Duration // zero means no timeout
}

type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]func(ctx context.Context) error
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	running map[string]bool
}

func New(cfg Config, workflows Workflows, m *metrics.Metrics, logger *slog.Logger) (*Scheduler, error) {
	if workflows == nil {
		return nil, errors.New("workflows is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	cl := cronLogger{logger.With("component", "cron")}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		timeout: cfg.JobTimeout,
		metrics: m,
		logger:  logger.With("component", "scheduler"),
		running: make(map[string]bool),
	}
	s.jobs = map[string]func(ctx context.Context) error{
		JobDueTasks: func(ctx context.Context) error {
			_, err := workflows.NotifyDueTasks(ctx)
			return err
		},
		JobAdvance: func(ctx context.Context) error {
			_, err := workflows.AdvanceWorkflows(ctx)
			return err
		},
	}

	specs := map[string]string{
		JobDueTasks: orDefault(cfg.DueTasksSpec, DefaultDueTasksSpec),
		JobAdvance:  orDefault(cfg.AdvanceSpec, DefaultAdvanceSpec),
	}
	for name, spec := range specs {
		if _, err := s.cron.AddFunc(spec, func() { _ = s.RunJob(context.Background(), name) }); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", name, spec, err)
		}
		s.logger.Info("job scheduled", "job", name, "spec", spec, "location", loc.String())
	}

	return s, nil
}

// Jobs lists the job names RunJob accepts.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunJob runs one job now. A job that is still running from an earlier
// trigger is skipped.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		s.logger.Warn("job still running, skipped", "job", name)
		s.count(name, "skipped")
		return nil
	}
	s.running[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			s.count(name, "panic")
			panic(r)
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	s.logger.Info("job started", "job", name)
	if err := job(ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err, "duration", time.Since(started))
		s.count(name, "error")
		return err
	}
	s.logger.Info("job finished", "job", name, "duration", time.Since(started))
	s.count(name, "ok")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops triggering jobs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next trigger time of each scheduled job.
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		next = append(next, e.Next)
	}
	return next
}

func (s *Scheduler) count(job, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.JobRuns.WithLabelValues(job, result).Inc()
}

// cronLogger routes cron's own logging, including recovered job panics,
// through slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
