// Package jobs runs named periodic tasks on tickers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrUnknownJob = errors.New("unknown job")

type Task func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	task     Task

	run     sync.Mutex // one execution at a time
	mu      sync.Mutex
	lastRun time.Time
	lastErr error
	runs    int
}

// Status is a snapshot of one job for the scheduler status endpoint.
type Status struct {
	Name      string     `json:"name"`
	Interval  string     `json:"interval"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Runs      int        `json:"runs"`
}

type Scheduler struct {
	log *zap.Logger

	mu     sync.Mutex
	jobs   map[string]*job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{log: log.With(zap.String("component", "scheduler")), jobs: make(map[string]*job)}
}

// Every registers a task. Registering after Start takes effect on the next Start.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[name] = &job{name: name, interval: interval, task: task}
}

// Start launches one ticker loop per job. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for _, j := range s.jobs {
		if j.interval <= 0 {
			s.log.Warn("job disabled", zap.String("job", j.name))
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	defer s.wg.Done()
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.execute(ctx, j)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, j *job) error {
	j.run.Lock()
	defer j.run.Unlock()

	start := time.Now()
	err := j.task(ctx)

	j.mu.Lock()
	j.lastRun = start
	j.lastErr = err
	j.runs++
	j.mu.Unlock()

	if err != nil {
		s.log.Error("job failed", zap.String("job", j.name), zap.Duration("dur", time.Since(start)), zap.Error(err))
		return err
	}
	s.log.Debug("job done", zap.String("job", j.name), zap.Duration("dur", time.Since(start)))
	return nil
}

// Stop cancels the loops and waits for running tasks to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Trigger runs a job now, waiting for any in-flight run of the same job.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, j)
}

func (s *Scheduler) Status() []Status {
	s.mu.Lock()
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	out := make([]Status, 0, len(jobs))
	for _, j := range jobs {
		j.mu.Lock()
		st := Status{Name: j.name, Interval: j.interval.String(), Runs: j.runs}
		if !j.lastRun.IsZero() {
			t := j.lastRun
			st.LastRun = &t
		}
		if j.lastErr != nil {
			st.LastError = j.lastErr.Error()
		}
		j.mu.Unlock()
		out = append(out, st)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}
