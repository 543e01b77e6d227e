// Package scheduler runs submitted render jobs with bounded concurrency.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/audiogram/internal/hooks"
	"github.com/ivlev/audiogram/internal/log"
	"github.com/ivlev/audiogram/internal/metrics"
)

const (
	DefaultMaxConcurrent = 2
	DefaultTickInterval  = 10 * time.Millisecond
)

var ErrDuplicate = errors.New("job id already scheduled")

// Job is one unit of work. Render must poll alive regularly and stop once
// it returns false.
type Job interface {
	ID() string
	Render(ctx context.Context, alive func() bool) error
}

// Reporter is implemented by jobs that carry their own notifier; panics
// are reported through it.
type Reporter interface {
	Notifier() hooks.Notifier
}

// Discarder is implemented by jobs that hold resources before they start;
// Discard is called when such a job is cancelled while still queued.
type Discarder interface {
	Discard()
}

type Config struct {
	MaxConcurrent int
	TickInterval  time.Duration
}

// Scheduler owns the job table. Removal from the table is the
// cancellation signal for a running job.
type Scheduler struct {
	mu      sync.RWMutex
	jobs    *orderedMap
	running int

	max    int
	tick   time.Duration
	logger zerolog.Logger
}

func New(cfg Config) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &Scheduler{
		jobs:   newOrderedMap(),
		max:    cfg.MaxConcurrent,
		tick:   cfg.TickInterval,
		logger: log.WithComponent("scheduler"),
	}
}

// Submit queues a job behind everything already submitted.
func (s *Scheduler) Submit(job Job) (string, error) {
	id := job.ID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs.get(id); exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	s.jobs.set(id, &entry{job: job})
	s.updateGauges()
	s.logger.Info().Str("job_id", id).Int("queued", s.jobs.len()-s.running).Msg("job submitted")
	return id, nil
}

// Cancel removes the job. A queued job never starts and is discarded; a
// running one stops at its next frame. Unknown ids are ignored.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	e, ok := s.jobs.get(id)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.jobs.delete(id)
	if e.started {
		s.running--
	}
	s.updateGauges()
	s.mu.Unlock()

	s.logger.Info().Str("job_id", id).Bool("was_running", e.started).Msg("job cancelled")
	if d, ok := e.job.(Discarder); ok && !e.started {
		d.Discard()
	}
	return true
}

// IsRunning reports whether the job is still in the table, queued or
// rendering.
func (s *Scheduler) IsRunning(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.jobs.get(id)
	return ok
}

func (s *Scheduler) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs.len()
}

// Running returns the number of jobs currently rendering.
func (s *Scheduler) Running() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Run schedules batches until ctx is cancelled. It returns after the
// in-flight batch has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.logger.Info().Int("max_concurrent", s.max).Dur("tick", s.tick).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}

		batch := s.nextBatch()
		if len(batch) == 0 {
			continue
		}

		var g errgroup.Group
		for _, e := range batch {
			g.Go(func() error {
				s.runJob(ctx, e)
				return nil
			})
		}
		_ = g.Wait()
	}
}

// alive reports whether e is still the table entry for its id. A job
// resubmitted under the same id after Cancel gets a new entry, so the
// cancelled one stays dead.
func (s *Scheduler) alive(id string, e *entry) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.jobs.get(id)
	return ok && cur == e
}

// nextBatch marks up to max queued jobs as started.
func (s *Scheduler) nextBatch() []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	free := s.max - s.running
	if free <= 0 {
		return nil
	}
	entries := s.jobs.firstN(free, func(e *entry) bool { return !e.started })
	for _, e := range entries {
		e.started = true
		s.running++
	}
	s.updateGauges()
	return entries
}

func (s *Scheduler) runJob(ctx context.Context, e *entry) {
	job := e.job
	id := job.ID()
	logger := s.logger.With().Str("job_id", id).Logger()
	defer s.finish(id, e)

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("render panic: %v", r)
			logger.Error().Str("stack", string(debug.Stack())).Msg(msg)
			metrics.RecordJob("error")
			if rep, ok := job.(Reporter); ok {
				hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
				defer cancel()
				if err := rep.Notifier().ReportError(hctx, id, msg); err != nil {
					logger.Warn().Err(err).Msg("error hook failed")
				}
			}
		}
	}()

	logger.Debug().Msg("job started")
	if err := job.Render(ctx, func() bool { return s.alive(id, e) }); err != nil {
		logger.Debug().Err(err).Msg("job ended with error")
	}
}

// finish removes a completed job unless it was already cancelled. An
// entry resubmitted under the same id is left alone.
func (s *Scheduler) finish(id string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.jobs.get(id); ok && cur == e {
		s.jobs.delete(id)
		s.running--
	}
	s.updateGauges()
}

// updateGauges must be called with mu held.
func (s *Scheduler) updateGauges() {
	metrics.JobsRunning.Set(float64(s.running))
	metrics.JobsQueued.Set(float64(s.jobs.len() - s.running))
}
