package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ivlev/audiogram/internal/hooks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type funcJob struct {
	id     string
	render func(ctx context.Context, alive func() bool) error
}

func (j *funcJob) ID() string { return j.id }
func (j *funcJob) Render(ctx context.Context, alive func() bool) error {
	return j.render(ctx, alive)
}

// startScheduler runs s until the test ends.
func startScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func newTestScheduler(max int) *Scheduler {
	return New(Config{MaxConcurrent: max, TickInterval: time.Millisecond})
}

func TestNeverExceedsMaxConcurrent(t *testing.T) {
	s := newTestScheduler(2)

	var current, high, completed atomic.Int32
	for i := 0; i < 7; i++ {
		_, err := s.Submit(&funcJob{id: string(rune('a' + i)), render: func(context.Context, func() bool) error {
			n := current.Add(1)
			for {
				h := high.Load()
				if n <= h || high.CompareAndSwap(h, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			completed.Add(1)
			return nil
		}})
		require.NoError(t, err)
	}
	assert.Equal(t, 7, s.Len())

	startScheduler(t, s)
	require.Eventually(t, func() bool { return s.Len() == 0 }, 5*time.Second, time.Millisecond)

	assert.Equal(t, int32(7), completed.Load())
	assert.LessOrEqual(t, high.Load(), int32(2))
	assert.Equal(t, int32(2), high.Load(), "burst fills both slots")
	assert.Zero(t, s.Running())
}

func TestSubmissionOrder(t *testing.T) {
	s := newTestScheduler(1)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, id := range []string{"first", "second", "third"} {
		_, err := s.Submit(&funcJob{id: id, render: func(context.Context, func() bool) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		}})
		require.NoError(t, err)
	}

	startScheduler(t, s)
	require.Eventually(t, func() bool { return s.Len() == 0 }, 5*time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestCancelRunningStopsFrames(t *testing.T) {
	s := newTestScheduler(2)

	var frames atomic.Int32
	started := make(chan struct{})
	stopped := make(chan struct{})
	_, err := s.Submit(&funcJob{id: "job", render: func(_ context.Context, alive func() bool) error {
		close(started)
		defer close(stopped)
		for alive() {
			frames.Add(1)
			time.Sleep(time.Millisecond)
		}
		return nil
	}})
	require.NoError(t, err)

	startScheduler(t, s)
	<-started
	require.Eventually(t, func() bool { return frames.Load() > 3 }, 5*time.Second, time.Millisecond)

	assert.True(t, s.Cancel("job"))
	atCancel := frames.Load()
	<-stopped

	assert.LessOrEqual(t, frames.Load()-atCancel, int32(1), "at most one frame after cancellation")
	assert.False(t, s.IsRunning("job"))
	assert.False(t, s.Cancel("job"), "second cancel is a no-op")
}

func TestCancelQueuedNeverStarts(t *testing.T) {
	s := newTestScheduler(1)

	release := make(chan struct{})
	var ranSecond atomic.Bool
	_, err := s.Submit(&funcJob{id: "blocker", render: func(context.Context, func() bool) error {
		<-release
		return nil
	}})
	require.NoError(t, err)
	_, err = s.Submit(&funcJob{id: "queued", render: func(context.Context, func() bool) error {
		ranSecond.Store(true)
		return nil
	}})
	require.NoError(t, err)

	startScheduler(t, s)
	require.Eventually(t, func() bool { return s.Running() == 1 }, 5*time.Second, time.Millisecond)
	assert.True(t, s.IsRunning("queued"))
	require.True(t, s.Cancel("queued"))
	close(release)

	require.Eventually(t, func() bool { return s.Len() == 0 }, 5*time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.False(t, ranSecond.Load())
}

func TestResubmitAfterCancelKeepsOldJobDead(t *testing.T) {
	s := newTestScheduler(1)

	started := make(chan struct{})
	release := make(chan struct{})
	oldDone := make(chan struct{})
	var afterCancel atomic.Int32
	_, err := s.Submit(&funcJob{id: "job", render: func(_ context.Context, alive func() bool) error {
		defer close(oldDone)
		close(started)
		<-release
		for i := 0; i < 50 && alive(); i++ {
			afterCancel.Add(1)
		}
		return nil
	}})
	require.NoError(t, err)

	startScheduler(t, s)
	<-started
	require.True(t, s.Cancel("job"))

	var newStarted atomic.Bool
	_, err = s.Submit(&funcJob{id: "job", render: func(context.Context, func() bool) error {
		newStarted.Store(true)
		return nil
	}})
	require.NoError(t, err)
	close(release)
	<-oldDone

	assert.Zero(t, afterCancel.Load(), "cancelled job sees alive() == false")
	require.Eventually(t, newStarted.Load, 5*time.Second, time.Millisecond, "resubmitted job runs")
	require.Eventually(t, func() bool { return s.Len() == 0 }, 5*time.Second, time.Millisecond)
	assert.Zero(t, s.Running())
}

type discardJob struct {
	funcJob
	discarded atomic.Int32
}

func (d *discardJob) Discard() { d.discarded.Add(1) }

func TestCancelDiscardsOnlyQueuedJobs(t *testing.T) {
	s := newTestScheduler(1)

	started := make(chan struct{})
	running := &discardJob{funcJob: funcJob{id: "running", render: func(_ context.Context, alive func() bool) error {
		close(started)
		for alive() {
			time.Sleep(time.Millisecond)
		}
		return nil
	}}}
	queued := &discardJob{funcJob: funcJob{id: "queued", render: func(context.Context, func() bool) error {
		return nil
	}}}
	_, err := s.Submit(running)
	require.NoError(t, err)
	_, err = s.Submit(queued)
	require.NoError(t, err)

	startScheduler(t, s)
	<-started
	require.True(t, s.Cancel("queued"))
	require.True(t, s.Cancel("running"))
	require.Eventually(t, func() bool { return s.Len() == 0 && s.Running() == 0 }, 5*time.Second, time.Millisecond)

	assert.EqualValues(t, 1, queued.discarded.Load())
	assert.Zero(t, running.discarded.Load(), "a started job cleans up after itself")
}

type panicJob struct {
	funcJob
	notifier *recordingNotifier
}

func (p *panicJob) Notifier() hooks.Notifier { return p.notifier }

type recordingNotifier struct {
	hooks.Nop
	mu     sync.Mutex
	errors []string
}

func (r *recordingNotifier) ReportError(_ context.Context, _ string, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
	return nil
}

func TestPanicIsRecoveredAndReported(t *testing.T) {
	s := newTestScheduler(2)
	rec := &recordingNotifier{}

	_, err := s.Submit(&panicJob{
		funcJob: funcJob{id: "bad", render: func(context.Context, func() bool) error {
			panic("nil canvas")
		}},
		notifier: rec,
	})
	require.NoError(t, err)

	var afterPanic atomic.Bool
	_, err = s.Submit(&funcJob{id: "good", render: func(context.Context, func() bool) error {
		afterPanic.Store(true)
		return errors.New("ordinary failure")
	}})
	require.NoError(t, err)

	startScheduler(t, s)
	require.Eventually(t, func() bool { return s.Len() == 0 }, 5*time.Second, time.Millisecond)

	assert.True(t, afterPanic.Load())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.errors, 1)
	assert.Contains(t, rec.errors[0], "nil canvas")
}

func TestDuplicateSubmit(t *testing.T) {
	s := newTestScheduler(1)
	job := &funcJob{id: "same", render: func(context.Context, func() bool) error { return nil }}
	id, err := s.Submit(job)
	require.NoError(t, err)
	assert.Equal(t, "same", id)

	_, err = s.Submit(job)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, s.Len())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := newTestScheduler(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestOrderedMap(t *testing.T) {
	m := newOrderedMap()
	for _, id := range []string{"a", "b", "c", "d"} {
		m.set(id, &entry{})
	}
	assert.True(t, m.delete("b"))
	assert.False(t, m.delete("b"))
	assert.Equal(t, []string{"a", "c", "d"}, m.order)

	m.items["a"].started = true
	got := m.firstN(2, func(e *entry) bool { return !e.started })
	assert.Len(t, got, 2)
	assert.Same(t, m.items["c"], got[0])
	assert.Same(t, m.items["d"], got[1])
}
