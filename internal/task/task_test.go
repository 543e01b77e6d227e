package task

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/audio"
	"github.com/ivlev/audiogram/internal/config"
	"github.com/ivlev/audiogram/internal/hooks"
	"github.com/ivlev/audiogram/internal/render"
	"github.com/ivlev/audiogram/internal/scene"
)

type fakeDecoder struct {
	frames    int
	err       error
	converted string
	decoded   bool
}

func (d *fakeDecoder) Convert(_ context.Context, src string, _ bool) (string, error) {
	d.converted = src
	return src, nil
}

func (d *fakeDecoder) Decode(_ context.Context, _ string, fps int, sink audio.PCMSink) (audio.Result, error) {
	if d.err != nil {
		return audio.Result{}, d.err
	}
	if err := sink.WriteSamples([]byte{0, 0, 0, 0}); err != nil {
		return audio.Result{}, err
	}
	d.decoded = true
	return audio.Result{
		Frequency:   make([]audio.Frame, d.frames),
		Signal:      make([]audio.Frame, d.frames),
		TrackLength: float64(d.frames) / float64(fps),
	}, nil
}

type fakeSink struct {
	frames  int
	closed  bool
	aborted bool
}

func (s *fakeSink) WriteFrame(*image.RGBA, time.Duration) error { s.frames++; return nil }
func (s *fakeSink) Close() error                                 { s.closed = true; return nil }
func (s *fakeSink) Abort() error                                 { s.aborted = true; return nil }

type event struct {
	kind, value string
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(kind, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind, value})
}

func (r *recorder) UpdateStatus(_ context.Context, _ string, s hooks.Status) error {
	r.add("status", string(s))
	return nil
}

func (r *recorder) ReportError(_ context.Context, _ string, msg string) error {
	r.add("error", msg)
	return nil
}

func (r *recorder) Deliver(_ context.Context, _ string, path string) error {
	r.add("deliver", path)
	return nil
}

type fixture struct {
	task    *Task
	sink    *fakeSink
	hooks   *recorder
	params  config.RenderParams
	spool   string
	decoder *fakeDecoder
}

func newFixture(t *testing.T, frames int, mutate func(*scene.Scene)) *fixture {
	t.Helper()
	dir := t.TempDir()
	track := filepath.Join(dir, "audio.wav")
	require.NoError(t, os.WriteFile(track, []byte("RIFF"), 0644))

	sc := &scene.Scene{
		ID:    "job-1",
		Audio: track,
		Meta:  scene.Meta{Video: scene.Video{Width: 64, Height: 32, Quality: 4}},
	}
	if mutate != nil {
		mutate(sc)
	}
	require.NoError(t, sc.Prepare(nil))

	f := &fixture{sink: &fakeSink{}, hooks: &recorder{}, decoder: &fakeDecoder{frames: frames}}
	f.spool = filepath.Join(dir, "export", "audio.pcm")
	f.task = New(sc, Options{
		Output:   filepath.Join(dir, "export", "video.mp4"),
		Spool:    f.spool,
		Encoder:  "libx264",
		Notifier: f.hooks,
		Decoder:  f.decoder,
		Start: func(_ context.Context, p config.RenderParams, pcm, _ string) (render.Sink, error) {
			f.params = p
			_, err := os.Stat(pcm)
			require.NoError(t, err, "spool exists while encoding")
			return f.sink, nil
		},
	})
	return f
}

func alwaysAlive() bool { return true }

func TestRenderSuccess(t *testing.T) {
	f := newFixture(t, 30, nil)
	require.NoError(t, f.task.Render(context.Background(), alwaysAlive))

	assert.Equal(t, []event{
		{"status", "CONVERTED_AUDIO"},
		{"status", "DECODED_AUDIO"},
		{"status", "RENDERING"},
		{"status", "FINISHED"},
		{"deliver", f.task.Output()},
	}, f.hooks.events)

	assert.Equal(t, 30, f.sink.frames)
	assert.True(t, f.sink.closed)
	assert.Equal(t, config.RenderParams{Width: 64, Height: 32, FPS: 30, Bitrate: 4_000_000, Encoder: "libx264", Quality: 4}, f.params)
	assert.InDelta(t, 1.0, f.task.Scene().TrackLength, 1e-9)

	_, err := os.Stat(f.spool)
	assert.True(t, os.IsNotExist(err), "spool removed after render")
}

func TestRenderOptimisedParams(t *testing.T) {
	f := newFixture(t, 24, func(sc *scene.Scene) { sc.Meta.Video.Optimisation = true })
	require.NoError(t, f.task.Render(context.Background(), alwaysAlive))
	assert.Equal(t, 32, f.params.Width)
	assert.Equal(t, 16, f.params.Height)
	assert.Equal(t, 24, f.params.FPS)
}

func TestRenderDecodeError(t *testing.T) {
	f := newFixture(t, 30, nil)
	f.decoder.err = apperr.Decode("read pcm", errors.New("corrupt stream"))

	err := f.task.Render(context.Background(), alwaysAlive)
	require.ErrorIs(t, err, apperr.ErrDecode)

	require.Len(t, f.hooks.events, 2)
	assert.Equal(t, event{"status", "CONVERTED_AUDIO"}, f.hooks.events[0])
	assert.Equal(t, "error", f.hooks.events[1].kind)
	assert.Contains(t, f.hooks.events[1].value, "corrupt stream")
	assert.Zero(t, f.sink.frames)
}

func TestRenderCancelled(t *testing.T) {
	f := newFixture(t, 30, nil)
	alive := func() bool { return f.sink.frames < 10 }

	err := f.task.Render(context.Background(), alive)
	require.ErrorIs(t, err, render.ErrCancelled)
	assert.Equal(t, 10, f.sink.frames)
	assert.True(t, f.sink.aborted)
	assert.False(t, f.sink.closed)
	for _, e := range f.hooks.events {
		assert.Equal(t, "status", e.kind, "no error or delivery hooks on cancel")
		assert.NotEqual(t, "FINISHED", e.value)
	}
}

func TestRenderCancelledBeforeFrames(t *testing.T) {
	tests := []struct {
		name   string
		alive  func(d *fakeDecoder) bool
		events []event
	}{
		{
			name:  "during convert",
			alive: func(d *fakeDecoder) bool { return d.converted == "" },
		},
		{
			name:   "during decode",
			alive:  func(d *fakeDecoder) bool { return !d.decoded },
			events: []event{{"status", "CONVERTED_AUDIO"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 30, nil)
			err := f.task.Render(context.Background(), func() bool { return tt.alive(f.decoder) })
			require.ErrorIs(t, err, render.ErrCancelled)

			assert.Equal(t, tt.events, f.hooks.events)
			assert.Zero(t, f.params, "encoder never started")
			assert.Zero(t, f.sink.frames)
		})
	}
}

func TestRenderContextCancelledBeforeEncoder(t *testing.T) {
	f := newFixture(t, 30, nil)
	ctx, cancel := context.WithCancel(context.Background())
	f.task.opts.Background = func(context.Context, *scene.Background, int) (render.Background, error) {
		cancel()
		return &staticBackground{}, nil
	}
	f.task.scene.Background = &scene.Background{Type: scene.BackgroundGIF, File: "loop.gif", Width: 8, Height: 8}

	err := f.task.Render(ctx, alwaysAlive)
	require.ErrorIs(t, err, render.ErrCancelled)
	assert.Zero(t, f.params)
	assert.NotContains(t, f.hooks.events, event{"status", "RENDERING"})
}

func TestRenderMissingAudio(t *testing.T) {
	f := newFixture(t, 30, func(sc *scene.Scene) { sc.Audio = "/nonexistent/track.mp3" })
	err := f.task.Render(context.Background(), alwaysAlive)
	require.ErrorIs(t, err, apperr.ErrResource)
	require.Len(t, f.hooks.events, 1)
	assert.Equal(t, "error", f.hooks.events[0].kind)
}

type staticBackground struct{ closed bool }

func (b *staticBackground) Next() (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}
func (b *staticBackground) Close() error { b.closed = true; return nil }

func TestRenderOpensBackground(t *testing.T) {
	f := newFixture(t, 5, func(sc *scene.Scene) {
		sc.Background = &scene.Background{Type: scene.BackgroundGIF, File: "loop.gif", Width: 8, Height: 8}
	})
	bg := &staticBackground{}
	var gotFPS int
	f.task.opts.Background = func(_ context.Context, _ *scene.Background, fps int) (render.Background, error) {
		gotFPS = fps
		return bg, nil
	}

	require.NoError(t, f.task.Render(context.Background(), alwaysAlive))
	assert.Equal(t, 30, gotFPS)
	assert.True(t, bg.closed)
}
