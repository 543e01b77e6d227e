// Package task runs the lifecycle of one render job: audio conversion and
// decode, frame synthesis into the encoder, and status reporting.
package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/audio"
	"github.com/ivlev/audiogram/internal/config"
	"github.com/ivlev/audiogram/internal/framerate"
	"github.com/ivlev/audiogram/internal/hooks"
	"github.com/ivlev/audiogram/internal/log"
	"github.com/ivlev/audiogram/internal/metrics"
	"github.com/ivlev/audiogram/internal/render"
	"github.com/ivlev/audiogram/internal/scene"
	"github.com/ivlev/audiogram/internal/system"
	"github.com/ivlev/audiogram/internal/video"
)

const hookTimeout = 30 * time.Second

// Decoder converts and analyses the audio track.
type Decoder interface {
	Convert(ctx context.Context, src string, optimised bool) (string, error)
	Decode(ctx context.Context, path string, fps int, sink audio.PCMSink) (audio.Result, error)
}

// EncoderFunc starts the output sink for one job.
type EncoderFunc func(ctx context.Context, params config.RenderParams, pcmPath, output string) (render.Sink, error)

// BackgroundFunc opens the background source converted to fps.
type BackgroundFunc func(ctx context.Context, bg *scene.Background, fps int) (render.Background, error)

type Options struct {
	// Output is the final video path; Spool holds decoded PCM while
	// rendering and is removed afterwards.
	Output string
	Spool  string

	FFmpeg   string
	FFprobe  string
	Encoder  string
	Notifier hooks.Notifier

	Decoder    Decoder
	Start      EncoderFunc
	Background BackgroundFunc
}

// Task is one submitted job.
type Task struct {
	scene  *scene.Scene
	opts   Options
	logger zerolog.Logger
}

// New wraps a prepared scene. Unset collaborators fall back to the ffmpeg
// based implementations.
func New(sc *scene.Scene, opts Options) *Task {
	if opts.Notifier == nil {
		opts.Notifier = hooks.Nop{}
	}
	if opts.Decoder == nil {
		opts.Decoder = audio.NewExtractor(opts.FFmpeg, opts.FFprobe)
	}
	if opts.Start == nil {
		ffmpeg := opts.FFmpeg
		opts.Start = func(ctx context.Context, p config.RenderParams, pcm, out string) (render.Sink, error) {
			return video.Start(ctx, ffmpeg, p, pcm, out)
		}
	}
	if opts.Background == nil {
		ffmpeg, ffprobe := opts.FFmpeg, opts.FFprobe
		opts.Background = func(ctx context.Context, bg *scene.Background, fps int) (render.Background, error) {
			return framerate.Open(ctx, bg, fps, ffmpeg, ffprobe)
		}
	}
	if opts.Spool == "" {
		opts.Spool = filepath.Join(filepath.Dir(opts.Output), "audio.pcm")
	}
	return &Task{
		scene:  sc,
		opts:   opts,
		logger: log.WithJob("task", sc.ID),
	}
}

func (t *Task) ID() string               { return t.scene.ID }
func (t *Task) Scene() *scene.Scene      { return t.scene }
func (t *Task) Output() string           { return t.opts.Output }
func (t *Task) Notifier() hooks.Notifier { return t.opts.Notifier }

// Render runs the job to completion. alive is polled before every frame;
// once it returns false the render stops, the partial output is removed
// and render.ErrCancelled is returned without calling any hook. Every
// other failure is reported through the error hook.
func (t *Task) Render(ctx context.Context, alive func() bool) error {
	started := time.Now()
	stats := system.Stats(ctx)
	t.logger.Info().
		Float64("cpu_percent", stats.CPUPercent).
		Float64("mem_percent", stats.MemPercent).
		Bool("optimised", t.scene.Meta.Video.Optimisation).
		Msg("render started")

	err := t.run(ctx, alive)
	switch {
	case err == nil:
		metrics.RecordJob("finished")
		t.logger.Info().Dur("elapsed", time.Since(started)).Str("output", t.opts.Output).Msg("render finished")
	case errors.Is(err, render.ErrCancelled):
		metrics.RecordJob("cancelled")
		t.logger.Info().Msg("render cancelled")
	default:
		metrics.RecordJob("error")
		t.logger.Error().Err(err).Msg("render failed")
		t.notify(ctx, func(ctx context.Context) error {
			return t.opts.Notifier.ReportError(ctx, t.scene.ID, err.Error())
		})
	}
	return err
}

func (t *Task) run(ctx context.Context, alive func() bool) error {
	sc := t.scene
	if !sc.Prepared() {
		return apperr.Configuration("render task", "scene %q is not prepared", sc.ID)
	}
	if sc.Audio == "" {
		return apperr.Configuration("render task", "scene %q has no audio track", sc.ID)
	}
	if _, err := os.Stat(sc.Audio); err != nil {
		return apperr.Resource("audio track", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.opts.Output), 0755); err != nil {
		return apperr.Resource("create output dir", err)
	}

	meta := sc.Meta.Video
	fps := meta.FPS()
	live := func() bool { return ctx.Err() == nil && (alive == nil || alive()) }

	converted, err := t.opts.Decoder.Convert(ctx, sc.Audio, meta.Optimisation)
	if err != nil {
		return err
	}
	if converted != sc.Audio {
		defer os.Remove(converted)
	}
	if !live() {
		return render.ErrCancelled
	}
	t.status(ctx, hooks.StatusConvertedAudio)

	spool, err := video.NewPCMSpool(t.opts.Spool)
	if err != nil {
		return apperr.Resource("pcm spool", err)
	}
	defer spool.Remove()

	res, err := t.opts.Decoder.Decode(ctx, converted, fps, spool)
	if err != nil {
		return err
	}
	if err := spool.Close(); err != nil {
		return apperr.Resource("pcm spool", err)
	}
	sc.TrackLength = res.TrackLength
	if !live() {
		return render.ErrCancelled
	}
	t.status(ctx, hooks.StatusDecodedAudio)
	t.logger.Info().
		Float64("track_length", res.TrackLength).
		Int("frames", res.Frames()).
		Int("fps", fps).
		Msg("audio decoded")

	cfg := render.Config{Alive: alive, Logger: &t.logger}
	if sc.Background != nil {
		bg, err := t.opts.Background(ctx, sc.Background, fps)
		if err != nil {
			return apperr.Resource("open background", err)
		}
		cfg.Background = bg
	}

	r, err := render.New(sc, res.Frequency, res.Signal, cfg)
	if err != nil {
		if cfg.Background != nil {
			cfg.Background.Close()
		}
		return err
	}

	if !live() {
		if cfg.Background != nil {
			cfg.Background.Close()
		}
		return render.ErrCancelled
	}

	w, h := r.FrameSize()
	params := config.RenderParams{
		Width:   w,
		Height:  h,
		FPS:     fps,
		Bitrate: meta.Bitrate(),
		Encoder: t.opts.Encoder,
		Quality: meta.Quality,
	}
	sink, err := t.opts.Start(ctx, params, spool.Path(), t.opts.Output)
	if err != nil {
		if cfg.Background != nil {
			cfg.Background.Close()
		}
		return apperr.Encode("start encoder", err)
	}

	t.status(ctx, hooks.StatusRendering)
	if err := r.Run(ctx, sink); err != nil {
		return err
	}

	t.status(ctx, hooks.StatusFinished)
	t.notify(ctx, func(ctx context.Context) error {
		return t.opts.Notifier.Deliver(ctx, sc.ID, t.opts.Output)
	})
	return nil
}

func (t *Task) status(ctx context.Context, s hooks.Status) {
	t.notify(ctx, func(ctx context.Context) error {
		return t.opts.Notifier.UpdateStatus(ctx, t.scene.ID, s)
	})
}

// notify вызывает хук с отдельным таймаутом: ошибки хуков не прерывают
// рендер, а отмена задачи не должна обрывать отчёт об ошибке.
func (t *Task) notify(ctx context.Context, call func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hookTimeout)
	defer cancel()
	if err := call(ctx); err != nil {
		t.logger.Warn().Err(err).Msg("notification failed")
	}
}
