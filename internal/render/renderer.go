// Package render synthesizes the frames of one audiogram and hands them to
// an encoder sink in presentation order.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/audio"
	"github.com/ivlev/audiogram/internal/canvas"
	"github.com/ivlev/audiogram/internal/log"
	"github.com/ivlev/audiogram/internal/metrics"
	"github.com/ivlev/audiogram/internal/scene"
	"github.com/ivlev/audiogram/internal/system"
	"github.com/ivlev/audiogram/internal/visualizer"
)

// ErrCancelled is returned by Run when the job was removed from the
// scheduler or its context was cancelled mid-render.
var ErrCancelled = errors.New("render cancelled")

const trackerHeight = 10

// Sink receives finished frames. WriteFrame must not retain img after it
// returns.
type Sink interface {
	WriteFrame(img *image.RGBA, pts time.Duration) error
	Close() error
	Abort() error
}

// Background yields one frame per output tick, already converted to the
// output frame rate.
type Background interface {
	Next() (image.Image, error)
	Close() error
}

type Config struct {
	Background Background
	// Alive reports whether the job is still scheduled. Checked before
	// every frame.
	Alive  func() bool
	Logger *zerolog.Logger
	Rand   *rand.Rand
}

// Renderer composes frames for one prepared scene.
type Renderer struct {
	sc        *scene.Scene
	freq      []audio.Frame
	signal    []audio.Frame
	cfg       Config
	logger    zerolog.Logger
	fps       int
	optimised bool

	bounds    image.Rectangle
	out       image.Rectangle
	fill      color.NRGBA
	plotters  []visualizer.Plotter
	effects   []visualizer.Effect
	animated  []scene.Animated
	painter   *layerPainter
	static    *image.RGBA
	hasStatic bool
}

// New validates the inputs and does all per-job preparation: plotter and
// effect construction, image decoding and the static layer composite.
func New(sc *scene.Scene, freq, signal []audio.Frame, cfg Config) (*Renderer, error) {
	if !sc.Prepared() {
		return nil, apperr.Configuration("render", "scene %q is not prepared", sc.ID)
	}
	if len(freq) != len(signal) {
		return nil, apperr.Configuration("render", "series length mismatch: %d frequency vs %d signal", len(freq), len(signal))
	}
	w, h := int(sc.Meta.Video.Width), int(sc.Meta.Video.Height)
	if w <= 0 || h <= 0 {
		return nil, apperr.Configuration("render", "invalid canvas %dx%d", w, h)
	}

	plotters, err := visualizer.NewPlotters(sc)
	if err != nil {
		return nil, err
	}
	var opts []visualizer.Option
	if cfg.Rand != nil {
		opts = append(opts, visualizer.WithRand(cfg.Rand))
	}
	effects, err := visualizer.NewEffects(sc, opts...)
	if err != nil {
		return nil, err
	}

	logger := log.WithComponent("render")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	ow, oh := sc.Meta.Video.OutputSize()
	r := &Renderer{
		sc:        sc,
		freq:      freq,
		signal:    signal,
		cfg:       cfg,
		logger:    logger,
		fps:       sc.Meta.Video.FPS(),
		optimised: sc.Meta.Video.Optimisation,
		bounds:    image.Rect(0, 0, w, h),
		out:       image.Rect(0, 0, ow, oh),
		fill:      scene.Color(sc.Meta.Video.Fill, color.NRGBA{A: 0xff}),
		plotters:  plotters,
		effects:   effects,
		animated:  sc.AnimatedLayers(),
		painter:   newLayerPainter(float64(w), float64(h)),
	}

	for _, a := range r.animated {
		if err := r.painter.preload([]scene.Layer{a.Layer}); err != nil {
			r.painter.Close()
			return nil, err
		}
	}
	if err := r.composeStatic(); err != nil {
		r.painter.Close()
		return nil, err
	}
	if !r.optimised {
		r.out = r.bounds
	}
	return r, nil
}

// composeStatic draws all static layers once onto a transparent buffer.
func (r *Renderer) composeStatic() error {
	layers := r.sc.StaticLayers()
	if len(layers) == 0 {
		return nil
	}
	if err := r.painter.preload(layers); err != nil {
		return err
	}
	r.static = image.NewRGBA(r.bounds)
	for _, l := range layers {
		if err := r.painter.Draw(r.static, l); err != nil {
			return err
		}
	}
	r.hasStatic = true
	return nil
}

// Frames is the number of frames Run will emit.
func (r *Renderer) Frames() int { return len(r.freq) }

// FrameSize is the size of every image handed to the sink.
func (r *Renderer) FrameSize() (int, int) { return r.out.Dx(), r.out.Dy() }

// FPS is the output frame rate.
func (r *Renderer) FPS() int { return r.fps }

// PTS is the presentation timestamp of a tick at the given frame rate.
func PTS(fps, tick int) time.Duration {
	return time.Duration(math.Round(1e9 / float64(fps) * float64(tick)))
}

// Run renders every frame into sink. On success the sink is closed; on
// cancellation it is aborted and ErrCancelled returned.
func (r *Renderer) Run(ctx context.Context, sink Sink) error {
	defer r.painter.Close()
	if r.cfg.Background != nil {
		defer r.cfg.Background.Close()
	}

	started := time.Now()
	frame := image.NewRGBA(r.bounds)
	total := len(r.freq)
	lastProgress := -1

	for tick := 0; tick < total; tick++ {
		if ctx.Err() != nil || (r.cfg.Alive != nil && !r.cfg.Alive()) {
			if abortErr := sink.Abort(); abortErr != nil {
				r.logger.Warn().Err(abortErr).Msg("sink abort failed")
			}
			r.logger.Info().Int("tick", tick).Msg("render cancelled")
			return ErrCancelled
		}

		if err := r.compose(frame, tick); err != nil {
			sink.Abort()
			return err
		}

		out := frame
		if r.optimised {
			out = system.GetImage(r.out)
			xdraw.ApproxBiLinear.Scale(out, r.out, frame, r.bounds, draw.Src, nil)
		}
		err := sink.WriteFrame(out, PTS(r.fps, tick))
		if r.optimised {
			system.PutImage(out)
		}
		if err != nil {
			sink.Abort()
			return apperr.Encode(fmt.Sprintf("write frame %d", tick), err)
		}
		metrics.FramesRendered.Inc()

		if p := int(math.Round(float64(tick+1) / float64(total) * 100)); p != lastProgress {
			lastProgress = p
			r.logger.Debug().Int("progress", p).Msg("rendering")
		}
	}

	if err := sink.Close(); err != nil {
		return apperr.Encode("close sink", err)
	}
	elapsed := time.Since(started)
	metrics.RenderDuration.Observe(elapsed.Seconds())
	r.logger.Info().
		Int("frames", total).
		Dur("elapsed", elapsed).
		Msg("render finished")
	return nil
}

// compose draws one tick into dst in a fixed order.
func (r *Renderer) compose(dst *image.RGBA, tick int) error {
	canvas.Clear(dst, r.fill)

	if bg := r.cfg.Background; bg != nil {
		img, err := bg.Next()
		if err != nil {
			return apperr.Decode("background frame", err)
		}
		x, y := 0, 0
		if b := r.sc.Background; b != nil {
			x, y = b.PosX, b.PosY
		}
		canvas.DrawImage(dst, img, x, y, 1)
	}

	for i := range r.animated {
		a := &r.animated[i]
		a.Tick(r.optimised)
		if err := r.painter.Draw(dst, a.Layer); err != nil {
			return err
		}
	}

	if r.hasStatic {
		draw.Draw(dst, r.bounds, r.static, image.Point{}, draw.Over)
	}

	for _, p := range r.plotters {
		f := r.freq[tick]
		if p.Series() == visualizer.Signal {
			f = r.signal[tick]
		}
		p.Plot(dst, f)
	}

	for _, e := range r.effects {
		e.Apply(dst, r.freq[tick])
	}

	if t := r.sc.Meta.Tracker; t.Display {
		r.drawTracker(dst, t, tick)
	}
	return nil
}

func (r *Renderer) drawTracker(dst draw.Image, t scene.Tracker, tick int) {
	pct := float64(tick) / float64(len(r.freq)) * 100
	c := canvas.WithAlpha(scene.Color(t.Fill, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}), scene.Alpha(t.Opacity))
	canvas.Fill(dst, canvas.Rectangle(t.PosX, t.PosY, t.Length*pct/100, trackerHeight), canvas.Solid{Color: c})
}
