// Package visualizer turns amplitude frames into drawings: one plotter per
// waveform and one effect per effect descriptor of a scene.
package visualizer

import (
	"image/color"
	"image/draw"

	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/audio"
	"github.com/ivlev/audiogram/internal/canvas"
	"github.com/ivlev/audiogram/internal/scene"
)

// SeriesKind selects which amplitude series feeds a plotter.
type SeriesKind int

const (
	Frequency SeriesKind = iota
	Signal
)

func (k SeriesKind) String() string {
	if k == Signal {
		return "signal"
	}
	return "frequency"
}

// Plotter draws one waveform for one amplitude frame.
type Plotter interface {
	Plot(dst draw.Image, f audio.Frame)
	Series() SeriesKind
}

// NewPlotter creates the plotter for a waveform design.
func NewPlotter(w scene.Waveform) (Plotter, error) {
	b := base{w: w, style: styleOf(w), series: seriesOf(w.Type)}
	switch w.Design {
	case scene.DesignSpectrogram, scene.DesignDefault, "":
		return &spectrogram{b}, nil
	case scene.DesignRainBars:
		return &rainBars{b}, nil
	case scene.DesignArcReactor:
		return &arcReactor{b}, nil
	case scene.DesignPelicanGrid:
		return newPelicanGrid(b), nil
	case scene.DesignMorphStack:
		return &morphStack{b}, nil
	case scene.DesignSpectralFlux:
		return &spectralFlux{b}, nil
	default:
		return nil, apperr.Configuration("new plotter", "unknown waveform design %q", w.Design)
	}
}

// NewPlotters builds one plotter per waveform of the scene, in order.
func NewPlotters(sc *scene.Scene) ([]Plotter, error) {
	plotters := make([]Plotter, 0, len(sc.Waveforms))
	for _, w := range sc.Waveforms {
		p, err := NewPlotter(w)
		if err != nil {
			return nil, err
		}
		plotters = append(plotters, p)
	}
	return plotters, nil
}

func seriesOf(t scene.WaveformType) SeriesKind {
	if t == scene.SignalWave {
		return Signal
	}
	return Frequency
}

var (
	white = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black = color.NRGBA{A: 0xff}
)

// styleOf переводит описание волны в стиль заливки canvas.
func styleOf(w scene.Waveform) canvas.Style {
	s := canvas.Style{
		Fills: [3]color.NRGBA{
			scene.Color(w.Fill1, white),
			scene.Color(w.Fill2, white),
			scene.Color(w.Fill3, white),
		},
		HasMid:      w.Fill3 != "",
		Opacity:     scene.Alpha(w.Opacity),
		Stroke:      w.Stroke,
		StrokeColor: canvas.WithAlpha(scene.Color(w.StrokeFill, black), scene.Alpha(w.StrokeOpacity)),
		StrokeWidth: w.StrokeWidth,
	}
	switch w.FillMode {
	case scene.FillGradientMid:
		s.Mode = canvas.GradientMid
	case scene.FillGradientLR:
		s.Mode = canvas.GradientLR
	case scene.FillGradientRL:
		s.Mode = canvas.GradientRL
	case scene.FillTriad:
		s.Mode = canvas.Triad
	default:
		s.Mode = canvas.Mono
	}
	return s
}

// base holds what every plotter shares.
type base struct {
	w      scene.Waveform
	style  canvas.Style
	series SeriesKind
}

func (b base) Series() SeriesKind { return b.series }
