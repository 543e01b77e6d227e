// Package scene describes one render job: layers, waveforms, effects,
// background media, animation models and hook URLs.
package scene

import (
	"github.com/ivlev/audiogram/internal/animation"
)

type WaveformType string

const (
	FrequencyWave WaveformType = "fad" // полосы спектра
	SignalWave    WaveformType = "sad" // огибающая сигнала
)

type Design string

const (
	DesignDefault      Design = "default"
	DesignSpectralFlux Design = "spectral_flux"
	DesignArcReactor   Design = "arc_reactor"
	DesignSpectrogram  Design = "spectrogram"
	DesignMorphStack   Design = "morph_stack"
	DesignPelicanGrid  Design = "pelican_grid"
	DesignRainBars     Design = "rain_bars"
)

type FillMode string

const (
	FillMono        FillMode = "mono"
	FillGradientMid FillMode = "gradient_mid"
	FillGradientLR  FillMode = "gradient_lr"
	FillGradientRL  FillMode = "gradient_rl"
	FillTriad       FillMode = "triad"
)

type BackgroundType string

const (
	BackgroundGIF   BackgroundType = "gif"
	BackgroundVideo BackgroundType = "video"
)

type EffectType string

const EffectParticle EffectType = "particle"

type EffectMode string

const (
	EffectDefault EffectMode = "default"
	EffectAlpha   EffectMode = "alpha"
	EffectBeta    EffectMode = "beta"
	EffectGamma   EffectMode = "gamma"
)

type Scene struct {
	ID         string            `json:"id" yaml:"id"`
	Hooks      Hooks             `json:"hooks" yaml:"hooks"`
	Meta       Meta              `json:"meta" yaml:"meta"`
	Background *Background       `json:"background,omitempty" yaml:"background,omitempty"`
	Images     []Image           `json:"images,omitempty" yaml:"images,omitempty"`
	Texts      []Text            `json:"texts,omitempty" yaml:"texts,omitempty"`
	Shapes     []Shape           `json:"shapes,omitempty" yaml:"shapes,omitempty"`
	Waveforms  []Waveform        `json:"waveforms,omitempty" yaml:"waveforms,omitempty"`
	Effects    []Effect          `json:"effects,omitempty" yaml:"effects,omitempty"`
	Animations []animation.Model `json:"animations,omitempty" yaml:"animations,omitempty"`

	// Audio — имя загруженного аудиофайла; после Prepare это путь на диске.
	Audio string `json:"audio,omitempty" yaml:"audio,omitempty"`

	// TrackLength is filled in after the audio is decoded.
	TrackLength float64 `json:"-" yaml:"-"`

	static   []Layer
	animated []Animated
	prepared bool
}

type Hooks struct {
	UpdateHook string `json:"updateHook,omitempty" yaml:"updateHook,omitempty"`
	ErrorHook  string `json:"errorHook,omitempty" yaml:"errorHook,omitempty"`
	FinishHook string `json:"finishHook,omitempty" yaml:"finishHook,omitempty"`
}

type Meta struct {
	Video   Video   `json:"video" yaml:"video"`
	Tracker Tracker `json:"tracker" yaml:"tracker"`
}

type Video struct {
	Fill         string  `json:"fill,omitempty" yaml:"fill,omitempty"`
	Width        float64 `json:"width" yaml:"width"`
	Height       float64 `json:"height" yaml:"height"`
	Quality      int     `json:"quality,omitempty" yaml:"quality,omitempty"`
	Optimisation bool    `json:"optimisation,omitempty" yaml:"optimisation,omitempty"`
}

// FPS is the output frame rate.
func (v Video) FPS() int {
	if v.Optimisation {
		return animation.OptimisedFPS
	}
	return animation.DefaultFPS
}

// OutputSize returns the encoded resolution, halved when optimised and
// rounded down to even numbers for yuv420p.
func (v Video) OutputSize() (int, int) {
	w, h := int(v.Width), int(v.Height)
	if v.Optimisation {
		w, h = int(float64(w)*0.5), int(float64(h)*0.5)
	}
	return w &^ 1, h &^ 1
}

// Bitrate follows the quality setting: values up to 10 are Mbit/s,
// anything else falls back to 5 Mbit/s.
func (v Video) Bitrate() int {
	if v.Quality > 0 && v.Quality <= 10 {
		return v.Quality * 1_000_000
	}
	return 5_000_000
}

type Tracker struct {
	Display bool    `json:"display" yaml:"display"`
	Type    string  `json:"type,omitempty" yaml:"type,omitempty"` // horizontal_bar
	Fill    string  `json:"fill,omitempty" yaml:"fill,omitempty"`
	PosX    float64 `json:"posX" yaml:"posX"`
	PosY    float64 `json:"posY" yaml:"posY"`
	Opacity int     `json:"opacity" yaml:"opacity"`
	Length  float64 `json:"length" yaml:"length"`
}

type Background struct {
	Type   BackgroundType `json:"type" yaml:"type"`
	PosX   int            `json:"posX" yaml:"posX"`
	PosY   int            `json:"posY" yaml:"posY"`
	Width  float64        `json:"width" yaml:"width"`
	Height float64        `json:"height" yaml:"height"`
	File   string         `json:"file" yaml:"file"`
}

type Waveform struct {
	Type          WaveformType `json:"type" yaml:"type"`
	Design        Design       `json:"design" yaml:"design"`
	FillMode      FillMode     `json:"fillMode" yaml:"fillMode"`
	Fill1         string       `json:"fill1,omitempty" yaml:"fill1,omitempty"`
	Fill2         string       `json:"fill2,omitempty" yaml:"fill2,omitempty"`
	Fill3         string       `json:"fill3,omitempty" yaml:"fill3,omitempty"`
	Stroke        bool         `json:"stroke,omitempty" yaml:"stroke,omitempty"`
	StrokeFill    string       `json:"strokeFill,omitempty" yaml:"strokeFill,omitempty"`
	StrokeWidth   float64      `json:"strokeWidth,omitempty" yaml:"strokeWidth,omitempty"`
	StrokeOpacity int          `json:"strokeOpacity,omitempty" yaml:"strokeOpacity,omitempty"`
	Width         float64      `json:"width" yaml:"width"`
	Height        float64      `json:"height" yaml:"height"`
	PosX          float64      `json:"posX" yaml:"posX"`
	PosY          float64      `json:"posY" yaml:"posY"`
	Opacity       int          `json:"opacity" yaml:"opacity"`
}

type Effect struct {
	EffectType EffectType `json:"effectType" yaml:"effectType"`
	EffectMode EffectMode `json:"effectMode,omitempty" yaml:"effectMode,omitempty"`
	PosX       int        `json:"posX" yaml:"posX"`
	PosY       int        `json:"posY" yaml:"posY"`
	Width      float64    `json:"width" yaml:"width"`
	Height     float64    `json:"height" yaml:"height"`
	Fill       string     `json:"fill,omitempty" yaml:"fill,omitempty"`
}

// StaticLayers returns the non-animated layers sorted by z-index.
// Valid after Prepare.
func (s *Scene) StaticLayers() []Layer { return s.static }

// AnimatedLayers returns the animated layers in submission order, each
// with its own copy of the animation model. Valid after Prepare.
func (s *Scene) AnimatedLayers() []Animated { return s.animated }
