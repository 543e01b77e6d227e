// Package animation interpolates layer properties frame by frame.
package animation

import (
	"fmt"
	"math"
)

type Direction string

const (
	Forward Direction = "forward"
	Reverse Direction = "reverse"
	Circle  Direction = "circle"
)

type Interpolation string

const (
	Linear  Interpolation = "linear"
	EaseIn  Interpolation = "ease_in"
	EaseOut Interpolation = "ease_out"
)

// Частота кадров, под которую рассчитываются задержка и длительность.
const (
	DefaultFPS   = 30
	OptimisedFPS = 24
)

// Parameter animates one numeric property between Start and End.
// Duration and Delay are in milliseconds. A Parameter is stateful: every
// call to Interpolate advances it by one frame, so each layer property
// needs its own instance (see Clone).
type Parameter struct {
	Start         float64       `json:"start" yaml:"start"`
	End           float64       `json:"end" yaml:"end"`
	Duration      float64       `json:"duration" yaml:"duration"`
	Delay         float64       `json:"delay" yaml:"delay"`
	Direction     Direction     `json:"direction" yaml:"direction"`
	Interpolation Interpolation `json:"interpolation" yaml:"interpolation"`

	initiated  bool
	forward    bool
	frameDelay float64
	frameRange float64
	span       float64
	progress   float64
	tick       int
}

// Validate checks the static configuration.
func (p *Parameter) Validate() error {
	switch p.Direction {
	case Forward, Reverse, Circle:
	default:
		return fmt.Errorf("unknown animation direction %q", p.Direction)
	}
	switch p.Interpolation {
	case Linear, EaseIn, EaseOut:
	default:
		return fmt.Errorf("unknown animation interpolation %q", p.Interpolation)
	}
	if p.Duration < 0 || p.Delay < 0 {
		return fmt.Errorf("animation duration and delay must be non-negative")
	}
	return nil
}

// Clone returns a copy of the configuration with fresh progress state.
func (p *Parameter) Clone() *Parameter {
	if p == nil {
		return nil
	}
	return &Parameter{
		Start:         p.Start,
		End:           p.End,
		Duration:      p.Duration,
		Delay:         p.Delay,
		Direction:     p.Direction,
		Interpolation: p.Interpolation,
	}
}

func (p *Parameter) init(optimised bool) {
	fps := float64(DefaultFPS)
	if optimised {
		fps = OptimisedFPS
	}
	p.frameDelay = p.Delay * fps / 1000
	p.frameRange = p.Duration * fps / 1000
	p.span = p.End - p.Start
	p.forward = true
	p.initiated = true
}

// Interpolate returns the property value for the current frame and
// advances the frame counter.
func (p *Parameter) Interpolate(optimised bool) float64 {
	if !p.initiated {
		p.init(optimised)
	}

	count := float64(p.tick)
	if count >= p.frameDelay {
		if p.frameRange > 0 {
			p.progress = (count - p.frameDelay) / p.frameRange
		} else {
			p.progress = 1
		}
	}
	if count >= math.Round(p.frameRange+p.frameDelay) {
		p.progress = 1
	}

	eased := p.ease(p.progress)

	var value float64
	switch p.Direction {
	case Reverse:
		value = p.End - p.span*eased
	case Circle:
		if p.forward {
			value = p.Start + p.span*eased
		} else {
			value = p.End - p.span*eased
		}
		// Разворот: следующая половина цикла начинается с текущего кадра
		if p.progress == 1 {
			p.forward = !p.forward
			p.frameDelay = count
		}
	default:
		value = p.Start + p.span*eased
	}

	p.tick++
	return value
}

func (p *Parameter) ease(x float64) float64 {
	switch p.Interpolation {
	case EaseIn:
		return x * x * x
	case EaseOut:
		return 1 - math.Pow(1-x, 3)
	default:
		return x
	}
}

// Model groups the parameters driving one animated layer.
type Model struct {
	ID      string     `json:"id" yaml:"id"`
	PosX    *Parameter `json:"posX,omitempty" yaml:"posX,omitempty"`
	PosY    *Parameter `json:"posY,omitempty" yaml:"posY,omitempty"`
	Opacity *Parameter `json:"opacity,omitempty" yaml:"opacity,omitempty"`
}

// Clone returns a model whose parameters carry independent state.
func (m Model) Clone() Model {
	return Model{
		ID:      m.ID,
		PosX:    m.PosX.Clone(),
		PosY:    m.PosY.Clone(),
		Opacity: m.Opacity.Clone(),
	}
}

// Validate checks every configured parameter.
func (m Model) Validate() error {
	for name, p := range map[string]*Parameter{"posX": m.PosX, "posY": m.PosY, "opacity": m.Opacity} {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("animation %q %s: %w", m.ID, name, err)
		}
	}
	return nil
}
