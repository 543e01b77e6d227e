package canvas

import (
	"image/color"
	"image/draw"
)

type FillMode int

const (
	Mono FillMode = iota
	GradientMid
	GradientLR
	GradientRL
	Triad
)

// Style is the resolved fill and stroke configuration of one waveform.
type Style struct {
	Mode    FillMode
	Fills   [3]color.NRGBA
	HasMid  bool // задан третий цвет для GradientMid
	Opacity float64

	Stroke      bool
	StrokeColor color.NRGBA
	StrokeWidth float64
}

// Paint resolves the paint for a sub-element. group selects the colour in
// Triad mode (0, 1 or 2) and is ignored otherwise.
func (s Style) Paint(group int) Paint {
	switch s.Mode {
	case Triad:
		group = min(max(group, 0), 2)
		return Solid{WithAlpha(s.Fills[group], s.Opacity)}
	case GradientMid:
		if s.HasMid {
			return MidGradient3{
				Top:    WithAlpha(s.Fills[0], s.Opacity),
				Mid:    WithAlpha(s.Fills[1], s.Opacity),
				Bottom: WithAlpha(s.Fills[2], s.Opacity),
			}
		}
		return s.linear(Vertical)
	case GradientLR:
		return s.linear(DiagonalLR)
	case GradientRL:
		return s.linear(DiagonalRL)
	}
	return Solid{WithAlpha(s.Fills[0], s.Opacity)}
}

func (s Style) linear(dir Direction) LinearGradient {
	return LinearGradient{
		From: WithAlpha(s.Fills[0], s.Opacity),
		To:   WithAlpha(s.Fills[1], s.Opacity),
		Dir:  dir,
	}
}

// Draw fills p with the paint of group and strokes it when enabled.
func (s Style) Draw(dst draw.Image, p *Path, group int) {
	Fill(dst, p, s.Paint(group))
	if s.Stroke {
		Stroke(dst, p, s.StrokeWidth, s.StrokeColor)
	}
}
