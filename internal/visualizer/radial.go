package visualizer

import (
	"image/draw"
	"math"

	"github.com/ivlev/audiogram/internal/audio"
	"github.com/ivlev/audiogram/internal/canvas"
)

type gridCell struct {
	direction float64 // градусы; 0 — вниз, 90 — вправо
	factor    float64
	x, y      float64
	group     int
}

// pelicanGrid draws eighteen dots around posY that are pushed outward:
// the outer columns by the bass pair, the inner ones by the rest.
type pelicanGrid struct {
	base
	cells    []gridCell
	diameter float64
}

func newPelicanGrid(b base) *pelicanGrid {
	x, y, w := b.w.PosX, b.w.PosY, b.w.Width
	d := w / 11
	cells := []gridCell{
		{-120, 0.6, x - (w-d)/2, y - d, 0},
		{-60, 0.6, x - (w-d)/2, y + d, 0},
		{-135, 0.6, x - d*3, y - d*2, 0},
		{-90, 0.6, x - d*3, y, 0},
		{-45, 0.6, x - d*3, y + d*2, 0},

		{180, 0.6, x - d, y - d*3, 1},
		{0, 0.6, x - d, y + d*3, 1},
		{180, 0.4, x - d, y - d, 1},
		{0, 0.4, x - d, y + d, 1},
		{180, 0.6, x + d, y - d*3, 1},
		{0, 0.6, x + d, y + d*3, 1},
		{180, 0.4, x + d, y - d, 1},
		{0, 0.4, x + d, y + d, 1},

		{135, 0.6, x + d*3, y - d*2, 2},
		{90, 0.6, x + d*3, y, 2},
		{45, 0.6, x + d*3, y + d*2, 2},
		{120, 0.6, x + (w-d)/2, y - d, 2},
		{60, 0.6, x + (w-d)/2, y + d, 2},
	}
	return &pelicanGrid{base: b, cells: cells, diameter: d}
}

func (p *pelicanGrid) Plot(dst draw.Image, f audio.Frame) {
	low := (f[0] + f[1]) / 1.8
	high := (f[2] + f[3] + f[4] + f[5]) / 1.8
	d := p.diameter
	for _, c := range p.cells {
		amp := c.factor * high
		if c.group != 1 {
			amp = c.factor * low
		}
		rad := c.direction / 180 * math.Pi
		x := c.x - d/2 + amp*math.Sin(rad)
		y := c.y - d/2 + amp*math.Cos(rad)
		p.style.Draw(dst, canvas.Ellipse(x, y, d, d), c.group)
	}
}

// morphStack draws three concentric circles: an outline ring driven by
// the bass pair, a glowing middle disc and a small core for the highs.
type morphStack struct{ base }

func (p *morphStack) Plot(dst draw.Image, f audio.Frame) {
	x, y := p.w.PosX, p.w.PosY
	r1, r2, r3 := p.w.Width/2, p.w.Width/4, p.w.Width/8
	amp1 := (f[0] + f[1]) / 2
	amp2 := (f[2] + f[3]) / 1.6
	amp3 := (f[4] + f[5]) / 0.5

	ring := canvas.Circle(x, y, r1+amp1/2)
	middle := canvas.Circle(x, y, r2+amp2/2)
	core := canvas.Circle(x, y, r3+amp3/2)

	fills, alpha := p.style.Fills, p.style.Opacity
	canvas.Stroke(dst, ring, p.style.StrokeWidth*2, canvas.WithAlpha(fills[0], alpha))
	canvas.Glow(dst, middle, fills[1], int(r2*1.5), 0.6*alpha)
	canvas.Fill(dst, middle, canvas.Solid{Color: canvas.WithAlpha(fills[1], alpha)})
	canvas.Fill(dst, core, canvas.Solid{Color: canvas.WithAlpha(fills[2], alpha)})
	if p.style.Stroke {
		canvas.Stroke(dst, middle, p.style.StrokeWidth, p.style.StrokeColor)
		canvas.Stroke(dst, core, p.style.StrokeWidth, p.style.StrokeColor)
	}
}
