package visualizer

import (
	"image/draw"

	"github.com/ivlev/audiogram/internal/audio"
	"github.com/ivlev/audiogram/internal/canvas"
)

// rainBars draws six rounded bars centred on posY that grow with their
// value. In triad mode bars go in pairs of one colour.
type rainBars struct{ base }

func (p *rainBars) Plot(dst draw.Image, f audio.Frame) {
	gap := p.w.Width / 17
	bar := gap * 2
	for i := 0; i < audio.Bands; i++ {
		x := p.w.PosX + (bar+gap)*float64(i)
		y := p.w.PosY - (f[i]+bar)/2
		p.style.Draw(dst, canvas.RoundRect(x, y, bar, bar+f[i], bar, bar), i/2)
	}
}

// arcReactor draws three lens-shaped petals, one per band pair, each
// bulging up and down from posY; higher bands are damped more.
type arcReactor struct{ base }

func (p *arcReactor) Plot(dst draw.Image, f audio.Frame) {
	x, y, w := p.w.PosX, p.w.PosY, p.w.Width
	for i := 0; i < 3; i++ {
		amp := (f[i*2] + f[i*2+1]) / (1.2 + 0.4*float64(i))
		petal := func(sign float64) []canvas.Point {
			return []canvas.Point{
				{X: x, Y: y},
				{X: x + w/5, Y: y + sign*amp/6},
				{X: x + w/2, Y: y + sign*amp},
				{X: x + w*4/5, Y: y + sign*amp/6},
				{X: x + w, Y: y},
			}
		}
		path := canvas.SmoothedPath(petal(-1), 5, 5)
		canvas.AppendSmoothed(path, petal(1), 7, 5)
		p.style.Draw(dst, path, i)
	}
}
