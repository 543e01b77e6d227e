package visualizer

import (
	"image/draw"
	"math"

	"github.com/ivlev/audiogram/internal/audio"
	"github.com/ivlev/audiogram/internal/canvas"
)

// spectrogram draws a ribbon through the six values repeated twice,
// mirrored around posY and stretched to the waveform width.
type spectrogram struct{ base }

const ribbonStep = 25.0

func (p *spectrogram) Plot(dst draw.Image, f audio.Frame) {
	x, y := p.w.PosX, p.w.PosY

	points := make([]canvas.Point, 0, 2*audio.Bands+2)
	points = append(points, canvas.Point{X: x, Y: y})
	for i := 0; i < 2*audio.Bands; i++ {
		points = append(points, canvas.Point{X: x + ribbonStep*float64(i+1), Y: y - f[i%audio.Bands]})
	}
	points = append(points, canvas.Point{X: points[len(points)-1].X + ribbonStep, Y: y})

	upper := canvas.SmoothedPath(points, 5, 5)
	upper.Close()

	width := upper.Bounds().W()
	if width <= 0 {
		return
	}
	path := upper.Clone().Transform(canvas.Affine{XX: 1, YY: -1, Y0: 2 * y})
	path.Append(upper)
	path.Transform(canvas.Translate(-x, -y).Then(canvas.Scale(p.w.Width/width, 1)).Then(canvas.Translate(x, y)))

	p.style.Draw(dst, path, 0)
}

// spectralFlux draws a closed blob whose odd spokes are pushed out by band
// pairs, layered three times at decreasing scale, with a disc in the
// middle.
type spectralFlux struct{ base }

const (
	fluxStart = 44.0/7 - 44.0/28 // 3π/2 в приближении 22/7
	fluxStep  = 44.0 / 7 / 12
)

func (p *spectralFlux) Plot(dst draw.Image, f audio.Frame) {
	x, y := p.w.PosX, p.w.PosY
	radius := p.w.Width / 2

	spoke := func(i int) float64 {
		if i%2 == 0 {
			return radius
		}
		return radius + (f[i-1]+f[i])*0.7
	}

	points := make([]canvas.Point, 0, 13)
	angle := fluxStart
	for i := 0; i < 7; i++ {
		r := spoke(i)
		points = append(points, canvas.Point{X: x + r*math.Cos(angle), Y: y + r*math.Sin(angle)})
		angle += fluxStep
	}
	angle = fluxStart + fluxStep
	for i := 5; i >= 0; i-- {
		r := spoke(i)
		points = append(points, canvas.Point{X: x - r*math.Cos(angle), Y: y - r*math.Sin(angle)})
		angle += fluxStep
	}

	blob := canvas.SmoothedPath(points, 5, 5)
	blob.Close()

	alpha := p.style.Opacity
	canvas.Fill(dst, blob, canvas.Solid{Color: canvas.WithAlpha(p.style.Fills[0], 0.1*alpha)})
	canvas.Fill(dst, blob.Clone().Transform(canvas.ScaleAbout(x, y, 0.9)),
		canvas.Solid{Color: canvas.WithAlpha(p.style.Fills[1], alpha)})
	canvas.Fill(dst, blob.Clone().Transform(canvas.ScaleAbout(x, y, 0.65)),
		canvas.Solid{Color: canvas.WithAlpha(p.style.Fills[2], alpha)})

	core := radius*1.4 + f[1]/4
	canvas.Fill(dst, canvas.Circle(x, y, core/2), canvas.Solid{Color: canvas.WithAlpha(p.style.Fills[0], alpha)})
}
