package canvas

import (
	"image"
	"image/color"
	"math"
)

// Paint supplies the source images a path is filled with, given the
// path bounds. Multi-pass paints return more than one source.
type Paint interface {
	sources(b Rect) []image.Image
}

// Direction of a linear gradient across the shape bounds.
type Direction int

const (
	Vertical   Direction = iota // сверху вниз по центру
	DiagonalLR                  // из левого верхнего угла в правый нижний
	DiagonalRL                  // из правого верхнего угла в левый нижний
)

// Solid fills with one colour; its alpha is the fill opacity.
type Solid struct{ Color color.NRGBA }

func (s Solid) sources(Rect) []image.Image {
	return []image.Image{image.NewUniform(s.Color)}
}

// LinearGradient blends two colours across the shape bounds.
type LinearGradient struct {
	From, To color.NRGBA
	Dir      Direction
}

func (g LinearGradient) sources(b Rect) []image.Image {
	var x0, y0, x1, y1 float64
	switch g.Dir {
	case DiagonalLR:
		x0, y0, x1, y1 = b.MinX, b.MinY, b.MaxX, b.MaxY
	case DiagonalRL:
		x0, y0, x1, y1 = b.MaxX, b.MinY, b.MinX, b.MaxY
	default:
		cx := b.MinX + b.W()/2
		x0, y0, x1, y1 = cx, b.MinY, cx, b.MaxY
	}
	return []image.Image{newGradient(x0, y0, x1, y1, g.From, g.To)}
}

// MidStop is where the first blend of a MidGradient3 ends, as a fraction
// of the shape height.
const MidStop = 0.66

// MidGradient3 paints Top→Mid down to MidStop, then blends from a fully
// transparent Mid to Bottom over the rest of the shape.
type MidGradient3 struct {
	Top, Mid, Bottom color.NRGBA
	Dir              Direction
}

func (g MidGradient3) sources(b Rect) []image.Image {
	x, y, w, h := b.MinX, b.MinY, b.W(), b.H()
	stop := y + h*MidStop
	clear := g.Mid
	clear.A = 0

	switch g.Dir {
	case DiagonalLR:
		return []image.Image{
			newGradient(x, y, x+w, stop, g.Top, g.Mid),
			newGradient(x+w, stop, x, y+h, clear, g.Bottom),
		}
	case DiagonalRL:
		return []image.Image{
			newGradient(x+w, y, x, stop, g.Top, g.Mid),
			newGradient(x, stop, x+w, y+h, clear, g.Bottom),
		}
	default:
		cx := x + w/2
		return []image.Image{
			newGradient(cx, y, cx, stop, g.Top, g.Mid),
			newGradient(cx, stop, cx, y+h, clear, g.Bottom),
		}
	}
}

// gradient — бесконечное изображение с линейной растяжкой между двумя
// точками; вне отрезка цвет крайней точки.
type gradient struct {
	x0, y0, dx, dy, lenSq float64
	from, to              color.NRGBA
}

func newGradient(x0, y0, x1, y1 float64, from, to color.NRGBA) *gradient {
	dx, dy := x1-x0, y1-y0
	return &gradient{x0: x0, y0: y0, dx: dx, dy: dy, lenSq: dx*dx + dy*dy, from: from, to: to}
}

func (g *gradient) ColorModel() color.Model { return color.NRGBAModel }

func (g *gradient) Bounds() image.Rectangle {
	return image.Rectangle{Min: image.Point{X: -1e9, Y: -1e9}, Max: image.Point{X: 1e9, Y: 1e9}}
}

func (g *gradient) At(x, y int) color.Color {
	t := 0.0
	if g.lenSq > 0 {
		t = ((float64(x)+0.5-g.x0)*g.dx + (float64(y)+0.5-g.y0)*g.dy) / g.lenSq
	}
	return lerp(g.from, g.to, math.Max(0, math.Min(1, t)))
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(u, v uint8) uint8 {
		return uint8(math.Round(float64(u) + (float64(v)-float64(u))*t))
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

// WithAlpha scales the colour alpha by a (0..1).
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	a = math.Max(0, math.Min(1, a))
	c.A = uint8(float64(c.A) * a)
	return c
}
