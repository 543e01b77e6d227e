package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/vector"
)

var rasterizers = sync.Pool{
	New: func() any { return vector.NewRasterizer(0, 0) },
}

// Fill paints the interior of p onto dst. Open subpaths are closed
// implicitly.
func Fill(dst draw.Image, p *Path, paint Paint) {
	lines := p.flatten()
	b := boundsOf(lines)
	if b.Empty() {
		return
	}
	for _, src := range paint.sources(b) {
		rasterize(dst, lines, src)
	}
}

// Stroke draws the outline of p with the given width. A width below one
// pixel draws a hairline.
func Stroke(dst draw.Image, p *Path, width float64, c color.NRGBA) {
	if width < 1 {
		width = 1
	}
	rasterize(dst, strokeOutline(p.flatten(), width/2), image.NewUniform(c))
}

// rasterize накрывает dst маской из многоугольников в пределах их рамки.
func rasterize(dst draw.Image, polys []polyline, src image.Image) {
	b := boundsOf(polys)
	r := image.Rect(
		int(math.Floor(b.MinX)), int(math.Floor(b.MinY)),
		int(math.Ceil(b.MaxX))+1, int(math.Ceil(b.MaxY))+1,
	).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}

	z := rasterizers.Get().(*vector.Rasterizer)
	defer rasterizers.Put(z)
	z.Reset(r.Dx(), r.Dy())
	z.DrawOp = draw.Over

	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	for _, poly := range polys {
		if len(poly.pts) < 3 {
			continue
		}
		z.MoveTo(float32(poly.pts[0].X-ox), float32(poly.pts[0].Y-oy))
		for _, pt := range poly.pts[1:] {
			z.LineTo(float32(pt.X-ox), float32(pt.Y-oy))
		}
		z.ClosePath()
	}
	z.Draw(dst, r, src, r.Min)
}

// strokeOutline builds the stroke as a union of segment quads and round
// joins, all wound the same way so that overlaps saturate instead of
// cancelling out.
func strokeOutline(lines []polyline, hw float64) []polyline {
	var out []polyline
	for _, l := range lines {
		pts := l.pts
		if l.closed && len(pts) > 0 {
			pts = append(pts[:len(pts):len(pts)], pts[0])
		}
		for i := 1; i < len(pts); i++ {
			a, b := pts[i-1], pts[i]
			d := dist(a, b)
			if d == 0 {
				continue
			}
			nx, ny := -(b.Y-a.Y)/d*hw, (b.X-a.X)/d*hw
			out = append(out, oriented([]Point{
				{a.X + nx, a.Y + ny},
				{b.X + nx, b.Y + ny},
				{b.X - nx, b.Y - ny},
				{a.X - nx, a.Y - ny},
			}))
		}
		if hw >= 1 {
			for _, pt := range pts {
				out = append(out, oriented(disc(pt, hw)))
			}
		}
	}
	return out
}

func disc(c Point, r float64) []Point {
	const n = 16
	pts := make([]Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / n
		pts[i] = Point{c.X + r*math.Cos(a), c.Y + r*math.Sin(a)}
	}
	return pts
}

func oriented(pts []Point) polyline {
	area := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		area += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	if area < 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	return polyline{pts: pts, closed: true}
}
