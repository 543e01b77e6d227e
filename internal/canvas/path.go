// Package canvas holds the geometry and paint helpers shared by every
// plotter and layer renderer: cubic paths, smoothed curves, gradient fills,
// strokes, glow, text, SVG and QR rasterisation.
package canvas

import "math"

type Point struct{ X, Y float64 }

// Rect is an axis-aligned box in float coordinates.
type Rect struct{ MinX, MinY, MaxX, MaxY float64 }

func (r Rect) W() float64 { return r.MaxX - r.MinX }
func (r Rect) H() float64 { return r.MaxY - r.MinY }
func (r Rect) Empty() bool { return r.W() <= 0 || r.H() <= 0 }
func (r Rect) Center() Point { return Point{(r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2} }
func (r Rect) Pad(d float64) Rect {
	return Rect{r.MinX - d, r.MinY - d, r.MaxX + d, r.MaxY + d}
}

// Affine maps (x, y) to (XX*x + XY*y + X0, YX*x + YY*y + Y0).
type Affine struct{ XX, XY, YX, YY, X0, Y0 float64 }

var Identity = Affine{XX: 1, YY: 1}

func Translate(dx, dy float64) Affine { return Affine{XX: 1, YY: 1, X0: dx, Y0: dy} }
func Scale(sx, sy float64) Affine { return Affine{XX: sx, YY: sy} }

// ScaleAbout scales by s around the point (cx, cy).
func ScaleAbout(cx, cy, s float64) Affine {
	return Translate(-cx, -cy).Then(Scale(s, s)).Then(Translate(cx, cy))
}

// Then returns the transform that applies m first and n second.
func (m Affine) Then(n Affine) Affine {
	return Affine{
		XX: n.XX*m.XX + n.XY*m.YX,
		XY: n.XX*m.XY + n.XY*m.YY,
		X0: n.XX*m.X0 + n.XY*m.Y0 + n.X0,
		YX: n.YX*m.XX + n.YY*m.YX,
		YY: n.YX*m.XY + n.YY*m.YY,
		Y0: n.YX*m.X0 + n.YY*m.Y0 + n.Y0,
	}
}

func (m Affine) Apply(p Point) Point {
	return Point{m.XX*p.X + m.XY*p.Y + m.X0, m.YX*p.X + m.YY*p.Y + m.Y0}
}

type opKind uint8

const (
	opMove opKind = iota
	opLine
	opCubic
	opClose
)

type op struct {
	kind opKind
	pts  [3]Point
}

// Path is a sequence of move/line/cubic/close operations.
type Path struct {
	ops []op
}

func (p *Path) MoveTo(x, y float64) {
	p.ops = append(p.ops, op{kind: opMove, pts: [3]Point{{x, y}}})
}

func (p *Path) LineTo(x, y float64) {
	p.ops = append(p.ops, op{kind: opLine, pts: [3]Point{{x, y}}})
}

func (p *Path) CubicTo(x1, y1, x2, y2, x, y float64) {
	p.ops = append(p.ops, op{kind: opCubic, pts: [3]Point{{x1, y1}, {x2, y2}, {x, y}}})
}

func (p *Path) Close() {
	p.ops = append(p.ops, op{kind: opClose})
}

// Append adds every operation of q to p.
func (p *Path) Append(q *Path) {
	p.ops = append(p.ops, q.ops...)
}

func (p *Path) Clone() *Path {
	return &Path{ops: append([]op(nil), p.ops...)}
}

// Transform applies m to every point of the path in place and returns p.
func (p *Path) Transform(m Affine) *Path {
	for i := range p.ops {
		for j := range p.ops[i].pts {
			p.ops[i].pts[j] = m.Apply(p.ops[i].pts[j])
		}
	}
	return p
}

// Bounds returns the box of the flattened outline.
func (p *Path) Bounds() Rect {
	return boundsOf(p.flatten())
}

type polyline struct {
	pts    []Point
	closed bool
}

// flatten разворачивает кривые в ломаные.
func (p *Path) flatten() []polyline {
	var (
		out   []polyline
		cur   polyline
		start Point
		pen   Point
	)
	flush := func() {
		if len(cur.pts) > 1 {
			out = append(out, cur)
		}
		cur = polyline{}
	}
	for _, o := range p.ops {
		switch o.kind {
		case opMove:
			flush()
			start, pen = o.pts[0], o.pts[0]
			cur.pts = append(cur.pts, pen)
		case opLine:
			if len(cur.pts) == 0 {
				cur.pts = append(cur.pts, pen)
			}
			pen = o.pts[0]
			cur.pts = append(cur.pts, pen)
		case opCubic:
			if len(cur.pts) == 0 {
				cur.pts = append(cur.pts, pen)
			}
			cur.pts = appendCubic(cur.pts, pen, o.pts[0], o.pts[1], o.pts[2])
			pen = o.pts[2]
		case opClose:
			cur.closed = true
			flush()
			pen = start
		}
	}
	flush()
	return out
}

func appendCubic(dst []Point, p0, p1, p2, p3 Point) []Point {
	est := dist(p0, p1) + dist(p1, p2) + dist(p2, p3)
	n := int(math.Ceil(est / 4))
	n = min(max(n, 4), 64)
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		u := 1 - t
		a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
		dst = append(dst, Point{
			a*p0.X + b*p1.X + c*p2.X + d*p3.X,
			a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
		})
	}
	return dst
}

func dist(a, b Point) float64 { return math.Hypot(b.X-a.X, b.Y-a.Y) }

func boundsOf(lines []polyline) Rect {
	r := Rect{math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)}
	for _, l := range lines {
		for _, pt := range l.pts {
			r.MinX, r.MaxX = math.Min(r.MinX, pt.X), math.Max(r.MaxX, pt.X)
			r.MinY, r.MaxY = math.Min(r.MinY, pt.Y), math.Max(r.MaxY, pt.Y)
		}
	}
	if math.IsInf(r.MinX, 1) {
		return Rect{}
	}
	return r
}

// SmoothedPath builds a cubic curve through points. Control points come
// from the neighbouring points, with the first point standing in for the
// missing neighbour at the start and the current point at the end;
// inBend divides the vertical tangent and outBend the horizontal one.
func SmoothedPath(points []Point, inBend, outBend float64) *Path {
	p := &Path{}
	AppendSmoothed(p, points, inBend, outBend)
	return p
}

// AppendSmoothed adds the smoothed curve through points to p as a new
// subpath.
func AppendSmoothed(p *Path, points []Point, inBend, outBend float64) {
	if len(points) == 0 {
		return
	}
	p.MoveTo(points[0].X, points[0].Y)
	if len(points) == 2 {
		p.LineTo(points[1].X, points[1].Y)
		return
	}
	last := len(points) - 1
	for i := 1; i <= last; i++ {
		cur, prev := points[i], points[i-1]
		before := points[max(i-2, 0)]
		next := points[min(i+1, last)]
		c1 := Point{prev.X + (cur.X-before.X)/outBend, prev.Y + (cur.Y-before.Y)/inBend}
		c2 := Point{cur.X - (next.X-prev.X)/outBend, cur.Y - (next.Y-prev.Y)/inBend}
		p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, cur.X, cur.Y)
	}
}

// kappa — длина управляющих отрезков для четверти окружности.
const kappa = 0.5522847498

// Ellipse returns the ellipse inscribed in the box (x, y, w, h).
func Ellipse(x, y, w, h float64) *Path {
	rx, ry := w/2, h/2
	cx, cy := x+rx, y+ry
	kx, ky := rx*kappa, ry*kappa
	p := &Path{}
	p.MoveTo(cx+rx, cy)
	p.CubicTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	p.CubicTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	p.CubicTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	p.CubicTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	p.Close()
	return p
}

// Circle is an ellipse centred on (cx, cy).
func Circle(cx, cy, r float64) *Path {
	return Ellipse(cx-r, cy-r, 2*r, 2*r)
}

func Rectangle(x, y, w, h float64) *Path {
	p := &Path{}
	p.MoveTo(x, y)
	p.LineTo(x+w, y)
	p.LineTo(x+w, y+h)
	p.LineTo(x, y+h)
	p.Close()
	return p
}

// RoundRect is a rectangle whose corners are elliptical arcs of the given
// width and height (diameters), clamped to the rectangle size.
func RoundRect(x, y, w, h, arcW, arcH float64) *Path {
	rx := math.Min(arcW/2, w/2)
	ry := math.Min(arcH/2, h/2)
	if rx <= 0 || ry <= 0 {
		return Rectangle(x, y, w, h)
	}
	kx, ky := rx*kappa, ry*kappa
	p := &Path{}
	p.MoveTo(x+rx, y)
	p.LineTo(x+w-rx, y)
	p.CubicTo(x+w-rx+kx, y, x+w, y+ry-ky, x+w, y+ry)
	p.LineTo(x+w, y+h-ry)
	p.CubicTo(x+w, y+h-ry+ky, x+w-rx+kx, y+h, x+w-rx, y+h)
	p.LineTo(x+rx, y+h)
	p.CubicTo(x+rx-kx, y+h, x, y+h-ry+ky, x, y+h-ry)
	p.LineTo(x, y+ry)
	p.CubicTo(x, y+ry-ky, x+rx-kx, y, x+rx, y)
	p.Close()
	return p
}

func Line(x1, y1, x2, y2 float64) *Path {
	p := &Path{}
	p.MoveTo(x1, y1)
	p.LineTo(x2, y2)
	return p
}
