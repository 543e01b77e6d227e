package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

// DrawImage composites src over dst with its top-left corner at (x, y).
func DrawImage(dst draw.Image, src image.Image, x, y int, opacity float64) {
	if opacity <= 0 {
		return
	}
	sb := src.Bounds()
	r := image.Rectangle{Min: image.Pt(x, y), Max: image.Pt(x+sb.Dx(), y+sb.Dy())}
	if opacity >= 1 {
		draw.Draw(dst, r, src, sb.Min, draw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	draw.DrawMask(dst, r, src, sb.Min, mask, image.Point{}, draw.Over)
}

// Clear fills the whole of dst with c.
func Clear(dst draw.Image, c color.Color) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// glowDetail — размер силуэта (в пикселях размытия), выше которого свечение
// считается на уменьшенной копии.
const glowDetail = 16

// Glow composites a blurred silhouette of p in colour c under whatever is
// drawn next. size is the blur radius in pixels.
func Glow(dst draw.Image, p *Path, c color.NRGBA, size int, opacity float64) {
	b := p.Bounds()
	if b.Empty() || size <= 0 || opacity <= 0 {
		return
	}
	shrink := 1.0
	if size > glowDetail {
		shrink = float64(size) / glowDetail
	}
	box := b.Pad(float64(size) * 1.5)
	w := max(1, int(math.Ceil(box.W()/shrink)))
	h := max(1, int(math.Ceil(box.H()/shrink)))

	silhouette := image.NewNRGBA(image.Rect(0, 0, w, h))
	local := p.Clone().Transform(Translate(-box.MinX, -box.MinY).Then(Scale(1/shrink, 1/shrink)))
	Fill(silhouette, local, Solid{c})

	glow := imaging.Blur(silhouette, float64(size)/shrink/2)
	if shrink > 1 {
		glow = imaging.Resize(glow, int(math.Round(box.W())), int(math.Round(box.H())), imaging.Linear)
	}
	DrawImage(dst, glow, int(math.Round(box.MinX)), int(math.Round(box.MinY)), opacity)
}
