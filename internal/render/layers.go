package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/canvas"
	"github.com/ivlev/audiogram/internal/scene"
	"github.com/ivlev/audiogram/internal/source"
)

const (
	blurSigma   = 200.0 / 3
	jitterLevel = 25
	screenAlpha = 0.5

	qrDefaultSize = 256
)

var frameWidths = map[scene.FrameType]float64{
	scene.FrameThin:   2,
	scene.FrameNormal: 5,
	scene.FrameSolid:  10,
}

// layerPainter draws image, text and shape layers. Decoded and processed
// pixels are cached per layer for the whole render.
type layerPainter struct {
	width, height float64
	text          *canvas.Typesetter
	images        map[*scene.Image]image.Image
	pictures      map[*scene.Shape]image.Image
}

func newLayerPainter(width, height float64) *layerPainter {
	return &layerPainter{
		width:    width,
		height:   height,
		text:     canvas.NewTypesetter(),
		images:   map[*scene.Image]image.Image{},
		pictures: map[*scene.Shape]image.Image{},
	}
}

func (lp *layerPainter) Close() error { return lp.text.Close() }

// preload готовит картинки заранее, чтобы ошибки ресурсов всплыли до
// первого кадра.
func (lp *layerPainter) preload(layers []scene.Layer) error {
	for _, l := range layers {
		var err error
		switch l.Kind {
		case scene.LayerImage:
			_, err = lp.image(l.Image)
		case scene.LayerShape:
			if l.Shape.ShapeType == scene.ShapeSVG || l.Shape.ShapeType == scene.ShapeQR {
				_, err = lp.picture(l.Shape)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Draw renders one layer at its current position and opacity.
func (lp *layerPainter) Draw(dst draw.Image, l scene.Layer) error {
	switch l.Kind {
	case scene.LayerImage:
		return lp.drawImage(dst, l.Image)
	case scene.LayerText:
		return lp.drawText(dst, l.Text)
	case scene.LayerShape:
		return lp.drawShape(dst, l.Shape)
	}
	return fmt.Errorf("unknown layer kind %d", l.Kind)
}

func (lp *layerPainter) image(layer *scene.Image) (image.Image, error) {
	if img, ok := lp.images[layer]; ok {
		return img, nil
	}
	src, err := source.Load(layer.File)
	if err != nil {
		return nil, apperr.Resource("load image layer", err)
	}
	img, err := processImage(src, layer)
	if err != nil {
		return nil, apperr.Configuration("image layer", "%v", err)
	}
	lp.images[layer] = img
	return img, nil
}

// processImage applies resize, effect, filter, mask and rotation in that
// order.
func processImage(src image.Image, layer *scene.Image) (image.Image, error) {
	img := imaging.Clone(src)

	if layer.Width > 0 || layer.Height > 0 {
		b := img.Bounds()
		w, h := int(layer.Width), int(layer.Height)
		switch {
		case w == 0:
		case h == 0:
		case b.Dx() >= b.Dy():
			h = 0
		default:
			w = 0
		}
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	switch layer.ImageEffect {
	case scene.ImageEffectBlur:
		img = imaging.Blur(img, blurSigma)
	case scene.ImageEffectMonochrome:
		img = imaging.Grayscale(img)
	case scene.ImageEffectJitter:
		img = imaging.AdjustFunc(img, jitter)
	}

	if layer.Filter == scene.FilterScreen {
		b := img.Bounds()
		fill := scene.Color(layer.FilterFill, color.NRGBA{A: 0xff})
		img = imaging.Overlay(img, imaging.New(b.Dx(), b.Dy(), fill), image.Point{}, screenAlpha)
	}

	if layer.Mask == scene.MaskCircle {
		img = maskCircle(img)
	}

	if deg, ok, err := rotation(layer.Transform); err != nil {
		return nil, err
	} else if ok {
		// по часовой стрелке, как в экранных координатах
		img = imaging.Rotate(img, -deg, color.Transparent)
	}
	return img, nil
}

func jitter(c color.NRGBA) color.NRGBA {
	noise := func(v uint8) uint8 {
		n := int(v) + rand.Intn(2*jitterLevel+1) - jitterLevel
		return uint8(min(max(n, 0), 255))
	}
	return color.NRGBA{R: noise(c.R), G: noise(c.G), B: noise(c.B), A: c.A}
}

// maskCircle оставляет круг диаметром меньшей стороны, прижатый к верхнему
// краю и отцентрованный по горизонтали.
func maskCircle(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	d := float64(min(b.Dx(), b.Dy()))
	mask := image.NewAlpha(b)
	canvas.Fill(mask, canvas.Ellipse(float64(b.Min.X)+(float64(b.Dx())-d)/2, float64(b.Min.Y), d, d),
		canvas.Solid{Color: color.NRGBA{A: 0xff}})

	out := image.NewNRGBA(b)
	draw.DrawMask(out, b, img, b.Min, mask, b.Min, draw.Src)
	return out
}

// rotation разбирает "rotate: 45" / "rotate:45". "none" и пустая строка —
// без поворота.
func rotation(transform string) (float64, bool, error) {
	t := strings.TrimSpace(strings.ToLower(transform))
	if t == "" || t == "none" {
		return 0, false, nil
	}
	i := strings.LastIndex(t, ":")
	if i < 0 {
		return 0, false, fmt.Errorf("invalid transform %q", transform)
	}
	deg, err := strconv.ParseFloat(strings.TrimSpace(t[i+1:]), 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid transform %q", transform)
	}
	return deg, true, nil
}

func (lp *layerPainter) drawImage(dst draw.Image, layer *scene.Image) error {
	img, err := lp.image(layer)
	if err != nil {
		return err
	}
	b := img.Bounds()
	x, y := layer.PosX, layer.PosY
	free := lp.width - float64(b.Dx())
	switch layer.Align {
	case scene.AlignCenter:
		x = free / 2
	case scene.AlignRight:
		x = free * 3 / 4
	case scene.AlignLeft:
		x = free / 4
	}
	canvas.DrawImage(dst, img, int(x), int(y), scene.Alpha(layer.Opacity))

	fw, framed := frameWidths[layer.Frame]
	if framed && layer.Mask != scene.MaskCircle {
		rect := canvas.Rectangle(math.Round(x)+math.Trunc(fw/2), math.Round(y), float64(b.Dx()), float64(b.Dy()))
		canvas.Stroke(dst, rect, fw, scene.Color(layer.FrameColor, color.NRGBA{A: 0xff}))
	}
	return nil
}

func (lp *layerPainter) drawText(dst draw.Image, t *scene.Text) error {
	opts := canvas.TextOptions{
		Value:   t.Value,
		Family:  t.Font,
		Size:    float64(t.FontSize),
		Bold:    t.FontWeight == "bold",
		Light:   t.FontWeight == "thin",
		Italic:  t.FontStyle == "italic",
		Color:   canvas.WithAlpha(scene.Color(t.Color, color.NRGBA{A: 0xff}), scene.Alpha(t.Opacity)),
		X:       t.PosX,
		Y:       t.PosY,
		Width:   float64(t.Width),
		Spacing: t.Spacing,
	}
	switch t.Align {
	case scene.AlignCenter:
		opts.Align = canvas.AlignCenter
	case scene.AlignRight:
		opts.Align = canvas.AlignRight
	}
	return lp.text.Draw(dst, opts)
}

func (lp *layerPainter) drawShape(dst draw.Image, s *scene.Shape) error {
	fill := canvas.WithAlpha(scene.Color(s.Fill, color.NRGBA{A: 0xff}), scene.Alpha(s.Opacity))
	w, h := float64(s.Width), float64(s.Height)

	var outline *canvas.Path
	switch s.ShapeType {
	case scene.ShapeBox:
		outline = canvas.Rectangle(math.Trunc(s.PosX), math.Trunc(s.PosY), w, h)
	case scene.ShapeCircle:
		outline = canvas.Ellipse(s.PosX, s.PosY, w, h)
	case scene.ShapeLine:
		canvas.Stroke(dst, canvas.Line(s.PosX, s.PosY, s.PosX+w, s.PosY), float64(s.OutlineWidth), fill)
		return nil
	case scene.ShapeSVG, scene.ShapeQR:
		pic, err := lp.picture(s)
		if err != nil {
			return err
		}
		canvas.DrawImage(dst, pic, int(s.PosX), int(s.PosY), scene.Alpha(s.Opacity))
		return nil
	default:
		return apperr.Configuration("draw shape", "unknown shape type %q", s.ShapeType)
	}

	if s.Outline {
		canvas.Stroke(dst, outline, float64(s.OutlineWidth), scene.Color(s.OutlineColor, color.NRGBA{A: 0xff}))
	}
	canvas.Fill(dst, outline, canvas.Solid{Color: fill})
	return nil
}

func (lp *layerPainter) picture(s *scene.Shape) (image.Image, error) {
	if pic, ok := lp.pictures[s]; ok {
		return pic, nil
	}
	var (
		pic image.Image
		err error
	)
	switch s.ShapeType {
	case scene.ShapeQR:
		size := min(s.Width, s.Height)
		if size <= 0 {
			size = max(s.Width, s.Height)
		}
		if size <= 0 {
			size = qrDefaultSize
		}
		pic, err = canvas.QRCode(s.Value, size, scene.Color(s.Fill, color.NRGBA{A: 0xff}))
		if err != nil {
			return nil, apperr.Configuration("qr shape", "%v", err)
		}
	default:
		pic, err = lp.svg(s)
		if err != nil {
			return nil, err
		}
	}
	lp.pictures[s] = pic
	return pic, nil
}

func (lp *layerPainter) svg(s *scene.Shape) (image.Image, error) {
	var doc io.Reader = strings.NewReader(s.SVG)
	if !strings.HasPrefix(strings.TrimSpace(s.SVG), "<") {
		f, err := os.Open(s.SVG)
		if err != nil {
			return nil, apperr.Resource("load svg", err)
		}
		defer f.Close()
		doc = f
	}
	img, err := canvas.RasterizeSVG(doc, s.Width, s.Height, 1)
	if err != nil {
		return nil, apperr.Configuration("svg shape", "%v", err)
	}
	return img, nil
}
