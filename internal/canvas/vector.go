package canvas

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/skip2/go-qrcode"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// RasterizeSVG renders an SVG document into a w×h RGBA image. A zero size
// takes the document's view box.
func RasterizeSVG(r io.Reader, w, h int, opacity float64) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(r, oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	if w <= 0 || h <= 0 {
		w, h = int(math.Ceil(icon.ViewBox.W)), int(math.Ceil(icon.ViewBox.H))
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg has no size")
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), opacity)
	return img, nil
}

// QRCode renders value as a size×size QR code in fg on a transparent
// background.
func QRCode(value string, size int, fg color.Color) (image.Image, error) {
	q, err := qrcode.New(value, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	q.DisableBorder = true
	q.ForegroundColor = fg
	q.BackgroundColor = color.Transparent
	return q.Image(size), nil
}
