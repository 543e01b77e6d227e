package framerate

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"os"
)

// GIFSource отдаёт заранее собранные полные кадры GIF-анимации.
type GIFSource struct {
	frames []*image.RGBA
	fps    float64
	pos    int
}

func OpenGIF(path string) (*GIFSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeGIF(f)
}

// DecodeGIF composes every frame of the animation onto a full canvas,
// honouring the per-frame disposal method.
func DecodeGIF(r io.Reader) (*GIFSource, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("gif has no frames")
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}

	canvas := image.NewRGBA(bounds)
	frames := make([]*image.RGBA, 0, len(g.Image))
	for i, frame := range g.Image {
		var previous *image.RGBA
		disposal := byte(0)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			previous = cloneRGBA(canvas)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		frames = append(frames, cloneRGBA(canvas))

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}

	return &GIFSource{frames: frames, fps: gifFPS(g.Delay)}, nil
}

// gifFPS derives the frame rate from the second frame's delay (the first
// is often a hold frame). Delays are in hundredths of a second.
func gifFPS(delays []int) float64 {
	delay := 0
	switch {
	case len(delays) > 1:
		delay = delays[1]
	case len(delays) == 1:
		delay = delays[0]
	}
	if delay <= 0 {
		return 10
	}
	return math.Round(100 / float64(delay))
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

func (s *GIFSource) FPS() float64    { return s.fps }
func (s *GIFSource) FrameCount() int { return len(s.frames) }

func (s *GIFSource) Next() (image.Image, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	img := s.frames[s.pos]
	s.pos++
	return img, nil
}

func (s *GIFSource) Rewind() error {
	s.pos = 0
	return nil
}

func (s *GIFSource) Close() error { return nil }
