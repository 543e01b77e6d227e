package framerate

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/scene"
)

// Source is a finite sequence of frames that can be restarted.
type Source interface {
	FPS() float64
	FrameCount() int
	Next() (image.Image, error)
	Rewind() error
	Close() error
}

// Stats counts source reads and emitted frames.
type Stats struct {
	Emitted   int
	Advanced  int // кадры источника, попавшие в вывод
	Discarded int // кадры источника, пропущенные при понижении частоты
	Rewinds   int
}

// Converter emits one background frame per output tick, repeating or
// skipping source frames according to the schedule, and loops the source
// when it runs out.
type Converter struct {
	src      Source
	mode     Mode
	schedule []bool
	idx      int

	frameCount int
	read       int // прочитано кадров с последней перемотки

	width, height float64
	current       image.Image
	out           *image.RGBA
	dirty         bool

	stats Stats
}

// New builds a converter from src to targetFPS whose output is scaled to
// the declared width/height, preserving aspect by the larger dimension.
func New(src Source, targetFPS int, width, height float64) *Converter {
	mode, schedule := modeFor(int(math.Round(src.FPS())), targetFPS)
	return &Converter{
		src:        src,
		mode:       mode,
		schedule:   schedule,
		frameCount: src.FrameCount(),
		width:      width,
		height:     height,
	}
}

// Open creates a converter for a scene background.
func Open(ctx context.Context, bg *scene.Background, targetFPS int, ffmpeg, ffprobe string) (*Converter, error) {
	var (
		src Source
		err error
	)
	switch bg.Type {
	case scene.BackgroundGIF:
		src, err = OpenGIF(bg.File)
	case scene.BackgroundVideo:
		src, err = OpenVideo(ctx, bg.File, ffmpeg, ffprobe)
	default:
		return nil, apperr.Configuration("open background", "unknown background type %q", bg.Type)
	}
	if err != nil {
		return nil, apperr.Resource("open background", err)
	}
	return New(src, targetFPS, bg.Width, bg.Height), nil
}

func (c *Converter) Mode() Mode   { return c.mode }
func (c *Converter) Stats() Stats { return c.stats }
func (c *Converter) Close() error { return c.src.Close() }

// grab reads the next source frame, rewinding at the end of the source.
func (c *Converter) grab() (image.Image, error) {
	if c.frameCount > 0 && c.read >= c.frameCount {
		if err := c.rewind(); err != nil {
			return nil, err
		}
	}
	img, err := c.src.Next()
	if errors.Is(err, io.EOF) {
		// число кадров из метаданных может быть завышено
		if c.read == 0 {
			return nil, fmt.Errorf("background source has no frames")
		}
		if err := c.rewind(); err != nil {
			return nil, err
		}
		img, err = c.src.Next()
	}
	if err != nil {
		return nil, err
	}
	c.read++
	return img, nil
}

func (c *Converter) rewind() error {
	if err := c.src.Rewind(); err != nil {
		return fmt.Errorf("rewind background: %w", err)
	}
	c.read = 0
	c.stats.Rewinds++
	return nil
}

func (c *Converter) advance() error {
	img, err := c.grab()
	if err != nil {
		return err
	}
	c.current = img
	c.dirty = true
	c.stats.Advanced++
	return nil
}

func (c *Converter) discard() error {
	if _, err := c.grab(); err != nil {
		return err
	}
	c.stats.Discarded++
	return nil
}

// Next returns the background frame for the current tick. The returned
// image is owned by the converter and valid until the next call.
func (c *Converter) Next() (image.Image, error) {
	switch c.mode {
	case Equal:
		if err := c.advance(); err != nil {
			return nil, err
		}
	case Up:
		if c.idx >= len(c.schedule) {
			c.idx = 0
		}
		if c.schedule[c.idx] {
			if err := c.advance(); err != nil {
				return nil, err
			}
		}
		c.idx++
	case Down:
		for {
			if c.idx >= len(c.schedule) {
				c.idx = 0
			}
			if c.schedule[c.idx] {
				c.idx++
				if err := c.advance(); err != nil {
					return nil, err
				}
				break
			}
			c.idx++
			if err := c.discard(); err != nil {
				return nil, err
			}
		}
	}

	if c.current == nil {
		return nil, nil
	}
	c.stats.Emitted++
	return c.scaled(), nil
}

func (c *Converter) scaled() image.Image {
	if !c.dirty && c.out != nil {
		return c.out
	}
	b := c.current.Bounds()
	if c.out == nil {
		w, h := fitSize(b.Dx(), b.Dy(), c.width, c.height)
		c.out = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	xdraw.NearestNeighbor.Scale(c.out, c.out.Bounds(), c.current, b, xdraw.Src, nil)
	c.dirty = false
	return c.out
}

// fitSize масштабирует по большей из заданных сторон с сохранением пропорций.
func fitSize(srcW, srcH int, width, height float64) (int, int) {
	if srcW == 0 || srcH == 0 || width <= 0 || height <= 0 {
		return srcW, srcH
	}
	if width >= height {
		scale := width / float64(srcW)
		return int(width), max(1, int(math.Round(float64(srcH)*scale)))
	}
	scale := height / float64(srcH)
	return max(1, int(math.Round(float64(srcW)*scale))), int(height)
}
