package framerate

import (
	"bytes"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource отдаёт кадры, у которых красный канал равен номеру кадра.
type fakeSource struct {
	fps    float64
	frames int
	w, h   int
	pos    int
	reads  int
}

func (f *fakeSource) FPS() float64    { return f.fps }
func (f *fakeSource) FrameCount() int { return f.frames }
func (f *fakeSource) Rewind() error   { f.pos = 0; return nil }
func (f *fakeSource) Close() error    { return nil }

func (f *fakeSource) Next() (image.Image, error) {
	if f.pos >= f.frames {
		return nil, io.EOF
	}
	img := image.NewRGBA(image.Rect(0, 0, f.w, f.h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(f.pos)
		img.Pix[i+3] = 0xff
	}
	f.pos++
	f.reads++
	return img, nil
}

func frameID(t *testing.T, img image.Image) int {
	t.Helper()
	require.NotNil(t, img)
	r, _, _, _ := img.At(0, 0).RGBA()
	return int(r >> 8)
}

func TestBuildSchedule(t *testing.T) {
	tests := []struct{ n, r int }{
		{60, 30}, {30, 24}, {30, 25}, {7, 3}, {5, 5}, {30, 1},
	}
	for _, tt := range tests {
		s := BuildSchedule(tt.n, tt.r)
		active := 0
		for _, v := range s {
			if v {
				active++
			}
		}
		if len(s) != tt.n || active != tt.r {
			t.Errorf("BuildSchedule(%d, %d): len=%d active=%d", tt.n, tt.r, len(s), active)
		}
	}
}

func TestScheduleLongRunRate(t *testing.T) {
	tests := []struct {
		name      string
		sourceFPS float64
		targetFPS int
	}{
		{"24 to 30", 24, 30},
		{"25 to 30", 25, 30},
		{"10 to 30", 10, 30},
		{"60 to 30", 60, 30},
		{"30 to 24", 30, 24},
		{"50 to 30", 50, 30},
	}
	const cycles = 7
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{fps: tt.sourceFPS, frames: 1 << 20, w: 1, h: 1}
			c := New(src, tt.targetFPS, 1, 1)

			// за cycles секунд вывода источник продвигается ровно на cycles·min(src, dst) кадров
			ticks := cycles * tt.targetFPS
			for i := 0; i < ticks; i++ {
				_, err := c.Next()
				require.NoError(t, err)
			}
			stats := c.Stats()
			advanced := cycles * min(int(tt.sourceFPS), tt.targetFPS)
			assert.Equal(t, advanced, stats.Advanced)
			assert.Equal(t, ticks, stats.Emitted)
			// хвостовой неактивный слот DOWN-расписания дочитывается на следующем тике
			assert.InDelta(t, cycles*int(tt.sourceFPS), src.reads, 1, "source consumed at its own rate")
		})
	}
}

func TestDownConversionSkipsEvenly(t *testing.T) {
	src := &fakeSource{fps: 60, frames: 240, w: 4, h: 4}
	c := New(src, 30, 4, 4)
	require.Equal(t, Down, c.Mode())

	prev := -1
	for tick := 0; tick < 90; tick++ {
		img, err := c.Next()
		require.NoError(t, err)
		id := frameID(t, img)
		assert.NotEqual(t, prev, id, "tick %d repeated a frame", tick)
		prev = id
	}

	// 90 тиков по 2 кадра источника, первый тик читает один кадр
	assert.InDelta(t, 180, src.reads, 1)
	stats := c.Stats()
	assert.Equal(t, 90, stats.Emitted)
	assert.Equal(t, 90, stats.Advanced)
}

func TestUpConversionRepeats(t *testing.T) {
	src := &fakeSource{fps: 24, frames: 1000, w: 4, h: 4}
	c := New(src, 30, 4, 4)
	require.Equal(t, Up, c.Mode())

	repeats := 0
	prev := -1
	for tick := 0; tick < 300; tick++ {
		img, err := c.Next()
		require.NoError(t, err)
		id := frameID(t, img)
		if id == prev {
			repeats++
		}
		prev = id
	}
	// 10 секунд: 240 кадров источника на 300 тиков вывода
	assert.Equal(t, 240, src.reads)
	assert.Equal(t, 60, repeats)
}

func TestEqualLoops(t *testing.T) {
	src := &fakeSource{fps: 30, frames: 5, w: 4, h: 4}
	c := New(src, 30, 4, 4)
	require.Equal(t, Equal, c.Mode())

	var ids []int
	for tick := 0; tick < 12; tick++ {
		img, err := c.Next()
		require.NoError(t, err)
		ids = append(ids, frameID(t, img))
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 0, 1, 2, 3, 4, 0, 1}, ids)
	assert.Equal(t, 2, c.Stats().Rewinds)
}

func TestLoopsWhenFrameCountOverstated(t *testing.T) {
	src := &fakeSource{fps: 30, frames: 3, w: 2, h: 2}
	c := New(src, 30, 2, 2)
	c.frameCount = 10 // метаданные врут

	for tick := 0; tick < 7; tick++ {
		_, err := c.Next()
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Stats().Rewinds)
}

func TestOutputScaledByLargerSide(t *testing.T) {
	tests := []struct {
		name          string
		srcW, srcH    int
		width, height float64
		wantW, wantH  int
	}{
		{"landscape by width", 100, 50, 200, 120, 200, 100},
		{"portrait by height", 50, 100, 120, 300, 150, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{fps: 30, frames: 2, w: tt.srcW, h: tt.srcH}
			img, err := New(src, 30, tt.width, tt.height).Next()
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, img.Bounds().Dx())
			assert.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

// splitSource отдаёт кадр 2x1: левый пиксель красный, правый синий.
type splitSource struct{ fakeSource }

func (s *splitSource) Next() (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 0xff, A: 0xff})
	img.Set(1, 0, color.RGBA{B: 0xff, A: 0xff})
	return img, nil
}

func TestOutputResizeIsNearestNeighbour(t *testing.T) {
	src := &splitSource{fakeSource{fps: 30, frames: 1}}
	img, err := New(src, 30, 16, 8).Next()
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 16, 8), img.Bounds())

	red := color.RGBAModel.Convert(color.RGBA{R: 0xff, A: 0xff})
	blue := color.RGBAModel.Convert(color.RGBA{B: 0xff, A: 0xff})
	for x := 0; x < 16; x++ {
		got := color.RGBAModel.Convert(img.At(x, 4))
		if x < 8 {
			assert.Equal(t, red, got, "x=%d", x)
		} else {
			assert.Equal(t, blue, got, "x=%d", x)
		}
	}
}

func TestDecodeGIF(t *testing.T) {
	anim := &gif.GIF{}
	for i := 0; i < 3; i++ {
		frame := image.NewPaletted(image.Rect(0, 0, 8, 8), palette.Plan9)
		for p := range frame.Pix {
			frame.Pix[p] = uint8(frame.Palette.Index(color.RGBA{R: uint8(80 * i), A: 255}))
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 4) // 40 мс = 25 fps
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, anim))

	src, err := DecodeGIF(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, src.FrameCount())
	assert.Equal(t, 25.0, src.FPS())

	c := New(src, 30, 16, 16)
	assert.Equal(t, Up, c.Mode())
	for tick := 0; tick < 10; tick++ {
		img, err := c.Next()
		require.NoError(t, err)
		assert.Equal(t, 16, img.Bounds().Dx())
	}
}

func TestGIFFPS(t *testing.T) {
	assert.Equal(t, 10.0, gifFPS(nil))
	assert.Equal(t, 50.0, gifFPS([]int{100, 2}))
	assert.Equal(t, 10.0, gifFPS([]int{10}))
}
