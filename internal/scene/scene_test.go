package scene

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/storage"
)

const wireScene = `{
  "id": "job-1",
  "hooks": {"updateHook": "http://hooks/update", "errorHook": "http://hooks/error"},
  "meta": {
    "video": {"width": 1080, "height": 1080, "quality": 4, "optimisation": true},
    "tracker": {"display": true, "type": "HORIZONTAL_BAR", "fill": "#ff0000", "length": 1080, "opacity": 100}
  },
  "background": {"type": "GIF", "posX": 0, "posY": 0, "width": 1080, "height": 1080, "file": "loop.gif"},
  "images": [
    {"file": "cover.png", "animated": true, "animationModel": "fade", "width": 200, "height": 200, "zIndex": 3, "opacity": 100},
    {"file": "logo.png", "animated": false, "width": 50, "height": 50, "zIndex": 2, "opacity": 100}
  ],
  "texts": [{"value": "hello", "fontSize": 20, "zIndex": 1, "opacity": 100, "animated": true, "animationModel": "fade"}],
  "shapes": [{"shapeType": "BOX", "width": 10, "height": 10, "fill": "#00ff00", "zIndex": 0, "opacity": 50}],
  "waveforms": [{"type": "SAD", "design": "RAIN_BARS", "fillMode": "TRIAD", "fill1": "#111111", "fill2": "#222222", "fill3": "#333333", "width": 300, "height": 100}],
  "effects": [{"effectType": "PARTICLE", "effectMode": "ALPHA", "width": 100, "height": 100}],
  "animations": [{"id": "fade", "opacity": {"start": 0, "end": 100, "duration": 1000, "delay": 0, "direction": "FORWARD", "interpolation": "EASE_IN"}}],
  "audio": "track.wav"
}`

func TestParseAndPrepare(t *testing.T) {
	sc, err := Parse([]byte(wireScene), "json")
	require.NoError(t, err)

	fm := storage.NewFileManager("/data")
	require.NoError(t, sc.Prepare(fm))

	assert.Equal(t, SignalWave, sc.Waveforms[0].Type)
	assert.Equal(t, DesignRainBars, sc.Waveforms[0].Design)
	assert.Equal(t, BackgroundGIF, sc.Background.Type)
	assert.Equal(t, "/data/tasks/task_job-1/resources/background/loop.gif", sc.Background.File)
	assert.Equal(t, "/data/tasks/task_job-1/resources/images/cover.png", sc.Images[0].File)
	assert.Equal(t, "/data/tasks/task_job-1/resources/audio/track.wav", sc.Audio)

	static := sc.StaticLayers()
	require.Len(t, static, 2)
	assert.Equal(t, LayerShape, static[0].Kind, "z-index 0 first")
	assert.Equal(t, LayerImage, static[1].Kind)

	animated := sc.AnimatedLayers()
	require.Len(t, animated, 2)
	assert.Equal(t, LayerImage, animated[0].Kind)
	assert.Equal(t, LayerText, animated[1].Kind)
	assert.NotSame(t, animated[0].Model.Opacity, animated[1].Model.Opacity, "layers sharing a model need separate state")
}

func TestAnimatedTickDoesNotTouchScene(t *testing.T) {
	sc, err := Parse([]byte(wireScene), "json")
	require.NoError(t, err)
	require.NoError(t, sc.Prepare(nil))

	a := sc.AnimatedLayers()[0]
	// 24fps, 1000ms: полная непрозрачность на 25-м кадре
	for i := 0; i < 25; i++ {
		a.Tick(true)
	}
	assert.Equal(t, 100, a.Opacity())
	assert.Equal(t, 100, sc.Images[0].Opacity, "declared layer must stay as submitted")
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scene)
	}{
		{"missing id", func(s *Scene) { s.ID = "" }},
		{"zero size", func(s *Scene) { s.Meta.Video.Width = 0 }},
		{"unknown model", func(s *Scene) { s.Images[0].AnimationModel = "nope" }},
		{"bad color", func(s *Scene) { s.Waveforms[0].Fill1 = "#12" }},
		{"unknown shape", func(s *Scene) { s.Shapes[0].ShapeType = "hexagon" }},
		{"background without file", func(s *Scene) { s.Background.File = "" }},
		{"unknown effect", func(s *Scene) { s.Effects[0].EffectType = "snow" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Parse([]byte(wireScene), "json")
			require.NoError(t, err)
			tt.mutate(sc)
			assert.ErrorIs(t, sc.Prepare(nil), apperr.ErrConfiguration)
		})
	}
}

func TestVideoDerived(t *testing.T) {
	v := Video{Width: 1081, Height: 721}
	w, h := v.OutputSize()
	assert.Equal(t, 1080, w)
	assert.Equal(t, 720, h)
	assert.Equal(t, 30, v.FPS())
	assert.Equal(t, 5_000_000, v.Bitrate())

	v = Video{Width: 1280, Height: 720, Optimisation: true, Quality: 8}
	w, h = v.OutputSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 360, h)
	assert.Equal(t, 24, v.FPS())
	assert.Equal(t, 8_000_000, v.Bitrate())

	v.Quality = 50
	assert.Equal(t, 5_000_000, v.Bitrate())
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), c.R)
	assert.Equal(t, uint8(0x80), c.G)
	assert.Equal(t, uint8(0x00), c.B)

	c, err = ParseHex("#fff")
	require.NoError(t, err)
	assert.Equal(t, uint8(0xff), c.B)

	_, err = ParseHex("purple")
	assert.Error(t, err)
}

func TestExampleRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, WriteFile(Example("demo", "audio.mp3", "cover.png"), path))

	sc, err := ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, sc.Prepare(storage.LocalResolver{Dir: "/work"}))
	assert.Equal(t, "/work/cover.png", sc.Images[0].File)
	assert.Len(t, sc.AnimatedLayers(), 1)
}
