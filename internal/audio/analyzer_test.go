package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tone builds interleaved stereo s16le PCM of a sine wave.
func tone(freq, amp float64, samples int) []byte {
	buf := new(bytes.Buffer)
	for i := 0; i < samples; i++ {
		v := int16(amp * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/SampleRate))
		binary.Write(buf, binary.LittleEndian, v)
		binary.Write(buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

type captureSink struct {
	bytes int
}

func (c *captureSink) WriteSamples(pcm []byte) error {
	c.bytes += len(pcm)
	return nil
}

func TestSilenceClampsToZero(t *testing.T) {
	a := NewAnalyzer()
	require.NoError(t, a.Analyze(bytes.NewReader(make([]byte, bytesPerWindow*4)), nil))
	require.Len(t, a.Frequency, 4)

	for i, f := range a.Frequency {
		for b, v := range f {
			assert.Zerof(t, v, "window %d band %d", i, b)
		}
	}

	// сигнальный ряд затухает от начального состояния 1.0
	prev := 1.0
	for _, f := range a.Signal {
		assert.Less(t, f[0], prev)
		prev = f[0]
	}
}

func TestLowToneDominatesBassBand(t *testing.T) {
	a := NewAnalyzer()
	require.NoError(t, a.Analyze(bytes.NewReader(tone(50, 0.8, WindowSize*8)), nil))
	require.Len(t, a.Frequency, 8)

	last := a.Frequency[len(a.Frequency)-1]
	assert.Greater(t, last[0], last[5], "bass band should exceed treble band for a 50Hz tone")
	for _, f := range a.Frequency {
		for _, v := range f {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
}

func TestSignalTracksAmplitude(t *testing.T) {
	quiet := NewAnalyzer()
	loud := NewAnalyzer()
	require.NoError(t, quiet.Analyze(bytes.NewReader(tone(440, 0.05, WindowSize*6)), nil))
	require.NoError(t, loud.Analyze(bytes.NewReader(tone(440, 0.9, WindowSize*6)), nil))

	sum := func(frames []Frame) float64 {
		s := 0.0
		for _, f := range frames {
			for _, v := range f {
				s += v
			}
		}
		return s
	}
	assert.Greater(t, sum(loud.Signal), sum(quiet.Signal))
}

func TestPartialWindowReachesSink(t *testing.T) {
	pcm := tone(220, 0.5, WindowSize*2+100)
	sink := &captureSink{}

	a := NewAnalyzer()
	require.NoError(t, a.Analyze(bytes.NewReader(pcm), sink))

	assert.Len(t, a.Frequency, 2)
	assert.Equal(t, len(pcm), sink.bytes)
	assert.Equal(t, WindowSize*2+100, a.Samples)
}

func TestResampleToFrameCount(t *testing.T) {
	a := NewAnalyzer()
	// ~1 секунда звука = 43 окна
	require.NoError(t, a.Analyze(bytes.NewReader(tone(1000, 0.5, SampleRate)), nil))

	freq, signal := a.Resample(30)
	assert.Len(t, freq, 30)
	assert.Len(t, signal, 30)
}

func TestFreqToIndex(t *testing.T) {
	tests := []struct {
		freq float64
		want int
	}{
		{0, 0},
		{20, 0},
		{80, 2},
		{1000, 23},
		{20000, 464},
		{22050, WindowSize / 2},
	}
	for _, tt := range tests {
		if got := freqToIndex(tt.freq); got != tt.want {
			t.Errorf("freqToIndex(%.0f) = %d, want %d", tt.freq, got, tt.want)
		}
	}
}

func TestSeriesSmoothIndependently(t *testing.T) {
	a := NewAnalyzer()
	a.freq.push(Frame{10, 10, 10, 10, 10, 10})
	a.freq.push(Frame{10, 10, 10, 10, 10, 10})

	got := a.signal.push(Frame{})
	for i, v := range got {
		assert.InDelta(t, 0.65, v, 1e-9, "band %d", i)
	}
}
