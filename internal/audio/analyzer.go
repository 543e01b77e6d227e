// Package audio turns an audio track into per-frame amplitude series.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/ivlev/audiogram/internal/series"
)

const (
	SampleRate = 44100
	Channels   = 2
	WindowSize = 1024
	Bands      = 6

	bytesPerWindow = WindowSize * Channels * 2 // s16le
	maxSample      = 1.0 / math.MaxInt16
)

// Frame holds six amplitude values for one window or video frame.
type Frame [Bands]float64

// PCMSink receives the decoded interleaved s16le samples so that the
// audio can be muxed into the output alongside the frames.
type PCMSink interface {
	WriteSamples(pcm []byte) error
}

type band struct {
	lo, hi float64
	gain   float64
}

var bands = [Bands]band{
	{20, 80, 10},
	{80, 200, 10},
	{200, 1000, 10},
	{1000, 2000, 20},
	{2000, 4000, 20},
	{4000, 20000, 20},
}

// smoother applies exponential smoothing with negative and -Inf values
// clamped to zero.
type smoother struct {
	state Frame
}

func newSmoother() smoother {
	var s smoother
	for i := range s.state {
		s.state[i] = 1
	}
	return s
}

func (s *smoother) push(v Frame) Frame {
	for i := range s.state {
		x := 0.35*v[i] + 0.65*s.state[i]
		if math.IsInf(x, -1) || math.IsNaN(x) || x < 0 {
			x = 0
		}
		s.state[i] = x
	}
	return s.state
}

// Analyzer накапливает частотный и сигнальный ряды по окнам из 1024 сэмплов.
type Analyzer struct {
	fft      *fourier.FFT
	mono     []float64
	coeff    []complex128
	spectrum []float64

	// у частотного и сигнального рядов своё состояние сглаживания,
	// иначе один ряд тянет за собой другой
	freq, signal smoother

	Frequency []Frame
	Signal    []Frame
	Samples   int // стерео-сэмплов прочитано
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		fft:      fourier.NewFFT(WindowSize),
		mono:     make([]float64, WindowSize),
		coeff:    make([]complex128, WindowSize/2+1),
		spectrum: make([]float64, WindowSize/2+1),
		freq:     newSmoother(),
		signal:   newSmoother(),
	}
}

// Window consumes one full window of interleaved stereo samples.
func (a *Analyzer) Window(pcm []int16) {
	for i := 0; i < WindowSize; i++ {
		l := float64(pcm[2*i]) * maxSample
		r := float64(pcm[2*i+1]) * maxSample
		a.mono[i] = (l + r) / 2
	}

	a.coeff = a.fft.Coefficients(a.coeff, a.mono)
	for i, c := range a.coeff {
		a.spectrum[i] = cmplx.Abs(c)
	}

	var energy Frame
	for i, b := range bands {
		energy[i] = b.gain * math.Log(a.average(b.lo, b.hi)) * 3
	}
	a.Frequency = append(a.Frequency, a.freq.push(energy))

	var envelope Frame
	for i, v := range series.Resample(a.mono, Bands) {
		envelope[i] = math.Abs(v * 110)
	}
	a.Signal = append(a.Signal, a.signal.push(envelope))
}

// average returns the mean spectrum magnitude over the bins covering
// [lo, hi] Hz, both ends included.
func (a *Analyzer) average(lo, hi float64) float64 {
	lb, hb := freqToIndex(lo), freqToIndex(hi)
	sum := 0.0
	for i := lb; i <= hb; i++ {
		sum += a.spectrum[i]
	}
	return sum / float64(hb-lb+1)
}

func freqToIndex(f float64) int {
	bandWidth := float64(SampleRate) / WindowSize
	if f < bandWidth/2 {
		return 0
	}
	if f > SampleRate/2-bandWidth/2 {
		return WindowSize / 2
	}
	return int(math.Round(WindowSize * f / SampleRate))
}

// Analyze reads interleaved s16le stereo PCM from r until EOF. Every
// window is forwarded to sink (if any); a trailing partial window reaches
// the sink but yields no amplitude frame.
func (a *Analyzer) Analyze(r io.Reader, sink PCMSink) error {
	buf := make([]byte, bytesPerWindow)
	samples := make([]int16, WindowSize*Channels)

	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 && sink != nil {
			if werr := sink.WriteSamples(buf[:n]); werr != nil {
				return fmt.Errorf("pcm sink: %w", werr)
			}
		}
		a.Samples += n / (Channels * 2)

		switch {
		case err == nil:
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
			}
			a.Window(samples)
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			return err
		}
	}
}

// Resample fits both series to the video frame count.
func (a *Analyzer) Resample(frames int) (freq, signal []Frame) {
	return series.Resample(a.Frequency, frames), series.Resample(a.Signal, frames)
}
