package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/audiogram/internal/apperr"
	"github.com/ivlev/audiogram/internal/log"
	"github.com/ivlev/audiogram/internal/metrics"
	"github.com/ivlev/audiogram/internal/series"
	"github.com/ivlev/audiogram/internal/system"
)

// Result of decoding one track.
type Result struct {
	Frequency   []Frame
	Signal      []Frame
	TrackLength float64 // секунды
	Samples     int
}

// Frames returns the length of both series.
func (r Result) Frames() int { return len(r.Frequency) }

// Extractor decodes audio through an ffmpeg child process.
type Extractor struct {
	FFmpeg  string
	FFprobe string
	logger  zerolog.Logger
}

func NewExtractor(ffmpeg, ffprobe string) *Extractor {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &Extractor{FFmpeg: ffmpeg, FFprobe: ffprobe, logger: log.WithComponent("audio")}
}

// Convert перекодирует загруженный файл в mp3 44.1 кГц стерео рядом с
// исходником и возвращает путь к результату.
func (e *Extractor) Convert(ctx context.Context, src string, optimised bool) (string, error) {
	bitrate := "320k"
	if optimised {
		bitrate = "256k"
	}
	ext := filepath.Ext(src)
	dst := strings.TrimSuffix(src, ext) + "_converted.mp3"

	cmd := exec.CommandContext(ctx, e.FFmpeg, "-y", "-v", "error",
		"-i", src,
		"-vn",
		"-c:a", "libmp3lame",
		"-b:a", bitrate,
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		dst,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", apperr.Decode("convert audio", fmt.Errorf("%v, output: %s", err, strings.TrimSpace(string(out))))
	}
	return dst, nil
}

// Decode reads the whole track, computes both amplitude series and fits
// them to round(fps * trackLength) frames. Raw PCM is forwarded to sink.
func (e *Extractor) Decode(ctx context.Context, path string, fps int, sink PCMSink) (Result, error) {
	start := time.Now()
	defer func() { metrics.DecodeDuration.Observe(time.Since(start).Seconds()) }()

	cmd := exec.CommandContext(ctx, e.FFmpeg, "-v", "error",
		"-i", path,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		"-",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, apperr.Decode("stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, apperr.Decode("ffmpeg start", err)
	}

	a := NewAnalyzer()
	if err := a.Analyze(stdout, sink); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return Result{}, apperr.Decode("read pcm", err)
	}
	if err := cmd.Wait(); err != nil {
		return Result{}, apperr.Decode("ffmpeg wait", fmt.Errorf("%v, output: %s", err, strings.TrimSpace(stderr.String())))
	}
	if len(a.Frequency) == 0 {
		return Result{}, apperr.Decode("analyze", fmt.Errorf("no audio samples in %s", filepath.Base(path)))
	}

	length, err := system.ProbeDuration(ctx, e.FFprobe, path)
	if err != nil || length <= 0 {
		e.logger.Warn().Err(err).Str("file", path).Msg("ffprobe duration unavailable, using sample count")
		length = float64(a.Samples) / SampleRate
	}

	frames := series.FrameCount(fps, length)
	freq, signal := a.Resample(frames)

	e.logger.Debug().
		Int("windows", len(a.Frequency)).
		Int("frames", len(freq)).
		Float64("track_length", length).
		Msg("audio decoded")

	return Result{
		Frequency:   freq,
		Signal:      signal,
		TrackLength: length,
		Samples:     a.Samples,
	}, nil
}
