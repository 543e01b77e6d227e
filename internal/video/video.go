// Package video muxes rendered frames and decoded audio into an MP4 file
// through an ffmpeg child process.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/audiogram/internal/audio"
	"github.com/ivlev/audiogram/internal/config"
	"github.com/ivlev/audiogram/internal/log"
)

const (
	audioBitrate  = "320k"
	stderrTailLen = 4096
)

// FFmpegEncoder is a frame sink: raw RGBA frames go to ffmpeg's stdin,
// the audio is read from a spooled PCM file.
type FFmpegEncoder struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
	output string
	width  int
	height int
	logger zerolog.Logger

	mu      sync.Mutex
	lastPTS time.Duration
	frames  int
	done    bool
	scratch *image.RGBA
}

// Start launches ffmpeg. pcmPath may be empty for a silent video.
func Start(ctx context.Context, ffmpeg string, params config.RenderParams, pcmPath, output string) (*FFmpegEncoder, error) {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if params.Width <= 0 || params.Height <= 0 || params.FPS <= 0 {
		return nil, fmt.Errorf("invalid encoder params %dx%d@%d", params.Width, params.Height, params.FPS)
	}

	cmd := exec.CommandContext(ctx, ffmpeg, buildArgs(params, pcmPath, output)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	tail := &tailBuffer{max: stderrTailLen}
	cmd.Stderr = tail

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	e := &FFmpegEncoder{
		cmd:     cmd,
		stdin:   stdin,
		stderr:  tail,
		output:  output,
		width:   params.Width,
		height:  params.Height,
		logger:  log.WithComponent("video"),
		lastPTS: -1,
	}
	e.logger.Debug().
		Str("encoder", params.Encoder).
		Int("width", params.Width).
		Int("height", params.Height).
		Int("fps", params.FPS).
		Str("output", output).
		Msg("encoder started")
	return e, nil
}

// buildArgs собирает командную строку: видео из stdin, звук из PCM-файла.
func buildArgs(params config.RenderParams, pcmPath, output string) []string {
	args := []string{
		"-y",
		"-v", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", fmt.Sprintf("%d", params.FPS),
		"-i", "-",
	}
	if pcmPath != "" {
		args = append(args,
			"-f", "s16le",
			"-ar", fmt.Sprintf("%d", audio.SampleRate),
			"-ac", fmt.Sprintf("%d", audio.Channels),
			"-i", pcmPath,
		)
	}

	args = append(args, "-map", "0:v")
	if pcmPath != "" {
		args = append(args, "-map", "1:a")
	}

	// yuv420p требует чётных сторон
	args = append(args,
		"-vf", "crop=trunc(iw/2)*2:trunc(ih/2)*2",
		"-r", fmt.Sprintf("%d", params.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", encoderName(params.Encoder),
	)

	bitrate := fmt.Sprintf("%dk", params.Bitrate/1000)
	switch encoderName(params.Encoder) {
	case "h264_videotoolbox":
		args = append(args, "-b:v", bitrate)
	case "h264_nvenc":
		args = append(args, "-rc", "vbr", "-cq", fmt.Sprintf("%d", nvencCQ(params.Quality)), "-b:v", bitrate)
	default: // libx264
		args = append(args, "-b:v", bitrate, "-maxrate", bitrate, "-bufsize", fmt.Sprintf("%dk", params.Bitrate/500), "-preset", "medium")
	}

	if pcmPath != "" {
		args = append(args, "-c:a", "aac", "-b:a", audioBitrate, "-ar", fmt.Sprintf("%d", audio.SampleRate), "-ac", fmt.Sprintf("%d", audio.Channels), "-shortest")
	}
	args = append(args, "-movflags", "+faststart", "-f", "mp4", output)
	return args
}

func encoderName(name string) string {
	if name == "" {
		return "libx264"
	}
	return name
}

// nvencCQ переводит качество 1..10 в шкалу -cq (меньше — лучше).
func nvencCQ(quality int) int {
	if quality <= 0 || quality > 10 {
		return 23
	}
	return 33 - quality*2
}

// WriteFrame writes one frame. Frames must arrive in presentation order.
func (e *FFmpegEncoder) WriteFrame(img *image.RGBA, pts time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done {
		return errors.New("encoder already finished")
	}
	if pts <= e.lastPTS {
		return fmt.Errorf("frame %d out of order: pts %s after %s", e.frames, pts, e.lastPTS)
	}
	b := img.Bounds()
	if b.Dx() != e.width || b.Dy() != e.height {
		return fmt.Errorf("frame size %dx%d, encoder expects %dx%d", b.Dx(), b.Dy(), e.width, e.height)
	}
	if err := e.writeRawRGBA(img); err != nil {
		return fmt.Errorf("write raw error: %w%s", err, e.stderr.suffix())
	}
	e.lastPTS = pts
	e.frames++
	return nil
}

// writeRawRGBA пишет пиксели без промежуточной копии, если буфер плотный.
func (e *FFmpegEncoder) writeRawRGBA(img *image.RGBA) error {
	b := img.Bounds()
	if img.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		_, err := e.stdin.Write(img.Pix[:b.Dy()*img.Stride])
		return err
	}
	if e.scratch == nil {
		e.scratch = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	draw.Draw(e.scratch, e.scratch.Bounds(), img, b.Min, draw.Src)
	_, err := e.stdin.Write(e.scratch.Pix)
	return err
}

// Close finishes the stream and waits for ffmpeg to write the container.
func (e *FFmpegEncoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return nil
	}
	e.done = true

	if err := e.stdin.Close(); err != nil {
		return fmt.Errorf("close stdin: %w", err)
	}
	if e.cmd == nil {
		return nil
	}
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w%s", err, e.stderr.suffix())
	}
	e.logger.Debug().Int("frames", e.frames).Str("output", e.output).Msg("encoder finished")
	return nil
}

// Abort kills ffmpeg and removes the partial output file.
func (e *FFmpegEncoder) Abort() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return nil
	}
	e.done = true

	_ = e.stdin.Close()
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
		_ = e.cmd.Wait()
	}
	if err := os.Remove(e.output); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove partial output: %w", err)
	}
	e.logger.Debug().Int("frames", e.frames).Msg("encoder aborted")
	return nil
}

// Frames returns the number of frames written so far.
func (e *FFmpegEncoder) Frames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// tailBuffer keeps the last max bytes of ffmpeg's stderr for error messages.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return len(p), nil
}

func (t *tailBuffer) suffix() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s := strings.TrimSpace(t.buf.String())
	if s == "" {
		return ""
	}
	return ", output: " + s
}
