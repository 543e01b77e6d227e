package framerate

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"

	"github.com/ivlev/audiogram/internal/system"
)

// VideoSource декодирует фоновое видео через ffmpeg в поток сырых RGBA-кадров.
type VideoSource struct {
	ctx    context.Context
	ffmpeg string
	path   string
	info   system.VideoInfo

	cmd    *exec.Cmd
	stdout io.ReadCloser
	frame  *image.RGBA
}

func OpenVideo(ctx context.Context, path, ffmpeg, ffprobe string) (*VideoSource, error) {
	info, err := system.ProbeVideo(ctx, ffprobe, path)
	if err != nil {
		return nil, err
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("video %s has no dimensions", path)
	}
	v := &VideoSource{
		ctx:    ctx,
		ffmpeg: ffmpeg,
		path:   path,
		info:   info,
		frame:  image.NewRGBA(image.Rect(0, 0, info.Width, info.Height)),
	}
	if err := v.start(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *VideoSource) start() error {
	cmd := exec.CommandContext(v.ctx, v.ffmpeg, "-v", "error",
		"-i", v.path,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}
	v.cmd, v.stdout = cmd, stdout
	return nil
}

func (v *VideoSource) stop() error {
	if v.cmd == nil {
		return nil
	}
	v.stdout.Close()
	_ = v.cmd.Process.Kill()
	_ = v.cmd.Wait()
	v.cmd, v.stdout = nil, nil
	return nil
}

func (v *VideoSource) FPS() float64    { return v.info.FPS }
func (v *VideoSource) FrameCount() int { return v.info.Frames }

// Next reads one frame into a buffer reused across calls.
func (v *VideoSource) Next() (image.Image, error) {
	if v.stdout == nil {
		return nil, io.EOF
	}
	if _, err := io.ReadFull(v.stdout, v.frame.Pix); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return nil, err
	}
	return v.frame, nil
}

func (v *VideoSource) Rewind() error {
	if err := v.stop(); err != nil {
		return err
	}
	return v.start()
}

func (v *VideoSource) Close() error { return v.stop() }
