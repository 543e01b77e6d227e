package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ivlev/audiogram/internal/log"
)

var (
	AudioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".pdf"}
)

func InitResourceLimits() {
	logger := log.WithComponent("system")

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("cannot read open file limit")
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn().Err(err).Msg("cannot raise open file limit")
	} else {
		logger.Debug().Uint64("nofile", uint64(rLimit.Cur)).Msg("open file limit raised")
	}
}

// FindLatest возвращает самый свежий файл в dir с одним из расширений.
func FindLatest(dir string, extensions []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), extensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено файлов %s", dir, strings.Join(extensions, ", "))
	}
	return latestFile, nil
}

func hasExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// DetectH264Encoder picks the best available H.264 encoder.
func DetectH264Encoder(ctx context.Context, ffmpeg string) string {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}

// Environment is the process-wide state prepared once before rendering.
type Environment struct {
	Encoder string
	Fonts   int
}

var (
	bootOnce sync.Once
	bootEnv  Environment
	bootErr  error
)

// Bootstrap raises resource limits, registers fonts through loadFonts and
// detects the H.264 encoder. Only the first call does any work; later
// calls return the same result.
func Bootstrap(ctx context.Context, ffmpeg, encoder string, loadFonts func() (int, error)) (Environment, error) {
	bootOnce.Do(func() {
		logger := log.WithComponent("system")
		InitResourceLimits()

		if loadFonts != nil {
			n, err := loadFonts()
			if err != nil {
				bootErr = fmt.Errorf("load fonts: %w", err)
				return
			}
			bootEnv.Fonts = n
		}

		bootEnv.Encoder = encoder
		if bootEnv.Encoder == "" {
			bootEnv.Encoder = DetectH264Encoder(ctx, ffmpeg)
		}
		if bootEnv.Encoder != "libx264" {
			logger.Info().Str("encoder", bootEnv.Encoder).Msg("hardware encoder detected")
		}
		logger.Info().Int("fonts", bootEnv.Fonts).Msg("bootstrap complete")
	})
	return bootEnv, bootErr
}
