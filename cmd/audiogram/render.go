package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ivlev/audiogram/internal/canvas"
	"github.com/ivlev/audiogram/internal/config"
	"github.com/ivlev/audiogram/internal/hooks"
	"github.com/ivlev/audiogram/internal/log"
	"github.com/ivlev/audiogram/internal/render"
	"github.com/ivlev/audiogram/internal/scene"
	"github.com/ivlev/audiogram/internal/storage"
	"github.com/ivlev/audiogram/internal/system"
	"github.com/ivlev/audiogram/internal/task"
)

type renderOptions struct {
	audio  string
	output string
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render <scene.yaml|scene.json>",
		Short: "Render one scene locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), cfg, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.audio, "audio", "", "Путь к аудио (по умолчанию: из сцены или самый свежий файл в input/audio/)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	return cmd
}

func runRender(parent context.Context, cfg config.Config, scenePath string, opts renderOptions) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := log.WithComponent("cli")

	sc, err := scene.ReadFile(scenePath)
	if err != nil {
		return err
	}
	if sc.ID == "" {
		sc.ID = strings.TrimSuffix(filepath.Base(scenePath), filepath.Ext(scenePath))
	}
	switch {
	case opts.audio != "":
		sc.Audio, err = filepath.Abs(opts.audio)
		if err != nil {
			return err
		}
	case sc.Audio == "":
		latest, err := system.FindLatest("input/audio", system.AudioExtensions)
		if err != nil {
			return fmt.Errorf("%w. Положите аудио в input/audio/", err)
		}
		sc.Audio, _ = filepath.Abs(latest)
		logger.Info().Str("audio", sc.Audio).Msg("audio picked from input/audio")
	}
	if err := sc.Prepare(storage.LocalResolver{Dir: filepath.Dir(scenePath)}); err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		name := strings.ReplaceAll(sc.ID, " ", "_")
		output = filepath.Join("output", fmt.Sprintf("%s_%s.mp4", name, time.Now().Format("2006-01-02_15-04-05")))
	}

	env, err := system.Bootstrap(ctx, cfg.FFmpegPath, cfg.VideoEncoder, func() (int, error) {
		return canvas.LoadFonts(cfg.FontsDir)
	})
	if err != nil {
		return err
	}

	t := task.New(sc, task.Options{
		Output:   output,
		FFmpeg:   cfg.FFmpegPath,
		FFprobe:  cfg.FFprobePath,
		Encoder:  env.Encoder,
		Notifier: hooks.NewHTTPNotifier(sc.Hooks, cfg.HookTimeout),
	})
	err = t.Render(ctx, func() bool { return ctx.Err() == nil })
	switch {
	case errors.Is(err, render.ErrCancelled):
		fmt.Fprintln(os.Stderr, "render cancelled")
		return context.Canceled
	case err != nil:
		return err
	}
	fmt.Printf("Готово: %s\n", output)
	return nil
}
