package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/audiogram/internal/api"
	"github.com/ivlev/audiogram/internal/canvas"
	"github.com/ivlev/audiogram/internal/config"
	"github.com/ivlev/audiogram/internal/hooks"
	"github.com/ivlev/audiogram/internal/jobstore"
	"github.com/ivlev/audiogram/internal/log"
	"github.com/ivlev/audiogram/internal/scene"
	"github.com/ivlev/audiogram/internal/scheduler"
	"github.com/ivlev/audiogram/internal/storage"
	"github.com/ivlev/audiogram/internal/system"
	"github.com/ivlev/audiogram/internal/task"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the render service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.ListenAddr = listen
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Override listen address")
	return cmd
}

func ledgerPath(cfg config.Config) string {
	return filepath.Join(cfg.DataDir, "jobs.db")
}

func runServe(parent context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := log.WithComponent("serve")

	files := storage.NewFileManager(cfg.DataDir)
	if err := files.Lock(); err != nil {
		return err
	}
	defer files.Unlock()

	env, err := system.Bootstrap(ctx, cfg.FFmpegPath, cfg.VideoEncoder, func() (int, error) {
		return canvas.LoadFonts(cfg.FontsDir)
	})
	if err != nil {
		return err
	}

	ledger, err := jobstore.Open(ledgerPath(cfg))
	if err != nil {
		return err
	}
	defer ledger.Close()

	shared := hooks.Multi{ledger}
	if cfg.Redis.Addr != "" {
		rs, err := hooks.NewRedisStatus(ctx, cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis status mirror disabled")
		} else {
			defer rs.Close()
			shared = append(shared, rs)
		}
	}
	if cfg.S3.Bucket != "" {
		s3d, err := hooks.NewS3Deliverer(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("s3 delivery: %w", err)
		}
		shared = append(shared, s3d)
	}

	sched := scheduler.New(scheduler.Config{
		MaxConcurrent: cfg.MaxConcurrent,
		TickInterval:  cfg.TickInterval,
	})
	newJob := func(sc *scene.Scene) scheduler.Job {
		notifier := append(hooks.Multi{hooks.NewHTTPNotifier(sc.Hooks, cfg.HookTimeout)}, shared...)
		return task.New(sc, task.Options{
			Output:   files.ExportPath(sc.ID),
			Spool:    files.SpoolPath(sc.ID),
			FFmpeg:   cfg.FFmpegPath,
			FFprobe:  cfg.FFprobePath,
			Encoder:  env.Encoder,
			Notifier: notifier,
		})
	}

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.New(api.Deps{
			Scheduler: sched,
			Files:     files,
			Ledger:    ledger,
			NewJob:    newJob,
			RateLimit: cfg.RateLimit,
			KeepTasks: cfg.KeepTasks,
		}).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Str("encoder", env.Encoder).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info().Msg("stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
