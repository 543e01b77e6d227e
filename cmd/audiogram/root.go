package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/audiogram/internal/config"
	"github.com/ivlev/audiogram/internal/log"
)

var version = "dev"

// commandContext лениво загружает конфигурацию для подкоманд.
type commandContext struct {
	configPath string
	pretty     bool
	cfg        *config.Config
}

func (c *commandContext) config() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.BuildVersion = version
	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Output:  os.Stderr,
		Version: version,
		Pretty:  c.pretty,
	})
	c.cfg = &cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "audiogram",
		Short:         "Render audiogram videos from a scene and an audio track",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&ctx.pretty, "pretty", false, "Human-readable log output")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newSceneCommand())
	return rootCmd
}
