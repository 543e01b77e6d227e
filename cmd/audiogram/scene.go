package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ivlev/audiogram/internal/scene"
	"github.com/ivlev/audiogram/internal/system"
)

func newSceneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Scene file helpers",
	}
	cmd.AddCommand(newSceneInitCommand(), newSceneCheckCommand())
	return cmd
}

func newSceneInitCommand() *cobra.Command {
	var audio, cover string
	var force bool
	cmd := &cobra.Command{
		Use:   "init <scene.yaml>",
		Short: "Write a starter scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force)", path)
			}
			if cover == "" {
				cover, _ = system.FindLatest("input/images", system.ImageExtensions)
			}
			id := filepath.Base(path)
			id = id[:len(id)-len(filepath.Ext(id))]
			if err := scene.WriteFile(scene.Example(id, audio, cover), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Сцена записана: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&audio, "audio", "", "Audio file referenced by the scene")
	cmd.Flags().StringVar(&cover, "cover", "", "Cover image (по умолчанию: самый свежий файл в input/images/)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func newSceneCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <scene.yaml>",
		Short: "Validate a scene file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scene.ReadFile(args[0])
			if err != nil {
				return err
			}
			if sc.ID == "" {
				sc.ID = "check"
			}
			if err := sc.Prepare(nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d static, %d animated layers\n",
				len(sc.StaticLayers()), len(sc.AnimatedLayers()))
			return nil
		},
	}
}
