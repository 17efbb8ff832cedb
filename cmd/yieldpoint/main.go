// Command yieldpoint serves and inspects the tensile test simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/yieldpoint/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "yieldpoint",
		Short: "Stress-strain curve engine for a mild steel tensile test",
		Long: `yieldpoint maps strain to stress and deformation phase for a ductile
specimen under uniaxial tension, samples the curve, and serves an animated
playback session over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $"+config.EnvPath+")")

	load := func() (config.Config, error) {
		path := configPath
		if path == "" {
			path = os.Getenv(config.EnvPath)
		}
		return config.Load(path)
	}

	root.AddCommand(
		newServeCmd(load),
		newCurveCmd(load),
		newQueryCmd(load),
		newPhasesCmd(load),
		newExportCmd(load),
		newVersionCmd(),
	)
	return root
}

// loadFunc returns the layered config for the invocation.
type loadFunc func() (config.Config, error)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "yieldpoint", version)
		},
	}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		slog.Error("yieldpoint failed", "error", err)
		os.Exit(1)
	}
}
