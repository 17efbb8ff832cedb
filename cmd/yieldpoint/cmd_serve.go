package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/yieldpoint/internal/api"
	"github.com/talgya/yieldpoint/internal/config"
	"github.com/talgya/yieldpoint/internal/export"
	"github.com/talgya/yieldpoint/internal/playback"
	"github.com/talgya/yieldpoint/internal/specimen"
)

func newServeCmd(load loadFunc) *cobra.Command {
	var flags struct {
		port       int
		resolution int
		speed      float64
		exportDB   string
		autoplay   bool
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the playback engine and HTTP API",
		Long: `Starts the playback tick loop and serves the session over HTTP:
JSON endpoints under /api/v1, an SSE frame stream at /api/v1/stream and
Prometheus metrics at /metrics. POST endpoints need YIELDPOINT_ADMIN_KEY.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("port") {
				cfg.Port = flags.port
			}
			if f.Changed("resolution") {
				cfg.Resolution = flags.resolution
			}
			if f.Changed("speed") {
				cfg.Speed = flags.speed
			}
			if f.Changed("export-db") {
				cfg.ExportDB = flags.exportDB
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, flags.autoplay)
		},
	}

	f := cmd.Flags()
	f.IntVar(&flags.port, "port", 8080, "HTTP port (overrides config and $YIELDPOINT_PORT)")
	f.IntVar(&flags.resolution, "resolution", 400, "curve steps")
	f.Float64Var(&flags.speed, "speed", 1, "initial playback speed multiplier")
	f.StringVar(&flags.exportDB, "export-db", "", "SQLite file that records every exported curve")
	f.BoolVar(&flags.autoplay, "autoplay", false, "start playing immediately")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, autoplay bool) error {
	model, err := cfg.Model()
	if err != nil {
		return err
	}
	th := model.Thresholds()
	slog.Info("yieldpoint starting",
		"version", version,
		"material", model.Material().Name,
		"elastic_limit", fmt.Sprintf("%.5f", th.ElasticLimit),
		"fracture", fmt.Sprintf("%.3f", th.Fracture),
	)

	session, err := playback.NewSession(model, cfg.SessionOptions())
	if err != nil {
		return err
	}
	slog.Info("curve generated", "session", session.ID(), "resolution", cfg.Resolution, "points", len(session.Curve()))

	metrics := api.NewMetrics()
	engine := playback.NewEngine(session)
	engine.Interval = cfg.TickInterval
	engine.OnFrame = metrics.ObserveFrame
	engine.OnPhaseChange = metrics.ObserveTransition

	var store *export.Store
	if cfg.ExportDB != "" {
		store, err = export.OpenStore(cfg.ExportDB)
		if err != nil {
			return err
		}
		defer store.Close()
		slog.Info("export store opened", "path", cfg.ExportDB)
	}

	srv := &api.Server{
		Session:     session,
		Engine:      engine,
		Layout:      specimen.NewLayout(cfg.Specimen),
		Store:       store,
		Metrics:     metrics,
		Port:        cfg.Port,
		Version:     version,
		AdminKey:    cfg.AdminKey,
		RelayKey:    cfg.RelayKey,
		CORSOrigins: cfg.CORSOrigins,
	}

	if autoplay {
		session.Play()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx) })

	err = g.Wait()
	slog.Info("yieldpoint stopped", "tick", session.Snapshot().Tick)
	return err
}
