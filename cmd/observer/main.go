// Command observer follows a running yieldpoint server and logs every
// deformation phase the live session passes through.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/yieldpoint/internal/observer"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	apiURL := envOrDefault("YIELDPOINT_API_URL", "http://localhost:8080")
	intervalMs := envIntOrDefault("OBSERVER_INTERVAL_MS", 250)
	interval := time.Duration(intervalMs) * time.Millisecond

	slog.Info("yieldpoint observer starting", "api_url", apiURL, "interval", interval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs := observer.NewObserver(apiURL)

	// The server may still be starting up.
	slog.Info("waiting for yieldpoint API...")
	if err := obs.WaitForAPI(ctx, observer.DefaultBackoff()); err != nil {
		slog.Error("API not reachable", "error", err)
		os.Exit(1)
	}

	if st, err := obs.Status(ctx); err == nil {
		slog.Info("connected",
			"version", st.Version,
			"session", st.Session,
			"material", st.Material,
			"resolution", st.Resolution,
			"playing", st.Playing,
		)
	}

	w := &observer.Watcher{Observer: obs, Interval: interval}
	if err := w.Run(ctx); err != nil {
		slog.Error("observer failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Observer stopped.")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}
