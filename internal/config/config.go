// Package config loads server settings: built-in defaults, then an optional
// YAML file, then environment overrides. CLI flags are applied last by the
// caller.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/yieldpoint/internal/material"
	"github.com/talgya/yieldpoint/internal/playback"
	"github.com/talgya/yieldpoint/internal/specimen"
	"github.com/talgya/yieldpoint/internal/tensile"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("config: invalid value")

// Environment variables read by ApplyEnv.
const (
	EnvPath        = "YIELDPOINT_CONFIG"
	EnvPort        = "YIELDPOINT_PORT"
	EnvAdminKey    = "YIELDPOINT_ADMIN_KEY"
	EnvRelayKey    = "YIELDPOINT_RELAY_KEY"
	EnvResolution  = "YIELDPOINT_RESOLUTION"
	EnvExportDB    = "YIELDPOINT_EXPORT_DB"
	EnvCORSOrigins = "CORS_ORIGINS"
)

// Config is the full server configuration.
type Config struct {
	Port        int      `yaml:"port"`
	AdminKey    string   `yaml:"admin_key"` // bearer token for POST endpoints; empty disables them
	RelayKey    string   `yaml:"relay_key"` // bearer token for the SSE stream; empty leaves it open
	CORSOrigins []string `yaml:"cors_origins"`
	ExportDB    string   `yaml:"export_db"` // SQLite file for curve runs; empty disables

	Resolution   int             `yaml:"resolution"`
	Overshoot    float64         `yaml:"overshoot"`
	Speed        float64         `yaml:"speed"`
	TickInterval time.Duration   `yaml:"tick_interval"`
	Pacing       playback.Pacing `yaml:"pacing"`

	Material material.Properties `yaml:"material"`
	Specimen specimen.Geometry   `yaml:"specimen"`
}

// Default returns the stock configuration: mild steel, 400 steps, port 8080.
func Default() Config {
	return Config{
		Port:         8080,
		Resolution:   tensile.DefaultResolution,
		Overshoot:    tensile.DefaultOvershoot,
		Speed:        1,
		TickInterval: playback.DefaultInterval,
		Pacing:       playback.DefaultPacing(),
		Material:     material.MildSteel(),
		Specimen:     specimen.DefaultGeometry(),
	}
}

// Load returns defaults overlaid with the YAML file at path (if non-empty)
// and then the process environment. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables looked up via getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvPort); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = n
	}
	if v := getenv(EnvResolution); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvResolution, err)
		}
		c.Resolution = n
	}
	if v := getenv(EnvAdminKey); v != "" {
		c.AdminKey = v
	}
	if v := getenv(EnvRelayKey); v != "" {
		c.RelayKey = v
	}
	if v := getenv(EnvExportDB); v != "" {
		c.ExportDB = v
	}
	if v := getenv(EnvCORSOrigins); v != "" {
		for _, origin := range strings.Split(v, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				c.CORSOrigins = append(c.CORSOrigins, origin)
			}
		}
	}
	return nil
}

// Validate checks ranges and that the material yields a usable model.
// Material problems surface as *tensile.ConfigurationError.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	case c.Resolution <= 0:
		return fmt.Errorf("%w: resolution must be positive, got %d", ErrInvalid, c.Resolution)
	case !finite(c.Overshoot) || c.Overshoot < 0:
		return fmt.Errorf("%w: overshoot must be >= 0, got %g", ErrInvalid, c.Overshoot)
	case !finite(c.Speed) || c.Speed < 0:
		return fmt.Errorf("%w: speed must be >= 0, got %g", ErrInvalid, c.Speed)
	case c.TickInterval <= 0:
		return fmt.Errorf("%w: tick_interval must be positive, got %s", ErrInvalid, c.TickInterval)
	case c.Pacing.FullRun <= 0:
		return fmt.Errorf("%w: pacing.full_run must be positive, got %s", ErrInvalid, c.Pacing.FullRun)
	case !finite(c.Pacing.PlateauSlowdown) || c.Pacing.PlateauSlowdown <= 0:
		return fmt.Errorf("%w: pacing.plateau_slowdown must be positive, got %g", ErrInvalid, c.Pacing.PlateauSlowdown)
	case c.Specimen.Slices < 0:
		return fmt.Errorf("%w: specimen.slices must be >= 0, got %d", ErrInvalid, c.Specimen.Slices)
	}
	_, err := tensile.NewModel(c.Material)
	return err
}

// Model builds the tensile model for the configured material.
func (c Config) Model() (*tensile.Model, error) {
	return tensile.NewModel(c.Material)
}

// SessionOptions converts the playback fields.
func (c Config) SessionOptions() playback.Options {
	return playback.Options{
		Resolution: c.Resolution,
		Overshoot:  c.Overshoot,
		Speed:      c.Speed,
		Pacing:     c.Pacing,
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
