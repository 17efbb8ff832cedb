// Package api serves the playback session over HTTP for renderers.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/yieldpoint/internal/describe"
	"github.com/talgya/yieldpoint/internal/export"
	"github.com/talgya/yieldpoint/internal/playback"
	"github.com/talgya/yieldpoint/internal/specimen"
	"github.com/talgya/yieldpoint/internal/tensile"
)

const (
	defaultMaxStreams  = 8
	defaultExportLimit = 30 // per client per minute
	maxSpeed           = 100
	maxResolution      = 100_000
	maxBodyBytes       = 1 << 16
)

// Server serves one playback session over HTTP.
type Server struct {
	Session *playback.Session
	Engine  *playback.Engine // nil disables /stream
	Layout  *specimen.Layout
	Store   *export.Store // nil disables saving exported runs
	Metrics *Metrics      // nil disables /metrics

	Port        int
	Version     string
	AdminKey    string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey    string // Bearer token for the stream endpoint. Empty = open.
	CORSOrigins []string

	MaxStreams  int // concurrent SSE clients; 0 = default
	ExportLimit int // exports per client per minute; 0 = default
	Heartbeat   time.Duration

	// Active SSE connection count.
	sseConns atomic.Int32
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	limit := s.ExportLimit
	if limit <= 0 {
		limit = defaultExportLimit
	}
	exportLimiter := NewRateLimiter(limit, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/curve", s.handleCurve)
	mux.HandleFunc("/api/v1/state", s.handleState)
	mux.HandleFunc("/api/v1/thresholds", s.handleThresholds)
	mux.HandleFunc("/api/v1/phases", s.handlePhases)
	mux.HandleFunc("/api/v1/specimen", s.handleSpecimen)
	mux.HandleFunc("/api/v1/markers", s.handleMarkers)
	mux.HandleFunc("/api/v1/export", RateLimitMiddleware(exportLimiter, s.handleExport))

	// SSE streaming endpoint.
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints (POST require bearer token, GET reads current value).
	mux.HandleFunc("/api/v1/playback", s.adminOnly(s.handlePlayback))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/resolution", s.adminOnly(s.handleResolution))

	if s.Metrics != nil {
		mux.Handle("/metrics", s.Metrics.Handler())
	}

	return corsMiddleware(s.CORSOrigins, mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	slog.Info("HTTP API starting", "addr", srv.Addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("HTTP API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Run-ID")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerMatches reports whether the request carries token as a bearer token.
func bearerMatches(r *http.Request, token string) bool {
	auth, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(auth), []byte(token)) == 1
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through and read the current value.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no YIELDPOINT_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !bearerMatches(r, s.AdminKey) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	f := s.Session.Snapshot()
	m := s.Session.Model()

	status := map[string]any{
		"name":           "yieldpoint",
		"version":        s.Version,
		"session":        f.Session,
		"material":       m.Material().Name,
		"tick":           f.Tick,
		"strain":         f.Reading.Strain,
		"stress":         f.Reading.Stress,
		"phase":          f.Reading.Phase,
		"progress":       f.Progress,
		"playing":        f.State.IsPlaying,
		"speed":          f.State.PlaybackSpeed,
		"resolution":     s.Session.Resolution(),
		"overshoot":      s.Session.Overshoot(),
		"running":        s.Engine != nil && s.Engine.Running(),
		"stream_clients": s.sseConns.Load(),
	}
	writeJSON(w, status)
}

// handleCurve returns the cached curve. ?upto=<strain> trims it to the
// samples a chart has already drawn.
func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	curve := s.Session.Curve()
	points := curve
	if v := r.URL.Query().Get("upto"); v != "" {
		strain, err := parseStrain(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		points = curve.Upto(strain)
	}

	peak, _ := curve.PeakStress()
	writeJSON(w, map[string]any{
		"resolution": len(curve) - 1,
		"max_strain": curve.MaxStrain(),
		"peak":       peak,
		"spans":      curve.PhaseSpans(),
		"points":     points,
	})
}

type stateResponse struct {
	Frame   *playback.Frame  `json:"frame,omitempty"`
	Reading tensile.State    `json:"reading"`
	Content describe.Content `json:"content"`
}

// handleState returns the live frame, or with ?strain= a pure query
// against the cached curve that leaves playback untouched.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var resp stateResponse
	if v := r.URL.Query().Get("strain"); v != "" {
		strain, err := parseStrain(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp.Reading = s.Session.Model().Query(s.Session.Curve(), strain)
	} else {
		f := s.Session.Snapshot()
		resp.Frame = &f
		resp.Reading = f.Reading
	}
	resp.Content, _ = describe.For(resp.Reading.Phase)
	writeJSON(w, resp)
}

func (s *Server) handleThresholds(w http.ResponseWriter, r *http.Request) {
	m := s.Session.Model()
	writeJSON(w, map[string]any{
		"material":   m.Material(),
		"thresholds": m.Thresholds(),
	})
}

type phaseInfo struct {
	describe.Content
	Key  string   `json:"key"`
	Name string   `json:"name"`
	From float64  `json:"from"`
	To   *float64 `json:"to,omitempty"` // absent for fracture (unbounded)
}

func (s *Server) handlePhases(w http.ResponseWriter, r *http.Request) {
	th := s.Session.Model().Thresholds()
	bounds := []float64{0, th.ElasticLimit, th.UpperYield, th.LowerYieldStart, th.PlateauEnd, th.NeckingStart, th.Fracture}

	out := make([]phaseInfo, 0, tensile.PhaseCount)
	for i, c := range describe.All() {
		info := phaseInfo{
			Content: c,
			Key:     c.Phase.Key(),
			Name:    c.Phase.String(),
			From:    bounds[i],
		}
		if i+1 < len(bounds) {
			to := bounds[i+1]
			info.To = &to
		}
		out = append(out, info)
	}
	writeJSON(w, out)
}

// handleSpecimen returns the specimen geometry at ?strain=, or at the
// current playback strain.
func (s *Server) handleSpecimen(w http.ResponseWriter, r *http.Request) {
	strain := s.Session.State().CurrentStrain
	if v := r.URL.Query().Get("strain"); v != "" {
		var err error
		if strain, err = parseStrain(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, map[string]any{
		"geometry": s.Layout.Geometry(),
		"view":     s.Layout.At(s.Session.Model(), strain),
	})
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Markers())
}

// handleExport serves the curve as a download (?format=csv|xlsx, default
// csv). When a store is configured the run is also appended to it.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := export.CSV
	if v := r.URL.Query().Get("format"); v != "" {
		f, err := export.ParseFormat(v)
		if err != nil {
			http.Error(w, "unknown format (use: csv, xlsx)", http.StatusBadRequest)
			return
		}
		format = f
	}

	m := s.Session.Model()
	curve := s.Session.Curve()
	resolution := len(curve) - 1

	var buf bytes.Buffer
	if err := export.Write(&buf, format, m, curve); err != nil {
		slog.Error("export failed", "format", format, "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	if s.Store != nil {
		run, err := s.Store.SaveRun(r.Context(), m, resolution, s.Session.Overshoot(), curve)
		if err != nil {
			slog.Warn("failed to record export run", "error", err)
		} else {
			w.Header().Set("X-Run-ID", run.ID)
		}
	}
	if s.Metrics != nil {
		s.Metrics.exports.WithLabelValues(string(format)).Inc()
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="yieldpoint-%d%s"`, resolution, format.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	buf.WriteTo(w)
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Action  string   `json:"action"`
			Percent *float64 `json:"percent"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		switch strings.ToLower(req.Action) {
		case "play":
			s.Session.Play()
		case "pause":
			s.Session.Pause()
		case "toggle":
			s.Session.Toggle()
		case "reset":
			s.Session.Reset()
		case "seek":
			if req.Percent == nil {
				http.Error(w, "seek requires percent (0-100)", http.StatusBadRequest)
				return
			}
			s.Session.Seek(*req.Percent)
		default:
			http.Error(w, "unknown action (use: play, pause, toggle, reset, seek)", http.StatusBadRequest)
			return
		}
		slog.Info("playback command", "action", req.Action)
	}

	writeJSON(w, s.Session.Snapshot())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > maxSpeed {
			http.Error(w, fmt.Sprintf("speed must be 0-%d", maxSpeed), http.StatusBadRequest)
			return
		}
		if err := s.Session.SetSpeed(req.Speed); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Session.State().PlaybackSpeed})
}

func (s *Server) handleResolution(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Resolution int `json:"resolution"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Resolution < 1 || req.Resolution > maxResolution {
			http.Error(w, fmt.Sprintf("resolution must be 1-%d", maxResolution), http.StatusBadRequest)
			return
		}
		changed, err := s.Session.SetResolution(req.Resolution)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if changed {
			slog.Info("curve regenerated", "resolution", req.Resolution)
		}
	}

	writeJSON(w, map[string]int{"resolution": s.Session.Resolution()})
}

// parseStrain parses a finite strain query value.
func parseStrain(v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid strain %q", v)
	}
	return f, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Warn("write response", "error", err)
	}
}
