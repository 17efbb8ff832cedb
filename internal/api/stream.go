package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/talgya/yieldpoint/internal/tensile"
)

const defaultHeartbeat = 15 * time.Second

// phaseEvent is sent ahead of the frame that crosses a phase boundary.
type phaseEvent struct {
	From   tensile.DeformationPhase `json:"from"`
	To     tensile.DeformationPhase `json:"to"`
	Strain float64                  `json:"strain"`
	Stress float64                  `json:"stress"`
}

// handleStream provides an SSE endpoint streaming playback frames.
// When a relay key is configured it is required as a bearer token.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.RelayKey != "" && !bearerMatches(r, s.RelayKey) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.Engine == nil {
		http.Error(w, "streaming unavailable", http.StatusServiceUnavailable)
		return
	}

	// Connection limit.
	limit := int32(s.MaxStreams)
	if limit <= 0 {
		limit = defaultMaxStreams
	}
	if current := s.sseConns.Add(1); current > limit {
		s.sseConns.Add(-1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer s.sseConns.Add(-1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	if s.Metrics != nil {
		s.Metrics.sseClients.Inc()
		defer s.Metrics.sseClients.Dec()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subID, ch := s.Engine.Subscribe()
	defer s.Engine.Unsubscribe(subID)

	// Catch-up: the current frame, so a client can draw before playback moves.
	last := s.Session.Snapshot()
	writeSSEEvent(w, "frame", last)
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	interval := s.Heartbeat
	if interval <= 0 {
		interval = defaultHeartbeat
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	for {
		select {
		case f, ok := <-ch:
			if !ok {
				return
			}
			if f.Reading.Phase != last.Reading.Phase {
				writeSSEEvent(w, "phase", phaseEvent{
					From:   last.Reading.Phase,
					To:     f.Reading.Phase,
					Strain: f.Reading.Strain,
					Stress: f.Reading.Stress,
				})
			}
			writeSSEEvent(w, "frame", f)
			flusher.Flush()
			last = f
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single named event in SSE format.
func writeSSEEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
