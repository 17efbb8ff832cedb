package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/yieldpoint/internal/playback"
	"github.com/talgya/yieldpoint/internal/tensile"
)

// Metrics exposes the live reading and engine counters to Prometheus.
type Metrics struct {
	reg *prometheus.Registry

	strain      prometheus.Gauge
	stress      prometheus.Gauge
	phase       prometheus.Gauge
	playing     prometheus.Gauge
	frames      prometheus.Counter
	transitions *prometheus.CounterVec
	exports     *prometheus.CounterVec
	sseClients  prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry, alongside the Go
// runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		strain: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yieldpoint_strain",
			Help: "Current engineering strain of the playback session.",
		}),
		stress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yieldpoint_stress_mpa",
			Help: "Stress reported at the current strain, in MPa.",
		}),
		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yieldpoint_phase",
			Help: "Ordinal of the current deformation phase (0 = elastic, 6 = fracture).",
		}),
		playing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yieldpoint_playing",
			Help: "1 while playback is running.",
		}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "yieldpoint_frames_total",
			Help: "Frames published by the playback engine.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yieldpoint_phase_transitions_total",
			Help: "Phase transitions observed during playback, by phase entered.",
		}, []string{"phase"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "yieldpoint_exports_total",
			Help: "Curve datasets served, by format.",
		}, []string{"format"}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "yieldpoint_sse_clients",
			Help: "Connected stream clients.",
		}),
	}
	m.reg.MustRegister(
		m.strain, m.stress, m.phase, m.playing, m.frames,
		m.transitions, m.exports, m.sseClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveFrame records a published frame. Wire it to Engine.OnFrame.
func (m *Metrics) ObserveFrame(f playback.Frame) {
	m.frames.Inc()
	m.strain.Set(f.Reading.Strain)
	m.stress.Set(f.Reading.Stress)
	m.phase.Set(float64(f.Reading.Phase))
	if f.State.IsPlaying {
		m.playing.Set(1)
	} else {
		m.playing.Set(0)
	}
}

// ObserveTransition counts a phase change. Wire it to Engine.OnPhaseChange.
func (m *Metrics) ObserveTransition(_, to tensile.DeformationPhase, _ playback.Frame) {
	m.transitions.WithLabelValues(to.Key()).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
