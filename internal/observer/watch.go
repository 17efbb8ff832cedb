package observer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/yieldpoint/internal/tensile"
)

// Transition is a phase change seen between two polls.
type Transition struct {
	From   tensile.DeformationPhase
	To     tensile.DeformationPhase
	Strain float64
	Stress float64
	Title  string
}

// Watcher polls the live state and reports phase transitions.
type Watcher struct {
	Observer *Observer
	Interval time.Duration

	// OnTransition, if set, is called for every transition after it is logged.
	OnTransition func(Transition)

	last    tensile.DeformationPhase
	started bool
}

// Poll fetches the state once and reports a transition if the phase moved
// since the previous poll. The first poll only records the phase.
func (w *Watcher) Poll(ctx context.Context) (*Transition, error) {
	st, err := w.Observer.State(ctx)
	if err != nil {
		return nil, err
	}

	phase := st.Reading.Phase
	if !w.started {
		w.started = true
		w.last = phase
		slog.Info("watching session",
			"phase", phase.Key(),
			"strain", fmt.Sprintf("%.5f", st.Reading.Strain),
		)
		return nil, nil
	}
	if phase == w.last {
		return nil, nil
	}

	tr := Transition{
		From:   w.last,
		To:     phase,
		Strain: st.Reading.Strain,
		Stress: st.Reading.Stress,
		Title:  st.Content.Title,
	}
	w.last = phase

	slog.Info("phase transition",
		"from", tr.From.Key(),
		"to", tr.To.Key(),
		"strain", fmt.Sprintf("%.5f", tr.Strain),
		"stress_mpa", fmt.Sprintf("%.1f", tr.Stress),
		"title", tr.Title,
	)
	if w.OnTransition != nil {
		w.OnTransition(tr)
	}
	return &tr, nil
}

// Run polls every Interval until ctx is cancelled. Poll errors are logged
// and polling continues.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Interval <= 0 {
		return fmt.Errorf("observer: interval must be positive, got %s", w.Interval)
	}
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
