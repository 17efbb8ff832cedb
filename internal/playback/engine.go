package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/yieldpoint/internal/tensile"
)

// DefaultInterval is the frame period of the tick loop (~30 fps).
const DefaultInterval = 33 * time.Millisecond

// subscriberBuffer is how many frames a slow subscriber may fall behind
// before frames are dropped for it.
const subscriberBuffer = 32

// Engine steps a Session on a fixed interval and publishes frames.
type Engine struct {
	Session  *Session
	Interval time.Duration

	// Optional callbacks, invoked on the engine goroutine.
	OnFrame       func(f Frame)
	OnPhaseChange func(from, to tensile.DeformationPhase, f Frame)

	running atomic.Bool

	mu      sync.Mutex
	subs    map[int]chan Frame
	nextSub int
}

// NewEngine creates an engine for s with the default interval.
func NewEngine(s *Session) *Engine {
	return &Engine{
		Session:  s,
		Interval: DefaultInterval,
		subs:     make(map[int]chan Frame),
	}
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run steps the session every Interval until ctx is cancelled. Frames are
// published only when the transport state changed since the last one.
func (e *Engine) Run(ctx context.Context) error {
	if e.Interval <= 0 {
		return fmt.Errorf("playback: interval must be positive, got %s", e.Interval)
	}
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("playback: engine already running")
	}
	defer e.running.Store(false)
	defer e.closeSubscribers()

	slog.Info("playback engine started", "session", e.Session.ID(), "interval", e.Interval)

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()

	last := time.Now()
	prev := e.Session.Snapshot()
	for {
		select {
		case <-ctx.Done():
			slog.Info("playback engine stopped", "tick", prev.Tick, "strain", prev.State.CurrentStrain)
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			prev = e.step(dt, prev)
		}
	}
}

// step advances one tick and fans the frame out.
func (e *Engine) step(dt time.Duration, prev Frame) Frame {
	f := e.Session.Step(dt)

	if f.Reading.Phase != prev.Reading.Phase {
		slog.Info("phase transition",
			"from", prev.Reading.Phase.Key(),
			"to", f.Reading.Phase.Key(),
			"strain", fmt.Sprintf("%.5f", f.Reading.Strain),
			"stress", fmt.Sprintf("%.1f", f.Reading.Stress),
		)
		if e.OnPhaseChange != nil {
			e.OnPhaseChange(prev.Reading.Phase, f.Reading.Phase, f)
		}
	}

	if f.State == prev.State {
		return f
	}
	if prev.State.IsPlaying && !f.State.IsPlaying && f.Reading.Phase == tensile.Fracture {
		slog.Info("test complete: specimen fractured", "tick", f.Tick)
	}

	if e.OnFrame != nil {
		e.OnFrame(f)
	}
	e.publish(f)
	return f
}

// Subscribe returns a channel receiving every published frame. The channel
// is closed when the engine stops or the subscription is removed.
func (e *Engine) Subscribe() (int, <-chan Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.subs == nil {
		e.subs = make(map[int]chan Frame)
	}
	id := e.nextSub
	e.nextSub++
	ch := make(chan Frame, subscriberBuffer)
	e.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscription.
func (e *Engine) Unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ch, ok := e.subs[id]; ok {
		delete(e.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of active subscriptions.
func (e *Engine) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

func (e *Engine) publish(f Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, ch := range e.subs {
		select {
		case ch <- f:
		default:
			slog.Warn("dropping frame for slow subscriber", "sub_id", id, "tick", f.Tick)
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
}
