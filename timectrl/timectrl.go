package timectrl

import (
	"context"
	"sync"
	"time"
)

// FlightClock drives the simulation at a fixed frame cadence, the
// equivalent of a display-synchronized animation callback. Each frame it
// measures the wall-clock delta since the previous frame, multiplies it
// by the time-scale factor, and hands the resulting simulated seconds to
// the registered listeners. Listeners run on the clock goroutine and are
// never invoked concurrently.
type FlightClock struct {
	mu        sync.Mutex
	frame     time.Duration
	timeScale float64
	paused    bool
	lastFrame time.Time

	listeners []func(simSeconds float64)
}

// NewFlightClock constructs a clock ticking every frame interval with the
// given time-scale factor.
func NewFlightClock(frame time.Duration, timeScale float64) *FlightClock {
	if frame <= 0 {
		frame = 50 * time.Millisecond
	}
	if timeScale <= 0 {
		timeScale = 1
	}
	return &FlightClock{
		frame:     frame,
		timeScale: timeScale,
	}
}

// AddListener registers a callback invoked with the scaled simulated
// seconds elapsed each frame. Must be called before Start.
func (c *FlightClock) AddListener(fn func(simSeconds float64)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// SetTimeScale changes the user-controlled time-scale factor.
func (c *FlightClock) SetTimeScale(scale float64) {
	if scale <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeScale = scale
}

// TimeScale returns the current time-scale factor.
func (c *FlightClock) TimeScale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeScale
}

// Pause suspends tick delivery. Wall time elapsed while paused is
// excluded from the delta, so resuming never triggers catch-up
// integration.
func (c *FlightClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume re-enables tick delivery from the current instant.
func (c *FlightClock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
	c.lastFrame = time.Now()
}

// Paused reports whether the clock is paused.
func (c *FlightClock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Tick delivers a single frame of the given wall-clock duration directly,
// bypassing the ticker. Used by tests and scripted runs for determinism.
// No-op while paused.
func (c *FlightClock) Tick(wall time.Duration) {
	c.mu.Lock()
	if c.paused {
		c.mu.Unlock()
		return
	}
	scaled := wall.Seconds() * c.timeScale
	listeners := append(([]func(float64))(nil), c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(scaled)
	}
}

// Start runs the clock until ctx is cancelled. It returns a channel that
// is closed when the clock goroutine exits.
func (c *FlightClock) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		c.mu.Lock()
		c.lastFrame = time.Now()
		c.mu.Unlock()

		ticker := time.NewTicker(c.frame)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				c.mu.Lock()
				if c.paused {
					// Keep the reference point moving so paused time
					// never enters the delta.
					c.lastFrame = now
					c.mu.Unlock()
					continue
				}
				delta := now.Sub(c.lastFrame)
				if delta < 0 {
					delta = 0
				}
				c.lastFrame = now
				scaled := delta.Seconds() * c.timeScale
				listeners := append(([]func(float64))(nil), c.listeners...)
				c.mu.Unlock()

				for _, fn := range listeners {
					fn(scaled)
				}
			}
		}
	}()

	return done
}
