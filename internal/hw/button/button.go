package button

import (
	"context"
	"fmt"
	"time"

	"github.com/cjeanneret/PenduGo/internal/debug"
	"github.com/cjeanneret/PenduGo/internal/hw/gpio"
)

// Handler is called once per detected edge, from the watcher goroutine.
type Handler func()

// Config describes a push button wired to an input pin.
type Config struct {
	Pin          int
	Pull         gpio.Pull
	Edge         gpio.Edge
	PollInterval time.Duration // 0 defaults to 1ms
}

// Watcher dispatches latched input edges to a handler.
// Debouncing is left to the hardware latch and the poll interval.
type Watcher struct {
	gpio     gpio.EdgeDriver
	cfg      Config
	interval time.Duration
}

// NewWatcher configures the pin as an input with edge detection enabled.
func NewWatcher(g gpio.EdgeDriver, cfg Config) (*Watcher, error) {
	if err := g.SetupPin(cfg.Pin, gpio.Input); err != nil {
		return nil, fmt.Errorf("setup button pin %d: %w", cfg.Pin, err)
	}
	if err := g.SetPull(cfg.Pin, cfg.Pull); err != nil {
		return nil, fmt.Errorf("pull button pin %d: %w", cfg.Pin, err)
	}
	if err := g.DetectEdge(cfg.Pin, cfg.Edge); err != nil {
		return nil, fmt.Errorf("edge detect on pin %d: %w", cfg.Pin, err)
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 1 * time.Millisecond
	}

	// Drop any edge latched before we started listening.
	_, _ = g.EdgeDetected(cfg.Pin)

	return &Watcher{
		gpio:     g,
		cfg:      cfg,
		interval: interval,
	}, nil
}

// Run polls the edge latch until ctx is cancelled, calling h for each edge.
// Read errors are logged and polling continues.
func (w *Watcher) Run(ctx context.Context, h Handler) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	debug.Verbose("Button: watching pin %d every %v", w.cfg.Pin, w.interval)

	for {
		select {
		case <-ctx.Done():
			_ = w.gpio.DetectEdge(w.cfg.Pin, gpio.NoEdge)
			return ctx.Err()
		case <-ticker.C:
			seen, err := w.gpio.EdgeDetected(w.cfg.Pin)
			if err != nil {
				debug.Error(fmt.Errorf("button pin %d: %w", w.cfg.Pin, err))
				continue
			}
			if seen {
				debug.Live("Button: edge on pin %d", w.cfg.Pin)
				h()
			}
		}
	}
}
