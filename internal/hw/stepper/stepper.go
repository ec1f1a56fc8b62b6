package stepper

import (
	"time"

	"github.com/cjeanneret/PenduGo/internal/debug"
	"github.com/cjeanneret/PenduGo/internal/hw/gpio"
)

// Config holds the hardware configuration for a step/dir stepper driver.
type Config struct {
	StepPin    int
	DirPin     int
	EnablePin  int           // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	PulseWidth time.Duration // STEP high time. 0 defaults to 1µs.
}

// Stepper drives a step/dir driver one pulse at a time.
// Timing between pulses belongs to the caller.
type Stepper struct {
	gpio  gpio.Driver
	cfg   Config
	width time.Duration
	sleep func(time.Duration)
}

// NewStepper creates a new stepper motor driver and leaves it enabled
// with DIR low.
func NewStepper(g gpio.Driver, cfg Config) *Stepper {
	_ = g.SetupPin(cfg.StepPin, gpio.Output)
	_ = g.SetupPin(cfg.DirPin, gpio.Output)
	_ = g.WritePin(cfg.StepPin, gpio.Low)
	_ = g.WritePin(cfg.DirPin, gpio.Low)

	width := cfg.PulseWidth
	if width <= 0 {
		width = 1 * time.Microsecond
	}

	s := &Stepper{
		gpio:  g,
		cfg:   cfg,
		width: width,
		sleep: time.Sleep,
	}

	// A4988 ENABLE: active LOW. LOW = enabled, HIGH = disabled.
	if cfg.EnablePin > 0 {
		_ = g.SetupPin(cfg.EnablePin, gpio.Output)
		_ = g.WritePin(cfg.EnablePin, gpio.Low) // enable by default
	}

	return s
}

// SetDirection drives the DIR line: HIGH for forward, LOW for backward.
func (s *Stepper) SetDirection(forward bool) error {
	level := gpio.Low
	if forward {
		level = gpio.High
	}
	return s.gpio.WritePin(s.cfg.DirPin, level)
}

// Pulse emits one rising and falling edge on STEP, then waits idle.
func (s *Stepper) Pulse(idle time.Duration) error {
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.High); err != nil {
		return err
	}
	s.sleep(s.width)
	if err := s.gpio.WritePin(s.cfg.StepPin, gpio.Low); err != nil {
		return err
	}
	if idle > 0 {
		debug.Trace("Stepper: idle %v on pin %d", idle, s.cfg.StepPin)
		s.sleep(idle)
	}
	return nil
}

// Enable turns on the motor driver (A4988 ENABLE=LOW). Motor holds position.
func (s *Stepper) Enable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.Low)
}

// Disable turns off the motor driver (A4988 ENABLE=HIGH). Motor freewheels.
func (s *Stepper) Disable() error {
	if s.cfg.EnablePin <= 0 {
		return nil
	}
	return s.gpio.WritePin(s.cfg.EnablePin, gpio.High)
}
