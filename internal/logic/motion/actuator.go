package motion

import (
	"math"
	"time"

	"github.com/cjeanneret/PenduGo/internal/debug"
	"github.com/cjeanneret/PenduGo/internal/logic/pid"
)

// PulsesPerTick is the fixed burst length emitted on every actuated tick.
const PulsesPerTick = 4

// Driver is the step/dir output used by the actuator.
// *stepper.Stepper satisfies it.
type Driver interface {
	SetDirection(forward bool) error
	Pulse(idle time.Duration) error
}

// Actuator turns a PID output into a pulse burst.
// It sits between the control law and the low-level (GPIO) stepper.
type Actuator struct {
	drv       Driver
	maxSignal float64
	unit      time.Duration
}

// NewActuator creates an actuator. Idle time between pulses is
// (maxSignal - |signal|) units; the rig uses microseconds.
func NewActuator(drv Driver, maxSignal float64, unit time.Duration) *Actuator {
	if unit <= 0 {
		unit = time.Microsecond
	}
	return &Actuator{
		drv:       drv,
		maxSignal: maxSignal,
		unit:      unit,
	}
}

// Idle returns the wait after each pulse for a given signal.
// A stronger signal gives a shorter idle, hence a faster step rate.
func (a *Actuator) Idle(signal float64) time.Duration {
	idle := a.maxSignal - math.Abs(pid.Clamp(signal, a.maxSignal))
	return time.Duration(idle * float64(a.unit))
}

// Drive sets the direction and emits the burst. Outputs inside the
// dead-band write nothing. It reports whether the motor was pulsed.
func (a *Actuator) Drive(out pid.Output) (bool, error) {
	if !out.Actuate {
		return false, nil
	}

	forward := out.Forward()
	if err := a.drv.SetDirection(forward); err != nil {
		return false, err
	}

	idle := a.Idle(out.Signal)
	debug.Verbose("Actuator: %d pulses, idle %v, forward=%v", PulsesPerTick, idle, forward)

	for i := 0; i < PulsesPerTick; i++ {
		if err := a.drv.Pulse(idle); err != nil {
			return false, err
		}
	}
	return true, nil
}
