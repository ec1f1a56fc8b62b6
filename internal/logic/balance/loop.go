package balance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/PenduGo/internal/debug"
	"github.com/cjeanneret/PenduGo/internal/hw/adc"
	"github.com/cjeanneret/PenduGo/internal/logic/pid"
	"github.com/cjeanneret/PenduGo/internal/telemetry"
)

// Actuator applies a control output to the motor.
// *motion.Actuator satisfies it.
type Actuator interface {
	Drive(out pid.Output) (bool, error)
}

// Outcome says which branch a tick took.
type Outcome int

const (
	OutcomeWaiting Outcome = iota
	OutcomeTracking
	OutcomeFallen // first faulted tick
	OutcomePaused // later faulted ticks
	OutcomeSensorError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWaiting:
		return "waiting"
	case OutcomeTracking:
		return "tracking"
	case OutcomeFallen:
		return "fallen"
	case OutcomePaused:
		return "paused"
	case OutcomeSensorError:
		return "sensor-error"
	default:
		return "unknown"
	}
}

// Report describes one tick.
type Report struct {
	Raw       int
	Angle     float64
	Snapshot  Snapshot
	Output    pid.Output
	Evaluated bool // control law ran
	Pulsed    bool // motor received a burst
	Outcome   Outcome
}

// LoopConfig holds the loop timing.
type LoopConfig struct {
	Period        time.Duration // tick period, equal to the PID DT
	FaultedPeriod time.Duration // tick period while Faulted
}

// DefaultLoopConfig returns a 1ms loop that slows to 100ms after a fall.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		Period:        1 * time.Millisecond,
		FaultedPeriod: 100 * time.Millisecond,
	}
}

// Loop sequences sensor, fault check, control law, actuation and telemetry.
type Loop struct {
	sensor  adc.Sensor
	monitor *FaultMonitor
	state   *State
	act     Actuator
	tel     *telemetry.Writer
	cfg     LoopConfig
}

// NewLoop creates a control loop.
func NewLoop(sensor adc.Sensor, monitor *FaultMonitor, state *State, act Actuator, tel *telemetry.Writer, cfg LoopConfig) *Loop {
	if cfg.Period <= 0 {
		cfg.Period = DefaultLoopConfig().Period
	}
	if cfg.FaultedPeriod <= 0 {
		cfg.FaultedPeriod = cfg.Period
	}
	return &Loop{
		sensor:  sensor,
		monitor: monitor,
		state:   state,
		act:     act,
		tel:     tel,
		cfg:     cfg,
	}
}

// Tick runs one iteration. Telemetry is written on every branch; an
// actuation or telemetry error is returned after the tick completes.
func (l *Loop) Tick() (Report, error) {
	raw, angle, err := adc.Angle(l.sensor)
	if err != nil {
		rep := Report{Snapshot: l.state.Snapshot(), Outcome: OutcomeSensorError}
		return rep, errors.Join(fmt.Errorf("sample: %w", err), l.tel.SensorError(err))
	}

	rep := Report{Raw: raw, Angle: angle}
	var driveErr, statusErr error

	if verdict, first := l.monitor.check(raw); verdict == Fallen {
		rep.Snapshot = l.state.Snapshot()
		if first {
			rep.Outcome = OutcomeFallen
			statusErr = l.tel.Fallen()
		} else {
			rep.Outcome = OutcomePaused
			statusErr = l.tel.Paused()
		}
	} else {
		rep.Snapshot, rep.Output, rep.Evaluated = l.state.evaluate(angle)
		switch {
		case rep.Evaluated:
			rep.Outcome = OutcomeTracking
			debug.Control(angle, rep.Output.Error, rep.Output.Signal, rep.Output.Forward())
			rep.Pulsed, driveErr = l.act.Drive(rep.Output)
			if driveErr != nil {
				driveErr = fmt.Errorf("drive: %w", driveErr)
			}
		case rep.Snapshot.Mode == Faulted:
			rep.Outcome = OutcomePaused
			statusErr = l.tel.Paused()
		default:
			rep.Outcome = OutcomeWaiting
			statusErr = l.tel.Waiting(angle)
		}
	}

	anglesErr := l.tel.Angles(angle, rep.Snapshot.Equilibrium)
	return rep, errors.Join(driveErr, statusErr, anglesErr)
}

// Run ticks until ctx is cancelled. Tick errors are logged and the loop
// keeps going; each tick starts one period after the previous one began.
func (l *Loop) Run(ctx context.Context) error {
	debug.Info("Control loop started (period %v)", l.cfg.Period)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			debug.Info("Control loop stopped")
			return ctx.Err()
		case <-timer.C:
		}

		start := time.Now()
		rep, err := l.Tick()
		if err != nil {
			debug.Error(err)
		}

		period := l.cfg.Period
		if rep.Snapshot.Mode == Faulted {
			period = l.cfg.FaultedPeriod
		}
		timer.Reset(time.Until(start.Add(period)))
	}
}
