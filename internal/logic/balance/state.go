// Package balance is the pendulum control core: the shared controller
// state, the fall detector, the calibration latch and the periodic loop.
package balance

import (
	"sync"

	"github.com/cjeanneret/PenduGo/internal/debug"
	"github.com/cjeanneret/PenduGo/internal/logic/pid"
)

// Mode is the system state machine.
type Mode int

const (
	AwaitingCalibration Mode = iota
	Tracking
	Faulted
)

func (m Mode) String() string {
	switch m {
	case AwaitingCalibration:
		return "awaiting-calibration"
	case Tracking:
		return "tracking"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Snapshot is the group of values the calibration handler publishes.
// Equilibrium is only meaningful while Calibrated is true.
type Snapshot struct {
	Mode        Mode
	Equilibrium float64
	Calibrated  bool
}

// State holds everything shared between the control loop and the
// calibration handler. One mutex covers the snapshot and the PID memory,
// so a calibration lands entirely before or after a control-law evaluation.
type State struct {
	mu   sync.Mutex
	snap Snapshot
	pid  *pid.Controller
}

// NewState starts in AwaitingCalibration with equilibrium 0.
func NewState(ctrl *pid.Controller) *State {
	return &State{
		snap: Snapshot{Mode: AwaitingCalibration},
		pid:  ctrl,
	}
}

// Snapshot returns a consistent copy of the shared values.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Memory returns a copy of the PID memory.
func (s *State) Memory() pid.Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pid.Memory()
}

// fall moves to Faulted and invalidates the equilibrium.
// It returns the snapshot seen before the change.
func (s *State) fall() Snapshot {
	s.mu.Lock()
	prev := s.snap
	s.snap.Mode = Faulted
	s.snap.Calibrated = false
	s.mu.Unlock()

	if prev.Mode != Faulted {
		debug.Transition(prev.Mode.String(), Faulted.String(), "sample out of range")
	}
	return prev
}

// calibrate publishes a new equilibrium, enters Tracking and clears the
// PID memory as one step.
func (s *State) calibrate(equilibrium float64) Snapshot {
	s.mu.Lock()
	prev := s.snap
	s.snap = Snapshot{
		Mode:        Tracking,
		Equilibrium: equilibrium,
		Calibrated:  true,
	}
	s.pid.Reset()
	s.mu.Unlock()

	if prev.Mode != Tracking {
		debug.Transition(prev.Mode.String(), Tracking.String(), "calibration")
	}
	return prev
}

// evaluate reads the snapshot and, when tracking, runs the control law
// for angle under the same lock.
func (s *State) evaluate(angle float64) (Snapshot, pid.Output, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap
	if snap.Mode != Tracking || !snap.Calibrated {
		return snap, pid.Output{}, false
	}
	return snap, s.pid.Update(snap.Equilibrium - angle), true
}
