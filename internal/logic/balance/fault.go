package balance

// Limits bound the raw samples a standing pendulum can produce.
// Both bounds are inclusive.
type Limits struct {
	Lower int
	Upper int
}

// DefaultLimits returns the rig's potentiometer window.
func DefaultLimits() Limits {
	return Limits{Lower: 972, Upper: 3500}
}

// InRange reports whether raw lies within the limits.
func (l Limits) InRange(raw int) bool {
	return raw >= l.Lower && raw <= l.Upper
}

// Verdict is the outcome of a fault check.
type Verdict int

const (
	Ok Verdict = iota
	Fallen
)

func (v Verdict) String() string {
	if v == Fallen {
		return "fallen"
	}
	return "ok"
}

// FaultMonitor detects a fallen pendulum. A fall clears the calibration;
// only a new calibration leaves Faulted, never a return to range.
type FaultMonitor struct {
	limits Limits
	state  *State
}

// NewFaultMonitor creates a monitor acting on state.
func NewFaultMonitor(limits Limits, state *State) *FaultMonitor {
	return &FaultMonitor{limits: limits, state: state}
}

// Limits returns the configured window.
func (f *FaultMonitor) Limits() Limits {
	return f.limits
}

// Check classifies raw and faults the state when it is out of range.
func (f *FaultMonitor) Check(raw int) Verdict {
	v, _ := f.check(raw)
	return v
}

// check also reports whether this call is the one that entered Faulted.
func (f *FaultMonitor) check(raw int) (Verdict, bool) {
	if f.limits.InRange(raw) {
		return Ok, false
	}
	prev := f.state.fall()
	return Fallen, prev.Mode != Faulted
}
