// Package telemetry writes the line-oriented status stream read by
// serial plotters: one angle line per tick, preceded by an optional
// human-readable status line.
package telemetry

import (
	"fmt"
	"io"
	"sync"
)

// Writer serializes telemetry lines from the control loop and the
// calibration handler onto one output.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter creates a telemetry writer.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) line(format string, args ...interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintf(w.out, format+"\n", args...)
	return err
}

// Angles emits the machine-parseable line.
func (w *Writer) Angles(pendulum, reference float64) error {
	return w.line("PendulumAngle:%.2f,ReferenceAngle:%.2f", pendulum, reference)
}

// Waiting reports that no equilibrium has been captured yet.
func (w *Writer) Waiting(angle float64) error {
	return w.line("Waiting for equilibrium calibration... angle: %.2f", angle)
}

// Fallen reports the tick on which the fall was detected.
func (w *Writer) Fallen() error {
	return w.line("Pendulum fell! System stopped. Press the button to restart.")
}

// Paused reports a tick spent in the faulted state.
func (w *Writer) Paused() error {
	return w.line("System paused after a fall. Press the button to restart.")
}

// Calibrated reports a new equilibrium, once per calibration event.
func (w *Writer) Calibrated(angle float64) error {
	return w.line("Equilibrium position set: %.2f degrees", angle)
}

// SensorError reports a failed sample.
func (w *Writer) SensorError(err error) error {
	return w.line("Sensor error: %v", err)
}
