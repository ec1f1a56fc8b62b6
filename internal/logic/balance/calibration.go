package balance

import (
	"fmt"

	"github.com/cjeanneret/PenduGo/internal/debug"
	"github.com/cjeanneret/PenduGo/internal/hw/adc"
	"github.com/cjeanneret/PenduGo/internal/telemetry"
)

// CalibrationLatch captures the current angle as the equilibrium when the
// operator presses the button. It is the only way out of
// AwaitingCalibration and Faulted.
type CalibrationLatch struct {
	sensor adc.Sensor
	state  *State
	tel    *telemetry.Writer
}

// NewCalibrationLatch creates a latch.
func NewCalibrationLatch(sensor adc.Sensor, state *State, tel *telemetry.Writer) *CalibrationLatch {
	return &CalibrationLatch{sensor: sensor, state: state, tel: tel}
}

// Trigger samples the sensor and publishes the new equilibrium.
// On a sensor error the state is left untouched.
func (c *CalibrationLatch) Trigger() error {
	raw, angle, err := adc.Angle(c.sensor)
	if err != nil {
		return fmt.Errorf("calibration sample: %w", err)
	}

	c.state.calibrate(angle)
	debug.Info("Equilibrium set to %.2f° (raw %d)", angle, raw)

	if err := c.tel.Calibrated(angle); err != nil {
		return fmt.Errorf("calibration telemetry: %w", err)
	}
	return nil
}

// OnEdge is the button handler: it triggers and logs any error.
func (c *CalibrationLatch) OnEdge() {
	if err := c.Trigger(); err != nil {
		debug.Error(err)
	}
}
