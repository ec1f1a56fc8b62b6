// Package adc reads the pendulum potentiometer through an analog-to-digital
// converter and turns raw samples into angles.
package adc

import (
	"sync/atomic"

	"github.com/cjeanneret/PenduGo/internal/debug"
)

// Sensor is the angular sensor seen by the control core.
type Sensor interface {
	// Sample performs one conversion and returns the raw count.
	Sample() (int, error)
	// FullScale is the number of distinct raw counts (4096 for 12 bits).
	FullScale() int
}

// ToDegrees maps a raw sample linearly onto [0, 360).
func ToDegrees(raw, fullScale int) float64 {
	return float64(raw) * 360.0 / float64(fullScale)
}

// Angle samples s and returns both the raw count and its angle.
func Angle(s Sensor) (int, float64, error) {
	raw, err := s.Sample()
	if err != nil {
		return 0, 0, err
	}
	return raw, ToDegrees(raw, s.FullScale()), nil
}

// Mock is a Sensor whose raw value is set by the caller.
// Safe for concurrent use.
type Mock struct {
	raw       atomic.Int64
	fullScale int
}

// NewMock returns a mock sensor with the given full scale and initial value.
func NewMock(fullScale, raw int) *Mock {
	m := &Mock{fullScale: fullScale}
	m.raw.Store(int64(raw))
	return m
}

// Set changes the value returned by subsequent samples.
func (m *Mock) Set(raw int) {
	m.raw.Store(int64(raw))
}

func (m *Mock) Sample() (int, error) {
	raw := int(m.raw.Load())
	debug.Trace("ADC sample (mock): %d", raw)
	return raw, nil
}

func (m *Mock) FullScale() int {
	return m.fullScale
}
