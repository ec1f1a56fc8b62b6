package pid

import (
	"math"
	"time"
)

// Config holds the control-law constants.
// DT is used for both integration and differentiation.
type Config struct {
	Kp        float64
	Ki        float64
	Kd        float64
	DT        time.Duration
	MaxSignal float64 // symmetric output clamp
	Threshold float64 // dead-band on abs(error), degrees
}

// DefaultConfig returns the gains the pendulum rig was tuned with.
func DefaultConfig() Config {
	return Config{
		Kp:        25,
		Ki:        0.3,
		Kd:        0.1,
		DT:        1 * time.Millisecond,
		MaxSignal: 1500,
		Threshold: 0,
	}
}

// Memory is the state carried between evaluations.
type Memory struct {
	Integral      float64
	PreviousError float64
}

// Output is the result of one evaluation.
type Output struct {
	Error      float64
	Integral   float64
	Derivative float64
	Signal     float64 // clamped to [-MaxSignal, MaxSignal]
	Actuate    bool    // false inside the dead-band
}

// Forward reports the motor direction for this output.
func (o Output) Forward() bool {
	return o.Signal > 0
}

// Controller evaluates the PID law at a fixed period.
// Not safe for concurrent use; callers serialize Update and Reset.
type Controller struct {
	cfg Config
	dt  float64
	mem Memory
}

// NewController creates a controller with zeroed memory.
func NewController(cfg Config) *Controller {
	return &Controller{
		cfg: cfg,
		dt:  cfg.DT.Seconds(),
	}
}

// Config returns the constants the controller was built with.
func (c *Controller) Config() Config {
	return c.cfg
}

// Update runs one evaluation for error = setpoint - measurement.
// Memory is updated even when the error falls inside the dead-band.
func (c *Controller) Update(err float64) Output {
	c.mem.Integral += err * c.dt
	derivative := (err - c.mem.PreviousError) / c.dt
	signal := c.cfg.Kp*err + c.cfg.Ki*c.mem.Integral + c.cfg.Kd*derivative
	c.mem.PreviousError = err

	return Output{
		Error:      err,
		Integral:   c.mem.Integral,
		Derivative: derivative,
		Signal:     Clamp(signal, c.cfg.MaxSignal),
		Actuate:    math.Abs(err) > c.cfg.Threshold,
	}
}

// Reset zeroes the integral and previous error.
func (c *Controller) Reset() {
	c.mem = Memory{}
}

// Memory returns a copy of the current state.
func (c *Controller) Memory() Memory {
	return c.mem
}

// Clamp limits x to [-limit, limit]. NaN maps to 0.
func Clamp(x, limit float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x > limit:
		return limit
	case x < -limit:
		return -limit
	}
	return x
}
