package gpio

import (
	"sync"

	"github.com/cjeanneret/PenduGo/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Pull selects the internal resistor of an input pin.
type Pull int

const (
	PullOff Pull = iota
	PullDown
	PullUp
)

// Edge selects which transitions an input pin reports.
type Edge int

const (
	NoEdge Edge = iota
	RisingEdge
	FallingEdge
	AnyEdge
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// EdgeDriver is implemented by drivers able to latch input transitions.
// EdgeDetected reports whether an edge was seen since the previous call
// and clears the latch.
type EdgeDriver interface {
	Driver
	SetPull(pin int, pull Pull) error
	DetectEdge(pin int, edge Edge) error
	EdgeDetected(pin int) (bool, error)
}

// MockDriver is a test implementation that simply logs actions.
// Edges are latched only when injected with TriggerEdge.
// Used for development on PC or testing.
type MockDriver struct {
	mu      sync.Mutex
	watched map[int]Edge
	pending map[int]bool
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (EdgeDriver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return &MockDriver{}, nil
	}
	return NewRPiRealDriver()
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)
	return Low, nil
}

func (m *MockDriver) SetPull(pin int, pull Pull) error {
	debug.GPIO("SetPull", pin, pull)
	return nil
}

func (m *MockDriver) DetectEdge(pin int, edge Edge) error {
	debug.GPIO("DetectEdge", pin, edge)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watched == nil {
		m.watched = make(map[int]Edge)
	}
	m.watched[pin] = edge
	return nil
}

func (m *MockDriver) EdgeDetected(pin int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := m.pending[pin]
	delete(m.pending, pin)
	return seen, nil
}

// TriggerEdge latches an edge on pin as if the hardware had seen one.
// It is ignored unless DetectEdge was called for that pin.
func (m *MockDriver) TriggerEdge(pin int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.watched[pin]; !ok || e == NoEdge {
		return
	}
	if m.pending == nil {
		m.pending = make(map[int]bool)
	}
	m.pending[pin] = true
	debug.GPIO("TriggerEdge", pin, true)
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}
