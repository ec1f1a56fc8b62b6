package balance

import (
	"bytes"
	"strings"
	"sync"

	"github.com/cjeanneret/PenduGo/internal/hw/adc"
	"github.com/cjeanneret/PenduGo/internal/logic/pid"
	"github.com/cjeanneret/PenduGo/internal/telemetry"
)

// recordingActuator records every output it is asked to drive.
type recordingActuator struct {
	mu      sync.Mutex
	outputs []pid.Output
	err     error
}

func (r *recordingActuator) Drive(out pid.Output) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs = append(r.outputs, out)
	if r.err != nil {
		return false, r.err
	}
	return out.Actuate, nil
}

func (r *recordingActuator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.outputs)
}

// syncBuffer is a bytes.Buffer safe for the loop and handler goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimSuffix(b.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func (b *syncBuffer) reset() {
	b.mu.Lock()
	b.buf.Reset()
	b.mu.Unlock()
}

type rig struct {
	sensor  *adc.Mock
	state   *State
	monitor *FaultMonitor
	latch   *CalibrationLatch
	act     *recordingActuator
	out     *syncBuffer
	loop    *Loop
}

func newRig(raw int) *rig {
	r := &rig{
		sensor: adc.NewMock(4096, raw),
		act:    &recordingActuator{},
		out:    &syncBuffer{},
	}
	tel := telemetry.NewWriter(r.out)
	r.state = NewState(pid.NewController(pid.DefaultConfig()))
	r.monitor = NewFaultMonitor(DefaultLimits(), r.state)
	r.latch = NewCalibrationLatch(r.sensor, r.state, tel)
	r.loop = NewLoop(r.sensor, r.monitor, r.state, r.act, tel, DefaultLoopConfig())
	return r
}
