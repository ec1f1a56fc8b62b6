package balance

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/PenduGo/internal/logic/pid"
	"github.com/cjeanneret/PenduGo/internal/telemetry"
)

func TestLoop_TrackingScenario(t *testing.T) {
	r := newRig(2200)
	r.state.calibrate(190.0)

	rep, err := r.loop.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if rep.Outcome != OutcomeTracking || !rep.Evaluated {
		t.Fatalf("outcome = %v evaluated = %v, want tracking", rep.Outcome, rep.Evaluated)
	}
	if math.Abs(rep.Angle-193.36) > 0.005 {
		t.Errorf("angle = %v, want ~193.36", rep.Angle)
	}
	if math.Abs(rep.Output.Error-(-3.36)) > 0.005 {
		t.Errorf("error = %v, want ~-3.36", rep.Output.Error)
	}
	if math.Abs(rep.Output.Integral-(-0.00336)) > 0.000005 {
		t.Errorf("integral = %v, want ~-0.00336", rep.Output.Integral)
	}
	if math.Abs(rep.Output.Signal-(-420.0)) > 0.5 {
		t.Errorf("signal = %v, want ~-420", rep.Output.Signal)
	}
	if rep.Output.Forward() {
		t.Error("direction should be negative")
	}
	if !rep.Pulsed || r.act.count() != 1 {
		t.Errorf("expected one actuation, pulsed=%v count=%d", rep.Pulsed, r.act.count())
	}

	lines := r.out.lines()
	if len(lines) != 1 || lines[0] != "PendulumAngle:193.36,ReferenceAngle:190.00" {
		t.Errorf("telemetry = %q", lines)
	}
}

func TestLoop_FallScenario(t *testing.T) {
	r := newRig(2200)
	r.state.calibrate(190.0)
	r.sensor.Set(3600)

	rep, err := r.loop.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rep.Outcome != OutcomeFallen {
		t.Errorf("outcome = %v, want fallen", rep.Outcome)
	}
	if rep.Snapshot.Mode != Faulted || rep.Snapshot.Calibrated {
		t.Errorf("snapshot = %+v, want faulted and uncalibrated", rep.Snapshot)
	}
	if rep.Evaluated || r.act.count() != 0 {
		t.Error("no actuation expected on a fall")
	}

	lines := r.out.lines()
	want := []string{
		"Pendulum fell! System stopped. Press the button to restart.",
		"PendulumAngle:316.41,ReferenceAngle:190.00",
	}
	if len(lines) != len(want) {
		t.Fatalf("telemetry = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestLoop_PausedUntilCalibration(t *testing.T) {
	r := newRig(3600)
	r.state.calibrate(190.0)

	if rep, _ := r.loop.Tick(); rep.Outcome != OutcomeFallen {
		t.Fatalf("first tick outcome = %v, want fallen", rep.Outcome)
	}

	for _, raw := range []int{3600, 2200, 2048} {
		r.sensor.Set(raw)
		r.out.reset()
		rep, err := r.loop.Tick()
		if err != nil {
			t.Fatalf("Tick: %v", err)
		}
		if rep.Outcome != OutcomePaused {
			t.Errorf("raw %d: outcome = %v, want paused", raw, rep.Outcome)
		}
		lines := r.out.lines()
		if len(lines) != 2 || lines[0] != "System paused after a fall. Press the button to restart." {
			t.Errorf("raw %d: telemetry = %q", raw, lines)
		}
	}
	if r.act.count() != 0 {
		t.Errorf("actuated %d times while faulted", r.act.count())
	}

	if err := r.latch.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	rep, err := r.loop.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rep.Outcome != OutcomeTracking {
		t.Errorf("after calibration outcome = %v, want tracking", rep.Outcome)
	}
}

func TestLoop_AwaitingCalibration(t *testing.T) {
	r := newRig(2048)

	rep, err := r.loop.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rep.Outcome != OutcomeWaiting || rep.Evaluated {
		t.Errorf("outcome = %v evaluated = %v, want waiting", rep.Outcome, rep.Evaluated)
	}
	if r.act.count() != 0 {
		t.Error("no actuation expected before calibration")
	}
	lines := r.out.lines()
	want := []string{
		"Waiting for equilibrium calibration... angle: 180.00",
		"PendulumAngle:180.00,ReferenceAngle:0.00",
	}
	if len(lines) != 2 || lines[0] != want[0] || lines[1] != want[1] {
		t.Errorf("telemetry = %q, want %q", lines, want)
	}
}

func TestLoop_ZeroErrorSkipsActuation(t *testing.T) {
	r := newRig(2200)
	if err := r.latch.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	rep, err := r.loop.Tick()
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !rep.Evaluated || rep.Pulsed {
		t.Errorf("evaluated = %v pulsed = %v, want evaluated without pulses", rep.Evaluated, rep.Pulsed)
	}
	if rep.Output.Actuate {
		t.Error("exact zero error is inside the dead-band")
	}
}

func TestLoop_ConstantErrorIntegral(t *testing.T) {
	r := newRig(2200)
	r.state.calibrate(190.0)
	e := 190.0 - 193.359375

	const n = 50
	for i := 0; i < n; i++ {
		rep, err := r.loop.Tick()
		if err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
		if i > 0 && rep.Output.Derivative != 0 {
			t.Fatalf("tick %d: derivative = %v, want 0", i+1, rep.Output.Derivative)
		}
	}

	mem := r.state.Memory()
	want := n * e * pid.DefaultConfig().DT.Seconds()
	if math.Abs(mem.Integral-want) > 1e-9 {
		t.Errorf("integral = %v, want %v", mem.Integral, want)
	}
	if mem.PreviousError != e {
		t.Errorf("previous error = %v, want %v", mem.PreviousError, e)
	}
}

func TestLoop_SensorError(t *testing.T) {
	r := newRig(2048)
	loop := NewLoop(brokenSensor{}, r.monitor, r.state, r.act, telemetry.NewWriter(r.out), DefaultLoopConfig())

	rep, err := loop.Tick()
	if err == nil {
		t.Fatal("expected error")
	}
	if rep.Outcome != OutcomeSensorError {
		t.Errorf("outcome = %v, want sensor-error", rep.Outcome)
	}
	if snap := r.state.Snapshot(); snap.Mode != AwaitingCalibration {
		t.Errorf("mode = %v, sensor error must not change it", snap.Mode)
	}
	lines := r.out.lines()
	if len(lines) != 1 || lines[0] != "Sensor error: no conversion" {
		t.Errorf("telemetry = %q", lines)
	}
}

func TestLoop_DriveErrorStillEmitsTelemetry(t *testing.T) {
	r := newRig(2200)
	r.state.calibrate(190.0)
	r.act.err = errors.New("step line stuck")

	_, err := r.loop.Tick()
	if err == nil {
		t.Fatal("expected drive error")
	}
	if lines := r.out.lines(); len(lines) != 1 {
		t.Errorf("telemetry = %q, want the angle line", lines)
	}
}

func TestLoop_ConcurrentCalibrationIsConsistent(t *testing.T) {
	r := newRig(2200)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			_ = r.latch.Trigger()
		}
	}()

	raws := []int{2200, 2210, 3600, 2190, 900, 2200}
	for i := 0; i < 600; i++ {
		r.sensor.Set(raws[i%len(raws)])
		rep, _ := r.loop.Tick()
		if rep.Evaluated && (!rep.Snapshot.Calibrated || rep.Snapshot.Mode != Tracking) {
			t.Fatalf("tick %d evaluated with inconsistent snapshot %+v", i, rep.Snapshot)
		}
		if rep.Snapshot.Mode == Tracking && !rep.Snapshot.Calibrated {
			t.Fatalf("tick %d: tracking without calibration", i)
		}
	}
	cancel()
	wg.Wait()
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	r := newRig(2048)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := r.loop.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run returned %v, want deadline exceeded", err)
	}
	if len(r.out.lines()) < 2 {
		t.Error("expected at least one tick of telemetry")
	}
}

func TestNewLoop_Defaults(t *testing.T) {
	r := newRig(2048)
	l := NewLoop(r.sensor, r.monitor, r.state, r.act, telemetry.NewWriter(r.out), LoopConfig{})
	if l.cfg.Period != time.Millisecond {
		t.Errorf("period = %v, want 1ms", l.cfg.Period)
	}
	if l.cfg.FaultedPeriod != time.Millisecond {
		t.Errorf("faulted period = %v, want the tick period", l.cfg.FaultedPeriod)
	}
}
