package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cjeanneret/PenduGo/internal/config"
	"github.com/cjeanneret/PenduGo/internal/debug"
	"github.com/cjeanneret/PenduGo/internal/hw/adc"
	"github.com/cjeanneret/PenduGo/internal/hw/button"
	"github.com/cjeanneret/PenduGo/internal/hw/gpio"
	"github.com/cjeanneret/PenduGo/internal/hw/stepper"
	"github.com/cjeanneret/PenduGo/internal/logic/balance"
	"github.com/cjeanneret/PenduGo/internal/logic/motion"
	"github.com/cjeanneret/PenduGo/internal/logic/pid"
	"github.com/cjeanneret/PenduGo/internal/telemetry"
)

func main() {
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Initialize GPIO driver
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Initialize stepper motor
	debug.Step(2, "Initializing stepper motor")
	motor := stepper.NewStepper(gpioDriver, stepper.Config{
		StepPin:    cfg.Stepper.StepPin,
		DirPin:     cfg.Stepper.DirPin,
		EnablePin:  cfg.Stepper.EnablePin,
		PulseWidth: cfg.PulseWidth(),
	})
	debug.PrintStruct("Stepper config", cfg.Stepper)
	defer func() {
		if err := motor.Disable(); err != nil {
			log.Printf("disabling stepper failed: %v", err)
		}
	}()

	// Initialize angle sensor
	debug.Step(3, "Initializing angle sensor")
	sensor, closeSensor, err := newSensorFromConfig(cfg)
	if err != nil {
		log.Fatalf("init sensor failed: %v", err)
	}
	defer closeSensor()
	debug.PrintStruct("ADC config", cfg.ADC)

	// Initialize telemetry output
	debug.Step(4, "Opening telemetry output")
	out, closeOut, err := newTelemetryOutput(cfg)
	if err != nil {
		log.Fatalf("open telemetry failed: %v", err)
	}
	defer closeOut()
	tel := telemetry.NewWriter(out)

	// Build the control core
	debug.Step(5, "Building control core")
	pidCfg := pid.DefaultConfig()
	debug.PrintStruct("PID config", pidCfg)
	state := balance.NewState(pid.NewController(pidCfg))
	monitor := balance.NewFaultMonitor(balance.DefaultLimits(), state)
	latch := balance.NewCalibrationLatch(sensor, state, tel)
	actuator := motion.NewActuator(motor, pidCfg.MaxSignal, 0)
	loopCfg := balance.DefaultLoopConfig()
	loopCfg.Period = pidCfg.DT
	loop := balance.NewLoop(sensor, monitor, state, actuator, tel, loopCfg)

	// Calibration button
	debug.Step(6, "Arming calibration button")
	watcher, err := button.NewWatcher(gpioDriver, button.Config{
		Pin:          cfg.Button.Pin,
		Pull:         gpio.PullDown,
		Edge:         gpio.FallingEdge,
		PollInterval: cfg.PollInterval(),
	})
	if err != nil {
		log.Fatalf("init button failed: %v", err)
	}
	go func() {
		if err := watcher.Run(ctx, latch.OnEdge); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("button watcher: %v", err)
		}
	}()
	if mock, ok := gpioDriver.(*gpio.MockDriver); ok {
		go pressOnSignal(ctx, mock, cfg.Button.Pin)
		debug.Info("Mock mode: send SIGUSR1 (kill -USR1 %d) to press the calibration button", os.Getpid())
	}

	debug.Summary("Balancing: press the button with the pendulum upright")
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("control loop: %v", err)
	}
}

// newSensorFromConfig selects the mock or MCP3208 sensor.
// The returned func releases the SPI port.
func newSensorFromConfig(cfg *config.Config) (adc.Sensor, func(), error) {
	if cfg.Defaults.MockGPIO {
		debug.Info("Using MOCK ADC (raw=%d)", cfg.ADC.MockRaw)
		return adc.NewMock(4096, cfg.ADC.MockRaw), func() {}, nil
	}
	m, err := adc.OpenMCP3208(cfg.ADC.SPIDevice, cfg.ADC.SpeedHz, cfg.ADC.Channel)
	if err != nil {
		return nil, nil, err
	}
	return m, func() {
		if err := m.Close(); err != nil {
			log.Printf("closing SPI failed: %v", err)
		}
	}, nil
}

// newTelemetryOutput returns stdout, or the configured serial port.
func newTelemetryOutput(cfg *config.Config) (io.Writer, func(), error) {
	if !cfg.SerialTelemetry() {
		return os.Stdout, func() {}, nil
	}
	port, err := telemetry.OpenSerial(cfg.Telemetry.SerialPort, cfg.Telemetry.BaudRate)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: %w", err)
	}
	return port, func() {
		if err := port.Close(); err != nil {
			log.Printf("closing serial port failed: %v", err)
		}
	}, nil
}

// pressOnSignal turns SIGUSR1 into a falling edge on the mock button pin.
func pressOnSignal(ctx context.Context, drv *gpio.MockDriver, pin int) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			drv.TriggerEdge(pin)
		}
	}
}
