package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a config file read by Load.
const MaxConfigFileBytes = 64 * 1024

// StepperConfig holds the step/dir driver wiring.
type StepperConfig struct {
	StepPin      int `yaml:"step_pin"`
	DirPin       int `yaml:"dir_pin"`
	EnablePin    int `yaml:"enable_pin"`     // A4988 ENABLE pin (BCM). 0 = not used. Active LOW.
	PulseWidthUs int `yaml:"pulse_width_us"` // STEP high time
}

// ButtonConfig describes the calibration push button.
type ButtonConfig struct {
	Pin            int `yaml:"pin"`              // BCM pin, pulled down, falling edge
	PollIntervalUs int `yaml:"poll_interval_us"` // edge latch polling period
}

// ADCConfig describes the potentiometer converter.
type ADCConfig struct {
	SPIDevice string `yaml:"spi_device"` // periph.io SPI name, e.g. "SPI0.0"
	Channel   int    `yaml:"channel"`    // MCP3208 input 0-7
	SpeedHz   int64  `yaml:"speed_hz"`   // SPI clock
	MockRaw   int    `yaml:"mock_raw"`   // raw value served in mock mode
}

// TelemetryConfig selects where the telemetry stream goes.
type TelemetryConfig struct {
	SerialPort string `yaml:"serial_port"` // empty = stdout
	BaudRate   int    `yaml:"baud_rate"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO and ADC (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates the rig wiring. Control gains are not configurable.
type Config struct {
	Stepper   StepperConfig   `yaml:"stepper"`
	Button    ButtonConfig    `yaml:"button"`
	ADC       ADCConfig       `yaml:"adc"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
}

// ValidateConfigPath accepts only .yaml files located directly in a
// directory named "configs".
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config file must have .yaml extension: %s", path)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file must be in a configs/ directory: %s", path)
	}
	return nil
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if cfg.Stepper.StepPin <= 0 || cfg.Stepper.DirPin <= 0 {
		return nil, fmt.Errorf("stepper.step_pin and stepper.dir_pin are required")
	}
	if cfg.Stepper.StepPin == cfg.Stepper.DirPin {
		return nil, fmt.Errorf("stepper.step_pin and stepper.dir_pin must differ, both are %d", cfg.Stepper.StepPin)
	}
	if cfg.Button.Pin <= 0 {
		return nil, fmt.Errorf("button.pin is required")
	}
	if cfg.Button.Pin == cfg.Stepper.StepPin || cfg.Button.Pin == cfg.Stepper.DirPin {
		return nil, fmt.Errorf("button.pin %d is already used by the stepper", cfg.Button.Pin)
	}
	if cfg.ADC.Channel < 0 || cfg.ADC.Channel > 7 {
		return nil, fmt.Errorf("adc.channel must be between 0 and 7, got %d", cfg.ADC.Channel)
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	if cfg.Stepper.PulseWidthUs <= 0 {
		cfg.Stepper.PulseWidthUs = 1 // 1µs STEP pulse
	}
	if cfg.Button.PollIntervalUs <= 0 {
		cfg.Button.PollIntervalUs = 1000 // 1ms
	}
	if cfg.ADC.SPIDevice == "" {
		cfg.ADC.SPIDevice = "SPI0.0"
	}
	if cfg.ADC.SpeedHz <= 0 {
		cfg.ADC.SpeedHz = 1_000_000 // 1MHz, within MCP3208 limits at 3.3V
	}
	if cfg.ADC.MockRaw <= 0 {
		cfg.ADC.MockRaw = 2048 // upright-ish
	}
	if cfg.Telemetry.BaudRate <= 0 {
		cfg.Telemetry.BaudRate = 115200
	}

	return &cfg, nil
}

// PulseWidth returns the STEP high time.
func (c *Config) PulseWidth() time.Duration {
	return time.Duration(c.Stepper.PulseWidthUs) * time.Microsecond
}

// PollInterval returns the button polling period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Button.PollIntervalUs) * time.Microsecond
}

// SerialTelemetry reports whether telemetry goes to a serial port.
func (c *Config) SerialTelemetry() bool {
	return c.Telemetry.SerialPort != ""
}
