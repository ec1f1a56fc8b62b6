package telemetry

import (
	"fmt"
	"io"

	"github.com/cjeanneret/PenduGo/internal/debug"
	"go.bug.st/serial"
)

// OpenSerial opens a serial port (8N1) for the telemetry stream.
func OpenSerial(name string, baudRate int) (io.WriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	debug.Info("Telemetry on serial port %s @ %d baud", name, baudRate)
	return port, nil
}
