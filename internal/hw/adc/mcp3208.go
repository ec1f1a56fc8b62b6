package adc

import (
	"fmt"

	"github.com/cjeanneret/PenduGo/internal/debug"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// mcp3208FullScale is 2^12 counts.
const mcp3208FullScale = 4096

// Transferer is the part of spi.Conn used by the converter.
type Transferer interface {
	Tx(w, r []byte) error
}

// MCP3208 is a 12-bit, 8-channel SPI ADC read in single-ended mode.
type MCP3208 struct {
	conn    Transferer
	channel int
	closer  interface{ Close() error }
}

// NewMCP3208 wraps an established SPI connection.
func NewMCP3208(c Transferer, channel int) (*MCP3208, error) {
	if channel < 0 || channel > 7 {
		return nil, fmt.Errorf("mcp3208 channel must be 0-7, got %d", channel)
	}
	return &MCP3208{conn: c, channel: channel}, nil
}

// OpenMCP3208 initializes periph.io host drivers, opens the SPI port
// (e.g. "SPI0.0" or "/dev/spidev0.0") and connects in mode 0.
func OpenMCP3208(device string, speedHz int64, channel int) (*MCP3208, error) {
	debug.Info("Initializing MCP3208 on %s (channel %d, %d Hz)", device, channel, speedHz)

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	port, err := spireg.Open(device)
	if err != nil {
		return nil, fmt.Errorf("open SPI %s: %w", device, err)
	}

	c, err := port.Connect(physic.Frequency(speedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("connect SPI %s: %w", device, err)
	}

	m, err := NewMCP3208(c, channel)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	m.closer = port
	return m, nil
}

// Sample runs one 3-byte conversion transaction.
// Byte 0 carries the start bit, single-ended flag and channel bit D2;
// byte 1 carries D1 and D0. The 12-bit result spans the low nibble of
// the second reply byte and the whole third byte.
func (m *MCP3208) Sample() (int, error) {
	w := []byte{
		0x06 | byte(m.channel>>2),
		byte(m.channel&0x03) << 6,
		0x00,
	}
	r := make([]byte, len(w))
	if err := m.conn.Tx(w, r); err != nil {
		return 0, fmt.Errorf("mcp3208 read channel %d: %w", m.channel, err)
	}
	raw := int(r[1]&0x0F)<<8 | int(r[2])
	debug.Trace("ADC sample: channel=%d raw=%d", m.channel, raw)
	return raw, nil
}

func (m *MCP3208) FullScale() int {
	return mcp3208FullScale
}

// Close releases the SPI port when it was opened by OpenMCP3208.
func (m *MCP3208) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}
