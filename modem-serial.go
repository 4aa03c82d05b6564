//go:build !tinygo

package ttgo

import (
	"fmt"

	"go.bug.st/serial"
)

// OpenModem opens the serial port at path (8N1) and attaches a Modem to it.
// A zero baud rate selects 57600, the RN2483 default.
func OpenModem(path string, baud int, c ModemConfig) (*Modem, error) {
	if baud == 0 {
		baud = 57600
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrModem, path, err)
	}

	m, err := NewModem(port, c)
	if err != nil {
		port.Close()
		return nil, err
	}
	return m, nil
}
