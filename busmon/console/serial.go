package console

import (
	"fmt"
	"log/slog"

	"github.com/pkg/term"
)

// DefaultBaud is the console line speed.
const DefaultBaud = 57600

// SerialPort is a console on a serial line, in raw mode.
type SerialPort struct {
	t   *term.Term
	dev string
}

var _ Port = (*SerialPort)(nil)

// OpenSerial opens dev at the given speed.
func OpenSerial(dev string, baud int) (*SerialPort, error) {
	t, err := term.Open(dev, term.Speed(baud), term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial console %s: %w", dev, err)
	}
	slog.Info("Serial console opened", "dev", dev, "baud", baud)
	return &SerialPort{t: t, dev: dev}, nil
}

func (p *SerialPort) Read(b []byte) (int, error)  { return p.t.Read(b) }
func (p *SerialPort) Write(b []byte) (int, error) { return p.t.Write(b) }

func (p *SerialPort) Pending() bool {
	n, err := p.t.Available()
	if err != nil {
		slog.Debug("Serial console poll failed", "dev", p.dev, "error", err)
		return false
	}
	return n > 0
}

func (p *SerialPort) Discard() {
	var b [1]byte
	_, _ = p.t.Read(b[:])
}

// Close restores the line settings and closes the device.
func (p *SerialPort) Close() error {
	if err := p.t.Restore(); err != nil {
		slog.Debug("Failed to restore serial line settings", "dev", p.dev, "error", err)
	}
	return p.t.Close()
}
