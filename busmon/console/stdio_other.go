//go:build !linux && !darwin

package console

import (
	"errors"
	"io"
)

// StdioPort is unavailable on this platform.
type StdioPort struct {
	io.ReadWriter
}

func OpenStdio() (*StdioPort, error) {
	return nil, errors.New("local console not supported on this platform, use --serial")
}

func (p *StdioPort) Pending() bool { return false }
func (p *StdioPort) Discard()      {}
func (p *StdioPort) Close() error  { return nil }
