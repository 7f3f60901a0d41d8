//go:build linux || darwin

package console

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// StdioPort is a console on the process's standard input and output. A
// terminal on stdin is switched to raw mode so single keystrokes can be
// detected while the target runs.
type StdioPort struct {
	in       *os.File
	out      *os.File
	fd       int
	oldState *term.State
}

var _ Port = (*StdioPort)(nil)

// OpenStdio prepares stdin and stdout for console use.
func OpenStdio() (*StdioPort, error) {
	p := &StdioPort{in: os.Stdin, out: os.Stdout, fd: int(os.Stdin.Fd())}
	if !term.IsTerminal(p.fd) {
		slog.Debug("Console input is not a terminal, staying in cooked mode")
		return p, nil
	}
	state, err := term.MakeRaw(p.fd)
	if err != nil {
		return nil, fmt.Errorf("failed to set raw mode: %w", err)
	}
	p.oldState = state
	return p, nil
}

func (p *StdioPort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *StdioPort) Write(b []byte) (int, error) { return p.out.Write(b) }

func (p *StdioPort) Pending() bool {
	n, err := unix.IoctlGetInt(p.fd, unix.FIONREAD)
	return err == nil && n > 0
}

func (p *StdioPort) Discard() {
	var b [1]byte
	_, _ = p.in.Read(b[:])
}

// Close restores the terminal mode.
func (p *StdioPort) Close() error {
	if p.oldState == nil {
		return nil
	}
	err := term.Restore(p.fd, p.oldState)
	p.oldState = nil
	return err
}
