// Package console is the line-oriented command front end of the monitor. It
// reads commands from a serial line or the local terminal, dispatches them
// by unique prefix and lets a pending keystroke interrupt a free run.
package console

import "io"

// Port is a byte stream to the operator.
type Port interface {
	io.ReadWriter
	// Pending reports whether at least one byte can be read without
	// blocking.
	Pending() bool
	// Discard drops one pending byte.
	Discard()
}
