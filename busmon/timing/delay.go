package timing

import "time"

// Delayer waits for a hardware settling interval.
type Delayer interface {
	// Delay blocks for at least d.
	Delay(d time.Duration)
}

// Named intervals of the probe board. These are platform tuning values:
// callers only rely on settle-before-read and poll-interval ordering.
const (
	// CommandSettle separates the command field write from the strobe edge,
	// and the strobe edge from the next bus access.
	CommandSettle = 2 * time.Microsecond
	// MuxSettle is the time the multiplexer needs before a register read is valid.
	MuxSettle = 1 * time.Microsecond
	// PollInterval separates iterations of the free-run poll loop.
	PollInterval = 10 * time.Microsecond
	// StepSettle is waited after a step pulse before the instruction address is read.
	StepSettle = 10 * time.Microsecond
	// MemorySettle is waited after a memory read command before the data register is read.
	MemorySettle = 10 * time.Microsecond
	// ResetHold is how long the CPU reset line is held asserted.
	ResetHold = 100 * time.Microsecond
)

// NewNoOpDelayer returns a delayer that doesn't wait (for the simulator and tests).
func NewNoOpDelayer() Delayer {
	return &noOpDelayer{}
}

type noOpDelayer struct{}

func (n *noOpDelayer) Delay(time.Duration) {}

// Func adapts an ordinary function to the Delayer interface.
type Func func(d time.Duration)

func (f Func) Delay(d time.Duration) { f(d) }
