// Package control sequences the target CPU through single stepping and free
// running. It arms the comparator bank before a run, polls the board until a
// breakpoint or an interrupt ends it, logs watch hits on the way, and always
// leaves the board back in single step mode with comparators disabled.
package control

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valerio/go-busmon/busmon/breakpoint"
	"github.com/valerio/go-busmon/busmon/hw"
	"github.com/valerio/go-busmon/busmon/protocol"
	"github.com/valerio/go-busmon/busmon/timing"
)

var (
	ErrNotStepping  = errors.New("target is free running")
	ErrInvalidCount = errors.New("count must be positive")
)

// State is the execution state of the target.
type State int32

const (
	Stepping State = iota
	Armed
	Stopped
)

func (s State) String() string {
	switch s {
	case Stepping:
		return "stepping"
	case Armed:
		return "armed"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// StopReason tells why a free run ended.
type StopReason int

const (
	StopBreakpoint StopReason = iota + 1
	StopInterrupted
)

func (r StopReason) String() string {
	switch r {
	case StopBreakpoint:
		return "breakpoint"
	case StopInterrupted:
		return "interrupted"
	default:
		return "none"
	}
}

// Stop summarises a finished free run.
type Stop struct {
	Reason  StopReason
	Hit     Hit // the breakpoint, when Reason is StopBreakpoint
	Watches int // watch hits logged during the run
	Addr    uint16
}

// Input is the external command channel as seen from the poll loop.
type Input interface {
	// Pending reports unconsumed input.
	Pending() bool
	// Discard drops one pending byte.
	Discard()
}

// AddressSink shows the current instruction address, e.g. on a local display.
type AddressSink interface {
	ShowAddress(addr uint16)
}

// AddressFormatter renders the line reported for the current instruction.
// It runs with the controller's bus lock held and must use bus directly.
type AddressFormatter func(bus hw.Bus, addr uint16) string

// Config holds the controller's timing parameters.
type Config struct {
	Delay        timing.Delayer
	PollInterval time.Duration
	StepSettle   time.Duration
	ResetHold    time.Duration
}

// DefaultConfig busy-waits the board's nominal intervals.
func DefaultConfig() Config {
	return Config{
		Delay:        timing.NewBusyWait(),
		PollInterval: timing.PollInterval,
		StepSettle:   timing.StepSettle,
		ResetHold:    timing.ResetHold,
	}
}

type Option func(*Controller)

// WithInput lets pending command input interrupt a free run.
func WithInput(in Input) Option { return func(c *Controller) { c.input = in } }

// WithDisplay mirrors the instruction address to a display.
func WithDisplay(d AddressSink) Option { return func(c *Controller) { c.display = d } }

// WithFormatter replaces the hex address report, e.g. with a disassembly.
func WithFormatter(f AddressFormatter) Option { return func(c *Controller) { c.format = f } }

// WithConfig overrides the timing parameters.
func WithConfig(cfg Config) Option { return func(c *Controller) { c.cfg = cfg } }

// WithStateHook observes every state transition.
func WithStateHook(fn func(from, to State)) Option { return func(c *Controller) { c.onState = fn } }

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.logger = l } }

// Controller owns the bus for every command it runs, including the whole
// poll loop of a free run.
type Controller struct {
	mu    sync.Mutex
	state atomic.Int32

	bus   hw.Bus
	store *breakpoint.Store
	out   io.Writer
	cfg   Config
	trace int

	input   Input
	display AddressSink
	format  AddressFormatter
	onState func(from, to State)
	logger  *slog.Logger
}

// New creates a controller reporting to out. Call Init before use.
func New(bus hw.Bus, store *breakpoint.Store, out io.Writer, opts ...Option) *Controller {
	if out == nil {
		out = io.Discard
	}
	c := &Controller{
		bus:    bus,
		store:  store,
		out:    out,
		cfg:    DefaultConfig(),
		trace:  1,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.Delay == nil {
		c.cfg.Delay = timing.NewNoOpDelayer()
	}
	if c.format == nil {
		c.format = func(_ hw.Bus, addr uint16) string { return fmt.Sprintf("%04X", addr) }
	}
	return c
}

// State returns the current execution state. Safe to call while a free run
// is in progress.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	from := State(c.state.Swap(int32(s)))
	if from == s {
		return
	}
	c.logger.Debug("Execution state changed", "from", from, "to", s)
	if c.onState != nil {
		c.onState(from, s)
	}
}

// Init brings the board to its startup state: reset released, hit FIFO
// cleared, single stepping, no breakpoints, trace every instruction.
func (c *Controller) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Reset()
	c.bus.WriteCommand(hw.CmdReset, 0)
	c.bus.WriteCommand(hw.CmdFIFOReset, 0)
	c.bus.WriteCommand(hw.CmdSingleEnable, 1)
	c.setState(Stepping)
	c.setTrace(1)
}

// Do runs fn with exclusive use of the bus.
func (c *Controller) Do(fn func(bus hw.Bus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.bus)
}

// Reset pulses the target CPU's reset line.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "Resetting 6502\n")
	c.bus.WriteCommand(hw.CmdReset, 1)
	c.cfg.Delay.Delay(c.cfg.ResetHold)
	c.bus.WriteCommand(hw.CmdReset, 0)
}

// SetTrace sets the default trace interval used by the step command. Zero
// disables tracing.
func (c *Controller) SetTrace(n int) error {
	if n < 0 {
		fmt.Fprintf(c.out, "Trace interval must not be negative\n")
		return ErrInvalidCount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setTrace(n)
	return nil
}

func (c *Controller) setTrace(n int) {
	c.trace = n
	if n > 0 {
		fmt.Fprintf(c.out, "Tracing every %d instructions while single stepping\n", n)
	} else {
		fmt.Fprintf(c.out, "Tracing disabled\n")
	}
}

// Trace returns the default trace interval.
func (c *Controller) Trace() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trace
}

// Address reads the current instruction address without reporting it.
func (c *Controller) Address() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bus.Read16(hw.RegIAL)
}

// ReportAddress reads and reports the current instruction address.
func (c *Controller) ReportAddress() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reportAddress()
}

func (c *Controller) reportAddress() uint16 {
	addr := c.bus.Read16(hw.RegIAL)
	if c.display != nil {
		c.display.ShowAddress(addr)
	}
	fmt.Fprintf(c.out, "%s\n", c.format(c.bus, addr))
	return addr
}

// Step issues count single step pulses. The instruction address is
// reported after every traceEvery-th step and after the last one; with
// traceEvery zero only after the last.
func (c *Controller) Step(count, traceEvery int) error {
	if c.State() != Stepping {
		fmt.Fprintf(c.out, "Target is free running, stop it before stepping\n")
		return ErrNotStepping
	}
	if count <= 0 || traceEvery < 0 {
		fmt.Fprintf(c.out, "Number of instructions must be positive\n")
		return ErrInvalidCount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "Stepping %d instructions\n", count)
	for i := 1; i <= count; i++ {
		c.bus.WriteCommand(hw.CmdStep, 0)
		if i == count || (traceEvery > 0 && i%traceEvery == 0) {
			c.cfg.Delay.Delay(c.cfg.StepSettle)
			c.reportAddress()
		}
	}
	return nil
}

// Continue free runs the target until a breakpoint, the board's interrupt
// flag, or pending command input stops it. Watch hits are logged and the
// run carries on. There is no timeout.
func (c *Controller) Continue() (Stop, error) {
	if c.State() != Stepping {
		fmt.Fprintf(c.out, "Target is already free running\n")
		return Stop{}, ErrNotStepping
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// step off the instruction we are stopped at, otherwise its breakpoint
	// fires again immediately
	c.bus.WriteCommand(hw.CmdStep, 0)

	protocol.Arm(c.bus, c.store.Entries())
	c.bus.WriteCommand(hw.CmdSingleEnable, 0)
	c.setState(Armed)

	fmt.Fprintf(c.out, "6502 free running...\n")
	stop := c.poll()

	if c.input != nil && c.input.Pending() {
		c.input.Discard()
	}

	c.bus.WriteCommand(hw.CmdSingleEnable, 1)
	protocol.Disarm(c.bus)
	stop.Addr = c.reportAddress()
	c.setState(Stepping)

	c.logger.Debug("Free run ended", "reason", stop.Reason, "watches", stop.Watches, "addr", stop.Addr)
	return stop, nil
}

func (c *Controller) poll() Stop {
	var stop Stop
	for {
		if c.display != nil {
			c.display.ShowAddress(c.bus.Read16(hw.RegIAL))
		}

		status := c.bus.Status()
		if status.Active() {
			h := readHit(c.bus)
			fmt.Fprintf(c.out, "%s\n", h)
			c.bus.WriteCommand(hw.CmdWatchRead, 0)
			if !h.Watch() {
				stop.Reason = StopBreakpoint
				stop.Hit = h
				c.setState(Stopped)
				return stop
			}
			stop.Watches++
		}

		if status.Interrupted() || (c.input != nil && c.input.Pending()) {
			fmt.Fprintf(c.out, "Interrupted\n")
			stop.Reason = StopInterrupted
			c.setState(Stopped)
			return stop
		}

		c.cfg.Delay.Delay(c.cfg.PollInterval)
	}
}
