// Package monitor implements the probe's command surface: breakpoint and
// watch management, stepping, free running and, with the memory extension,
// memory and register inspection. Every command reports on the monitor's
// output as human-readable lines.
package monitor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/valerio/go-busmon/busmon/breakpoint"
	"github.com/valerio/go-busmon/busmon/control"
	"github.com/valerio/go-busmon/busmon/memory"
	"github.com/valerio/go-busmon/busmon/trigger"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnavailable    = errors.New("command not available")
	ErrSyntax         = errors.New("invalid argument")
)

// Version is reported by the help command.
const Version = "0.29"

type handler func(args []string) error

// Monitor dispatches commands by ID. It is not safe for concurrent use;
// one console or script drives it.
type Monitor struct {
	ctrl  *control.Controller
	store *breakpoint.Store
	mem   *memory.Inspector
	out   io.Writer

	handlers map[CommandID]handler
	memAddr  uint16
	steps    int

	logger *slog.Logger
}

type Option func(*Monitor)

// WithMemory enables the memory inspection commands.
func WithMemory(mem *memory.Inspector) Option { return func(m *Monitor) { m.mem = mem } }

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option { return func(m *Monitor) { m.logger = l } }

// New creates a monitor over an initialised controller and its store.
func New(ctrl *control.Controller, store *breakpoint.Store, out io.Writer, opts ...Option) *Monitor {
	if out == nil {
		out = io.Discard
	}
	m := &Monitor{
		ctrl:   ctrl,
		store:  store,
		out:    out,
		steps:  1,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.handlers = map[CommandID]handler{
		Help:     m.help,
		Regs:     m.regs,
		Mem:      m.dump,
		Dis:      m.disassemble,
		Read:     m.read,
		Write:    m.write,
		Fill:     m.fill,
		Reset:    m.reset,
		Step:     m.step,
		Trace:    m.trace,
		BList:    m.blist,
		BreakI:   m.set(breakpoint.InstrBreak),
		BreakR:   m.set(breakpoint.ReadBreak),
		BreakW:   m.set(breakpoint.WriteBreak),
		WatchI:   m.set(breakpoint.InstrWatch),
		WatchR:   m.set(breakpoint.ReadWatch),
		WatchW:   m.set(breakpoint.WriteWatch),
		BClearI:  m.clear(breakpoint.InstrBreak),
		BClearR:  m.clear(breakpoint.ReadBreak),
		BClearW:  m.clear(breakpoint.WriteBreak),
		WClearI:  m.clear(breakpoint.InstrWatch),
		WClearR:  m.clear(breakpoint.ReadWatch),
		WClearW:  m.clear(breakpoint.WriteWatch),
		Trigger:  m.trigger,
		Continue: m.cont,
	}
	return m
}

// Commands returns the available commands in table order.
func (m *Monitor) Commands() []Command {
	cmds := make([]Command, 0, numCommands)
	for _, c := range commandTable {
		if c.memory && m.mem == nil {
			continue
		}
		cmds = append(cmds, c)
	}
	return cmds
}

// Lookup finds an available command by its exact name.
func (m *Monitor) Lookup(name string) (Command, bool) {
	for _, c := range m.Commands() {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// Execute runs command id with a whitespace separated argument string.
func (m *Monitor) Execute(id CommandID, args string) error {
	if id < 0 || id >= numCommands {
		return ErrUnknownCommand
	}
	if commandTable[id].memory && m.mem == nil {
		fmt.Fprintf(m.out, "%s needs the memory extension\n", id)
		return fmt.Errorf("%s: %w", id, ErrUnavailable)
	}
	m.logger.Debug("Executing command", "cmd", id, "args", args)
	return m.handlers[id](strings.Fields(args))
}

// Exec runs a full command line whose first word is an exact command name.
func (m *Monitor) Exec(line string) error {
	name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
	c, ok := m.Lookup(name)
	if !ok {
		fmt.Fprintf(m.out, "Unknown command %s\n", name)
		return fmt.Errorf("%q: %w", name, ErrUnknownCommand)
	}
	return m.Execute(c.ID, args)
}

// Start brings the board up and, unless halt is set, lets the target free
// run until the first stop.
func (m *Monitor) Start(halt bool) error {
	m.banner()
	m.ctrl.Init()
	if halt {
		m.ctrl.ReportAddress()
		return nil
	}
	_, err := m.ctrl.Continue()
	return err
}

// Address returns the current instruction address.
func (m *Monitor) Address() uint16 {
	return m.ctrl.Address()
}

// Breakpoints returns the configured entries in address order.
func (m *Monitor) Breakpoints() []breakpoint.Entry {
	return m.store.Entries()
}

func (m *Monitor) banner() {
	fmt.Fprintf(m.out, "Bus monitor version %s\n", Version)
}

func (m *Monitor) help(_ []string) error {
	m.banner()
	fmt.Fprintf(m.out, "Commands:\n")
	for _, c := range m.Commands() {
		fmt.Fprintf(m.out, "    %s\n", c.Usage())
	}
	m.triggerTable()
	return nil
}

func (m *Monitor) triggerTable() {
	fmt.Fprintf(m.out, "Trigger Codes:\n")
	for _, line := range trigger.Table() {
		fmt.Fprintf(m.out, "    %s\n", line)
	}
}

func (m *Monitor) syntax(err error) error {
	fmt.Fprintf(m.out, "%v\n", err)
	return err
}

func (m *Monitor) reset(_ []string) error {
	m.ctrl.Reset()
	return nil
}

func (m *Monitor) step(args []string) error {
	count := m.steps
	if s := arg(args, 0); s != "" {
		n, err := parseCount(s)
		if err != nil {
			return m.syntax(err)
		}
		count = n
	}
	traceEvery := m.ctrl.Trace()
	if s := arg(args, 1); s != "" {
		n, err := parseCount(s)
		if err != nil {
			return m.syntax(err)
		}
		traceEvery = n
	}

	if err := m.ctrl.Step(count, traceEvery); err != nil {
		return err
	}
	m.steps = count
	return nil
}

func (m *Monitor) trace(args []string) error {
	n, err := parseCount(arg(args, 0))
	if err != nil {
		return m.syntax(err)
	}
	return m.ctrl.SetTrace(n)
}

func (m *Monitor) cont(_ []string) error {
	_, err := m.ctrl.Continue()
	return err
}

func (m *Monitor) blist(_ []string) error {
	m.store.Print()
	return nil
}

func (m *Monitor) set(mode breakpoint.Mode) handler {
	return func(args []string) error {
		addr, err := parseAddr(arg(args, 0))
		if err != nil {
			return m.syntax(err)
		}

		var code *trigger.Code
		if s := arg(args, 1); s != "" {
			c, err := m.parseTrigger(s)
			if err != nil {
				return err
			}
			code = &c
		}

		_, err = m.store.Set(addr, mode, code)
		return err
	}
}

// lookup resolves a breakpoint by address first, then by index.
func (m *Monitor) lookup(s string) (int, error) {
	v, err := parseAddr(s)
	if err != nil {
		return -1, m.syntax(err)
	}
	if i, ok := m.store.FindByAddress(v); ok {
		return i, nil
	}
	if m.store.IndexValid(int(v)) {
		return int(v), nil
	}
	fmt.Fprintf(m.out, "Breakpoint/watch not set at %04X\n", v)
	return -1, breakpoint.ErrNotFound
}

func (m *Monitor) clear(mode breakpoint.Mode) handler {
	return func(args []string) error {
		i, err := m.lookup(arg(args, 0))
		if err != nil {
			return err
		}
		_, err = m.store.ClearAt(i, mode)
		return err
	}
}

func (m *Monitor) trigger(args []string) error {
	if len(args) == 0 {
		m.triggerTable()
		return nil
	}
	i, err := m.lookup(args[0])
	if err != nil {
		m.triggerTable()
		return err
	}
	c, err := m.parseTrigger(arg(args, 1))
	if err != nil {
		return err
	}
	return m.store.SetTrigger(i, c)
}

func (m *Monitor) parseTrigger(s string) (trigger.Code, error) {
	c, err := trigger.Parse(s)
	if err != nil {
		m.logger.Debug("Bad trigger argument", "err", err)
		fmt.Fprintf(m.out, "Illegal trigger code (see help for trigger codes)\n")
		return 0, breakpoint.ErrInvalidTrigger
	}
	return c, nil
}
