package memory

import (
	"io"
	"log/slog"

	"github.com/valerio/go-busmon/busmon/hw"
	"github.com/valerio/go-busmon/busmon/timing"
)

// Runner grants exclusive use of the bus for the duration of fn.
type Runner interface {
	Do(fn func(bus hw.Bus))
}

// Direct runs against a bus without further locking.
type Direct struct{ Bus hw.Bus }

func (d Direct) Do(fn func(bus hw.Bus)) { fn(d.Bus) }

// Inspector serializes memory access with other bus users. Every call
// takes the bus once for its whole duration.
type Inspector struct {
	run    Runner
	delay  timing.Delayer
	logger *slog.Logger
}

// New creates an inspector. A nil delay skips the read settle time.
func New(run Runner, delay timing.Delayer) *Inspector {
	return &Inspector{run: run, delay: delay, logger: slog.Default()}
}

func (i *Inspector) with(fn func(v *View)) {
	i.run.Do(func(bus hw.Bus) {
		fn(NewView(bus, i.delay))
	})
}

// Read returns the byte at addr.
func (i *Inspector) Read(addr uint16) (data uint8) {
	i.with(func(v *View) { data = v.Read(addr) })
	return data
}

// Write stores data at addr.
func (i *Inspector) Write(addr uint16, data uint8) {
	i.with(func(v *View) { v.Write(addr, data) })
}

// Fill stores data at every address in [start, end).
func (i *Inspector) Fill(start, end uint16, data uint8) {
	i.logger.Debug("Filling memory", "start", start, "end", end, "data", data)
	i.with(func(v *View) { v.Fill(start, end, data) })
}

// Registers samples the CPU register file.
func (i *Inspector) Registers() (r Regs) {
	i.with(func(v *View) { r = v.Registers() })
	return r
}

// Dump writes a 256 byte listing from addr and returns the next address.
func (i *Inspector) Dump(w io.Writer, addr uint16) (next uint16) {
	i.with(func(v *View) { next = v.Dump(w, addr) })
	return next
}

// Listing writes count instructions from addr and returns the next address.
func (i *Inspector) Listing(w io.Writer, addr uint16, count int) (next uint16) {
	i.with(func(v *View) { next = v.Listing(w, addr, count) })
	return next
}

// Disassemble decodes the instruction at addr.
func (i *Inspector) Disassemble(addr uint16) (l Line, next uint16) {
	i.with(func(v *View) { l, next = v.Disassemble(addr) })
	return l, next
}

// AddressFormatter renders the current instruction as a disassembly line.
// The returned function uses the bus it is handed, so it can run while the
// caller already owns the bus.
func AddressFormatter(delay timing.Delayer) func(bus hw.Bus, addr uint16) string {
	return func(bus hw.Bus, addr uint16) string {
		l, _ := NewView(bus, delay).Disassemble(addr)
		return l.String()
	}
}
