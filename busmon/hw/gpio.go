package hw

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/valerio/go-busmon/busmon/timing"
)

// Word offsets of the BCM283x GPIO register block.
const (
	gpfsel0 = 0
	gpset0  = 7
	gpclr0  = 10
	gplev0  = 13

	// GPIOWords is the number of 32-bit registers the bus touches.
	GPIOWords = gplev0 + 1
)

const (
	fselInput  = 0
	fselOutput = 1
)

// PinMap assigns board ports to GPIO line numbers (0-31).
type PinMap struct {
	Ctrl        [5]int // command bits 0-3, strobe edge on bit 4
	MuxSel      [4]int
	MuxData     [8]int
	Interrupted int
	Active      int
}

// DefaultPinMap is the wiring of the reference adapter board.
var DefaultPinMap = PinMap{
	Ctrl:        [5]int{5, 6, 13, 19, 26},
	MuxSel:      [4]int{12, 16, 20, 21},
	MuxData:     [8]int{2, 3, 4, 17, 27, 22, 10, 9},
	Interrupted: 24,
	Active:      25,
}

// GPIOBus drives the board through memory-mapped GPIO registers.
type GPIOBus struct {
	mu     sync.Mutex
	regs   []uint32
	pins   PinMap
	delay  timing.Delayer
	ctrl   uint8 // shadow of the control port
	logger *slog.Logger

	release func() error
	closed  bool
}

var _ Bus = (*GPIOBus)(nil)

// usable reports whether the registers can still be touched. Callers hold mu.
func (b *GPIOBus) usable() bool {
	if b.closed {
		b.logger.Debug("GPIO bus used after Close")
		return false
	}
	return true
}

// NewGPIOBus binds the bus to an already mapped register block. regs must
// hold at least GPIOWords words.
func NewGPIOBus(regs []uint32, pins PinMap, delay timing.Delayer) *GPIOBus {
	if delay == nil {
		delay = timing.NewBusyWait()
	}
	b := &GPIOBus{
		regs:   regs,
		pins:   pins,
		delay:  delay,
		logger: slog.Default(),
	}
	b.configure()
	return b
}

func (b *GPIOBus) configure() {
	for _, p := range b.pins.Ctrl {
		b.setFunction(p, fselOutput)
	}
	for _, p := range b.pins.MuxSel {
		b.setFunction(p, fselOutput)
	}
	for _, p := range b.pins.MuxData {
		b.setFunction(p, fselInput)
	}
	b.setFunction(b.pins.Interrupted, fselInput)
	b.setFunction(b.pins.Active, fselInput)

	// control port starts cleared
	b.writePins(b.pins.Ctrl[:], 0, CmdMask)
}

func (b *GPIOBus) setFunction(pin int, fsel uint32) {
	reg := gpfsel0 + pin/10
	shift := uint(pin%10) * 3
	v := atomic.LoadUint32(&b.regs[reg])
	v = v&^(7<<shift) | fsel<<shift
	atomic.StoreUint32(&b.regs[reg], v)
}

// writePins drives the pins selected by mask to the matching bits of value.
func (b *GPIOBus) writePins(pins []int, value, mask uint8) {
	var set, clr uint32
	for i, p := range pins {
		if mask&(1<<i) == 0 {
			continue
		}
		if value&(1<<i) != 0 {
			set |= 1 << p
		} else {
			clr |= 1 << p
		}
	}
	if clr != 0 {
		atomic.StoreUint32(&b.regs[gpclr0], clr)
	}
	if set != 0 {
		atomic.StoreUint32(&b.regs[gpset0], set)
	}
}

func (b *GPIOBus) readPins(pins []int) uint8 {
	lev := atomic.LoadUint32(&b.regs[gplev0])
	var v uint8
	for i, p := range pins {
		if lev&(1<<p) != 0 {
			v |= 1 << i
		}
	}
	return v
}

// WriteCommand, Read8, Read16 and Status do nothing and read as zero once
// the bus is closed.
func (b *GPIOBus) WriteCommand(cmd Command, param uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.usable() {
		return
	}

	b.ctrl = b.ctrl&^CmdMask | (uint8(cmd)|param&1)&CmdMask
	b.writePins(b.pins.Ctrl[:], b.ctrl, CmdMask)
	b.delay.Delay(timing.CommandSettle)

	b.ctrl |= CmdEdge
	b.writePins(b.pins.Ctrl[:], b.ctrl, CmdEdge)
	b.delay.Delay(timing.CommandSettle)
}

func (b *GPIOBus) Read8(reg Register) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.usable() {
		return 0
	}
	return b.read8(reg)
}

func (b *GPIOBus) read8(reg Register) uint8 {
	b.writePins(b.pins.MuxSel[:], uint8(reg)&MuxMask, MuxMask)
	b.delay.Delay(timing.MuxSettle)
	return b.readPins(b.pins.MuxData[:])
}

// Read16 holds the bus for both halves so no other caller can move the
// multiplexer in between.
func (b *GPIOBus) Read16(reg Register) uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.usable() {
		return 0
	}
	lo := b.read8(reg)
	hi := b.read8(reg + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (b *GPIOBus) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	var st Status
	if !b.usable() {
		return st
	}
	lev := atomic.LoadUint32(&b.regs[gplev0])
	if lev&(1<<b.pins.Interrupted) != 0 {
		st |= StatusInterrupted
	}
	if lev&(1<<b.pins.Active) != 0 {
		st |= StatusActive
	}
	return st
}

// Close releases the register mapping, if the bus owns one. The bus is
// inert afterwards.
func (b *GPIOBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.release == nil {
		return nil
	}
	err := b.release()
	b.release = nil
	b.regs = nil
	b.logger.Debug("GPIO bus closed")
	return err
}
