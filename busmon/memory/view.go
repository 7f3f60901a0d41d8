package memory

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/beevik/go6502/cpu"
	"github.com/beevik/go6502/disasm"

	"github.com/valerio/go-busmon/busmon/hw"
	"github.com/valerio/go-busmon/busmon/timing"
)

const (
	// DumpSize is the number of bytes shown by one memory dump.
	DumpSize = 0x100
	dumpRow  = 16

	// DisassemblyLines is the number of instructions shown by one listing.
	DisassemblyLines = 10
)

// View accesses target memory on a bus the caller already owns. It does no
// locking of its own.
type View struct {
	bus    hw.Bus
	delay  timing.Delayer
	settle time.Duration
}

var _ cpu.Memory = (*View)(nil)

// NewView creates a view over bus. A nil delay skips the read settle time.
func NewView(bus hw.Bus, delay timing.Delayer) *View {
	if delay == nil {
		delay = timing.NewNoOpDelayer()
	}
	return &View{bus: bus, delay: delay, settle: timing.MemorySettle}
}

// Read returns the byte at addr.
func (v *View) Read(addr uint16) uint8 {
	LoadAddr(v.bus, addr)
	return ReadByte(v.bus, v.delay, v.settle)
}

// ReadBlock fills buf from consecutive addresses starting at addr, loading
// the address once.
func (v *View) ReadBlock(addr uint16, buf []byte) {
	LoadAddr(v.bus, addr)
	for i := range buf {
		buf[i] = ReadByte(v.bus, v.delay, v.settle)
	}
}

// Write stores data at addr.
func (v *View) Write(addr uint16, data uint8) {
	LoadData(v.bus, data)
	LoadAddr(v.bus, addr)
	WriteByte(v.bus)
}

// Fill stores data at every address in [start, end).
func (v *View) Fill(start, end uint16, data uint8) {
	if end <= start {
		return
	}
	LoadData(v.bus, data)
	LoadAddr(v.bus, start)
	for a := uint32(start); a < uint32(end); a++ {
		WriteByte(v.bus)
	}
}

// Registers samples the CPU register file.
func (v *View) Registers() Regs {
	return Regs{
		A:  v.bus.Read8(hw.RegA),
		X:  v.bus.Read8(hw.RegX),
		Y:  v.bus.Read8(hw.RegY),
		P:  v.bus.Read8(hw.RegP),
		SP: v.bus.Read8(hw.RegSPL),
		PC: v.bus.Read16(hw.RegPCL),
	}
}

// Dump writes a 256 byte hex and ASCII listing starting at addr and returns
// the address following it.
func (v *View) Dump(w io.Writer, addr uint16) uint16 {
	row := make([]byte, dumpRow)
	LoadAddr(v.bus, addr)
	for off := 0; off < DumpSize; off += dumpRow {
		for j := range row {
			row[j] = ReadByte(v.bus, v.delay, v.settle)
		}
		fmt.Fprintln(w, dumpLine(addr+uint16(off), row))
	}
	return addr + DumpSize
}

func dumpLine(addr uint16, row []byte) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04X ", addr)
	for _, b := range row {
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteByte(' ')
	for _, b := range row {
		if b < 32 || b > 126 {
			b = '.'
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

// Line is one disassembled instruction.
type Line struct {
	Address     uint16
	Bytes       []byte
	Instruction string
}

func (l Line) String() string {
	hex := make([]string, len(l.Bytes))
	for i, b := range l.Bytes {
		hex[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("%04X : %-8s  %s", l.Address, strings.Join(hex, " "), l.Instruction)
}

// Disassemble decodes the instruction at addr and returns it with the
// address of the next one.
func (v *View) Disassemble(addr uint16) (Line, uint16) {
	text, next := disasm.Disassemble(v, addr)
	n := int(next - addr)
	if n <= 0 || n > 3 {
		n = 1
	}
	raw := make([]byte, n)
	v.ReadBlock(addr, raw)
	return Line{Address: addr, Bytes: raw, Instruction: text}, next
}

// Listing writes count disassembled instructions starting at addr and
// returns the address following the last.
func (v *View) Listing(w io.Writer, addr uint16, count int) uint16 {
	for i := 0; i < count; i++ {
		var l Line
		l, addr = v.Disassemble(addr)
		fmt.Fprintln(w, l)
	}
	return addr
}

// LoadByte implements cpu.Memory.
func (v *View) LoadByte(addr uint16) byte {
	return v.Read(addr)
}

// LoadBytes implements cpu.Memory.
func (v *View) LoadBytes(addr uint16, b []byte) {
	v.ReadBlock(addr, b)
}

// LoadAddress implements cpu.Memory. The high byte comes from addr+1 within
// the same page, as the 6502 does for indirect jumps.
func (v *View) LoadAddress(addr uint16) uint16 {
	hi := (addr & 0xFF00) | uint16(uint8(addr)+1)
	return uint16(v.Read(addr)) | uint16(v.Read(hi))<<8
}

// StoreByte implements cpu.Memory.
func (v *View) StoreByte(addr uint16, b byte) {
	v.Write(addr, b)
}

// StoreBytes implements cpu.Memory.
func (v *View) StoreBytes(addr uint16, b []byte) {
	for i, x := range b {
		v.Write(addr+uint16(i), x)
	}
}

// StoreAddress implements cpu.Memory.
func (v *View) StoreAddress(addr uint16, a uint16) {
	v.Write(addr, uint8(a))
	v.Write(addr+1, uint8(a>>8))
}
