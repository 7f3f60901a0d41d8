package memory

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-busmon/busmon/hw"
)

func TestLoadAddrBitOrder(t *testing.T) {
	sim := hw.NewSimulator()
	LoadAddr(sim, 0x8001)

	ops := sim.Ops()
	require.Len(t, ops, 16)
	assert.Equal(t, uint8(1), ops[0].Param, "least significant bit first")
	assert.Equal(t, uint8(1), ops[15].Param)
	for _, op := range ops[1:15] {
		assert.Equal(t, hw.CmdLoadMem, op.Cmd)
		assert.Zero(t, op.Param)
	}
}

func TestReadWrite(t *testing.T) {
	sim := hw.NewSimulator()
	v := NewView(sim, nil)

	v.Write(0x1234, 0xAB)
	assert.Equal(t, uint8(0xAB), sim.Peek(0x1234))

	sim.Poke(0x2000, []byte{0x11, 0x22, 0x33})
	assert.Equal(t, uint8(0x22), v.Read(0x2001))

	buf := make([]byte, 3)
	v.ReadBlock(0x2000, buf)
	assert.Equal(t, []byte{0x11, 0x22, 0x33}, buf)
}

func TestFill(t *testing.T) {
	tests := []struct {
		name       string
		start, end uint16
		writes     int
	}{
		{"range", 0x3000, 0x3010, 16},
		{"single", 0x3000, 0x3001, 1},
		{"empty", 0x3000, 0x3000, 0},
		{"reversed", 0x3010, 0x3000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := hw.NewSimulator()
			NewView(sim, nil).Fill(tt.start, tt.end, 0x5A)

			assert.Equal(t, tt.writes, sim.Count(hw.CmdWriteMem))
			for a := uint32(0x2FFF); a <= 0x3011; a++ {
				inRange := a >= uint32(tt.start) && a < uint32(tt.end)
				if inRange {
					assert.Equal(t, uint8(0x5A), sim.Peek(uint16(a)), "addr %04X", a)
				} else {
					assert.Zero(t, sim.Peek(uint16(a)), "addr %04X", a)
				}
			}
		})
	}
}

func TestRegisters(t *testing.T) {
	sim := hw.NewSimulator()
	sim.SetRegisters(hw.CPURegs{A: 0x12, X: 0x34, Y: 0x56, P: 0xA5, SP: 0x01FD, PC: 0xC000})

	r := NewView(sim, nil).Registers()

	assert.Equal(t, Regs{A: 0x12, X: 0x34, Y: 0x56, P: 0xA5, SP: 0xFD, PC: 0xC000}, r)
	assert.Equal(t, "A=12 X=34 Y=56 SP=01FD PC=C000 P=A5 N----I-C", r.String())
}

func TestFlags(t *testing.T) {
	tests := []struct {
		p        uint8
		expected string
	}{
		{0x00, "--------"},
		{0xFF, "NV-BDIZC"},
		{0x81, "N------C"},
		{0x24, "-----I--"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Regs{P: tt.p}.Flags(), "P=%02X", tt.p)
	}
}

func TestDump(t *testing.T) {
	sim := hw.NewSimulator()
	sim.Poke(0x4000, []byte("Hello\x00\x7F~"))

	var out bytes.Buffer
	next := NewView(sim, nil).Dump(&out, 0x4000)

	assert.Equal(t, uint16(0x4100), next)
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 16)
	assert.Equal(t, "4000 48 65 6C 6C 6F 00 7F 7E 00 00 00 00 00 00 00 00  Hello..~........", lines[0])
	assert.True(t, strings.HasPrefix(lines[15], "40F0 "))
	assert.Equal(t, 1, countCmd(sim.Ops(), hw.CmdLoadMem)/16, "address loaded once")
	assert.Equal(t, DumpSize, sim.Count(hw.CmdReadMem))
}

func countCmd(ops []hw.Op, cmd hw.Command) int {
	n := 0
	for _, op := range ops {
		if op.Cmd == cmd {
			n++
		}
	}
	return n
}

func TestDisassemble(t *testing.T) {
	sim := hw.NewSimulator()
	// LDA #$12; STA $0400; NOP
	sim.Poke(0xC000, []byte{0xA9, 0x12, 0x8D, 0x00, 0x04, 0xEA})
	v := NewView(sim, nil)

	l, next := v.Disassemble(0xC000)
	assert.Equal(t, uint16(0xC002), next)
	assert.Equal(t, []byte{0xA9, 0x12}, l.Bytes)
	assert.Contains(t, l.Instruction, "LDA")
	assert.True(t, strings.HasPrefix(l.String(), "C000 : A9 12"))

	l, next = v.Disassemble(next)
	assert.Equal(t, uint16(0xC005), next)
	assert.Contains(t, l.Instruction, "STA")

	l, next = v.Disassemble(next)
	assert.Equal(t, uint16(0xC006), next)
	assert.Contains(t, l.Instruction, "NOP")
}

func TestListing(t *testing.T) {
	sim := hw.NewSimulator()
	nops := bytes.Repeat([]byte{0xEA}, DisassemblyLines)
	sim.Poke(0x0200, nops)

	var out bytes.Buffer
	next := NewView(sim, nil).Listing(&out, 0x0200, DisassemblyLines)

	assert.Equal(t, uint16(0x0200+DisassemblyLines), next)
	assert.Equal(t, DisassemblyLines, strings.Count(out.String(), "\n"))
}

func TestStoreAddress(t *testing.T) {
	sim := hw.NewSimulator()
	v := NewView(sim, nil)

	v.StoreAddress(0x10, 0xBEEF)
	assert.Equal(t, uint16(0xBEEF), v.LoadAddress(0x10))

	v.StoreBytes(0x20, []byte{1, 2, 3})
	b := make([]byte, 3)
	v.LoadBytes(0x20, b)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

type countingRunner struct {
	bus   hw.Bus
	calls int
}

func (r *countingRunner) Do(fn func(bus hw.Bus)) {
	r.calls++
	fn(r.bus)
}

func TestInspectorTakesBusOncePerCall(t *testing.T) {
	sim := hw.NewSimulator()
	run := &countingRunner{bus: sim}
	in := New(run, nil)

	in.Fill(0x0000, 0x0010, 0xFF)
	var out bytes.Buffer
	in.Dump(&out, 0x0000)
	in.Listing(&out, 0x0000, 2)

	assert.Equal(t, 3, run.calls)
	assert.Equal(t, uint8(0xFF), in.Read(0x000F))
	assert.Equal(t, 4, run.calls)
}

func TestAddressFormatter(t *testing.T) {
	sim := hw.NewSimulator()
	sim.Poke(0x0000, []byte{0xEA})
	format := AddressFormatter(nil)

	assert.True(t, strings.HasPrefix(format(sim, 0x0000), "0000 : EA"))
}

func TestDirect(t *testing.T) {
	sim := hw.NewSimulator()
	in := New(Direct{Bus: sim}, nil)

	in.Write(0x0300, 0xEA)
	assert.Equal(t, uint8(0xEA), in.Read(0x0300))
	l, next := in.Disassemble(0x0300)
	assert.Equal(t, uint16(0x0300), l.Address)
	assert.Equal(t, uint16(0x0301), next)
}
