package monitor

import (
	"fmt"

	"github.com/valerio/go-busmon/busmon/memory"
)

func (m *Monitor) regs(_ []string) error {
	r := m.mem.Registers()
	fmt.Fprintf(m.out, "6502 Registers:\n")
	fmt.Fprintf(m.out, "  A=%02X X=%02X Y=%02X SP=01%02X PC=%04X\n", r.A, r.X, r.Y, r.SP, r.PC)
	fmt.Fprintf(m.out, "  P=%02X %s\n", r.P, r.Flags())
	return nil
}

// optAddr updates the memory cursor when an address is given.
func (m *Monitor) optAddr(args []string) error {
	s := arg(args, 0)
	if s == "" {
		return nil
	}
	addr, err := parseAddr(s)
	if err != nil {
		return m.syntax(err)
	}
	m.memAddr = addr
	return nil
}

func (m *Monitor) dump(args []string) error {
	if err := m.optAddr(args); err != nil {
		return err
	}
	m.memAddr = m.mem.Dump(m.out, m.memAddr)
	return nil
}

func (m *Monitor) disassemble(args []string) error {
	if err := m.optAddr(args); err != nil {
		return err
	}
	m.memAddr = m.mem.Listing(m.out, m.memAddr, memory.DisassemblyLines)
	return nil
}

func (m *Monitor) read(args []string) error {
	addr, err := parseAddr(arg(args, 0))
	if err != nil {
		return m.syntax(err)
	}
	data := m.mem.Read(addr)
	fmt.Fprintf(m.out, "Rd: %04X = %X\n", addr, data)
	return nil
}

func (m *Monitor) write(args []string) error {
	addr, err := parseAddr(arg(args, 0))
	if err != nil {
		return m.syntax(err)
	}
	data, err := parseByte(arg(args, 1))
	if err != nil {
		return m.syntax(err)
	}
	fmt.Fprintf(m.out, "Wr: %04X = %X\n", addr, data)
	m.mem.Write(addr, data)
	return nil
}

func (m *Monitor) fill(args []string) error {
	start, err := parseAddr(arg(args, 0))
	if err != nil {
		return m.syntax(err)
	}
	end, err := parseAddr(arg(args, 1))
	if err != nil {
		return m.syntax(err)
	}
	data, err := parseByte(arg(args, 2))
	if err != nil {
		return m.syntax(err)
	}
	fmt.Fprintf(m.out, "Wr: %04X to %04X = %X\n", start, end, data)
	m.mem.Fill(start, end, data)
	return nil
}
