// Package memory reads and writes target memory through the board's memory
// access port, dumps the CPU register file and disassembles 6502 code in
// place.
//
// The port is a 24-bit shift register loaded one bit per LoadMem command:
// data in the low 8 bits, address in the upper 16. ReadMem and WriteMem
// auto-increment the address.
package memory

import (
	"time"

	"github.com/valerio/go-busmon/busmon/bit"
	"github.com/valerio/go-busmon/busmon/hw"
	"github.com/valerio/go-busmon/busmon/timing"
)

// LoadData shifts a data byte into the access port, least significant bit
// first.
func LoadData(bus hw.Bus, data uint8) {
	bit.LSBFirst(uint32(data), 8, func(b uint8) {
		bus.WriteCommand(hw.CmdLoadMem, b)
	})
}

// LoadAddr shifts a 16-bit address into the access port, least significant
// bit first.
func LoadAddr(bus hw.Bus, addr uint16) {
	bit.LSBFirst(uint32(addr), 16, func(b uint8) {
		bus.WriteCommand(hw.CmdLoadMem, b)
	})
}

// ReadByte reads the byte at the loaded address and advances it.
func ReadByte(bus hw.Bus, delay timing.Delayer, settle time.Duration) uint8 {
	bus.WriteCommand(hw.CmdReadMem, 0)
	delay.Delay(settle)
	return bus.Read8(hw.RegData)
}

// WriteByte stores the loaded data byte at the loaded address and advances
// the address.
func WriteByte(bus hw.Bus) {
	bus.WriteCommand(hw.CmdWriteMem, 0)
}
