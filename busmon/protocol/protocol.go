// Package protocol serializes breakpoint entries into the board's 26-bit
// comparator slot format and shifts them into the comparator bank.
//
// Slot layout, most significant first (see the hw.Slot* constants):
//
//	25..22  trigger code
//	21..16  mode bits
//	15..0   address
package protocol

import (
	"log/slog"

	"github.com/valerio/go-busmon/busmon/bit"
	"github.com/valerio/go-busmon/busmon/breakpoint"
	"github.com/valerio/go-busmon/busmon/hw"
	"github.com/valerio/go-busmon/busmon/trigger"
)

// SlotBits is the width of one serialized entry.
const SlotBits = hw.SlotBits

// Serialize packs an entry into its 26-bit slot value.
func Serialize(e breakpoint.Entry) uint32 {
	return bit.Place(uint32(e.Trigger), hw.SlotTriggerShift, hw.SlotTriggerBits) |
		bit.Place(uint32(e.Mode), hw.SlotModeShift, hw.SlotModeBits) |
		bit.Place(uint32(e.Address), hw.SlotAddrShift, hw.SlotAddrBits)
}

// Unpack is the inverse of Serialize.
func Unpack(v uint32) breakpoint.Entry {
	return breakpoint.Entry{
		Address: uint16(bit.Field(v, hw.SlotAddrShift, hw.SlotAddrBits)),
		Mode:    breakpoint.Mode(bit.Field(v, hw.SlotModeShift, hw.SlotModeBits)),
		Trigger: trigger.Code(bit.Field(v, hw.SlotTriggerShift, hw.SlotTriggerBits)),
	}
}

// Push shifts a slot value into the comparator chain, least significant
// bit first.
func Push(bus hw.Bus, value uint32) {
	bit.LSBFirst(value, SlotBits, func(b uint8) {
		bus.WriteCommand(hw.CmdLoadBrkpt, b)
	})
}

// Arm rewrites the whole comparator bank from entries and enables
// evaluation. Unused slots are zero-filled so nothing survives from a
// previous arm. It returns the number of slots pushed, always
// breakpoint.Capacity.
func Arm(bus hw.Bus, entries []breakpoint.Entry) int {
	bus.WriteCommand(hw.CmdBrkptEnable, 0)

	pushes := 0
	for _, e := range entries {
		if pushes == breakpoint.Capacity {
			slog.Warn("Dropping breakpoints beyond comparator capacity", "count", len(entries))
			break
		}
		Push(bus, Serialize(e))
		pushes++
	}
	for pushes < breakpoint.Capacity {
		Push(bus, 0)
		pushes++
	}

	bus.WriteCommand(hw.CmdBrkptEnable, 1)
	slog.Debug("Comparators armed", "entries", len(entries), "pushes", pushes)
	return pushes
}

// Disarm turns comparator evaluation off.
func Disarm(bus hw.Bus) {
	bus.WriteCommand(hw.CmdBrkptEnable, 0)
}
