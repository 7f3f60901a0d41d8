// Package hw is the probe board's hardware boundary: a 5-bit command port
// with a strobe edge, a 16-way multiplexed 8-bit read port, and a status port.
package hw

import (
	"github.com/valerio/go-busmon/busmon/bit"
)

// Command is a board command code, written to the low bits of the control
// port together with a one-bit parameter.
type Command uint8

const (
	CmdSingleEnable Command = 0x00
	CmdBrkptEnable  Command = 0x02
	CmdLoadBrkpt    Command = 0x04
	CmdReset        Command = 0x06
	CmdStep         Command = 0x08
	CmdWatchRead    Command = 0x09
	CmdFIFOReset    Command = 0x0A
	CmdLoadMem      Command = 0x0C
	CmdReadMem      Command = 0x0E
	CmdWriteMem     Command = 0x0F
)

// Control port bits.
const (
	CmdMask uint8 = 0x1F
	CmdEdge uint8 = 0x10
)

func (c Command) String() string {
	switch c {
	case CmdSingleEnable:
		return "single-enable"
	case CmdBrkptEnable:
		return "brkpt-enable"
	case CmdLoadBrkpt:
		return "load-brkpt"
	case CmdReset:
		return "reset"
	case CmdStep:
		return "step"
	case CmdWatchRead:
		return "watch-read"
	case CmdFIFOReset:
		return "fifo-reset"
	case CmdLoadMem:
		return "load-mem"
	case CmdReadMem:
		return "read-mem"
	case CmdWriteMem:
		return "write-mem"
	default:
		return "unknown"
	}
}

// Register is a multiplexer offset on the read port.
type Register uint8

const (
	RegIAL    Register = 0 // current instruction address
	RegIAH    Register = 1
	RegBWIAL  Register = 2 // instruction address of the last hit
	RegBWIAH  Register = 3
	RegBWBAL  Register = 4 // data address of the last hit
	RegBWBAH  Register = 5
	RegBWMode Register = 6 // compressed mode of the last hit
	RegData   Register = 7
	RegA      Register = 8
	RegX      Register = 9
	RegY      Register = 10
	RegP      Register = 11
	RegSPL    Register = 12
	RegSPH    Register = 13
	RegPCL    Register = 14
	RegPCH    Register = 15

	// MuxMask selects the 4 multiplexer lines.
	MuxMask uint8 = 0x0F
)

// Comparator slot layout, most significant first: trigger code, mode bits,
// address. Slots are shifted in least significant bit first.
const (
	SlotAddrShift    = 0
	SlotAddrBits     = 16
	SlotModeShift    = SlotAddrShift + SlotAddrBits
	SlotModeBits     = 6
	SlotTriggerShift = SlotModeShift + SlotModeBits
	SlotTriggerBits  = 4

	// SlotBits is the width of one comparator slot.
	SlotBits = SlotTriggerShift + SlotTriggerBits
)

// Status is a sample of the status port.
type Status uint8

const (
	StatusInterrupted Status = 0x40
	StatusActive      Status = 0x80
)

// Interrupted reports that the target halted on an external signal.
func (s Status) Interrupted() bool {
	return s&StatusInterrupted != 0
}

// Active reports that a comparator matched and has not been acknowledged.
func (s Status) Active() bool {
	return s&StatusActive != 0
}

// Bus is synchronous access to the board. Every call completes its own
// settle delays before returning.
type Bus interface {
	// WriteCommand writes cmd|param to the control port and strobes it.
	WriteCommand(cmd Command, param uint8)
	// Read8 selects reg on the multiplexer and reads it.
	Read8(reg Register) uint8
	// Read16 reads reg and reg+1 as a little-endian word.
	Read16(reg Register) uint16
	// Status samples the status port.
	Status() Status
}

// Read16 composes a little-endian word from two consecutive mux slots.
// The two reads are not atomic; callers read fields that are stable while
// the target is halted or the hit is latched.
func Read16(b Bus, reg Register) uint16 {
	lo := b.Read8(reg)
	hi := b.Read8(reg + 1)
	return bit.Combine(hi, lo)
}
