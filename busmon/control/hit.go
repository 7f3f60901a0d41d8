package control

import (
	"fmt"

	"github.com/valerio/go-busmon/busmon/breakpoint"
	"github.com/valerio/go-busmon/busmon/hw"
)

// Hit is a decoded comparator match.
type Hit struct {
	Mode      breakpoint.Mode
	InstrAddr uint16
	DataAddr  uint16

	watch bool
}

// Watch reports whether the board flagged the hit as a watch, which only
// needs logging. The flag holds even when the access kind is empty.
func (h Hit) Watch() bool {
	return h.watch
}

func (h Hit) String() string {
	s := fmt.Sprintf("%s hit at %04X", h.Mode, h.InstrAddr)
	if h.Mode&breakpoint.MemoryMask != 0 {
		s += fmt.Sprintf(" accessing %04X", h.DataAddr)
	}
	return s
}

// Decode expands the board's 4-bit compressed hit mode into the 6-bit mode
// space: the low 3 bits are the access kind, bit 3 moves it to the watch half.
func Decode(raw uint8, instrAddr, dataAddr uint16) Hit {
	kind := breakpoint.Mode(raw & 0x07)
	watch := raw&hw.HitWatch != 0
	mode := kind
	if watch {
		mode = kind << 3
	}
	return Hit{Mode: mode, InstrAddr: instrAddr, DataAddr: dataAddr, watch: watch}
}

// readHit reads the latched hit registers.
func readHit(bus hw.Bus) Hit {
	ia := bus.Read16(hw.RegBWIAL)
	ba := bus.Read16(hw.RegBWBAL)
	raw := bus.Read8(hw.RegBWMode)
	return Decode(raw, ia, ba)
}
