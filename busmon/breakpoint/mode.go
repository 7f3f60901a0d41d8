package breakpoint

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Mode is the set of comparator behaviours attached to one address. Bits
// 0-2 stop the CPU, bits 3-5 only log the access.
type Mode uint8

const (
	InstrBreak Mode = 1 << iota
	ReadBreak
	WriteBreak
	InstrWatch
	ReadWatch
	WriteWatch

	// ModeMask covers every defined mode bit.
	ModeMask Mode = 0x3F

	// BreakMask and WatchMask select the stopping and logging halves.
	BreakMask = InstrBreak | ReadBreak | WriteBreak
	WatchMask = InstrWatch | ReadWatch | WriteWatch

	// MemoryMask covers the modes that compare a data address.
	MemoryMask = ReadBreak | WriteBreak | ReadWatch | WriteWatch
)

var modeNames = [...]string{
	"Instruction breakpoint",
	"Read breakpoint",
	"Write breakpoint",
	"Instruction watch",
	"Read watch",
	"Write watch",
}

// Contains reports whether every bit of other is present in m.
func (m Mode) Contains(other Mode) bool {
	return m&other == other
}

// IsWatch reports whether m has only logging bits.
func (m Mode) IsWatch() bool {
	return m != 0 && m&BreakMask == 0
}

// String lists the set modes, e.g. "Read breakpoint, write watch".
func (m Mode) String() string {
	var sb strings.Builder
	for i, name := range modeNames {
		if m&(1<<i) == 0 {
			continue
		}
		if sb.Len() == 0 {
			sb.WriteString(name)
			continue
		}
		sb.WriteString(", ")
		r, size := utf8.DecodeRuneInString(name)
		sb.WriteRune(unicode.ToLower(r))
		sb.WriteString(name[size:])
	}
	if sb.Len() == 0 {
		return "Undefined"
	}
	return sb.String()
}
