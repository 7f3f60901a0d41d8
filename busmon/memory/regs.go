package memory

import (
	"fmt"
	"strings"
)

const statusFlags = "NV-BDIZC"

// Regs is the 6502 register file. The stack pointer is the low byte, the
// stack lives in page one.
type Regs struct {
	A, X, Y, P uint8
	SP         uint8
	PC         uint16
}

// Flags renders P as "NV-BDIZC" with clear flags shown as '-'.
func (r Regs) Flags() string {
	var sb strings.Builder
	for i := 0; i < len(statusFlags); i++ {
		if r.P&(0x80>>i) != 0 {
			sb.WriteByte(statusFlags[i])
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

func (r Regs) String() string {
	return fmt.Sprintf("A=%02X X=%02X Y=%02X SP=01%02X PC=%04X P=%02X %s",
		r.A, r.X, r.Y, r.SP, r.PC, r.P, r.Flags())
}
