package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valerio/go-busmon/busmon/breakpoint"
	"github.com/valerio/go-busmon/busmon/hw"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		raw      uint8
		mode     breakpoint.Mode
		watch    bool
		expected string
	}{
		{hw.HitInstr, breakpoint.InstrBreak, false, "Instruction breakpoint hit at 1234"},
		{hw.HitRead, breakpoint.ReadBreak, false, "Read breakpoint hit at 1234 accessing 00FF"},
		{hw.HitWrite, breakpoint.WriteBreak, false, "Write breakpoint hit at 1234 accessing 00FF"},
		{hw.HitInstr | hw.HitWatch, breakpoint.InstrWatch, true, "Instruction watch hit at 1234"},
		{hw.HitRead | hw.HitWatch, breakpoint.ReadWatch, true, "Read watch hit at 1234 accessing 00FF"},
		{hw.HitWrite | hw.HitWatch, breakpoint.WriteWatch, true, "Write watch hit at 1234 accessing 00FF"},
		{hw.HitWatch, 0, true, "Undefined hit at 1234"},
		{0, 0, false, "Undefined hit at 1234"},
	}

	for _, tt := range tests {
		h := Decode(tt.raw, 0x1234, 0x00FF)
		assert.Equal(t, tt.mode, h.Mode, "raw %02X", tt.raw)
		assert.Equal(t, tt.watch, h.Watch(), "raw %02X", tt.raw)
		assert.Equal(t, tt.expected, h.String())
	}
}

func TestDecodeIgnoresUpperBits(t *testing.T) {
	h := Decode(0xF0|hw.HitRead, 0, 0)
	assert.Equal(t, breakpoint.ReadBreak, h.Mode)

	h = Decode(0xF0|hw.HitWatch|hw.HitRead, 0, 0)
	assert.Equal(t, breakpoint.ReadWatch, h.Mode)
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "stepping", Stepping.String())
	assert.Equal(t, "armed", Armed.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "breakpoint", StopBreakpoint.String())
	assert.Equal(t, "interrupted", StopInterrupted.String())
}
