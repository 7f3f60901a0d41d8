package control

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-busmon/busmon/breakpoint"
	"github.com/valerio/go-busmon/busmon/hw"
	"github.com/valerio/go-busmon/busmon/timing"
	"github.com/valerio/go-busmon/busmon/trigger"
)

type transition struct{ from, to State }

type fixture struct {
	sim         *hw.Simulator
	store       *breakpoint.Store
	ctrl        *Controller
	out         *bytes.Buffer
	transitions []transition
	delays      []time.Duration
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		sim: hw.NewSimulator(),
		out: &bytes.Buffer{},
	}
	f.store = breakpoint.NewStore(f.out)

	cfg := DefaultConfig()
	cfg.Delay = timing.Func(func(d time.Duration) { f.delays = append(f.delays, d) })

	opts = append([]Option{
		WithConfig(cfg),
		WithStateHook(func(from, to State) { f.transitions = append(f.transitions, transition{from, to}) }),
	}, opts...)
	f.ctrl = New(f.sim, f.store, f.out, opts...)
	f.ctrl.Init()

	f.out.Reset()
	f.sim.ClearOps()
	f.delays = nil
	return f
}

func (f *fixture) lines() []string {
	return strings.Split(strings.TrimSuffix(f.out.String(), "\n"), "\n")
}

type fakeInput struct {
	pending   bool
	discarded int
}

func (in *fakeInput) Pending() bool { return in.pending }
func (in *fakeInput) Discard() {
	in.discarded++
	in.pending = false
}

type recordingDisplay struct{ addrs []uint16 }

func (d *recordingDisplay) ShowAddress(addr uint16) { d.addrs = append(d.addrs, addr) }

func TestInit(t *testing.T) {
	sim := hw.NewSimulator()
	var out bytes.Buffer
	store := breakpoint.NewStore(&out)
	_, err := store.Set(0x1234, breakpoint.InstrBreak, nil)
	require.NoError(t, err)

	c := New(sim, store, &out, WithConfig(Config{Delay: timing.NewNoOpDelayer()}))
	c.Init()

	assert.Equal(t, Stepping, c.State())
	assert.Zero(t, store.Len(), "breakpoints are cleared at startup")
	assert.Equal(t, 1, c.Trace())
	assert.Equal(t, []hw.Op{
		{Cmd: hw.CmdReset, Param: 0},
		{Cmd: hw.CmdFIFOReset, Param: 0},
		{Cmd: hw.CmdSingleEnable, Param: 1},
	}, sim.Ops())
	assert.Contains(t, out.String(), "Tracing every 1 instructions while single stepping\n")
}

func TestReset(t *testing.T) {
	f := newFixture(t)

	f.ctrl.Reset()

	assert.Equal(t, []hw.Op{{Cmd: hw.CmdReset, Param: 1}, {Cmd: hw.CmdReset, Param: 0}}, f.sim.Ops())
	assert.Equal(t, []time.Duration{timing.ResetHold}, f.delays)
	assert.Equal(t, "Resetting 6502\n", f.out.String())
}

func TestStepTracing(t *testing.T) {
	tests := []struct {
		name       string
		count      int
		traceEvery int
		expected   []string
	}{
		{
			name:       "trace every second step",
			count:      5,
			traceEvery: 2,
			expected:   []string{"Stepping 5 instructions", "0002", "0004", "0005"},
		},
		{
			name:       "no tracing reports only the last",
			count:      3,
			traceEvery: 0,
			expected:   []string{"Stepping 3 instructions", "0003"},
		},
		{
			name:       "trace every step",
			count:      2,
			traceEvery: 1,
			expected:   []string{"Stepping 2 instructions", "0001", "0002"},
		},
		{
			name:       "trace interval longer than count",
			count:      2,
			traceEvery: 10,
			expected:   []string{"Stepping 2 instructions", "0002"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			require.NoError(t, f.ctrl.Step(tt.count, tt.traceEvery))

			assert.Equal(t, tt.expected, f.lines())
			assert.Equal(t, tt.count, f.sim.Count(hw.CmdStep))
			assert.Equal(t, Stepping, f.ctrl.State())
		})
	}
}

func TestStepSettlesBeforeReport(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Step(1, 0))
	assert.Equal(t, []time.Duration{timing.StepSettle}, f.delays)
}

func TestStepInvalidCount(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.ctrl.Step(0, 0), ErrInvalidCount)
	assert.ErrorIs(t, f.ctrl.Step(-3, 0), ErrInvalidCount)
	assert.ErrorIs(t, f.ctrl.Step(1, -1), ErrInvalidCount)
	assert.Zero(t, f.sim.Count(hw.CmdStep))
}

func TestStepWhileFreeRunning(t *testing.T) {
	f := newFixture(t)

	var stepErr error
	f.sim.OnPoll(func(polls int) {
		if polls == 1 {
			stepErr = f.ctrl.Step(1, 0)
			f.sim.Interrupt()
		}
	})

	_, err := f.ctrl.Continue()
	require.NoError(t, err)
	assert.ErrorIs(t, stepErr, ErrNotStepping)
	assert.Contains(t, f.out.String(), "Target is free running, stop it before stepping\n")
}

func TestContinueWatchThenBreakpoint(t *testing.T) {
	f := newFixture(t)
	f.sim.SetProgram([]hw.Cycle{
		{PC: 0x0200},
		{PC: 0x0202, Access: hw.WriteAccess, Addr: 0x8000},
		{PC: 0x0205},
		{PC: 0x0208},
		{PC: 0x020B},
	})
	_, err := f.store.Set(0x8000, breakpoint.WriteWatch, nil)
	require.NoError(t, err)
	_, err = f.store.Set(0x0208, breakpoint.InstrBreak, nil)
	require.NoError(t, err)
	f.out.Reset()

	stop, err := f.ctrl.Continue()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"6502 free running...",
		"Write watch hit at 0202 accessing 8000",
		"Instruction breakpoint hit at 0208",
		"0208",
	}, f.lines())

	assert.Equal(t, StopBreakpoint, stop.Reason)
	assert.Equal(t, Hit{Mode: breakpoint.InstrBreak, InstrAddr: 0x0208, DataAddr: 0x0208}, stop.Hit)
	assert.Equal(t, 1, stop.Watches)
	assert.Equal(t, uint16(0x0208), stop.Addr)

	assert.Equal(t, []transition{{Stepping, Armed}, {Armed, Stopped}, {Stopped, Stepping}}, f.transitions)
	assert.Equal(t, Stepping, f.ctrl.State())
	assert.True(t, f.sim.SingleStepping())
	assert.False(t, f.sim.ComparatorsEnabled())
	assert.Equal(t, breakpoint.Capacity*hw.SlotBits, f.sim.Count(hw.CmdLoadBrkpt))
	assert.Equal(t, 2, f.sim.Count(hw.CmdWatchRead))
}

func TestContinueSequence(t *testing.T) {
	f := newFixture(t)
	f.sim.InterruptAfter(1)

	_, err := f.ctrl.Continue()
	require.NoError(t, err)

	var ops []hw.Op
	for _, op := range f.sim.Ops() {
		if op.Cmd != hw.CmdLoadBrkpt {
			ops = append(ops, op)
		}
	}
	assert.Equal(t, []hw.Op{
		{Cmd: hw.CmdStep, Param: 0},
		{Cmd: hw.CmdBrkptEnable, Param: 0},
		{Cmd: hw.CmdBrkptEnable, Param: 1},
		{Cmd: hw.CmdSingleEnable, Param: 0},
		{Cmd: hw.CmdSingleEnable, Param: 1},
		{Cmd: hw.CmdBrkptEnable, Param: 0},
	}, ops)
}

func TestContinueSkipsCurrentBreakpoint(t *testing.T) {
	f := newFixture(t)
	f.sim.SetProgram([]hw.Cycle{{PC: 0x0300}, {PC: 0x0301}, {PC: 0x0302}})
	_, err := f.store.Set(0x0300, breakpoint.InstrBreak, nil)
	require.NoError(t, err)

	// stopped at 0x0300; the first step moves past it
	stop, err := f.ctrl.Continue()
	require.NoError(t, err)
	assert.Equal(t, StopBreakpoint, stop.Reason)
	assert.Equal(t, uint16(0x0300), stop.Addr, "stops at the breakpoint after wrapping around")

	stop, err = f.ctrl.Continue()
	require.NoError(t, err)
	assert.Equal(t, StopBreakpoint, stop.Reason)
	assert.Equal(t, uint16(0x0300), stop.Hit.InstrAddr)
}

func TestContinueInjectedWatchDoesNotStop(t *testing.T) {
	f := newFixture(t)
	f.sim.OnPoll(func(polls int) {
		switch polls {
		case 1:
			f.sim.InjectHit(0x1000, 0x00FE, hw.HitRead|hw.HitWatch)
		case 2:
			f.sim.InjectHit(0x1003, 0x0000, hw.HitInstr|hw.HitWatch)
		case 4:
			f.sim.InjectHit(0x1010, 0x2000, hw.HitWrite)
		}
	})

	stop, err := f.ctrl.Continue()
	require.NoError(t, err)

	assert.Equal(t, StopBreakpoint, stop.Reason)
	assert.Equal(t, 2, stop.Watches)
	assert.Equal(t, breakpoint.WriteBreak, stop.Hit.Mode)
	assert.Equal(t, []string{
		"6502 free running...",
		"Read watch hit at 1000 accessing 00FE",
		"Instruction watch hit at 1003",
		"Write breakpoint hit at 1010 accessing 2000",
	}, f.lines()[:4])
	assert.Zero(t, f.sim.PendingHits())
}

func TestContinueEmptyWatchKeepsRunning(t *testing.T) {
	f := newFixture(t)
	f.sim.InterruptAfter(3)
	f.sim.OnPoll(func(polls int) {
		if polls == 1 {
			f.sim.InjectHit(0x1000, 0x0000, hw.HitWatch)
		}
	})

	stop, err := f.ctrl.Continue()
	require.NoError(t, err)

	assert.Equal(t, StopInterrupted, stop.Reason)
	assert.Equal(t, 1, stop.Watches)
	assert.Equal(t, []string{
		"6502 free running...",
		"Undefined hit at 1000",
		"Interrupted",
	}, f.lines()[:3])
	assert.Zero(t, f.sim.PendingHits())
}

func TestContinueInterruptFlag(t *testing.T) {
	f := newFixture(t)
	f.sim.InterruptAfter(4)

	stop, err := f.ctrl.Continue()
	require.NoError(t, err)

	assert.Equal(t, StopInterrupted, stop.Reason)
	assert.Zero(t, stop.Watches)
	assert.NotContains(t, f.out.String(), "hit at")
	assert.Equal(t, "Interrupted", f.lines()[1])
	assert.Equal(t, Stepping, f.ctrl.State())
	assert.Zero(t, f.sim.Count(hw.CmdWatchRead))

	pollDelays := 0
	for _, d := range f.delays {
		if d == timing.PollInterval {
			pollDelays++
		}
	}
	assert.Equal(t, 3, pollDelays, "one poll interval between each of the 4 polls")
}

func TestContinuePendingInput(t *testing.T) {
	in := &fakeInput{}
	f := newFixture(t, WithInput(in))
	f.sim.OnPoll(func(polls int) {
		if polls == 3 {
			in.pending = true
		}
	})

	stop, err := f.ctrl.Continue()
	require.NoError(t, err)

	assert.Equal(t, StopInterrupted, stop.Reason)
	assert.Equal(t, 1, in.discarded, "the interrupting byte is consumed")
	assert.Contains(t, f.out.String(), "Interrupted\n")
}

func TestContinueUpdatesDisplay(t *testing.T) {
	d := &recordingDisplay{}
	f := newFixture(t, WithDisplay(d))
	f.sim.InterruptAfter(2)

	_, err := f.ctrl.Continue()
	require.NoError(t, err)

	// one refresh per poll plus the final report
	require.Len(t, d.addrs, 3)
	assert.Equal(t, f.sim.Read16(hw.RegIAL), d.addrs[2])
}

func TestContinueWithTriggeredBreakpoint(t *testing.T) {
	f := newFixture(t)
	f.sim.SetProgram([]hw.Cycle{
		{PC: 0x0400, Access: hw.ReadAccess, Addr: 0x00FE},
		{PC: 0x0402},
	})
	code := trigger.Code(12) // T1
	_, err := f.store.Set(0x00FE, breakpoint.ReadBreak, &code)
	require.NoError(t, err)

	f.sim.OnPoll(func(polls int) {
		if polls == 6 {
			f.sim.SetTriggerInputs(false, true)
		}
	})

	stop, err := f.ctrl.Continue()
	require.NoError(t, err)
	assert.Equal(t, StopBreakpoint, stop.Reason)
	assert.Equal(t, "Read breakpoint hit at 0400 accessing 00FE", stop.Hit.String())
}

func TestContinueWhileRunning(t *testing.T) {
	f := newFixture(t)

	var nested error
	f.sim.OnPoll(func(polls int) {
		_, nested = f.ctrl.Continue()
		f.sim.Interrupt()
	})

	_, err := f.ctrl.Continue()
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrNotStepping)
}

func TestSetTrace(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.ctrl.SetTrace(0))
	assert.Equal(t, 0, f.ctrl.Trace())
	assert.Equal(t, "Tracing disabled\n", f.out.String())

	assert.ErrorIs(t, f.ctrl.SetTrace(-1), ErrInvalidCount)
	assert.Equal(t, 0, f.ctrl.Trace())
}

func TestFormatter(t *testing.T) {
	f := newFixture(t, WithFormatter(func(_ hw.Bus, addr uint16) string { return "at " + string(rune('A'+addr)) }))
	f.ctrl.ReportAddress()
	assert.Equal(t, "at A\n", f.out.String())
}

func TestDo(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Do(func(bus hw.Bus) {
		bus.WriteCommand(hw.CmdFIFOReset, 0)
	})
	assert.Equal(t, 1, f.sim.Count(hw.CmdFIFOReset))
}

func TestAddress(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ctrl.Step(2, 0))
	f.out.Reset()

	assert.Equal(t, uint16(2), f.ctrl.Address())
	assert.Empty(t, f.out.String())
}
