package hw

import (
	"log/slog"
	"sync"

	"github.com/valerio/go-busmon/busmon/bit"
	"github.com/valerio/go-busmon/busmon/breakpoint"
	"github.com/valerio/go-busmon/busmon/trigger"
)

// Slots is the number of comparators in the bank.
const Slots = breakpoint.Capacity

// Compressed hit mode as latched in RegBWMode: one-hot access kind in the
// low 3 bits, bit 3 set for watches.
const (
	HitInstr uint8 = 0x01
	HitRead  uint8 = 0x02
	HitWrite uint8 = 0x04
	HitWatch uint8 = 0x08
)

// AccessKind is the data access an instruction performs.
type AccessKind uint8

const (
	NoAccess AccessKind = iota
	ReadAccess
	WriteAccess
)

// Cycle is one instruction of a simulated program: its address and at most
// one data access.
type Cycle struct {
	PC     uint16
	Access AccessKind
	Addr   uint16
}

// CPURegs is the target CPU's register file as exposed on mux slots 8-15.
type CPURegs struct {
	A, X, Y, P uint8
	SP, PC     uint16
}

// Op is a recorded control port write.
type Op struct {
	Cmd   Command
	Param uint8
}

type hit struct {
	ia, ba uint16
	mode   uint8
}

// Simulator is an in-memory probe board. It runs a scripted program trace
// against a 208-bit comparator shift chain, latches hits in a FIFO and
// raises the status flags the way the board does.
type Simulator struct {
	mu sync.Mutex

	single      bool
	brkptEnable bool
	resetLine   bool
	halted      bool
	interrupted bool

	chain     [Slots]uint32
	loadCount int

	program []Cycle
	pos     int
	pc      uint16

	t0, t1 bool
	fifo   []hit

	mem    [0x10000]byte
	memReg uint32 // 24-bit shift register: address in bits 8-23, data in 0-7
	data   uint8
	regs   CPURegs

	polls          int
	interruptAfter int
	onPoll         func(polls int)
	log            []Op
	logger         *slog.Logger
}

var _ Bus = (*Simulator)(nil)

// NewSimulator creates a board with single stepping enabled and no program.
func NewSimulator() *Simulator {
	return &Simulator{
		single: true,
		logger: slog.Default(),
	}
}

// SetProgram replaces the instruction trace. Execution wraps around at the end.
func (s *Simulator) SetProgram(program []Cycle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = append([]Cycle(nil), program...)
	s.pos = 0
}

// SetTriggerInputs drives the external trigger lines.
func (s *Simulator) SetTriggerInputs(t0, t1 bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t0, s.t1 = t0, t1
}

// SetRegisters loads the CPU register file.
func (s *Simulator) SetRegisters(r CPURegs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs = r
}

// Poke writes target memory directly.
func (s *Simulator) Poke(addr uint16, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range data {
		s.mem[addr+uint16(i)] = b
	}
}

// Peek reads target memory directly.
func (s *Simulator) Peek(addr uint16) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem[addr]
}

// Interrupt raises the external interrupt and halts the target.
func (s *Simulator) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interrupted = true
	s.halted = true
}

// InterruptAfter raises the interrupt on the n-th free-running status poll.
// Zero disables it.
func (s *Simulator) InterruptAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interruptAfter = n
	s.polls = 0
}

// OnPoll registers a hook called, without the lock held, after every
// free-running status poll.
func (s *Simulator) OnPoll(fn func(polls int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPoll = fn
}

// InjectHit latches a hit as if a comparator had matched.
func (s *Simulator) InjectHit(ia, ba uint16, mode uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fifo = append(s.fifo, hit{ia: ia, ba: ba, mode: mode})
	if mode&HitWatch == 0 {
		s.halted = true
	}
}

// Slots returns the comparator chain contents, slot 0 first.
func (s *Simulator) Slots() [Slots]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chain
}

// LoadCount returns the breakpoint bits shifted in since comparators were
// last disabled.
func (s *Simulator) LoadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadCount
}

// SingleStepping reports whether the board is in single step mode.
func (s *Simulator) SingleStepping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.single
}

// ComparatorsEnabled reports whether breakpoint evaluation is on.
func (s *Simulator) ComparatorsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brkptEnable
}

// PendingHits returns the number of unacknowledged hits.
func (s *Simulator) PendingHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fifo)
}

// Ops returns the recorded control port writes.
func (s *Simulator) Ops() []Op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Op(nil), s.log...)
}

// ClearOps discards the recorded control port writes.
func (s *Simulator) ClearOps() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = nil
}

// Count returns how many times cmd was written since the log was cleared.
func (s *Simulator) Count(cmd Command) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, op := range s.log {
		if op.Cmd == cmd {
			n++
		}
	}
	return n
}

func (s *Simulator) WriteCommand(cmd Command, param uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	param &= 1
	s.log = append(s.log, Op{Cmd: cmd, Param: param})

	switch cmd {
	case CmdSingleEnable:
		s.single = param == 1
		if s.single {
			s.interrupted = false
		} else {
			s.halted = false
		}
	case CmdBrkptEnable:
		s.brkptEnable = param == 1
		if !s.brkptEnable {
			s.loadCount = 0
		}
	case CmdLoadBrkpt:
		s.shiftBreakpointBit(param)
	case CmdReset:
		if param == 1 && !s.resetLine {
			s.pos = 0
			s.pc = 0
			s.halted = false
		}
		s.resetLine = param == 1
	case CmdStep:
		if s.single && !s.resetLine {
			s.execute(false)
		}
	case CmdWatchRead:
		if len(s.fifo) > 0 {
			s.fifo = s.fifo[1:]
		}
	case CmdFIFOReset:
		s.fifo = nil
	case CmdLoadMem:
		s.memReg = (s.memReg >> 1) | uint32(param)<<23
	case CmdReadMem:
		addr := uint16(s.memReg >> 8)
		s.data = s.mem[addr]
		s.setMemAddr(addr + 1)
	case CmdWriteMem:
		addr := uint16(s.memReg >> 8)
		s.mem[addr] = uint8(s.memReg)
		s.setMemAddr(addr + 1)
	default:
		s.logger.Warn("Simulator received unknown command", "cmd", uint8(cmd))
	}
}

func (s *Simulator) Read8(reg Register) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var head hit
	if len(s.fifo) > 0 {
		head = s.fifo[0]
	}

	switch reg & Register(MuxMask) {
	case RegIAL:
		return bit.Low(s.currentPC())
	case RegIAH:
		return bit.High(s.currentPC())
	case RegBWIAL:
		return bit.Low(head.ia)
	case RegBWIAH:
		return bit.High(head.ia)
	case RegBWBAL:
		return bit.Low(head.ba)
	case RegBWBAH:
		return bit.High(head.ba)
	case RegBWMode:
		return head.mode
	case RegData:
		return s.data
	case RegA:
		return s.regs.A
	case RegX:
		return s.regs.X
	case RegY:
		return s.regs.Y
	case RegP:
		return s.regs.P
	case RegSPL:
		return bit.Low(s.regs.SP)
	case RegSPH:
		return bit.High(s.regs.SP)
	case RegPCL:
		return bit.Low(s.regs.PC)
	default:
		return bit.High(s.regs.PC)
	}
}

func (s *Simulator) Read16(reg Register) uint16 {
	return Read16(s, reg)
}

// Status samples the status port. While the target is free running each
// sample also executes one instruction.
func (s *Simulator) Status() Status {
	s.mu.Lock()

	var hook func(int)
	if !s.single {
		s.polls++
		if !s.halted && !s.resetLine {
			s.execute(true)
		}
		if s.interruptAfter > 0 && s.polls >= s.interruptAfter {
			s.interrupted = true
			s.halted = true
			s.interruptAfter = 0
		}
		hook = s.onPoll
	}

	var st Status
	if s.interrupted {
		st |= StatusInterrupted
	}
	if len(s.fifo) > 0 {
		st |= StatusActive
	}
	polls := s.polls
	s.mu.Unlock()

	if hook != nil {
		hook(polls)
	}
	return st
}

func (s *Simulator) currentPC() uint16 {
	if len(s.program) == 0 {
		return s.pc
	}
	return s.program[s.pos].PC
}

func (s *Simulator) setMemAddr(addr uint16) {
	s.memReg = uint32(addr)<<8 | s.memReg&0xFF
}

func (s *Simulator) shiftBreakpointBit(b uint8) {
	carry := uint32(b & 1)
	for i := Slots - 1; i >= 0; i-- {
		out := s.chain[i] & 1
		s.chain[i] = (s.chain[i] >> 1) | carry<<(SlotBits-1)
		carry = out
	}
	s.loadCount++
}

// execute runs the current instruction. With compare set, the comparator
// bank is consulted before the fetch and after the data access.
func (s *Simulator) execute(compare bool) {
	if len(s.program) == 0 {
		s.pc++
		return
	}

	c := s.program[s.pos]
	if compare && s.brkptEnable {
		if s.match(c.PC, breakpoint.InstrBreak, c.PC, c.PC, HitInstr) {
			// halt before the fetch, the instruction stays current
			return
		}
		s.match(c.PC, breakpoint.InstrWatch, c.PC, c.PC, HitInstr|HitWatch)
	}

	s.pos = (s.pos + 1) % len(s.program)

	if !compare || !s.brkptEnable {
		return
	}
	switch c.Access {
	case ReadAccess:
		if !s.match(c.Addr, breakpoint.ReadBreak, c.PC, c.Addr, HitRead) {
			s.match(c.Addr, breakpoint.ReadWatch, c.PC, c.Addr, HitRead|HitWatch)
		}
	case WriteAccess:
		if !s.match(c.Addr, breakpoint.WriteBreak, c.PC, c.Addr, HitWrite) {
			s.match(c.Addr, breakpoint.WriteWatch, c.PC, c.Addr, HitWrite|HitWatch)
		}
	}
}

// match checks every slot for addr with mode set and a true trigger,
// latching one hit for the first match. Breakpoint matches halt the target.
func (s *Simulator) match(addr uint16, mode breakpoint.Mode, ia, ba uint16, hitMode uint8) bool {
	for _, v := range s.chain {
		slotAddr := uint16(bit.Field(v, SlotAddrShift, SlotAddrBits))
		slotMode := breakpoint.Mode(bit.Field(v, SlotModeShift, SlotModeBits))
		slotTrigger := trigger.Code(bit.Field(v, SlotTriggerShift, SlotTriggerBits))

		if slotAddr != addr || slotMode&mode == 0 {
			continue
		}
		if !trigger.Evaluate(slotTrigger, s.t0, s.t1) {
			continue
		}
		s.fifo = append(s.fifo, hit{ia: ia, ba: ba, mode: hitMode})
		if hitMode&HitWatch == 0 {
			s.halted = true
		}
		return true
	}
	return false
}
