// Package breakpoint keeps the software model of the probe's comparator bank:
// an address-ordered, capacity-bounded list of breakpoint and watch entries.
package breakpoint

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/valerio/go-busmon/busmon/trigger"
)

// Capacity is the number of comparator slots on the board.
const Capacity = 8

var (
	ErrStoreFull      = errors.New("breakpoint store full")
	ErrNotFound       = errors.New("breakpoint not found")
	ErrInvalidTrigger = errors.New("invalid trigger code")
	ErrInvalidMode    = errors.New("invalid breakpoint mode")
)

// Entry is one comparator slot's worth of configuration.
type Entry struct {
	Address uint16
	Mode    Mode
	Trigger trigger.Code
}

func (e Entry) String() string {
	return fmt.Sprintf("%04X: %s (trigger: %s)", e.Address, e.Mode, e.Trigger)
}

// Listing pairs an entry with its position in the store.
type Listing struct {
	Index int
	Entry Entry
}

// SetResult describes what Set did to the store.
type SetResult int

const (
	Added SetResult = iota
	Merged
	AlreadySet
)

// ClearResult describes what Clear did to the store.
type ClearResult int

const (
	Cleared ClearResult = iota
	Removed
	NotSet
)

// Store is the ordered breakpoint collection. It reports every change as a
// human-readable line on its output.
type Store struct {
	entries [Capacity]Entry
	count   int

	out    io.Writer
	logger *slog.Logger
}

// NewStore creates an empty store reporting to out. A nil out discards reports.
func NewStore(out io.Writer) *Store {
	if out == nil {
		out = io.Discard
	}
	return &Store{
		out:    out,
		logger: slog.Default(),
	}
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return s.count
}

// Reset empties the store.
func (s *Store) Reset() {
	s.entries = [Capacity]Entry{}
	s.count = 0
}

// Entries returns a copy of the stored entries in address order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, s.count)
	copy(out, s.entries[:s.count])
	return out
}

// At returns the entry at index i. i must satisfy IndexValid.
func (s *Store) At(i int) Entry {
	return s.entries[i]
}

// IndexValid reports whether i names a stored entry.
func (s *Store) IndexValid(i int) bool {
	return i >= 0 && i < s.count
}

// FindByAddress returns the index of the entry at addr.
func (s *Store) FindByAddress(addr uint16) (int, bool) {
	for i := 0; i < s.count; i++ {
		if s.entries[i].Address == addr {
			return i, true
		}
	}
	return -1, false
}

// Set adds mode to the entry at addr, creating it when needed. An explicit
// trigger replaces the entry's trigger; otherwise a merge keeps the existing
// one and a new entry gets trigger.Always.
func (s *Store) Set(addr uint16, mode Mode, explicit *trigger.Code) (SetResult, error) {
	if mode == 0 || mode&^ModeMask != 0 {
		return 0, ErrInvalidMode
	}
	if explicit != nil && !explicit.Valid() {
		fmt.Fprintf(s.out, "Illegal trigger code (see help for trigger codes)\n")
		return 0, ErrInvalidTrigger
	}

	if i, ok := s.FindByAddress(addr); ok {
		e := &s.entries[i]
		if e.Mode.Contains(mode) {
			fmt.Fprintf(s.out, "%s already set at %04X\n", mode, addr)
			return AlreadySet, nil
		}
		e.Mode |= mode
		if explicit != nil {
			e.Trigger = *explicit
		}
		fmt.Fprintf(s.out, "%s set at %04X\n", e.Mode, addr)
		s.logger.Debug("Breakpoint merged", "index", i, "addr", addr, "mode", uint8(e.Mode), "trigger", uint8(e.Trigger))
		return Merged, nil
	}

	if s.count == Capacity {
		fmt.Fprintf(s.out, "All %d breakpoints are already set\n", s.count)
		return 0, ErrStoreFull
	}

	trig := trigger.Always
	if explicit != nil {
		trig = *explicit
	}

	// shift larger addresses up one slot, then drop the new entry in the gap
	i := s.count
	for i > 0 && s.entries[i-1].Address > addr {
		s.entries[i] = s.entries[i-1]
		i--
	}
	s.entries[i] = Entry{Address: addr, Mode: mode, Trigger: trig}
	s.count++

	fmt.Fprintf(s.out, "%s set at %04X\n", mode, addr)
	s.logger.Debug("Breakpoint added", "index", i, "addr", addr, "mode", uint8(mode), "trigger", uint8(trig), "count", s.count)
	return Added, nil
}

// Clear removes mode from the entry at addr. The entry is deleted once its
// last mode bit is gone.
func (s *Store) Clear(addr uint16, mode Mode) (ClearResult, error) {
	i, ok := s.FindByAddress(addr)
	if !ok {
		fmt.Fprintf(s.out, "Breakpoint/watch not set at %04X\n", addr)
		return 0, ErrNotFound
	}
	return s.ClearAt(i, mode)
}

// ClearAt is Clear addressed by store index.
func (s *Store) ClearAt(i int, mode Mode) (ClearResult, error) {
	if mode == 0 || mode&^ModeMask != 0 {
		return 0, ErrInvalidMode
	}
	if !s.IndexValid(i) {
		fmt.Fprintf(s.out, "Breakpoint/watch %d not set\n", i)
		return 0, ErrNotFound
	}

	e := &s.entries[i]
	if !e.Mode.Contains(mode) {
		fmt.Fprintf(s.out, "%s not set at %04X\n", mode, e.Address)
		return NotSet, nil
	}

	fmt.Fprintf(s.out, "Removing %s at %04X\n", mode, e.Address)
	e.Mode &^= mode
	if e.Mode != 0 {
		return Cleared, nil
	}

	addr := e.Address
	copy(s.entries[i:s.count], s.entries[i+1:s.count])
	s.count--
	s.entries[s.count] = Entry{}
	s.logger.Debug("Breakpoint removed", "index", i, "addr", addr, "count", s.count)
	return Removed, nil
}

// SetTrigger replaces the trigger of the entry at index i.
func (s *Store) SetTrigger(i int, code trigger.Code) error {
	if !code.Valid() {
		fmt.Fprintf(s.out, "Illegal trigger code (see help for trigger codes)\n")
		return ErrInvalidTrigger
	}
	if !s.IndexValid(i) {
		fmt.Fprintf(s.out, "Breakpoint/watch %d not set\n", i)
		return ErrNotFound
	}
	s.entries[i].Trigger = code
	fmt.Fprintf(s.out, "%s at %04X trigger: %s\n", s.entries[i].Mode, s.entries[i].Address, code)
	return nil
}

// List returns every entry with its index, in address order.
func (s *Store) List() []Listing {
	out := make([]Listing, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = Listing{Index: i, Entry: s.entries[i]}
	}
	return out
}

// Print writes the listing to the store's output.
func (s *Store) Print() {
	if s.count == 0 {
		fmt.Fprintf(s.out, "No breakpoints set\n")
		return
	}
	for _, l := range s.List() {
		fmt.Fprintf(s.out, "%d: %s\n", l.Index, l.Entry)
	}
}
