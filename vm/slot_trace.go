package vm

import (
	"fmt"
	"io"
	"sort"
)

// SlotWrite records one write to a stack slot via STO or STA.
type SlotWrite struct {
	PC       int
	Address  int
	OldValue int
	NewValue int
}

// SlotTrace records every write to an addressable stack slot, so a
// debugger watchpoint can report exactly when and where a variable's
// value changed without re-diffing the whole stack on every step.
type SlotTrace struct {
	MaxEntries int
	entries    []SlotWrite
	watch      map[int]bool // addresses of interest; nil/empty means watch all
}

// NewSlotTrace returns a slot-write tracker capped at maxEntries
// (0 means unbounded).
func NewSlotTrace(maxEntries int) *SlotTrace {
	return &SlotTrace{MaxEntries: maxEntries}
}

// Watch restricts recording to the given addresses. Called with no
// arguments, it clears any restriction and watches every address.
func (s *SlotTrace) Watch(addrs ...int) {
	s.watch = make(map[int]bool, len(addrs))
	for _, a := range addrs {
		s.watch[a] = true
	}
}

// Record notes a write to addr, skipping it if a watch list is set and
// addr isn't in it.
func (s *SlotTrace) Record(pc, addr, oldValue, newValue int) {
	if len(s.watch) > 0 && !s.watch[addr] {
		return
	}
	if s.MaxEntries > 0 && len(s.entries) >= s.MaxEntries {
		return
	}
	s.entries = append(s.entries, SlotWrite{PC: pc, Address: addr, OldValue: oldValue, NewValue: newValue})
}

// Entries returns all recorded writes in execution order.
func (s *SlotTrace) Entries() []SlotWrite {
	return s.entries
}

// ForAddress returns the writes recorded for one slot, in order.
func (s *SlotTrace) ForAddress(addr int) []SlotWrite {
	out := make([]SlotWrite, 0)
	for _, e := range s.entries {
		if e.Address == addr {
			out = append(out, e)
		}
	}
	return out
}

// HotAddresses returns the written-to addresses ordered by write count,
// most-written first.
func (s *SlotTrace) HotAddresses() []int {
	counts := make(map[int]int)
	for _, e := range s.entries {
		counts[e.Address]++
	}
	addrs := make([]int, 0, len(counts))
	for a := range counts {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return counts[addrs[i]] > counts[addrs[j]] })
	return addrs
}

// WriteReport writes every recorded write, one per line.
func (s *SlotTrace) WriteReport(w io.Writer) error {
	for _, e := range s.entries {
		if _, err := fmt.Fprintf(w, "[#%03d] slot %d: %d -> %d\n", e.PC, e.Address, e.OldValue, e.NewValue); err != nil {
			return err
		}
	}
	return nil
}
