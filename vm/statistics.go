package vm

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/gophjp/fjp/isa"
)

// OpcodeStat counts how many times one opcode executed.
type OpcodeStat struct {
	Op    isa.Opcode
	Count uint64
}

// RunStatistics tracks opcode frequency and wall-clock time for a run,
// the kind of summary a teaching VM prints after Run completes so a
// student can see what their program actually did underneath the
// source (spec.md §8 asks for observable, explainable execution).
type RunStatistics struct {
	StartedAt time.Time
	counts    map[isa.Opcode]uint64
	total     uint64
}

// NewRunStatistics returns a statistics collector with its clock
// started.
func NewRunStatistics() *RunStatistics {
	return &RunStatistics{
		StartedAt: time.Now(),
		counts:    make(map[isa.Opcode]uint64),
	}
}

// Record tallies one executed instruction.
func (s *RunStatistics) Record(inst isa.Instruction) {
	s.counts[inst.Op]++
	s.total++
}

// Total returns the number of instructions executed so far.
func (s *RunStatistics) Total() uint64 {
	return s.total
}

// Elapsed returns the time since the collector started.
func (s *RunStatistics) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

// TopOpcodes returns opcode counts sorted by frequency, descending.
func (s *RunStatistics) TopOpcodes() []OpcodeStat {
	stats := make([]OpcodeStat, 0, len(s.counts))
	for op, count := range s.counts {
		stats = append(stats, OpcodeStat{Op: op, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Count > stats[j].Count })
	return stats
}

// WriteReport writes a human-readable run summary.
func (s *RunStatistics) WriteReport(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "instructions executed: %d\nelapsed: %v\n\n", s.total, s.Elapsed()); err != nil {
		return err
	}
	for _, stat := range s.TopOpcodes() {
		if _, err := fmt.Fprintf(w, "%-8s %d\n", stat.Op, stat.Count); err != nil {
			return err
		}
	}
	return nil
}

// ExportJSON exports the statistics as JSON.
func (s *RunStatistics) ExportJSON(w io.Writer) error {
	byName := make(map[string]uint64, len(s.counts))
	for op, count := range s.counts {
		byName[op.String()] = count
	}
	data := map[string]any{
		"total":        s.total,
		"elapsed_ms":   s.Elapsed().Milliseconds(),
		"opcode_count": byName,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
