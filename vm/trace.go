package vm

import (
	"fmt"
	"io"
	"strings"

	"github.com/gophjp/fjp/isa"
)

// TraceEntry is one executed-instruction record: the instruction at the
// address it fetched from, and the register/stack state immediately
// after it ran. This is what feeds stacktrace.txt.
type TraceEntry struct {
	Before StepSnapshot
	Inst   isa.Instruction
	After  StepSnapshot
	Stack  []int // live operand stack after the instruction, bottom-first
}

// ExecutionTrace accumulates a step-by-step record of a run, bounded by
// MaxEntries so a runaway loop can't exhaust memory before it traps.
type ExecutionTrace struct {
	MaxEntries int
	entries    []TraceEntry
}

// NewExecutionTrace returns a trace collector capped at maxEntries
// (0 means unbounded).
func NewExecutionTrace(maxEntries int) *ExecutionTrace {
	return &ExecutionTrace{MaxEntries: maxEntries}
}

// Record appends one step, copying the stack slice since the VM reuses
// its backing array.
func (t *ExecutionTrace) Record(before StepSnapshot, inst isa.Instruction, after StepSnapshot, stack []int) {
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		return
	}
	cp := make([]int, len(stack))
	copy(cp, stack)
	t.entries = append(t.entries, TraceEntry{Before: before, Inst: inst, After: after, Stack: cp})
}

// Entries returns the recorded trace entries.
func (t *ExecutionTrace) Entries() []TraceEntry {
	return t.entries
}

// WriteReport writes the trace in the "PC OP l m | PC BP SP | stack"
// line format a debugger's stacktrace.txt artifact uses.
func (t *ExecutionTrace) WriteReport(w io.Writer) error {
	for _, e := range t.entries {
		vals := make([]string, len(e.Stack))
		for i, v := range e.Stack {
			vals[i] = fmt.Sprintf("%d", v)
		}
		_, err := fmt.Fprintf(w, "%d %s %d %d | %d %d %d | %s\n",
			e.Before.PC, e.Inst.Op, e.Inst.L, e.Inst.M,
			e.After.PC, e.After.BP, e.After.SP,
			strings.Join(vals, " "))
		if err != nil {
			return err
		}
	}
	return nil
}
