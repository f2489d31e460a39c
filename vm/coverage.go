package vm

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// CoverageEntry records how many times one instruction address executed.
type CoverageEntry struct {
	Address        int
	ExecutionCount uint64
}

// CodeCoverage tracks which addresses in a compiled program have run,
// for the "which lines of the grammar actually fired" report a teaching
// VM wants alongside its trace and statistics output.
type CodeCoverage struct {
	CodeLen  int
	executed map[int]*CoverageEntry
}

// NewCodeCoverage creates a coverage tracker for a program of the given
// instruction count.
func NewCodeCoverage(codeLen int) *CodeCoverage {
	return &CodeCoverage{
		CodeLen:  codeLen,
		executed: make(map[int]*CoverageEntry),
	}
}

// Record notes that the instruction at address executed once.
func (c *CodeCoverage) Record(address int) {
	if entry, ok := c.executed[address]; ok {
		entry.ExecutionCount++
		return
	}
	c.executed[address] = &CoverageEntry{Address: address, ExecutionCount: 1}
}

// Percent returns the fraction of instructions executed at least once.
func (c *CodeCoverage) Percent() float64 {
	if c.CodeLen == 0 {
		return 0
	}
	return float64(len(c.executed)) / float64(c.CodeLen) * 100.0
}

// Executed returns the addresses that ran, in ascending order.
func (c *CodeCoverage) Executed() []int {
	addrs := make([]int, 0, len(c.executed))
	for a := range c.executed {
		addrs = append(addrs, a)
	}
	sort.Ints(addrs)
	return addrs
}

// Unexecuted returns addresses in [0, CodeLen) that never ran.
func (c *CodeCoverage) Unexecuted() []int {
	unexec := make([]int, 0)
	for a := 0; a < c.CodeLen; a++ {
		if _, ok := c.executed[a]; !ok {
			unexec = append(unexec, a)
		}
	}
	return unexec
}

// WriteReport writes a human-readable coverage summary.
func (c *CodeCoverage) WriteReport(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "instructions: %d  executed: %d  coverage: %.1f%%\n",
		c.CodeLen, len(c.executed), c.Percent()); err != nil {
		return err
	}
	for _, addr := range c.Unexecuted() {
		if _, err := fmt.Fprintf(w, "[#%03d] never executed\n", addr); err != nil {
			return err
		}
	}
	return nil
}

// ExportJSON exports coverage data as JSON.
func (c *CodeCoverage) ExportJSON(w io.Writer) error {
	data := map[string]any{
		"code_length": c.CodeLen,
		"coverage":    c.Percent(),
		"executed":    c.Executed(),
		"unexecuted":  c.Unexecuted(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
