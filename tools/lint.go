package tools

import (
	"fmt"
	"sort"

	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/symtab"
)

// LintLevel represents the severity of a lint issue.
type LintLevel int

const (
	LintError   LintLevel = iota // would prevent correct execution
	LintWarning                  // likely mistake, program still runs
	LintInfo                     // style/cleanliness suggestion
)

func (l LintLevel) String() string {
	switch l {
	case LintError:
		return "error"
	case LintWarning:
		return "warning"
	case LintInfo:
		return "info"
	default:
		return "unknown"
	}
}

// LintIssue is a single static-analysis finding. Address is the
// instruction index the issue is anchored to; the compiled instruction
// vector carries no source line information, so address is the only
// location a finding can report.
type LintIssue struct {
	Level   LintLevel
	Address int
	Message string
	Code    string // e.g. "UNREACHABLE_CODE", "UNUSED_LABEL", "UNUSED_CONST"
}

func (i LintIssue) String() string {
	return fmt.Sprintf("[#%03d] %s: %s [%s]", i.Address, i.Level, i.Message, i.Code)
}

// Lint runs a set of static checks over a compiled program with no VM
// execution: unreachable code after an unconditional jump, labels that
// are never the target of a goto, consts that are never read, and
// arrays declared with a non-positive size.
func Lint(prog *isa.Program, symbols *symtab.Table) []LintIssue {
	var issues []LintIssue

	targets := jumpTargets(prog.Code)
	issues = append(issues, lintUnreachable(prog.Code, targets)...)
	issues = append(issues, lintUnusedLabels(symbols, targets)...)
	issues = append(issues, lintUnusedConsts(symbols, prog.Code)...)
	issues = append(issues, lintNonPositiveArraySize(symbols)...)

	sort.SliceStable(issues, func(a, b int) bool {
		return issues[a].Address < issues[b].Address
	})
	return issues
}

// jumpTargets collects every address a JMP, JPC or CAL instruction can
// transfer control to, anywhere in the program. It is the set of
// addresses reachable other than by straight-line fall-through.
func jumpTargets(code []isa.Instruction) map[int]bool {
	targets := make(map[int]bool)
	for _, inst := range code {
		switch inst.Op {
		case isa.JMP, isa.JPC, isa.CAL:
			targets[inst.M] = true
		}
	}
	return targets
}

// lintUnreachable flags instructions that can only be reached by
// falling through from a preceding unconditional exit (JMP, a RET
// selector, or a halt) and are not themselves the target of any jump.
// Compiler-generated jumps for loops and if/else use the same JMP
// opcode as a user goto, so a target is anything any JMP/JPC/CAL in the
// whole program refers to - that is what keeps ordinary loop back-edges
// and if/else skip-overs from being misreported as dead code.
func lintUnreachable(code []isa.Instruction, targets map[int]bool) []LintIssue {
	var issues []LintIssue
	reachable := true
	for addr, inst := range code {
		if targets[addr] {
			reachable = true
		}
		if !reachable {
			issues = append(issues, LintIssue{
				Level:   LintWarning,
				Address: addr,
				Message: "instruction is never reached",
				Code:    "UNREACHABLE_CODE",
			})
		}
		switch {
		case inst.Op == isa.JMP:
			reachable = false
		case inst.Op == isa.OPR && isa.OPRSelector(inst.M) == isa.RET:
			reachable = false
		case inst.Op == isa.SIO && isa.SIOSelector(inst.M) == isa.SIOHalt:
			reachable = false
		default:
			reachable = true
		}
	}
	return issues
}

// lintUnusedLabels flags user labels that no JMP/JPC/CAL in the program
// ever targets. A label's Address is the instruction emitted right
// after the colon, so membership in targets means some goto (or,
// harmlessly, an internal jump that happens to land on the same
// address) reaches it.
func lintUnusedLabels(symbols *symtab.Table, targets map[int]bool) []LintIssue {
	var issues []LintIssue
	for _, sym := range symbols.All() {
		if sym.Kind != symtab.Label {
			continue
		}
		if !targets[sym.Address] {
			issues = append(issues, LintIssue{
				Level:   LintWarning,
				Address: sym.Address,
				Message: fmt.Sprintf("label %q is declared but never reached by a goto", sym.Name),
				Code:    "UNUSED_LABEL",
			})
		}
	}
	return issues
}

// lintUnusedConsts flags consts that look unread. The parser inlines
// every const read as a bare LIT carrying the const's value (see
// factor parsing in package parser), so the compiled code keeps no
// link back to which symbol, if any, a LIT came from. This check is a
// value-match heuristic: a const is reported only if no LIT anywhere
// in the program carries its exact value. Two consts sharing a value,
// or an unrelated literal that happens to equal a const's value, can
// hide a real miss or raise a false one; it is the best this
// representation can support without re-threading source positions
// through code generation.
func lintUnusedConsts(symbols *symtab.Table, code []isa.Instruction) []LintIssue {
	literalValues := make(map[int]bool)
	for _, inst := range code {
		if inst.Op == isa.LIT {
			literalValues[inst.M] = true
		}
	}

	var issues []LintIssue
	for _, sym := range symbols.All() {
		if sym.Kind != symtab.Const {
			continue
		}
		if !literalValues[sym.Value] {
			issues = append(issues, LintIssue{
				Level:   LintInfo,
				Address: 0,
				Message: fmt.Sprintf("const %q may be unused (no literal %d found in compiled code)", sym.Name, sym.Value),
				Code:    "UNUSED_CONST",
			})
		}
	}
	return issues
}

// lintNonPositiveArraySize flags arrays whose declared size is not
// positive. The parser already rejects this at compile time (see
// arraySize in package parser), so in practice Lint only ever sees
// programs where this cannot fire; the check stays as a direct
// reflection of the symbol table's invariant.
func lintNonPositiveArraySize(symbols *symtab.Table) []LintIssue {
	var issues []LintIssue
	for _, sym := range symbols.All() {
		if !sym.IsArray() {
			continue
		}
		if sym.Size <= 0 {
			issues = append(issues, LintIssue{
				Level:   LintError,
				Address: sym.Address,
				Message: fmt.Sprintf("array %q has a non-positive size %d", sym.Name, sym.Size),
				Code:    "BAD_ARRAY_SIZE",
			})
		}
	}
	return issues
}
