package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/symtab"
)

// AccessKind classifies one instruction's touch of a symbol.
type AccessKind int

const (
	AccessDefinition AccessKind = iota
	AccessRead
	AccessWrite
	AccessCall
)

func (a AccessKind) String() string {
	switch a {
	case AccessDefinition:
		return "definition"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessCall:
		return "call"
	default:
		return "unknown"
	}
}

// XrefAccess is one instruction address touching a symbol.
type XrefAccess struct {
	Address int
	Kind    AccessKind
}

// XrefEntry is a symbol and every address that touches it.
type XrefEntry struct {
	Symbol    symtab.Symbol
	Accesses  []XrefAccess
	Approx    bool // true when addresses were matched heuristically, not exactly
}

// XrefSummary totals an XrefReport.
type XrefSummary struct {
	TotalSymbols  int
	Unreferenced  int
	Consts        int
	Variables     int
	Arrays        int
	Functions     int
	Labels        int
}

// XrefReport is the full cross-reference result: one entry per symbol
// plus summary counts.
type XrefReport struct {
	Entries []XrefEntry
	Summary XrefSummary
}

// String renders the report the way a cross-reference listing reads:
// one block per symbol, its accesses in address order.
func (r XrefReport) String() string {
	var b strings.Builder
	for _, e := range r.Entries {
		tag := ""
		if e.Approx {
			tag = " (approximate)"
		}
		fmt.Fprintf(&b, "%s %q%s\n", e.Symbol.Kind, e.Symbol.Name, tag)
		if len(e.Accesses) == 0 {
			b.WriteString("    (never referenced)\n")
			continue
		}
		for _, a := range e.Accesses {
			fmt.Fprintf(&b, "    [#%03d] %s\n", a.Address, a.Kind)
		}
	}
	fmt.Fprintf(&b, "\n%d symbols, %d never referenced\n", r.Summary.TotalSymbols, r.Summary.Unreferenced)
	return b.String()
}

// CrossReference builds a per-symbol usage report from a symbol table
// and its compiled code.
//
// Functions and labels resolve exactly: CAL and JMP/JPC operands are
// absolute instruction addresses, and a Function's Value or a Label's
// Address is the same absolute address recorded at emission time.
//
// Consts, scalars and arrays do not resolve exactly. The parser
// inlines const reads as bare LIT values (see package parser) with no
// trace back to the symbol, and LOD/STO/LDA/STA operands are slot
// indices that are only unique within one activation frame - the same
// slot number is reused across different functions. CrossReference
// matches these by value or by slot index across the whole program,
// which is the closest this compiled representation can get; such
// entries are marked Approx.
func CrossReference(symbols *symtab.Table, code []isa.Instruction) XrefReport {
	all := symbols.All()

	var entries []XrefEntry
	summary := XrefSummary{TotalSymbols: len(all)}

	for _, sym := range all {
		var accesses []XrefAccess
		approx := false

		switch sym.Kind {
		case symtab.Const:
			approx = true
			for addr, inst := range code {
				if inst.Op == isa.LIT && inst.M == sym.Value {
					accesses = append(accesses, XrefAccess{Address: addr, Kind: AccessRead})
				}
			}
			summary.Consts++

		case symtab.Int, symtab.Bool:
			approx = true
			for addr, inst := range code {
				switch inst.Op {
				case isa.LOD:
					if inst.M == sym.Address {
						accesses = append(accesses, XrefAccess{Address: addr, Kind: AccessRead})
					}
				case isa.STO:
					if inst.M == sym.Address {
						accesses = append(accesses, XrefAccess{Address: addr, Kind: AccessWrite})
					}
				}
			}
			summary.Variables++

		case symtab.IntArray, symtab.BoolArray:
			approx = true
			for addr, inst := range code {
				switch inst.Op {
				case isa.LDA:
					accesses = append(accesses, XrefAccess{Address: addr, Kind: AccessRead})
				case isa.STA:
					accesses = append(accesses, XrefAccess{Address: addr, Kind: AccessWrite})
				}
			}
			summary.Arrays++

		case symtab.Function:
			for addr, inst := range code {
				if inst.Op == isa.CAL && inst.M == sym.Value {
					accesses = append(accesses, XrefAccess{Address: addr, Kind: AccessCall})
				}
			}
			summary.Functions++

		case symtab.Label:
			for addr, inst := range code {
				if (inst.Op == isa.JMP || inst.Op == isa.JPC) && inst.M == sym.Address {
					accesses = append(accesses, XrefAccess{Address: addr, Kind: AccessDefinition})
				}
			}
			summary.Labels++
		}

		if len(accesses) == 0 {
			summary.Unreferenced++
		}
		sort.Slice(accesses, func(i, j int) bool { return accesses[i].Address < accesses[j].Address })
		entries = append(entries, XrefEntry{Symbol: sym, Accesses: accesses, Approx: approx})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Symbol.Name < entries[j].Symbol.Name })
	return XrefReport{Entries: entries, Summary: summary}
}

