// Package symtab implements the scoped symbol table the parser consults
// while compiling: an ordered stack of lexical frames, innermost-first
// lookup, and the array-promotion operation const-sized array
// declarations need (spec.md §3.3, §3.4, §3.5, §4.2).
package symtab

import "fmt"

// Kind classifies a Symbol. NotFound is a sentinel returned by a failed
// Lookup; it is never actually stored in a frame.
type Kind int

const (
	Const Kind = iota
	Int
	Bool
	IntArray
	BoolArray
	Function
	Label
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Const:
		return "const"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case IntArray:
		return "int[]"
	case BoolArray:
		return "bool[]"
	case Function:
		return "function"
	case Label:
		return "label"
	case NotFound:
		return "not-found"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Symbol is one named entity in a frame. The meaning of Value, Address
// and Size depends on Kind (spec.md §3.3):
//
//   - Const:     Value is the literal (booleans encoded 0/1).
//   - Int/Bool:  Address is the slot index within the owning frame;
//     Level is the lexical depth at the declaration site.
//   - IntArray/BoolArray: Address is the first element's slot index,
//     Size >= 1 is the element count, consecutive slots follow.
//   - Function:  Value is the instruction address of the entry point;
//     Level is the enclosing lexical depth.
//   - Label:     Address is the instruction address at the colon.
type Symbol struct {
	Kind    Kind
	Name    string
	Value   int
	Level   int
	Address int
	Size    int
}

// IsArray reports whether kind is one of the array kinds.
func (s Symbol) IsArray() bool {
	return s.Kind == IntArray || s.Kind == BoolArray
}
