package tools

import (
	"fmt"
	"strings"

	"github.com/gophjp/fjp/isa"
)

// Column offsets for the pretty-printed listing, mirroring the fixed
// label/instruction/operand layout a .pl0-asm dump uses.
const (
	mnemonicColumn = 9  // after "[#NNN]  "
	operandColumn  = 16 // after the mnemonic
)

// Format renders a compiled instruction vector as a column-aligned
// listing: address, mnemonic, operands, and (where it adds information
// a bare triplet does not) a trailing comment naming the OPR/SIO
// selector or the line of code a jump lands on.
func Format(code []isa.Instruction) string {
	var b strings.Builder
	for addr, inst := range code {
		line := fmt.Sprintf("[#%03d]", addr)
		line = padTo(line, mnemonicColumn) + inst.Op.String()
		line = padTo(line, mnemonicColumn+operandColumn) + fmt.Sprintf("%d %d", inst.L, inst.M)
		if comment := formatComment(inst); comment != "" {
			line = padTo(line, mnemonicColumn+operandColumn+16) + "; " + comment
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// formatComment names the OPR/SIO selector an instruction's M operand
// encodes, since those are otherwise just small integers in the
// listing.
func formatComment(inst isa.Instruction) string {
	switch inst.Op {
	case isa.OPR:
		return isa.OPRSelector(inst.M).String()
	case isa.SIO:
		switch isa.SIOSelector(inst.M) {
		case isa.SIOWrite:
			return "SIOWrite"
		case isa.SIORead:
			return "SIORead"
		case isa.SIOHalt:
			return "SIOHalt"
		default:
			return ""
		}
	default:
		return ""
	}
}

func padTo(s string, width int) string {
	if len(s) >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-len(s))
}
