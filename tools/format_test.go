package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatProducesOneLinePerInstruction(t *testing.T) {
	code, _ := compile(t, `START int x; x := 1 + 2; write(x); END`)
	out := Format(code)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, len(code))
}

func TestFormatAnnotatesOprSelector(t *testing.T) {
	code, _ := compile(t, `START int x; x := 1 + 2; write(x); END`)
	out := Format(code)
	assert.Contains(t, out, "PLUS")
}

func TestFormatAnnotatesSioSelector(t *testing.T) {
	code, _ := compile(t, `START write(1); END`)
	out := Format(code)
	assert.Contains(t, out, "SIOWrite")
}

func TestFormatLinesAreAddressed(t *testing.T) {
	code, _ := compile(t, `START write(1); END`)
	out := Format(code)
	assert.Contains(t, out, "[#000]")
}
