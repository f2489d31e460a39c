package tools

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/lexer"
	"github.com/gophjp/fjp/parser"
	"github.com/gophjp/fjp/symtab"
)

// compile is the shared fixture for this package's tests: lex and
// compile source, returning both the code and the symbol table the
// static checks need.
func compile(t *testing.T, src string) ([]isa.Instruction, *symtab.Table) {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	code, symbols, err := parser.Compile(toks)
	require.NoError(t, err)
	return code, symbols
}
