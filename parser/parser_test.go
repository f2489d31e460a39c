package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/lexer"
	"github.com/gophjp/fjp/symtab"
)

func compile(t *testing.T, src string) []isa.Instruction {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	code, _, err := Compile(toks)
	require.NoError(t, err)
	return code
}

// nonSkipJumps filters out the unconditional JMP every block emits to
// skip over its (possibly absent) function declarations — it always
// targets the very next instruction when no functions are declared.
// A statement's JMP that also targets the next instruction is dropped too.
func nonSkipJumps(code []isa.Instruction) []isa.Instruction {
	var out []isa.Instruction
	for idx, inst := range code {
		if inst.Op == isa.JMP && inst.M == idx+1 {
			continue
		}
		if inst.Op == isa.JMP {
			out = append(out, inst)
		}
	}
	return out
}

func compileErr(t *testing.T, src string) error {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	_, _, err = Compile(toks)
	return err
}

func TestMinimalProgramCompiles(t *testing.T) {
	code := compile(t, `START write(1); END`)
	require.NotEmpty(t, code)
	assert.Equal(t, isa.INC, code[0].Op)
	assert.Equal(t, isa.ReservedFrameSlots, code[0].M)
	assert.Equal(t, isa.OPR, code[len(code)-1].Op)
	assert.Equal(t, int(isa.RET), code[len(code)-1].M)
}

func TestVarDeclAllocatesSequentialSlots(t *testing.T) {
	code := compile(t, `START
		int a, b;
		a := 1;
		b := 2;
	END`)
	// a at 4, b at 5
	var stoAddrs []int
	for _, inst := range code {
		if inst.Op == isa.STO {
			stoAddrs = append(stoAddrs, inst.M)
		}
	}
	require.Len(t, stoAddrs, 2)
	assert.Equal(t, isa.ReservedFrameSlots, stoAddrs[0])
	assert.Equal(t, isa.ReservedFrameSlots+1, stoAddrs[1])
}

func TestBoolAssignmentNormalizes(t *testing.T) {
	code := compile(t, `START
		bool flag;
		flag := 5;
	END`)
	// LIT 5; LIT 0; OPR NEQ; STO
	found := false
	for i := 0; i+2 < len(code); i++ {
		if code[i].Op == isa.LIT && code[i].M == 0 &&
			code[i+1].Op == isa.OPR && code[i+1].M == int(isa.NEQ) &&
			code[i+2].Op == isa.STO {
			found = true
		}
	}
	assert.True(t, found, "expected bool normalization before STO")
}

func TestArrayDeclarationAndElementAssignment(t *testing.T) {
	code := compile(t, `START
		int a[3];
		a[1] := 9;
	END`)
	var sta bool
	for _, inst := range code {
		if inst.Op == isa.STA {
			sta = true
		}
	}
	assert.True(t, sta, "array element assignment must emit STA")
}

func TestChainedAssignmentStoresEachTarget(t *testing.T) {
	code := compile(t, `START
		int a, b, c;
		a := b := c := 7;
	END`)
	stoCount := 0
	for _, inst := range code {
		if inst.Op == isa.STO {
			stoCount++
		}
	}
	assert.Equal(t, 3, stoCount)
}

func TestIfElseBackpatchesBothBranches(t *testing.T) {
	code := compile(t, `START
		int x;
		if (x == 0) { x := 1; } else { x := 2; }
	END`)
	var jpc int
	for _, inst := range code {
		if inst.Op == isa.JPC {
			jpc++
		}
	}
	assert.Equal(t, 1, jpc)
	assert.Len(t, nonSkipJumps(code), 1)
}

func TestWhileLoopJumpsBack(t *testing.T) {
	code := compile(t, `START
		int i;
		i := 0;
		while (i < 3) { i := i + 1; }
	END`)
	var foundBackJump bool
	for idx, inst := range code {
		if inst.Op == isa.JMP && inst.M < idx {
			foundBackJump = true
		}
	}
	assert.True(t, foundBackJump, "while loop must jump back to the condition")
}

func TestDoWhileEmitsDoubleNegation(t *testing.T) {
	code := compile(t, `START
		int i;
		i := 0;
		do { i := i + 1; } while (i < 3);
	END`)
	foundPattern := false
	for i := 0; i+2 < len(code); i++ {
		if code[i].Op == isa.LIT && code[i].M == 0 &&
			code[i+1].Op == isa.OPR && code[i+1].M == int(isa.EQ) &&
			code[i+2].Op == isa.JPC {
			foundPattern = true
		}
	}
	assert.True(t, foundPattern, "do-while must emit LIT 0; OPR EQ; JPC before looping back")
}

func TestRepeatUntilLoopsOnBareConditionUnlikeDoWhile(t *testing.T) {
	// Both loops share body and condition; do-while appends a LIT 0;
	// OPR EQ negation pair before its JPC that repeat-until omits, so
	// do-while's instruction count must be exactly two longer.
	doWhile := compile(t, `START
		int i;
		i := 0;
		do { i := i + 1; } while (i < 3);
	END`)
	repeatUntil := compile(t, `START
		int i;
		i := 0;
		repeat { i := i + 1; } until (i < 3);
	END`)
	assert.Equal(t, len(repeatUntil)+2, len(doWhile))
}

func TestForLoopExitJumpSkipsBody(t *testing.T) {
	code := compile(t, `START
		int i;
		for (i := 0; i < 5; i := i + 1) { write(i); }
	END`)
	var jpcExit isa.Instruction
	for _, inst := range code {
		if inst.Op == isa.JPC {
			jpcExit = inst
			break
		}
	}
	require.NotZero(t, jpcExit.M)
	// the exit target must land after every JMP that loops back (i.e.
	// past the last instruction emitted for the loop body), not at the
	// jump-over-step target used to skip straight to the body.
	var lastJMP int
	for idx, inst := range code {
		if inst.Op == isa.JMP {
			lastJMP = idx
		}
	}
	assert.Greater(t, jpcExit.M, lastJMP)
}

func TestForeachWalksArrayAndRestoresSP(t *testing.T) {
	code := compile(t, `START
		int a[3] = {1, 2, 3};
		int x;
		foreach (x : a) { write(x); }
	END`)
	var incNeg bool
	for _, inst := range code {
		if inst.Op == isa.INC && inst.M == -1 {
			incNeg = true
		}
	}
	assert.True(t, incNeg, "foreach must deallocate its index slot with INC 0,-1")
}

func TestSwitchCaseBreakPatchesFallthroughPastBreak(t *testing.T) {
	code := compile(t, `START
		int x;
		x := 1;
		switch (x) {
		case 1: write(1); break;
		case 2: write(2); break;
		}
	END`)
	// One block skip JMP plus one JMP per break. The last break's JMP
	// targets the next instruction, so nonSkipJumps would drop it.
	jmps := 0
	for _, inst := range code {
		if inst.Op == isa.JMP {
			jmps++
		}
	}
	assert.Equal(t, 3, jmps, "each break emits one JMP to the switch's end")
}

func TestGotoForwardReferenceResolves(t *testing.T) {
	code := compile(t, `START
		goto done;
		write(1);
		done: write(2);
	END`)
	jumps := nonSkipJumps(code)
	require.Len(t, jumps, 1)
	assert.Greater(t, jumps[0].M, 0)
}

func TestUndefinedGotoLabelIsCompileError(t *testing.T) {
	err := compileErr(t, `START goto nowhere; END`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestDuplicateDeclarationIsCompileError(t *testing.T) {
	err := compileErr(t, `START
		int a;
		int a;
	END`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already declared")
}

func TestFunctionCallEmitsCAL(t *testing.T) {
	code := compile(t, `START
		function greet() {
			write(1);
		}
		call greet();
	END`)
	var cal bool
	for _, inst := range code {
		if inst.Op == isa.CAL {
			cal = true
		}
	}
	assert.True(t, cal)
}

func TestInstanceofComparesCompileTimeKind(t *testing.T) {
	code := compile(t, `START
		int a;
		bool flag;
		flag := a instanceof int;
	END`)
	// a instanceof int is always true at compile time: LIT 0,1
	foundTrue := false
	for _, inst := range code {
		if inst.Op == isa.LIT && inst.M == 1 {
			foundTrue = true
		}
	}
	assert.True(t, foundTrue)
}

func TestTernaryExpressionBranches(t *testing.T) {
	code := compile(t, `START
		int a;
		a := #a == 0 ? 1 : 2;
	END`)
	var jpc int
	for _, inst := range code {
		if inst.Op == isa.JPC {
			jpc++
		}
	}
	assert.Equal(t, 1, jpc)
	assert.Len(t, nonSkipJumps(code), 1)
}

func TestCompileReturnsGlobalSymbolTable(t *testing.T) {
	toks, err := lexer.Tokenize(`START
		int total;
		function helper() { write(1); }
		done: write(2);
	END`)
	require.NoError(t, err)
	_, symbols, err := Compile(toks)
	require.NoError(t, err)

	total := symbols.Lookup("total")
	assert.Equal(t, symtab.Int, total.Kind)

	helper := symbols.Lookup("helper")
	assert.Equal(t, symtab.Function, helper.Kind)

	done := symbols.Lookup("done")
	assert.Equal(t, symtab.Label, done.Kind)
}

func TestLogicalAndEncodesAsMultiplyNormalize(t *testing.T) {
	code := compile(t, `START
		int a;
		if (a && a) { a := 1; }
	END`)
	found := false
	for i := 0; i+2 < len(code); i++ {
		if code[i].Op == isa.OPR && code[i].M == int(isa.MUL) &&
			code[i+1].Op == isa.LIT && code[i+1].M == 0 &&
			code[i+2].Op == isa.OPR && code[i+2].M == int(isa.NEQ) {
			found = true
		}
	}
	assert.True(t, found)
}
