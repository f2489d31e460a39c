package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gophjp/fjp/isa"
)

// program is a small helper for building instruction slices inline.
func program(insts ...isa.Instruction) []isa.Instruction {
	return insts
}

func TestArithmeticAndWrite(t *testing.T) {
	// WRITE 3 + 4
	code := program(
		isa.Instruction{Op: isa.INC, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.LIT, M: 3},
		isa.Instruction{Op: isa.LIT, M: 4},
		isa.Instruction{Op: isa.OPR, M: int(isa.PLUS)},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOWrite)},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOHalt)},
	)
	var out bytes.Buffer
	m := New(code)
	m.Output = &out
	require.NoError(t, m.Run())
	assert.Equal(t, "7\n", out.String())
	assert.True(t, m.Halted)
}

func TestDivisionByZeroTraps(t *testing.T) {
	code := program(
		isa.Instruction{Op: isa.INC, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.LIT, M: 1},
		isa.Instruction{Op: isa.LIT, M: 0},
		isa.Instruction{Op: isa.OPR, M: int(isa.DIV)},
	)
	m := New(code)
	err := m.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestArithmeticOverflowTraps(t *testing.T) {
	code := program(
		isa.Instruction{Op: isa.INC, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.LIT, M: 1 << 62},
		isa.Instruction{Op: isa.LIT, M: 1 << 62},
		isa.Instruction{Op: isa.OPR, M: int(isa.PLUS)},
	)
	m := New(code)
	err := m.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflow")
}

func TestLocalVariableLoadStore(t *testing.T) {
	// allocate one local at offset 4, store 42, load it back and write it
	code := program(
		isa.Instruction{Op: isa.INC, M: isa.ReservedFrameSlots + 1},
		isa.Instruction{Op: isa.LIT, M: 42},
		isa.Instruction{Op: isa.STO, L: 0, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.LOD, L: 0, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOWrite)},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOHalt)},
	)
	var out bytes.Buffer
	m := New(code)
	m.Output = &out
	require.NoError(t, m.Run())
	assert.Equal(t, "42\n", out.String())
}

func TestCallAndReturnRestoresCaller(t *testing.T) {
	// main: INC 4; CAL 0, callee; SIO HALT
	// callee (addr 3): OPR RET
	code := program(
		isa.Instruction{Op: isa.INC, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.CAL, L: 0, M: 3},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOHalt)},
		isa.Instruction{Op: isa.OPR, M: int(isa.RET)},
	)
	m := New(code)
	require.NoError(t, m.Run())
	assert.True(t, m.Halted)
}

func TestConditionalJumpSkipsWhenFalse(t *testing.T) {
	// push 0 (false), JPC to label at 5 (skip WRITE 99), WRITE 1, HALT
	code := program(
		isa.Instruction{Op: isa.INC, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.LIT, M: 0},
		isa.Instruction{Op: isa.JPC, M: 5},
		isa.Instruction{Op: isa.LIT, M: 99},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOWrite)},
		isa.Instruction{Op: isa.LIT, M: 1},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOWrite)},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOHalt)},
	)
	var out bytes.Buffer
	m := New(code)
	m.Output = &out
	require.NoError(t, m.Run())
	assert.Equal(t, "1\n", out.String())
}

func TestArrayLoadAndStoreViaLDAAndSTA(t *testing.T) {
	// allocate a 3-element array starting at offset 4, store 7 at index 1,
	// load it back and write it.
	code := program(
		isa.Instruction{Op: isa.INC, M: isa.ReservedFrameSlots + 3},
		isa.Instruction{Op: isa.LIT, M: isa.ReservedFrameSlots + 1}, // array offset + index
		isa.Instruction{Op: isa.LIT, M: 7},                          // value
		isa.Instruction{Op: isa.STA, L: 0, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.LIT, M: isa.ReservedFrameSlots + 1}, // array offset + index
		isa.Instruction{Op: isa.LDA, L: 0, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOWrite)},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOHalt)},
	)
	var out bytes.Buffer
	m := New(code)
	m.Output = &out
	require.NoError(t, m.Run())
	assert.Equal(t, "7\n", out.String())
}

func TestReadConsumesInput(t *testing.T) {
	code := program(
		isa.Instruction{Op: isa.INC, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIORead)},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOWrite)},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOHalt)},
	)
	var out bytes.Buffer
	m := New(code)
	m.Input = strings.NewReader("123\n")
	m.Output = &out
	require.NoError(t, m.Run())
	assert.Equal(t, "123\n", out.String())
}

func TestMaxStepsBoundsRunawayLoop(t *testing.T) {
	// JMP 0: an infinite loop
	code := program(
		isa.Instruction{Op: isa.JMP, M: 0},
	)
	m := New(code)
	m.MaxSteps = 10
	err := m.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum step count")
}

func TestCoverageTracksExecutedAddresses(t *testing.T) {
	code := program(
		isa.Instruction{Op: isa.INC, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOHalt)},
	)
	m := New(code)
	m.Coverage = NewCodeCoverage(len(code))
	require.NoError(t, m.Run())
	assert.Equal(t, 100.0, m.Coverage.Percent())
}

func TestSlotTraceRecordsWrites(t *testing.T) {
	code := program(
		isa.Instruction{Op: isa.INC, M: isa.ReservedFrameSlots + 1},
		isa.Instruction{Op: isa.LIT, M: 5},
		isa.Instruction{Op: isa.STO, L: 0, M: isa.ReservedFrameSlots},
		isa.Instruction{Op: isa.SIO, M: int(isa.SIOHalt)},
	)
	m := New(code)
	m.Slots = NewSlotTrace(0)
	require.NoError(t, m.Run())
	// the trace records absolute addresses; the main frame's base (BP) is 1
	writes := m.Slots.ForAddress(1 + isa.ReservedFrameSlots)
	require.Len(t, writes, 1)
	assert.Equal(t, 5, writes[0].NewValue)
}
