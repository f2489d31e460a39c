package debugger

import (
	"testing"

	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/symtab"
	"github.com/gophjp/fjp/vm"
)

func newTestDebugger(code []isa.Instruction) (*Debugger, *symtab.Table) {
	symbols := symtab.New()
	symbols.PushFrame()
	symbols.Add(symtab.Symbol{Kind: symtab.Function, Name: "greet", Level: 0, Value: 3})
	symbols.Add(symtab.Symbol{Kind: symtab.Label, Name: "done", Level: 0, Address: 7})
	symbols.Add(symtab.Symbol{Kind: symtab.Int, Name: "total", Level: 0, Address: 4})

	machine := vm.New(code)
	return NewDebugger(machine, symbols), symbols
}

func TestDebugger_AddressName(t *testing.T) {
	dbg, _ := newTestDebugger(nil)

	if got := dbg.AddressName(3); got != "greet" {
		t.Errorf("AddressName(3) = %q, want greet", got)
	}
	if got := dbg.AddressName(7); got != "done" {
		t.Errorf("AddressName(7) = %q, want done", got)
	}
	if got := dbg.AddressName(99); got != "" {
		t.Errorf("AddressName(99) = %q, want empty", got)
	}
}

func TestDebugger_ResolveAddress(t *testing.T) {
	dbg, _ := newTestDebugger(nil)

	addr, err := dbg.ResolveAddress("greet")
	if err != nil {
		t.Fatalf("ResolveAddress(greet) error = %v", err)
	}
	if addr != 3 {
		t.Errorf("ResolveAddress(greet) = %d, want 3", addr)
	}

	addr, err = dbg.ResolveAddress("12")
	if err != nil {
		t.Fatalf("ResolveAddress(12) error = %v", err)
	}
	if addr != 12 {
		t.Errorf("ResolveAddress(12) = %d, want 12", addr)
	}

	if _, err := dbg.ResolveAddress("nope"); err == nil {
		t.Error("expected error resolving unknown name")
	}
}

func TestDebugger_ExecuteCommand_Unknown(t *testing.T) {
	dbg, _ := newTestDebugger(nil)

	if err := dbg.ExecuteCommand("frobnicate"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestDebugger_ExecuteCommand_RecordsHistory(t *testing.T) {
	dbg, _ := newTestDebugger(nil)

	dbg.ExecuteCommand("help")
	if dbg.History.Size() != 1 {
		t.Errorf("History.Size() = %d, want 1", dbg.History.Size())
	}
	if dbg.LastCommand != "help" {
		t.Errorf("LastCommand = %q, want help", dbg.LastCommand)
	}
}

func TestDebugger_ShouldBreak_SingleStep(t *testing.T) {
	dbg, _ := newTestDebugger(nil)

	dbg.StepMode = StepSingle
	should, reason := dbg.ShouldBreak()
	if !should || reason != "single step" {
		t.Errorf("ShouldBreak() = (%v, %q), want (true, single step)", should, reason)
	}
	if dbg.StepMode != StepNone {
		t.Error("StepMode should reset to StepNone after firing")
	}
}

func TestDebugger_ShouldBreak_Breakpoint(t *testing.T) {
	dbg, _ := newTestDebugger(nil)

	dbg.Breakpoints.AddBreakpoint(5, "", false, "")
	dbg.VM.Regs.PC = 5

	should, reason := dbg.ShouldBreak()
	if !should {
		t.Fatal("expected breakpoint to fire")
	}
	if reason != "breakpoint 1" {
		t.Errorf("reason = %q, want breakpoint 1", reason)
	}
}

func TestDebugger_ShouldBreak_ConditionalBreakpointNotMet(t *testing.T) {
	dbg, symbols := newTestDebugger(nil)
	_ = symbols

	dbg.Breakpoints.AddBreakpoint(5, "", false, "total == 100")
	dbg.VM.Regs.PC = 5
	dbg.VM.Regs.BP = 1
	dbg.VM.Regs.SP = 5
	dbg.VM.Stack[5] = 1

	should, _ := dbg.ShouldBreak()
	if should {
		t.Error("breakpoint should not fire when condition is false")
	}
}

func TestDebugger_IsCallAtPC(t *testing.T) {
	code := []isa.Instruction{
		{Op: isa.LIT, L: 0, M: 1},
		{Op: isa.CAL, L: 0, M: 3},
	}
	dbg, _ := newTestDebugger(code)

	dbg.VM.Regs.PC = 0
	if dbg.isCallAtPC() {
		t.Error("expected no call at PC 0")
	}

	dbg.VM.Regs.PC = 1
	if !dbg.isCallAtPC() {
		t.Error("expected call at PC 1")
	}
}

func TestDebugger_SetStepOver_NonCall(t *testing.T) {
	code := []isa.Instruction{{Op: isa.LIT, L: 0, M: 1}}
	dbg, _ := newTestDebugger(code)
	dbg.VM.Regs.PC = 0

	dbg.SetStepOver()
	if dbg.StepMode != StepSingle {
		t.Errorf("StepMode = %v, want StepSingle for a non-call instruction", dbg.StepMode)
	}
}

func TestDebugger_SetStepOver_Call(t *testing.T) {
	code := []isa.Instruction{{Op: isa.CAL, L: 0, M: 3}}
	dbg, _ := newTestDebugger(code)
	dbg.VM.Regs.PC = 0
	dbg.VM.Regs.BP = 1

	dbg.SetStepOver()
	if dbg.StepMode != StepOver {
		t.Errorf("StepMode = %v, want StepOver for a call instruction", dbg.StepMode)
	}
	if dbg.StepOverBP != 1 {
		t.Errorf("StepOverBP = %d, want 1", dbg.StepOverBP)
	}
}

func TestDebugger_GetOutput(t *testing.T) {
	dbg, _ := newTestDebugger(nil)

	dbg.Printf("value=%d", 42)
	out := dbg.GetOutput()
	if out != "value=42" {
		t.Errorf("GetOutput() = %q, want value=42", out)
	}
	if dbg.GetOutput() != "" {
		t.Error("GetOutput should clear the buffer")
	}
}
