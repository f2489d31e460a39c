package vm

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/gophjp/fjp/compileerr"
	"github.com/gophjp/fjp/isa"
)

// VM executes a compiled instruction vector against the fixed-size
// integer stack described in spec.md §3.7. It carries no symbol table:
// every name has already been resolved by the compiler to a numeric
// slot address or a static-link depth.
type VM struct {
	Code  []isa.Instruction
	Stack [isa.StackSize + 1]int
	Regs  Registers

	// Halted is set by SIO HALT, and execution also stops once Regs.BP
	// drops to zero (the outermost frame has returned).
	Halted bool

	Input  io.Reader
	Output io.Writer

	// MaxSteps bounds how many instructions Run will execute before
	// giving up on a runaway program. Zero means unbounded.
	MaxSteps uint64
	Steps    uint64

	Trace    *ExecutionTrace
	CallLog  *CallTrace
	Stats    *RunStatistics
	Coverage *CodeCoverage
	Slots    *SlotTrace

	stdin *bufio.Reader
}

// New returns a VM loaded with code, ready to run from address 0 with an
// empty stack (spec.md §3.7, §4.4).
func New(code []isa.Instruction) *VM {
	v := &VM{
		Code:   code,
		Input:  os.Stdin,
		Output: os.Stdout,
	}
	v.Regs.Reset()
	return v
}

func (v *VM) reader() *bufio.Reader {
	if v.stdin == nil {
		v.stdin = bufio.NewReader(v.Input)
	}
	return v.stdin
}

// push places a value on the operand stack, trapping on overflow.
func (v *VM) push(value int) error {
	if v.Regs.SP >= isa.StackSize {
		return compileerr.New("runtime", compileerr.KindRuntime, 0, "stack overflow error")
	}
	v.Regs.SP++
	v.Stack[v.Regs.SP] = value
	return nil
}

// pop removes and returns the top of the operand stack.
func (v *VM) pop() (int, error) {
	if v.Regs.SP <= 0 {
		return 0, compileerr.New("runtime", compileerr.KindRuntime, 0, "stack underflow error")
	}
	value := v.Stack[v.Regs.SP]
	v.Regs.SP--
	return value, nil
}

// base walks l static links up from frame b, returning the base of the
// lexical frame l levels above the current one (spec.md §3.7/§4.4).
// Each activation record's static-link slot (ReservedFrameSlots-3) holds
// the base of its enclosing lexical frame.
func (v *VM) base(l, b int) int {
	base := b
	for ; l > 0; l-- {
		base = v.Stack[base+1]
	}
	return base
}

func (v *VM) fetch() (isa.Instruction, error) {
	if v.Regs.PC < 0 || v.Regs.PC >= len(v.Code) {
		return isa.Instruction{}, compileerr.New("runtime", compileerr.KindRuntime, 0, "program counter out of range")
	}
	return v.Code[v.Regs.PC], nil
}

// Step executes exactly one instruction and advances PC (unless the
// instruction itself branched). It returns the instruction executed and
// the snapshot taken immediately beforehand.
func (v *VM) Step() (isa.Instruction, error) {
	var before StepSnapshot
	before.Capture(v.Regs)

	inst, err := v.fetch()
	if err != nil {
		return inst, err
	}
	v.Regs.PC++

	if err := v.execute(inst); err != nil {
		return inst, err
	}

	v.Steps++
	if v.Trace != nil {
		var after StepSnapshot
		after.Capture(v.Regs)
		v.Trace.Record(before, inst, after, v.Stack[:v.Regs.SP+1])
	}
	if v.Stats != nil {
		v.Stats.Record(inst)
	}
	if v.Coverage != nil {
		v.Coverage.Record(before.PC)
	}
	return inst, nil
}

// Run executes instructions until the program halts, the outermost
// frame returns (BP==0), or MaxSteps is reached.
func (v *VM) Run() error {
	for !v.Halted && v.Regs.BP != 0 {
		if v.MaxSteps > 0 && v.Steps >= v.MaxSteps {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "exceeded maximum step count (%d)", v.MaxSteps)
		}
		if _, err := v.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (v *VM) execute(inst isa.Instruction) error {
	switch inst.Op {
	case isa.LIT:
		return v.push(inst.M)

	case isa.OPR:
		return v.execOPR(isa.OPRSelector(inst.M))

	case isa.LOD:
		addr := v.base(inst.L, v.Regs.BP) + inst.M
		if addr < 0 || addr > isa.StackSize {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "address out of range")
		}
		return v.push(v.Stack[addr])

	case isa.STO:
		value, err := v.pop()
		if err != nil {
			return err
		}
		addr := v.base(inst.L, v.Regs.BP) + inst.M
		if addr < 0 || addr > isa.StackSize {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "address out of range")
		}
		if v.Slots != nil {
			v.Slots.Record(v.Regs.PC-1, addr, v.Stack[addr], value)
		}
		v.Stack[addr] = value
		return nil

	case isa.CAL:
		newBase := v.base(inst.L, v.Regs.BP)
		frame := v.Regs.SP + 1
		if frame+isa.ReservedFrameSlots-1 > isa.StackSize {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "stack overflow error")
		}
		v.Stack[frame] = 0
		v.Stack[frame+1] = newBase
		v.Stack[frame+2] = v.Regs.BP
		v.Stack[frame+3] = v.Regs.PC
		if v.CallLog != nil {
			v.CallLog.Push(inst.M, v.Regs.PC)
		}
		v.Regs.BP = frame
		v.Regs.SP = frame + isa.ReservedFrameSlots - 1
		v.Regs.PC = inst.M
		return nil

	case isa.INC:
		next := v.Regs.SP + inst.M
		if next > isa.StackSize {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "stack overflow error")
		}
		if next < 0 {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "stack underflow error")
		}
		v.Regs.SP = next
		return nil

	case isa.DEC:
		next := v.Regs.SP - inst.M
		if next < 0 {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "stack underflow error")
		}
		if next > isa.StackSize {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "stack overflow error")
		}
		v.Regs.SP = next
		return nil

	case isa.JMP:
		v.Regs.PC = inst.M
		return nil

	case isa.JPC:
		value, err := v.pop()
		if err != nil {
			return err
		}
		if value == 0 {
			v.Regs.PC = inst.M
		}
		return nil

	case isa.LDA:
		// The caller has already folded the array's frame offset and
		// index into one frame-relative value on top of the stack
		// (spec.md §4.3.3); LDA only adds the static-link base to it.
		if v.Regs.SP < 1 {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "stack underflow error")
		}
		addr := v.base(inst.L, v.Regs.BP) + v.Stack[v.Regs.SP]
		if addr < 0 || addr > isa.StackSize {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "address out of range")
		}
		v.Stack[v.Regs.SP] = v.Stack[addr]
		return nil

	case isa.STA:
		if v.Regs.SP < 2 {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "stack underflow error")
		}
		value := v.Stack[v.Regs.SP]
		addr := v.base(inst.L, v.Regs.BP) + v.Stack[v.Regs.SP-1]
		if addr < 0 || addr > isa.StackSize {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "address out of range")
		}
		if v.Slots != nil {
			v.Slots.Record(v.Regs.PC-1, addr, v.Stack[addr], value)
		}
		v.Stack[addr] = value
		v.Regs.SP -= 2
		return nil

	case isa.SIO:
		return v.execSIO(isa.SIOSelector(inst.M))

	default:
		return compileerr.New("runtime", compileerr.KindRuntime, 0, "unknown opcode %d", inst.Op)
	}
}

func (v *VM) execSIO(sel isa.SIOSelector) error {
	switch sel {
	case isa.SIOWrite:
		value, err := v.pop()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(v.Output, value)
		return err

	case isa.SIORead:
		var value int
		if _, err := fmt.Fscan(v.reader(), &value); err != nil {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "failed to read input: %v", err)
		}
		return v.push(value)

	case isa.SIOHalt:
		v.Halted = true
		return nil

	default:
		return compileerr.New("runtime", compileerr.KindRuntime, 0, "unknown I/O selector %d", sel)
	}
}

func (v *VM) execOPR(sel isa.OPRSelector) error {
	switch sel {
	case isa.RET:
		frame := v.Regs.BP
		v.Regs.SP = frame - 1
		v.Regs.BP = v.Stack[frame+2]
		v.Regs.PC = v.Stack[frame+3]
		if v.CallLog != nil {
			v.CallLog.Pop()
		}
		return nil

	case isa.INVERT:
		x, err := v.pop()
		if err != nil {
			return err
		}
		return v.push(-x)

	case isa.PLUS:
		y, err := v.pop()
		if err != nil {
			return err
		}
		x, err := v.pop()
		if err != nil {
			return err
		}
		result := x + y
		if addOverflows(x, y, result) {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "arithmetic overflow")
		}
		return v.push(result)

	case isa.MINUS:
		y, err := v.pop()
		if err != nil {
			return err
		}
		x, err := v.pop()
		if err != nil {
			return err
		}
		result := x - y
		if addOverflows(x, -y, result) {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "arithmetic overflow")
		}
		return v.push(result)

	case isa.MUL:
		y, err := v.pop()
		if err != nil {
			return err
		}
		x, err := v.pop()
		if err != nil {
			return err
		}
		result := x * y
		if mulOverflows(x, y, result) {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "arithmetic overflow")
		}
		return v.push(result)

	case isa.DIV:
		y, err := v.pop()
		if err != nil {
			return err
		}
		x, err := v.pop()
		if err != nil {
			return err
		}
		if y == 0 {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "division by zero")
		}
		return v.push(x / y)

	case isa.MOD:
		y, err := v.pop()
		if err != nil {
			return err
		}
		x, err := v.pop()
		if err != nil {
			return err
		}
		if y == 0 {
			return compileerr.New("runtime", compileerr.KindRuntime, 0, "division by zero")
		}
		return v.push(x % y)

	case isa.ODD:
		x, err := v.pop()
		if err != nil {
			return err
		}
		return v.push(boolInt(x%2 != 0))

	case isa.EQ:
		return v.compare(func(x, y int) bool { return x == y })
	case isa.NEQ:
		return v.compare(func(x, y int) bool { return x != y })
	case isa.LESS:
		return v.compare(func(x, y int) bool { return x < y })
	case isa.LESS_EQ:
		return v.compare(func(x, y int) bool { return x <= y })
	case isa.GRT:
		return v.compare(func(x, y int) bool { return x > y })
	case isa.GRT_EQ:
		return v.compare(func(x, y int) bool { return x >= y })

	default:
		return compileerr.New("runtime", compileerr.KindRuntime, 0, "unknown operation selector %d", sel)
	}
}

func (v *VM) compare(cmp func(x, y int) bool) error {
	y, err := v.pop()
	if err != nil {
		return err
	}
	x, err := v.pop()
	if err != nil {
		return err
	}
	return v.push(boolInt(cmp(x, y)))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
