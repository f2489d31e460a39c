package debugger

import (
	"fmt"
	"strings"

	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/symtab"
	"github.com/gophjp/fjp/vm"
)

// StepMode controls how the run loop in interface.go/tui.go advances
// the machine between calls to ShouldBreak.
type StepMode int

const (
	StepNone StepMode = iota
	StepSingle
	StepOver
	StepOut
)

// Debugger wraps a vm.VM with breakpoints, watchpoints, command
// history, and expression evaluation, and owns the address-to-name map
// a running session uses to let a user say "break greet" instead of
// "break 42". It performs no I/O itself; RunCLI and TUI drive it.
type Debugger struct {
	VM      *vm.VM
	Symbols *symtab.Table

	Breakpoints *BreakpointManager
	Watchpoints *WatchpointManager
	History     *CommandHistory
	Evaluator   *ExpressionEvaluator

	Running bool

	StepMode   StepMode
	StepOverBP int // BP snapshot the Over/Out step must return past

	LastCommand string
	Output      strings.Builder
}

// NewDebugger wraps machine for interactive debugging, using symbols
// to resolve names in break/watch/print commands. History defaults to
// 1000 entries; callers that loaded a config.Config should overwrite
// the returned Debugger's History field with
// NewCommandHistory(cfg.Debugger.HistorySize).
func NewDebugger(machine *vm.VM, symbols *symtab.Table) *Debugger {
	return &Debugger{
		VM:          machine,
		Symbols:     symbols,
		Breakpoints: NewBreakpointManager(),
		Watchpoints: NewWatchpointManager(),
		History:     NewCommandHistory(0),
		Evaluator:   NewExpressionEvaluator(),
	}
}

// AddressName returns the label or function name declared at addr, if
// any, for display in listings and backtraces.
func (d *Debugger) AddressName(addr int) string {
	for _, sym := range d.Symbols.All() {
		if (sym.Kind == symtab.Function && sym.Value == addr) || (sym.Kind == symtab.Label && sym.Address == addr) {
			return sym.Name
		}
	}
	return ""
}

// ResolveAddress parses a breakpoint/watchpoint target: a declared
// function or label name takes priority over a bare numeric address.
func (d *Debugger) ResolveAddress(addrStr string) (int, error) {
	sym := d.Symbols.Lookup(addrStr)
	switch sym.Kind {
	case symtab.Function:
		return sym.Value, nil
	case symtab.Label:
		return sym.Address, nil
	}

	var addr int
	if _, err := fmt.Sscanf(addrStr, "%d", &addr); err != nil {
		return 0, fmt.Errorf("unknown address or label: %s", addrStr)
	}
	return addr, nil
}

// ExecuteCommand parses and dispatches one debugger command line.
func (d *Debugger) ExecuteCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)
	if cmdLine == "" {
		return nil
	}
	d.History.Add(cmdLine)
	d.LastCommand = cmdLine

	fields := strings.Fields(cmdLine)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "run", "r":
		return d.cmdRun(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "step", "s":
		return d.cmdStep(args)
	case "next", "n":
		return d.cmdNext(args)
	case "finish", "fin":
		return d.cmdFinish(args)
	case "break", "b":
		return d.cmdBreak(args)
	case "tbreak", "tb":
		return d.cmdTBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "enable":
		return d.cmdEnable(args)
	case "disable":
		return d.cmdDisable(args)
	case "watch", "w":
		return d.cmdWatch(args)
	case "print", "p":
		return d.cmdPrint(args)
	case "stack":
		return d.cmdStack(args)
	case "locals":
		return d.cmdLocals(args)
	case "backtrace", "bt", "where":
		return d.cmdBacktrace(args)
	case "list", "l":
		return d.cmdList(args)
	case "info", "i":
		return d.cmdInfo(args)
	case "help", "h", "?":
		return d.cmdHelp(args)
	default:
		return fmt.Errorf("unknown command: %s (try 'help')", cmd)
	}
}

// ShouldBreak reports whether the run loop should stop before executing
// the instruction now at PC, and why.
func (d *Debugger) ShouldBreak() (bool, string) {
	switch d.StepMode {
	case StepSingle:
		d.StepMode = StepNone
		return true, "single step"
	case StepOver:
		if d.VM.Regs.BP <= d.StepOverBP {
			d.StepMode = StepNone
			return true, "step over"
		}
		return false, ""
	case StepOut:
		if d.VM.Regs.BP < d.StepOverBP {
			d.StepMode = StepNone
			return true, "step out"
		}
		return false, ""
	}

	pc := d.VM.Regs.PC
	if bp := d.Breakpoints.GetBreakpoint(pc); bp != nil && bp.Enabled {
		if bp.Condition != "" {
			ok, err := d.Evaluator.Evaluate(bp.Condition, d.VM, d.Symbols)
			if err != nil || !ok {
				return false, ""
			}
		}
		d.Breakpoints.ProcessHit(pc)
		return true, fmt.Sprintf("breakpoint %d", bp.ID)
	}

	if wp, changed := d.Watchpoints.CheckWatchpoints(d.VM); changed {
		return true, fmt.Sprintf("watchpoint %d (%s)", wp.ID, wp.Expression)
	}

	return false, ""
}

// SetStepOver arranges for ShouldBreak to fire once the instruction at
// the current PC - a call or otherwise - has fully completed, without
// stopping partway through a called function's body.
func (d *Debugger) SetStepOver() {
	d.StepOverBP = d.VM.Regs.BP
	if d.isCallAtPC() {
		d.StepMode = StepOver
	} else {
		d.StepMode = StepSingle
	}
}

// SetStepOut arranges for ShouldBreak to fire once the current function
// returns to its caller.
func (d *Debugger) SetStepOut() {
	d.StepOverBP = d.VM.Regs.BP
	d.StepMode = StepOut
}

func (d *Debugger) isCallAtPC() bool {
	pc := d.VM.Regs.PC
	if pc < 0 || pc >= len(d.VM.Code) {
		return false
	}
	return d.VM.Code[pc].Op == isa.CAL
}

func (d *Debugger) Printf(format string, args ...any) {
	fmt.Fprintf(&d.Output, format, args...)
}

func (d *Debugger) Println(args ...any) {
	fmt.Fprintln(&d.Output, args...)
}

// GetOutput returns and clears buffered command output.
func (d *Debugger) GetOutput() string {
	out := d.Output.String()
	d.Output.Reset()
	return out
}
