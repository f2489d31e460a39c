package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/symtab"
	"github.com/gophjp/fjp/vm"
)

// Command handler implementations

// cmdRun (re)starts program execution. This ISA's VM has no in-place
// reset, so restarting rebuilds a fresh VM over the same code and
// rewires it in place of the old one, preserving Input/Output/MaxSteps.
func (d *Debugger) cmdRun(args []string) error {
	fresh := vm.New(d.VM.Code)
	fresh.Input = d.VM.Input
	fresh.Output = d.VM.Output
	fresh.MaxSteps = d.VM.MaxSteps
	*d.VM = *fresh

	d.Running = true
	d.StepMode = StepNone

	d.Println("Starting program execution...")
	return nil
}

// cmdContinue continues execution from the current point
func (d *Debugger) cmdContinue(args []string) error {
	if d.VM.Halted {
		return fmt.Errorf("program is not running")
	}

	d.Running = true
	d.StepMode = StepNone

	d.Println("Continuing...")
	return nil
}

// cmdStep executes a single instruction
func (d *Debugger) cmdStep(args []string) error {
	d.StepMode = StepSingle
	d.Running = true
	return nil
}

// cmdNext steps over a call at the current PC, or a single instruction
// if there is none.
func (d *Debugger) cmdNext(args []string) error {
	d.SetStepOver()
	d.Running = true
	return nil
}

// cmdFinish runs until the current function returns to its caller.
func (d *Debugger) cmdFinish(args []string) error {
	d.SetStepOut()
	d.Running = true
	return nil
}

// cmdBreak sets a breakpoint
func (d *Debugger) cmdBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: break <address|label> [if <condition>]")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	var condition string
	if len(args) > 1 && strings.ToLower(args[1]) == "if" {
		condition = strings.Join(args[2:], " ")
	}

	bp := d.Breakpoints.AddBreakpoint(address, d.AddressName(address), false, condition)

	if condition != "" {
		d.Printf("Breakpoint %d at %s (condition: %s)\n", bp.ID, bp.String(), condition)
	} else {
		d.Printf("Breakpoint %d at %s\n", bp.ID, bp.String())
	}

	return nil
}

// cmdTBreak sets a temporary breakpoint (auto-delete after hit)
func (d *Debugger) cmdTBreak(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: tbreak <address|label>")
	}

	address, err := d.ResolveAddress(args[0])
	if err != nil {
		return err
	}

	bp := d.Breakpoints.AddBreakpoint(address, d.AddressName(address), true, "")
	d.Printf("Temporary breakpoint %d at %s\n", bp.ID, bp.String())

	return nil
}

// cmdDelete deletes breakpoint(s)
func (d *Debugger) cmdDelete(args []string) error {
	if len(args) == 0 {
		d.Breakpoints.Clear()
		d.Println("All breakpoints deleted")
		return nil
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.DeleteBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d deleted\n", id)
	return nil
}

// cmdEnable enables a breakpoint
func (d *Debugger) cmdEnable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: enable <breakpoint-id>")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.EnableBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d enabled\n", id)
	return nil
}

// cmdDisable disables a breakpoint
func (d *Debugger) cmdDisable(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: disable <breakpoint-id>")
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint ID: %s", args[0])
	}

	if err := d.Breakpoints.DisableBreakpoint(id); err != nil {
		return err
	}

	d.Printf("Breakpoint %d disabled\n", id)
	return nil
}

// cmdWatch sets a watchpoint on a register or a named variable.
func (d *Debugger) cmdWatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch <register|symbol>")
	}

	expression := strings.Join(args, " ")

	isRegister, register, address, err := d.parseWatchExpression(expression)
	if err != nil {
		return err
	}

	wp := d.Watchpoints.AddWatchpoint(WatchReadWrite, expression, address, isRegister, register)

	if err := d.Watchpoints.InitializeWatchpoint(wp.ID, d.VM); err != nil {
		d.Watchpoints.DeleteWatchpoint(wp.ID)
		return err
	}

	d.Printf("Watchpoint %d: %s\n", wp.ID, expression)
	return nil
}

// parseWatchExpression resolves a watch target to either one of the
// VM's three registers or a stack slot backing a declared variable.
func (d *Debugger) parseWatchExpression(expr string) (isRegister bool, register string, address int, err error) {
	name := strings.ToLower(strings.TrimSpace(expr))

	if isRegisterName(name) {
		return true, name, 0, nil
	}

	sym := d.Symbols.Lookup(expr)
	if sym.Kind == symtab.NotFound {
		return false, "", 0, fmt.Errorf("unknown register or symbol: %s", expr)
	}
	if sym.Kind == symtab.Const {
		return false, "", 0, fmt.Errorf("%s is a constant; nothing to watch", expr)
	}

	parser := NewExprParser(nil, d.VM, d.Symbols, d.Evaluator)
	addr, err := parser.frameAddress(sym)
	if err != nil {
		return false, "", 0, err
	}
	return false, "", addr, nil
}

// cmdPrint evaluates and prints an expression
func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <expression>")
	}

	expression := strings.Join(args, " ")
	result, err := d.Evaluator.EvaluateExpression(expression, d.VM, d.Symbols)
	if err != nil {
		return err
	}

	d.Printf("$%d = %d\n", d.Evaluator.GetValueNumber(), result)
	return nil
}

// cmdStack shows the live stack slots around the current frame.
func (d *Debugger) cmdStack(args []string) error {
	d.Printf("Stack (SP=%d, BP=%d):\n", d.VM.Regs.SP, d.VM.Regs.BP)

	top := d.VM.Regs.SP
	bottom := top - 7
	if bottom < 0 {
		bottom = 0
	}

	for addr := top; addr >= bottom; addr-- {
		marker := "  "
		if addr == d.VM.Regs.BP {
			marker = "bp"
		} else if addr == d.VM.Regs.SP {
			marker = "sp"
		}
		d.Printf("  [%s] %4d: %d\n", marker, addr, d.VM.Stack[addr])
	}

	return nil
}

// cmdLocals lists the variables visible in the current frame and their
// live values.
func (d *Debugger) cmdLocals(args []string) error {
	depth := currentLexicalDepth(d.VM)
	parser := NewExprParser(nil, d.VM, d.Symbols, d.Evaluator)

	found := false
	for _, sym := range d.Symbols.All() {
		if sym.Kind != symtab.Int && sym.Kind != symtab.Bool && sym.Kind != symtab.IntArray && sym.Kind != symtab.BoolArray {
			continue
		}
		if sym.Level != depth {
			continue
		}
		found = true
		if sym.IsArray() {
			addr, err := parser.frameAddress(sym)
			if err != nil {
				d.Printf("  %s: <error: %v>\n", sym.Name, err)
				continue
			}
			values := make([]string, sym.Size)
			for i := 0; i < sym.Size; i++ {
				v, _ := slotValue(d.VM, addr+i)
				values[i] = strconv.Itoa(v)
			}
			d.Printf("  %s = [%s]\n", sym.Name, strings.Join(values, ", "))
		} else {
			addr, err := parser.frameAddress(sym)
			if err != nil {
				d.Printf("  %s: <error: %v>\n", sym.Name, err)
				continue
			}
			v, _ := slotValue(d.VM, addr)
			d.Printf("  %s = %d\n", sym.Name, v)
		}
	}

	if !found {
		d.Println("No locals in this frame")
	}

	return nil
}

// cmdBacktrace walks the dynamic-link chain from the current frame back
// to the global frame, printing one line per activation record. Each
// record's return-address slot (bp+3) names where control resumes in
// the caller once this frame returns.
func (d *Debugger) cmdBacktrace(args []string) error {
	d.Println("Call stack:")

	name := d.AddressName(d.VM.Regs.PC)
	if name == "" {
		name = "<entry>"
	}
	d.Printf("  #0  %s (bp=%d, pc=%d)\n", name, d.VM.Regs.BP, d.VM.Regs.PC)

	b := d.VM.Regs.BP
	frame := 1
	for b > 1 && b+3 < len(d.VM.Stack) {
		returnPC := d.VM.Stack[b+3]
		dynamicLink := d.VM.Stack[b+2]

		callerName := d.AddressName(returnPC)
		if callerName == "" {
			callerName = fmt.Sprintf("return to #%03d", returnPC)
		}
		d.Printf("  #%d  %s (bp=%d)\n", frame, callerName, dynamicLink)

		if dynamicLink <= 0 || dynamicLink == b {
			break
		}
		b = dynamicLink
		frame++
	}

	return nil
}

// cmdList shows the instruction listing around the current PC.
func (d *Debugger) cmdList(args []string) error {
	pc := d.VM.Regs.PC

	before := CodeContextLinesBefore
	after := CodeContextLinesAfter
	start := pc - before
	if start < 0 {
		start = 0
	}
	end := pc + after
	if end >= len(d.VM.Code) {
		end = len(d.VM.Code) - 1
	}

	for addr := start; addr <= end; addr++ {
		marker := "  "
		if addr == pc {
			marker = "=>"
		}
		label := d.AddressName(addr)
		if label != "" {
			label = " ; " + label
		}
		d.Printf("%s [#%03d] %s%s\n", marker, addr, d.VM.Code[addr].String(), label)
	}

	return nil
}

// cmdInfo displays information about program state
func (d *Debugger) cmdInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: info <registers|breakpoints|watchpoints|stack>")
	}

	switch strings.ToLower(args[0]) {
	case "registers", "reg", "r":
		return d.showRegisters()
	case "breakpoints", "break", "b":
		return d.showBreakpoints()
	case "watchpoints", "watch", "w":
		return d.showWatchpoints()
	case "stack", "s":
		return d.cmdStack(nil)
	default:
		return fmt.Errorf("unknown info command: %s", args[0])
	}
}

// showRegisters displays the VM's three registers
func (d *Debugger) showRegisters() error {
	d.Println("Registers:")
	d.Printf("  PC = %d\n", d.VM.Regs.PC)
	d.Printf("  BP = %d\n", d.VM.Regs.BP)
	d.Printf("  SP = %d\n", d.VM.Regs.SP)
	return nil
}

// showBreakpoints displays all breakpoints
func (d *Debugger) showBreakpoints() error {
	breakpoints := d.Breakpoints.GetAllBreakpoints()
	if len(breakpoints) == 0 {
		d.Println("No breakpoints")
		return nil
	}

	d.Println("Breakpoints:")
	for _, bp := range breakpoints {
		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}

		temp := ""
		if bp.Temporary {
			temp = " (temporary)"
		}

		condition := ""
		if bp.Condition != "" {
			condition = fmt.Sprintf(" if %s", bp.Condition)
		}

		d.Printf("  %d: %s %s%s%s (hit %d times)\n",
			bp.ID, bp.String(), status, temp, condition, bp.HitCount)
	}

	return nil
}

// showWatchpoints displays all watchpoints
func (d *Debugger) showWatchpoints() error {
	watchpoints := d.Watchpoints.GetAllWatchpoints()
	if len(watchpoints) == 0 {
		d.Println("No watchpoints")
		return nil
	}

	d.Println("Watchpoints:")
	for _, wp := range watchpoints {
		status := "enabled"
		if !wp.Enabled {
			status = "disabled"
		}

		d.Printf("  %d: %s %s (hit %d times, last value: %d)\n",
			wp.ID, wp.Expression, status, wp.HitCount, wp.LastValue)
	}

	return nil
}

// cmdHelp displays help information
func (d *Debugger) cmdHelp(args []string) error {
	if len(args) > 0 {
		return d.showCommandHelp(args[0])
	}

	d.Println("Debugger Commands:")
	d.Println()
	d.Println("Execution Control:")
	d.Println("  run (r)           - Start or restart program execution")
	d.Println("  continue (c)      - Continue execution")
	d.Println("  step (s)          - Execute a single instruction")
	d.Println("  next (n)          - Step over a call")
	d.Println("  finish (fin)      - Run until the current function returns")
	d.Println()
	d.Println("Breakpoints:")
	d.Println("  break (b) <addr|label> [if <cond>] - Set breakpoint")
	d.Println("  tbreak (tb) <addr|label>            - Set temporary breakpoint")
	d.Println("  delete (d) [id]   - Delete breakpoint(s)")
	d.Println("  enable <id>       - Enable breakpoint")
	d.Println("  disable <id>      - Disable breakpoint")
	d.Println()
	d.Println("Watchpoints:")
	d.Println("  watch (w) <register|symbol> - Watch for value changes")
	d.Println()
	d.Println("Inspection:")
	d.Println("  print (p) <expr>  - Evaluate an expression")
	d.Println("  stack             - Show stack slots around the current frame")
	d.Println("  locals            - Show variables in the current frame")
	d.Println("  backtrace (bt)    - Show the call stack")
	d.Println("  list (l)          - List the instruction stream around PC")
	d.Println("  info (i) <what>   - Show information")
	d.Println()
	d.Println("Control:")
	d.Println("  help (h, ?)       - Show this help")
	d.Println()
	d.Println("Type 'help <command>' for detailed help on a specific command.")

	return nil
}

// showCommandHelp shows detailed help for a specific command
func (d *Debugger) showCommandHelp(cmd string) error {
	helpText := map[string]string{
		"break": "break <address|label> [if <condition>]\n  Set a breakpoint at the specified instruction or label.\n  Optional condition is evaluated each time it is hit.",
		"step":  "step\n  Execute a single instruction.",
		"next":  "next\n  Step over a call at the current PC, or step a single instruction otherwise.",
		"print": "print <expression>\n  Evaluate and print an expression.\n  Expressions can include pc/bp/sp, declared symbols, array indexing, and arithmetic.",
		"watch": "watch <register|symbol>\n  Break when the watched register or variable's value changes.",
		"info":  "info <registers|breakpoints|watchpoints|stack>\n  Display information about program state.",
	}

	if help, exists := helpText[cmd]; exists {
		d.Println(help)
		return nil
	}

	return fmt.Errorf("no help available for command: %s", cmd)
}

var _ = isa.CAL // referenced indirectly via Debugger.isCallAtPC in debugger.go
