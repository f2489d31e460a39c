package vm

// StepSnapshot captures PC/BP/SP immediately before an instruction
// executes, so that tracing and the debugger can report what changed
// without re-deriving it from the full stack.
type StepSnapshot struct {
	PC int
	BP int
	SP int
}

// Capture records the current register values.
func (s *StepSnapshot) Capture(regs Registers) {
	s.PC = regs.PC
	s.BP = regs.BP
	s.SP = regs.SP
}
