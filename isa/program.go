package isa

// Program is a compiled unit ready either to run directly or to be
// persisted by the bytecode package: the instruction vector plus the
// source path it was compiled from, kept for diagnostics in debug
// artifacts and error messages.
type Program struct {
	Code       []Instruction
	SourcePath string
}
