package vm

// DefaultLogCapacity sizes the initial backing array for the executed
// instruction-address log (used by CodeCoverage and ExecutionTrace).
const DefaultLogCapacity = 1000

// DefaultMaxSteps bounds how many Step calls Run will make before giving
// up on a runaway program. Zero (the VM's own zero value) means
// unbounded, matching spec.md's termination rule exactly: halt flag
// cleared or BP==0. This is an ambient safety net, not part of the ISA.
const DefaultMaxSteps = 0
