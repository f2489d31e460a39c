package vm

import "github.com/gophjp/fjp/isa"

// StackSize is the fixed operand-stack capacity (spec.md §3.7). Slot 0 is
// reserved and unused; usable slots run 1..StackSize.
const StackSize = isa.StackSize

// ReservedFrameSlots is the number of slots every activation record
// reserves before its first user variable (spec.md §3.7).
const ReservedFrameSlots = isa.ReservedFrameSlots
