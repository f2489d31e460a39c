package vm

import (
	"fmt"
	"io"
)

// CallFrame identifies one live activation record on the call stack.
type CallFrame struct {
	Entry      int // address CAL jumped to
	ReturnAddr int // address execution resumes at on RET
}

// CallTrace tracks the live call stack as CAL pushes frames and RET
// pops them, so the debugger and a post-mortem report can show which
// functions were active at a fault (spec.md §3.7 describes the
// activation record's dynamic link and return-address slots; this
// mirrors that chain at the Go level instead of walking stack memory).
type CallTrace struct {
	frames []CallFrame
	depth  int // running count, including frames beyond MaxDepth
}

// NewCallTrace returns an empty call trace.
func NewCallTrace() *CallTrace {
	return &CallTrace{}
}

// Push records a call to entry from the given return address.
func (c *CallTrace) Push(entry, returnAddr int) {
	c.frames = append(c.frames, CallFrame{Entry: entry, ReturnAddr: returnAddr})
	c.depth++
}

// Pop removes the innermost frame on return.
func (c *CallTrace) Pop() {
	if len(c.frames) == 0 {
		return
	}
	c.frames = c.frames[:len(c.frames)-1]
	if c.depth > 0 {
		c.depth--
	}
}

// Depth returns the number of currently active calls.
func (c *CallTrace) Depth() int {
	return len(c.frames)
}

// Frames returns the active call chain, outermost first.
func (c *CallTrace) Frames() []CallFrame {
	return c.frames
}

// WriteReport writes the live call chain, innermost first.
func (c *CallTrace) WriteReport(w io.Writer) error {
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		if _, err := fmt.Fprintf(w, "#%d in routine at [#%03d], return to [#%03d]\n", len(c.frames)-1-i, f.Entry, f.ReturnAddr); err != nil {
			return err
		}
	}
	return nil
}
