package api

import "time"

// CompileRequest carries raw source text for a stateless compile check.
type CompileRequest struct {
	Source string `json:"source"`
}

// CompileResponse reports token/instruction counts on success, or the
// structured compileerr.Error rendering on failure.
type CompileResponse struct {
	Success          bool   `json:"success"`
	TokenCount       int    `json:"tokenCount,omitempty"`
	InstructionCount int    `json:"instructionCount,omitempty"`
	Listing          string `json:"listing,omitempty"`
	Error            string `json:"error,omitempty"`
}

// SessionCreateRequest carries the source to compile and run, plus the
// optional execution bound the teacher's CLI flag set exposes as
// -max-steps.
type SessionCreateRequest struct {
	Source   string `json:"source"`
	MaxSteps uint64 `json:"maxSteps,omitempty"`
}

// SessionCreateResponse is returned once a session's VM has been
// constructed in paused state.
type SessionCreateResponse struct {
	SessionID        string    `json:"sessionId"`
	CreatedAt        time.Time `json:"createdAt"`
	InstructionCount int       `json:"instructionCount"`
}

// SessionStatusResponse mirrors a vm.VM's exported Registers plus its
// Halted flag and step counter.
type SessionStatusResponse struct {
	SessionID string `json:"sessionId"`
	PC        int    `json:"pc"`
	BP        int    `json:"bp"`
	SP        int    `json:"sp"`
	Halted    bool   `json:"halted"`
	Steps     uint64 `json:"steps"`
}

// StepResponse reports the VM state after a single step, plus any
// stdout produced during that step.
type StepResponse struct {
	SessionID string `json:"sessionId"`
	PC        int    `json:"pc"`
	BP        int    `json:"bp"`
	SP        int    `json:"sp"`
	Halted    bool   `json:"halted"`
	Steps     uint64 `json:"steps"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ErrorResponse is the JSON body written for any non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse is a generic acknowledgement body.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// StateEvent has the JSON shape of the vm:state payload; the Broadcaster
// itself sends a VMStateSnapshot, not this type.
type StateEvent struct {
	PC     int    `json:"pc"`
	BP     int    `json:"bp"`
	SP     int    `json:"sp"`
	Halted bool   `json:"halted"`
	Steps  uint64 `json:"steps"`
}

// OutputEvent has the JSON shape of the vm:output payload; the Broadcaster
// itself sends an OutputChunk, not this type.
type OutputEvent struct {
	Stream  string `json:"stream"`
	Content string `json:"content"`
}
