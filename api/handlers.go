package api

import (
	"fmt"
	"net/http"

	"github.com/gophjp/fjp/compileerr"
	"github.com/gophjp/fjp/isa"
	"github.com/gophjp/fjp/lexer"
	"github.com/gophjp/fjp/parser"
)

// handleCompile handles POST /compile: a stateless check that reports
// token/instruction counts on success or a structured compileerr.Error
// rendering on failure. It never creates a session.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CompileRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tokens, err := lexer.Tokenize(req.Source)
	if err != nil {
		writeJSON(w, http.StatusOK, CompileResponse{Success: false, Error: err.Error()})
		return
	}

	code, _, err := parser.Compile(tokens)
	if err != nil {
		writeJSON(w, http.StatusOK, CompileResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, CompileResponse{
		Success:          true,
		TokenCount:       len(tokens),
		InstructionCount: len(code),
		Listing:          isa.Listing(code),
	})
}

// handleCreateSession handles POST /sessions.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SessionCreateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.sessions.CreateSession(req)
	if err != nil {
		if cerr, ok := err.(*compileerr.Error); ok {
			writeError(w, http.StatusBadRequest, cerr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create session: %v", err))
		return
	}

	writeJSON(w, http.StatusCreated, SessionCreateResponse{
		SessionID:        session.ID,
		CreatedAt:        session.CreatedAt,
		InstructionCount: len(session.VM.Code),
	})
}

// handleListSessions handles GET /sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.sessions.ListSessions()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": ids,
		"count":    len(ids),
	})
}

// handleGetSessionStatus handles GET /sessions/{id}.
func (s *Server) handleGetSessionStatus(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	session.mu.Lock()
	resp := SessionStatusResponse{
		SessionID: sessionID,
		PC:        session.VM.Regs.PC,
		BP:        session.VM.Regs.BP,
		SP:        session.VM.Regs.SP,
		Halted:    session.VM.Halted,
		Steps:     session.VM.Steps,
	}
	session.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleDestroySession handles DELETE /sessions/{id}.
func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.sessions.DestroySession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Session destroyed"})
}

// handleStep handles POST /sessions/{id}/step: single-steps the
// session's VM and broadcasts the resulting stdout and state snapshot
// to any subscribed WebSocket clients.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	resp := StepResponse{SessionID: sessionID}

	if session.VM.Halted {
		resp.Halted = true
		resp.PC, resp.BP, resp.SP = session.VM.Regs.PC, session.VM.Regs.BP, session.VM.Regs.SP
		resp.Steps = session.VM.Steps
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ew, _ := session.VM.Output.(*EventWriter)
	if ew != nil {
		ew.GetBufferAndClear()
	}
	if _, stepErr := session.VM.Step(); stepErr != nil {
		resp.Error = stepErr.Error()
	}
	if ew != nil {
		resp.Output = ew.GetBufferAndClear()
	}

	resp.PC, resp.BP, resp.SP = session.VM.Regs.PC, session.VM.Regs.BP, session.VM.Regs.SP
	resp.Halted = session.VM.Halted
	resp.Steps = session.VM.Steps

	s.broadcastState(sessionID, resp)
	writeJSON(w, http.StatusOK, resp)
}

// broadcastState sends a vm:state snapshot to WebSocket subscribers of
// this session.
func (s *Server) broadcastState(sessionID string, resp StepResponse) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastState(sessionID, VMStateSnapshot{
		PC:     resp.PC,
		BP:     resp.BP,
		SP:     resp.SP,
		Halted: resp.Halted,
		Steps:  resp.Steps,
	})
}
