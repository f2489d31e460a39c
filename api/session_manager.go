package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gophjp/fjp/lexer"
	"github.com/gophjp/fjp/parser"
	"github.com/gophjp/fjp/symtab"
	"github.com/gophjp/fjp/vm"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when maxSessions is already reached.
	ErrTooManySessions = errors.New("too many active sessions")
)

const (
	defaultMaxSessions = 64
	defaultSessionTTL  = 30 * time.Minute
)

// Session is one compiled program paused in a private vm.VM. The mutex
// guards every field below it; no session is ever shared across two
// concurrent requests without holding it first.
type Session struct {
	ID           string
	CreatedAt    time.Time
	lastAccessed time.Time

	mu      sync.Mutex
	VM      *vm.VM
	Symbols *symtab.Table
}

// touch records that the session was just used, resetting its idle
// clock for sessionTTL eviction.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

// SessionManager bounds concurrent sessions (maxSessions) and idles
// unused ones out (sessionTTL), grounded on the teacher's session
// lifecycle management but with no filesystem or trace state to clean
// up beyond the in-memory vm.VM itself.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	broadcaster *Broadcaster
	maxSessions int
	sessionTTL  time.Duration
}

// NewSessionManager creates a session manager with the default bounds.
func NewSessionManager(broadcaster *Broadcaster) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		broadcaster: broadcaster,
		maxSessions: defaultMaxSessions,
		sessionTTL:  defaultSessionTTL,
	}
}

// CreateSession compiles source and constructs a vm.VM in paused state,
// wiring its Output through an EventWriter so stdout writes reach any
// subscribed WebSocket clients.
func (sm *SessionManager) CreateSession(req SessionCreateRequest) (*Session, error) {
	sm.evictExpired()

	sm.mu.Lock()
	if len(sm.sessions) >= sm.maxSessions {
		sm.mu.Unlock()
		return nil, ErrTooManySessions
	}
	sm.mu.Unlock()

	tokens, err := lexer.Tokenize(req.Source)
	if err != nil {
		return nil, err
	}
	code, symbols, err := parser.Compile(tokens)
	if err != nil {
		return nil, err
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	machine := vm.New(code)
	machine.MaxSteps = req.MaxSteps
	if sm.broadcaster != nil {
		machine.Output = NewEventWriter(sm.broadcaster, sessionID, "stdout")
	}

	now := time.Now()
	session := &Session{
		ID:           sessionID,
		CreatedAt:    now,
		lastAccessed: now,
		VM:           machine,
		Symbols:      symbols,
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[sessionID] = session
	return session, nil
}

// GetSession retrieves a session by ID and refreshes its idle clock.
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	session, exists := sm.sessions[sessionID]
	sm.mu.RUnlock()

	if !exists {
		return nil, ErrSessionNotFound
	}
	session.touch()
	return session, nil
}

// DestroySession removes a session by ID.
func (sm *SessionManager) DestroySession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; !exists {
		return ErrSessionNotFound
	}
	delete(sm.sessions, sessionID)
	return nil
}

// ListSessions returns every active session ID.
func (sm *SessionManager) ListSessions() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// evictExpired removes sessions idle longer than sessionTTL. Called
// lazily on session creation rather than from a background goroutine,
// since the teacher has no precedent for a timer-driven sweep here.
func (sm *SessionManager) evictExpired() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		session.mu.Lock()
		idle := now.Sub(session.lastAccessed)
		session.mu.Unlock()
		if idle > sm.sessionTTL {
			delete(sm.sessions, id)
		}
	}
}

// generateSessionID generates a unique session ID.
func generateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
