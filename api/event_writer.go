package api

import (
	"bytes"
	"io"
	"sync"
)

// EventWriter is the io.Writer a session's vm.VM.Output is pointed at: every
// SIOWrite the program executes lands here, gets buffered for polling
// clients, and is broadcast as an OutputChunk to any WebSocket subscriber.
type EventWriter struct {
	broadcaster *Broadcaster
	sessionID   string
	stream      string // "stdout", the only console stream this VM has
	buffer      *bytes.Buffer
	mutex       sync.Mutex
}

// NewEventWriter creates a new event-broadcasting writer
func NewEventWriter(broadcaster *Broadcaster, sessionID string, stream string) *EventWriter {
	return &EventWriter{
		broadcaster: broadcaster,
		sessionID:   sessionID,
		stream:      stream,
		buffer:      &bytes.Buffer{},
	}
}

// Write is called once per SIOWrite the VM executes; it buffers the bytes
// for GetBuffer/GetBufferAndClear and fans them out to WebSocket subscribers.
func (w *EventWriter) Write(p []byte) (n int, err error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	n, err = w.buffer.Write(p)
	if err == nil && n > 0 && w.broadcaster != nil {
		w.broadcaster.BroadcastOutput(w.sessionID, w.stream, string(p))
	}
	return n, err
}

// GetBufferAndClear returns the buffer contents and clears it
// This is useful for retrieving accumulated output
func (w *EventWriter) GetBufferAndClear() string {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	output := w.buffer.String()
	w.buffer.Reset()
	return output
}

// GetBuffer returns the current buffer contents without clearing
func (w *EventWriter) GetBuffer() string {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.buffer.String()
}

// Ensure EventWriter implements io.Writer
var _ io.Writer = (*EventWriter)(nil)
