package api

import (
	"testing"
	"time"
)

func TestBroadcaster_StateEventReachesSubscriber(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe("sess-1", []EventType{EventTypeState})
	defer b.Unsubscribe(sub)

	b.BroadcastState("sess-1", VMStateSnapshot{PC: 3, BP: 1, SP: 5, Halted: false, Steps: 7})

	select {
	case evt := <-sub.Channel:
		if evt.Type != EventTypeState {
			t.Errorf("Type = %v, want %v", evt.Type, EventTypeState)
		}
		snap, ok := evt.Data.(VMStateSnapshot)
		if !ok {
			t.Fatalf("Data = %#v, want VMStateSnapshot", evt.Data)
		}
		if snap.PC != 3 || snap.Steps != 7 {
			t.Errorf("snapshot = %+v, want PC=3 Steps=7", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive broadcast state event")
	}
}

func TestBroadcaster_OutputEventCarriesChunk(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe("sess-1", []EventType{EventTypeOutput})
	defer b.Unsubscribe(sub)

	b.BroadcastOutput("sess-1", "stdout", "42\n")

	select {
	case evt := <-sub.Channel:
		chunk, ok := evt.Data.(OutputChunk)
		if !ok {
			t.Fatalf("Data = %#v, want OutputChunk", evt.Data)
		}
		if chunk.Content != "42\n" || chunk.Stream != "stdout" {
			t.Errorf("chunk = %+v, want stdout/42\\n", chunk)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive broadcast output event")
	}
}

func TestBroadcaster_ExecutionEventFiltersBySession(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe("sess-only", []EventType{EventTypeExecution})
	defer b.Unsubscribe(sub)

	b.BroadcastExecutionEvent("other-sess", "halt", nil)
	b.BroadcastExecutionEvent("sess-only", "halt", map[string]interface{}{"exitCode": 0})

	select {
	case evt := <-sub.Channel:
		notice, ok := evt.Data.(ExecutionNotice)
		if !ok {
			t.Fatalf("Data = %#v, want ExecutionNotice", evt.Data)
		}
		if notice.Event != "halt" {
			t.Errorf("Event = %q, want halt", notice.Event)
		}
		if evt.SessionID != "sess-only" {
			t.Errorf("SessionID = %q, want sess-only", evt.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive broadcast execution event for subscribed session")
	}
}

func TestEventWriter_WriteBuffersAndBroadcasts(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	sub := b.Subscribe("sess-1", []EventType{EventTypeOutput})
	defer b.Unsubscribe(sub)

	w := NewEventWriter(b, "sess-1", "stdout")
	if _, err := w.Write([]byte("hi\n")); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	if got := w.GetBuffer(); got != "hi\n" {
		t.Errorf("GetBuffer() = %q, want %q", got, "hi\n")
	}

	select {
	case evt := <-sub.Channel:
		chunk := evt.Data.(OutputChunk)
		if chunk.Content != "hi\n" {
			t.Errorf("broadcast content = %q, want %q", chunk.Content, "hi\n")
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive broadcast output event from EventWriter")
	}

	if got := w.GetBufferAndClear(); got != "hi\n" {
		t.Errorf("GetBufferAndClear() = %q, want %q", got, "hi\n")
	}
	if got := w.GetBuffer(); got != "" {
		t.Errorf("buffer after clear = %q, want empty", got)
	}
}
