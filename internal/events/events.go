package events

import (
	"context"
	"sync"
	"time"
)

// Kind identifies the type of a session event.
type Kind string

const (
	KindStatus        Kind = "status"
	KindTranscription Kind = "transcription"
	KindFinal         Kind = "final"
	KindError         Kind = "error"
)

// Event is one status/transcription/final/error notification emitted to the
// session's consumer. The JSON shape matches the wire events clients parse.
type Event struct {
	Type      Kind      `json:"type"`
	Text      string    `json:"text,omitempty"`
	IsFinal   bool      `json:"is_final,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Status creates a status event.
func Status(text string, now time.Time) Event {
	return Event{Type: KindStatus, Text: text, Timestamp: now}
}

// Transcription creates a live (interim) transcription event.
func Transcription(text string, now time.Time) Event {
	return Event{Type: KindTranscription, Text: text, IsFinal: false, Timestamp: now}
}

// Final creates a final transcription event for a completed phrase.
func Final(text string, now time.Time) Event {
	return Event{Type: KindFinal, Text: text, IsFinal: true, Timestamp: now}
}

// Error creates an error event carrying a failure message.
func Error(message string, now time.Time) Event {
	return Event{Type: KindError, Message: message, Timestamp: now}
}

// Stream is an ordered, single-consumer sink for session events. Producers
// emit through Emit; the transport layer consumes from C. When the consumer's
// context is cancelled the stream reports closed so producers stop doing
// dispatch work.
type Stream struct {
	ch     chan Event
	ctx    context.Context
	closed bool
	mu     sync.Mutex
}

// NewStream creates an event stream bound to the consumer's context.
func NewStream(ctx context.Context, buffer int) *Stream {
	if buffer < 1 {
		buffer = 16
	}

	return &Stream{
		ch:  make(chan Event, buffer),
		ctx: ctx,
	}
}

// Emit delivers an event in order. It returns false when the consumer is
// gone (context cancelled or stream closed); the producer must stop further
// dispatch work for the session once that happens.
func (s *Stream) Emit(ev Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	select {
	case s.ch <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// C returns the consumer side of the stream.
func (s *Stream) C() <-chan Event {
	return s.ch
}

// Close marks the stream complete. Safe to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Done reports whether the consumer has disconnected.
func (s *Stream) Done() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}
