package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestEventConstructors(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ev := Status("listening", now)
	if ev.Type != KindStatus || ev.Text != "listening" || !ev.Timestamp.Equal(now) {
		t.Errorf("Unexpected status event: %+v", ev)
	}

	ev = Transcription("hello", now)
	if ev.Type != KindTranscription || ev.Text != "hello" || ev.IsFinal {
		t.Errorf("Unexpected transcription event: %+v", ev)
	}

	ev = Final("hello world", now)
	if ev.Type != KindFinal || !ev.IsFinal {
		t.Errorf("Final event must carry IsFinal: %+v", ev)
	}

	ev = Error("model down", now)
	if ev.Type != KindError || ev.Message != "model down" {
		t.Errorf("Unexpected error event: %+v", ev)
	}
}

func TestEventJSONShape(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	data, err := json.Marshal(Final("done", now))
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal event: %v", err)
	}

	if decoded["type"] != "final" {
		t.Errorf("Expected type 'final', got %v", decoded["type"])
	}
	if decoded["is_final"] != true {
		t.Errorf("Expected is_final true, got %v", decoded["is_final"])
	}
	if decoded["text"] != "done" {
		t.Errorf("Expected text 'done', got %v", decoded["text"])
	}
}

func TestStreamPreservesOrder(t *testing.T) {
	stream := NewStream(context.Background(), 16)
	now := time.Now()

	emitted := []Event{
		Status("listening", now),
		Transcription("partial", now.Add(time.Second)),
		Final("complete", now.Add(2*time.Second)),
	}

	for _, ev := range emitted {
		if !stream.Emit(ev) {
			t.Fatal("Emit failed with live consumer")
		}
	}
	stream.Close()

	var received []Event
	for ev := range stream.C() {
		received = append(received, ev)
	}

	if len(received) != len(emitted) {
		t.Fatalf("Expected %d events, got %d", len(emitted), len(received))
	}
	for i := range emitted {
		if received[i].Type != emitted[i].Type {
			t.Errorf("Event %d: expected type %s, got %s", i, emitted[i].Type, received[i].Type)
		}
	}
}

func TestStreamEmitAfterConsumerGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stream := NewStream(ctx, 1)

	if !stream.Emit(Status("listening", time.Now())) {
		t.Fatal("Emit should succeed before cancellation")
	}

	cancel()

	// Buffer is full and the consumer is gone; Emit must report failure
	// instead of blocking.
	if stream.Emit(Status("again", time.Now())) {
		t.Error("Emit must fail once the consumer context is cancelled")
	}

	if !stream.Done() {
		t.Error("Done must report the consumer as disconnected")
	}
}

func TestStreamEmitAfterClose(t *testing.T) {
	stream := NewStream(context.Background(), 4)

	stream.Close()
	stream.Close() // idempotent

	if stream.Emit(Status("late", time.Now())) {
		t.Error("Emit must fail after Close")
	}

	// The channel is closed; ranging over it terminates
	count := 0
	for range stream.C() {
		count++
	}
	if count != 0 {
		t.Errorf("Expected no events, got %d", count)
	}
}
