package phrase

import (
	"bytes"
	"testing"
	"time"
)

func TestAppendSetsStartTime(t *testing.T) {
	acc := NewAccumulator()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	acc.Append([]byte{0x01, 0x02}, now)

	current := acc.Current()
	if !current.StartTime.Equal(now) {
		t.Errorf("Expected start time %v, got %v", now, current.StartTime)
	}
	if !current.LastUpdateTime.Equal(now) {
		t.Errorf("Expected last update %v, got %v", now, current.LastUpdateTime)
	}
	if current.State != StateAccumulating {
		t.Errorf("Expected accumulating state, got %v", current.State)
	}

	// A later append keeps the original start time
	later := now.Add(time.Second)
	acc.Append([]byte{0x03, 0x04}, later)

	current = acc.Current()
	if !current.StartTime.Equal(now) {
		t.Errorf("Start time must not change on later appends, got %v", current.StartTime)
	}
	if !current.LastUpdateTime.Equal(later) {
		t.Errorf("Expected last update %v, got %v", later, current.LastUpdateTime)
	}
}

func TestAppendPreservesOrder(t *testing.T) {
	acc := NewAccumulator()
	now := time.Now()

	payloads := [][]byte{
		{0x01, 0x02},
		{0x03, 0x04, 0x05, 0x06},
		{0x07, 0x08},
	}

	var expected []byte
	for i, p := range payloads {
		acc.Append(p, now.Add(time.Duration(i)*time.Millisecond))
		expected = append(expected, p...)
	}

	current := acc.Current()
	if !bytes.Equal(current.Bytes, expected) {
		t.Error("Accumulated bytes do not equal the payloads concatenated in order")
	}
}

func TestCheckTimeoutFiresAfterGap(t *testing.T) {
	acc := NewAccumulator()
	start := time.Now()
	timeout := 3 * time.Second

	acc.Append([]byte{0x01, 0x02}, start)

	// Gap equal to the timeout does not fire; it must be exceeded
	if completed := acc.CheckTimeout(start.Add(timeout), timeout); completed != nil {
		t.Error("Timeout must not fire at exactly the timeout boundary")
	}

	completed := acc.CheckTimeout(start.Add(timeout+time.Millisecond), timeout)
	if completed == nil {
		t.Fatal("Expected timeout to fire after the gap exceeded the timeout")
	}

	if completed.State != StateComplete {
		t.Errorf("Expected complete state, got %v", completed.State)
	}
	if !bytes.Equal(completed.Bytes, []byte{0x01, 0x02}) {
		t.Error("Completed phrase lost audio")
	}
}

func TestCheckTimeoutEmptyBufferIsNoOp(t *testing.T) {
	acc := NewAccumulator()

	if completed := acc.CheckTimeout(time.Now(), time.Second); completed != nil {
		t.Error("Timeout check on an empty buffer must be a no-op")
	}
	if acc.GetStats().PhrasesCompleted != 0 {
		t.Error("No phrases should have completed")
	}
}

func TestCompletionStartsFreshPhrase(t *testing.T) {
	acc := NewAccumulator()
	start := time.Now()

	acc.Append([]byte{0x01, 0x02}, start)

	fireTime := start.Add(4 * time.Second)
	if completed := acc.CheckTimeout(fireTime, 3*time.Second); completed == nil {
		t.Fatal("Expected timeout to fire")
	}

	current := acc.Current()
	if len(current.Bytes) != 0 {
		t.Error("New phrase must start empty")
	}
	if !current.StartTime.Equal(fireTime) {
		t.Errorf("New phrase start time must be the completion time, got %v", current.StartTime)
	}
	if acc.HasAudio() {
		t.Error("HasAudio must be false after completion")
	}
}

func TestFinalize(t *testing.T) {
	acc := NewAccumulator()
	now := time.Now()

	if completed := acc.Finalize(now); completed != nil {
		t.Error("Finalize on an empty buffer must return nil")
	}

	acc.Append([]byte{0x01, 0x02, 0x03, 0x04}, now)

	completed := acc.Finalize(now.Add(time.Millisecond))
	if completed == nil {
		t.Fatal("Expected finalize to complete the phrase")
	}
	if completed.State != StateComplete {
		t.Errorf("Expected complete state, got %v", completed.State)
	}
	if len(completed.Bytes) != 4 {
		t.Errorf("Expected 4 bytes, got %d", len(completed.Bytes))
	}
}

func TestNoDataLossAcrossPhrases(t *testing.T) {
	acc := NewAccumulator()
	now := time.Now()
	timeout := 3 * time.Second

	var all []byte
	var completed []byte

	// First phrase: three chunks, then a timeout
	for i := 0; i < 3; i++ {
		payload := []byte{byte(i), byte(i + 1)}
		acc.Append(payload, now.Add(time.Duration(i)*100*time.Millisecond))
		all = append(all, payload...)
	}
	if p := acc.CheckTimeout(now.Add(10*time.Second), timeout); p != nil {
		completed = append(completed, p.Bytes...)
	}

	// Second phrase: two chunks, explicit finalize
	for i := 10; i < 12; i++ {
		payload := []byte{byte(i), byte(i + 1)}
		acc.Append(payload, now.Add(11*time.Second))
		all = append(all, payload...)
	}
	if p := acc.Finalize(now.Add(12 * time.Second)); p != nil {
		completed = append(completed, p.Bytes...)
	}

	if !bytes.Equal(completed, all) {
		t.Error("Concatenation of completed phrases must equal all appended payloads in order")
	}

	if acc.GetStats().PhrasesCompleted != 2 {
		t.Errorf("Expected 2 completed phrases, got %d", acc.GetStats().PhrasesCompleted)
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	acc := NewAccumulator()
	acc.Append([]byte{0x01, 0x02}, time.Now())

	snapshot := acc.Current()
	snapshot.Bytes[0] = 0xFF

	if acc.Current().Bytes[0] != 0x01 {
		t.Error("Current must return a copy, not the live buffer")
	}
}

func TestPhraseDuration(t *testing.T) {
	p := &Phrase{Bytes: make([]byte, 8000)}

	// 8000 bytes = 4000 samples = 0.25s at 16kHz
	if d := p.Duration(16000); d != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", d)
	}

	if d := p.Duration(0); d != 0 {
		t.Errorf("Expected zero duration for invalid sample rate, got %v", d)
	}
}
