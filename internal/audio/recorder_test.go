package audio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecorderAppend(t *testing.T) {
	recorder := NewRecorder(16000)

	frame1 := createTestPCM(160)
	frame2 := createTestPCM(320)

	if err := recorder.Append(frame1); err != nil {
		t.Fatalf("Failed to append frame: %v", err)
	}
	if err := recorder.Append(frame2); err != nil {
		t.Fatalf("Failed to append frame: %v", err)
	}

	recorded := recorder.Bytes()
	expected := append(append([]byte{}, frame1...), frame2...)
	if !bytes.Equal(recorded, expected) {
		t.Error("Recorded bytes do not match appended frames in order")
	}

	stats := recorder.GetStats()
	if stats.FrameCount != 2 {
		t.Errorf("Expected 2 frames, got %d", stats.FrameCount)
	}
	if stats.TotalBytes != len(expected) {
		t.Errorf("Expected %d bytes, got %d", len(expected), stats.TotalBytes)
	}
}

func TestRecorderRejectsInvalidFrames(t *testing.T) {
	recorder := NewRecorder(16000)

	if err := recorder.Append([]byte{}); err == nil {
		t.Error("Expected error for empty frame")
	}
	if err := recorder.Append([]byte{0x01}); err == nil {
		t.Error("Expected error for odd-length frame")
	}

	if len(recorder.Bytes()) != 0 {
		t.Error("Rejected frames must not reach the buffer")
	}
}

func TestRecorderFreeze(t *testing.T) {
	recorder := NewRecorder(16000)

	if err := recorder.Append(createTestPCM(160)); err != nil {
		t.Fatalf("Failed to append frame: %v", err)
	}

	recorder.Freeze()

	if err := recorder.Append(createTestPCM(160)); err == nil {
		t.Error("Expected error appending to frozen recorder")
	}

	if !recorder.GetStats().Frozen {
		t.Error("Expected frozen state in stats")
	}
}

func TestRecorderDuration(t *testing.T) {
	recorder := NewRecorder(16000)

	// 16000 samples = one second
	if err := recorder.Append(createTestPCM(16000)); err != nil {
		t.Fatalf("Failed to append frame: %v", err)
	}

	if recorder.Duration() != time.Second {
		t.Errorf("Expected 1s, got %v", recorder.Duration())
	}
}

func TestRecorderSaveWAV(t *testing.T) {
	dir := t.TempDir()
	recorder := NewRecorder(16000)

	if _, err := recorder.SaveWAV(dir); err == nil {
		t.Error("Expected error saving empty recording")
	}

	pcm := createTestPCM(8000)
	if err := recorder.Append(pcm); err != nil {
		t.Fatalf("Failed to append frame: %v", err)
	}

	path, err := recorder.SaveWAV(dir)
	if err != nil {
		t.Fatalf("Failed to save WAV: %v", err)
	}

	name := filepath.Base(path)
	if !strings.HasPrefix(name, "recording_") || !strings.HasSuffix(name, ".wav") {
		t.Errorf("Unexpected recording file name: %s", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}

	decoded, sampleRate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("Saved file is not valid WAV: %v", err)
	}
	if sampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", sampleRate)
	}
	if !bytes.Equal(decoded, pcm) {
		t.Error("Saved PCM does not match recorded audio")
	}
}
