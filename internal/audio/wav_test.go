package audio

import (
	"bytes"
	"testing"
)

func createTestPCM(numSamples int) []byte {
	samples := make([]int16, numSamples)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	return EncodeSamples(samples)
}

func TestEncodeDecodeWAV(t *testing.T) {
	pcm := createTestPCM(16000)

	wav, err := EncodeWAV(pcm, 16000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	if len(wav) != wavHeaderSize+len(pcm) {
		t.Errorf("Expected %d bytes, got %d", wavHeaderSize+len(pcm), len(wav))
	}

	if string(wav[0:4]) != "RIFF" {
		t.Error("Missing RIFF marker")
	}
	if string(wav[8:12]) != "WAVE" {
		t.Error("Missing WAVE marker")
	}

	decoded, sampleRate, err := DecodeWAV(wav)
	if err != nil {
		t.Fatalf("Failed to decode WAV: %v", err)
	}

	if sampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", sampleRate)
	}

	if !bytes.Equal(decoded, pcm) {
		t.Error("Decoded PCM does not match original")
	}
}

func TestEncodeWAVRejectsInvalidInput(t *testing.T) {
	if _, err := EncodeWAV([]byte{}, 16000); err == nil {
		t.Error("Expected error for empty PCM")
	}

	if _, err := EncodeWAV([]byte{0x01}, 16000); err == nil {
		t.Error("Expected error for odd-length PCM")
	}

	if _, err := EncodeWAV(createTestPCM(100), 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestDecodeWAVRejectsMalformedData(t *testing.T) {
	if _, _, err := DecodeWAV([]byte("too short")); err == nil {
		t.Error("Expected error for short data")
	}

	wav, err := EncodeWAV(createTestPCM(100), 16000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	corrupt := make([]byte, len(wav))
	copy(corrupt, wav)
	copy(corrupt[0:4], "JUNK")
	if _, _, err := DecodeWAV(corrupt); err == nil {
		t.Error("Expected error for missing RIFF marker")
	}

	// Truncated data section
	if _, _, err := DecodeWAV(wav[:len(wav)-50]); err == nil {
		t.Error("Expected error for truncated data")
	}
}

func TestGetWAVDuration(t *testing.T) {
	// One second at 16kHz
	wav, err := EncodeWAV(createTestPCM(16000), 16000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	duration, err := GetWAVDuration(wav)
	if err != nil {
		t.Fatalf("Failed to get duration: %v", err)
	}

	if duration != 1.0 {
		t.Errorf("Expected 1.0s, got %f", duration)
	}
}
