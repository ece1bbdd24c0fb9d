package audio

import (
	"testing"
	"time"
)

func TestValidatePCM(t *testing.T) {
	if err := ValidatePCM([]byte{}); err == nil {
		t.Error("Expected error for empty data")
	}

	if err := ValidatePCM([]byte{0x01}); err == nil {
		t.Error("Expected error for odd-length data")
	}

	if err := ValidatePCM([]byte{0x01, 0x02}); err != nil {
		t.Errorf("Unexpected error for aligned data: %v", err)
	}

	if err := ValidatePCM(make([]byte, 320)); err != nil {
		t.Errorf("Unexpected error for 320-byte chunk: %v", err)
	}
}

func TestDecodeEncodeSamples(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256, -256}

	data := EncodeSamples(samples)
	if len(data) != len(samples)*BytesPerSample {
		t.Fatalf("Expected %d bytes, got %d", len(samples)*BytesPerSample, len(data))
	}

	decoded, err := DecodeSamples(data)
	if err != nil {
		t.Fatalf("Failed to decode samples: %v", err)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	for i, s := range samples {
		if decoded[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, decoded[i])
		}
	}
}

func TestDecodeSamplesRejectsOddLength(t *testing.T) {
	if _, err := DecodeSamples([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Error("Expected error for odd-length data")
	}
}

func TestToFloat32(t *testing.T) {
	samples := []int16{0, 16384, -16384, 32767, -32768}
	data := EncodeSamples(samples)

	floats, err := ToFloat32(data)
	if err != nil {
		t.Fatalf("Failed to convert: %v", err)
	}

	expected := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1.0}
	for i, want := range expected {
		if floats[i] != want {
			t.Errorf("Sample %d: expected %f, got %f", i, want, floats[i])
		}
	}
}

func TestDuration(t *testing.T) {
	// 16000 samples at 16kHz is exactly one second
	data := make([]byte, 32000)

	d := Duration(data, 16000)
	if d != time.Second {
		t.Errorf("Expected 1s, got %v", d)
	}

	// 8000 bytes at 16kHz is 0.25s
	d = Duration(make([]byte, 8000), 16000)
	if d != 250*time.Millisecond {
		t.Errorf("Expected 250ms, got %v", d)
	}

	if Duration(data, 0) != 0 {
		t.Error("Expected zero duration for invalid sample rate")
	}
}
