package audio

import (
	"fmt"
	"time"
)

// BytesPerSample is the sample width for 16-bit linear PCM.
const BytesPerSample = 2

// Chunk represents one delivery unit of raw PCM bytes from an audio source.
type Chunk struct {
	Payload     []byte
	ArrivalTime time.Time
}

// ValidatePCM checks that raw audio data is aligned to the 16-bit sample width.
func ValidatePCM(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("audio data is empty")
	}

	if len(data)%BytesPerSample != 0 {
		return fmt.Errorf("audio data length must be a multiple of %d bytes, got %d",
			BytesPerSample, len(data))
	}

	return nil
}

// DecodeSamples converts raw little-endian PCM-16 bytes to int16 samples.
func DecodeSamples(data []byte) ([]int16, error) {
	if err := ValidatePCM(data); err != nil {
		return nil, err
	}

	samples := make([]int16, len(data)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}

	return samples, nil
}

// EncodeSamples converts int16 samples to raw little-endian PCM-16 bytes.
func EncodeSamples(samples []int16) []byte {
	data := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}

	return data
}

// ToFloat32 converts raw PCM-16 bytes to the normalized float representation
// expected by the transcription model (each sample divided by 32768).
func ToFloat32(data []byte) ([]float32, error) {
	samples, err := DecodeSamples(data)
	if err != nil {
		return nil, err
	}

	normalized := make([]float32, len(samples))
	for i, s := range samples {
		normalized[i] = float32(s) / 32768.0
	}

	return normalized, nil
}

// Duration returns the playback duration of raw PCM-16 data at the given sample rate.
func Duration(data []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}

	numSamples := len(data) / BytesPerSample
	return time.Duration(float64(numSamples) / float64(sampleRate) * float64(time.Second))
}
