package source

import (
	"fmt"
	"io"
	"math"

	"github.com/KyleGal/live-translation-api/internal/audio"
)

// FrameSource produces raw PCM chunks until the stream ends.
type FrameSource interface {
	// Next returns the next chunk of PCM bytes. It returns io.EOF when the
	// source is exhausted.
	Next() ([]byte, error)
}

// ReaderSource yields fixed-size PCM chunks from an io.Reader, typically an
// HTTP request body.
type ReaderSource struct {
	reader    io.Reader
	chunkSize int
}

// NewReaderSource creates a reader-backed frame source. chunkSize is rounded
// up to the sample width so chunks never split a sample.
func NewReaderSource(r io.Reader, chunkSize int) *ReaderSource {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	if chunkSize%audio.BytesPerSample != 0 {
		chunkSize++
	}

	return &ReaderSource{
		reader:    r,
		chunkSize: chunkSize,
	}
}

// Next reads up to chunkSize bytes. A short final read is returned as a
// smaller chunk; an odd trailing byte is rejected rather than padded.
func (s *ReaderSource) Next() ([]byte, error) {
	buf := make([]byte, s.chunkSize)

	n, err := io.ReadFull(s.reader, buf)
	if err == io.ErrUnexpectedEOF {
		if n%audio.BytesPerSample != 0 {
			return nil, fmt.Errorf("stream ends mid-sample (%d trailing bytes)", n%audio.BytesPerSample)
		}
		return buf[:n], nil
	}
	if err != nil {
		return nil, err
	}

	return buf, nil
}

// SyntheticSource generates a sine tone as 16-bit PCM, chunk by chunk. It is
// used by tests and tooling that need deterministic audio without a capture
// device.
type SyntheticSource struct {
	sampleRate int
	frequency  float64
	amplitude  float64
	chunkSize  int

	totalSamples int
	position     int
}

// SyntheticConfig describes the tone to generate.
type SyntheticConfig struct {
	SampleRate int
	Frequency  float64
	Amplitude  float64 // 0.0 to 1.0
	Duration   float64 // seconds
	ChunkSize  int     // bytes per chunk
}

// NewSyntheticSource creates a sine-wave frame source
func NewSyntheticSource(config SyntheticConfig) (*SyntheticSource, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %f", config.Duration)
	}
	if config.Frequency <= 0 {
		config.Frequency = 440
	}
	if config.Amplitude <= 0 || config.Amplitude > 1 {
		config.Amplitude = 0.5
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = 4096
	}
	if config.ChunkSize%audio.BytesPerSample != 0 {
		config.ChunkSize++
	}

	return &SyntheticSource{
		sampleRate:   config.SampleRate,
		frequency:    config.Frequency,
		amplitude:    config.Amplitude,
		chunkSize:    config.ChunkSize,
		totalSamples: int(config.Duration * float64(config.SampleRate)),
	}, nil
}

// Next generates the next chunk of the tone
func (s *SyntheticSource) Next() ([]byte, error) {
	if s.position >= s.totalSamples {
		return nil, io.EOF
	}

	samplesPerChunk := s.chunkSize / audio.BytesPerSample
	remaining := s.totalSamples - s.position
	if remaining < samplesPerChunk {
		samplesPerChunk = remaining
	}

	samples := make([]int16, samplesPerChunk)
	for i := range samples {
		t := float64(s.position+i) / float64(s.sampleRate)
		v := s.amplitude * math.Sin(2*math.Pi*s.frequency*t)
		samples[i] = int16(v * 32767)
	}
	s.position += samplesPerChunk

	return audio.EncodeSamples(samples), nil
}
