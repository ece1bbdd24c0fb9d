package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Recorder accumulates every ingested audio frame for the lifetime of a
// session so that the post-session diarization pass can operate on the
// complete recording. The buffer is session-scoped and not durable.
type Recorder struct {
	sampleRate int
	frames     []byte
	frameCount uint64
	frozen     bool
	lastUpdate time.Time

	mu sync.RWMutex
}

// RecorderStats represents recorder statistics for monitoring
type RecorderStats struct {
	FrameCount uint64  `json:"frame_count"`
	TotalBytes int     `json:"total_bytes"`
	Duration   float64 `json:"duration_seconds"`
	Frozen     bool    `json:"frozen"`
}

// NewRecorder creates a recorder for the given sample rate.
func NewRecorder(sampleRate int) *Recorder {
	return &Recorder{
		sampleRate: sampleRate,
		frames:     make([]byte, 0, sampleRate*BytesPerSample*2), // pre-allocate ~2 seconds
		lastUpdate: time.Now(),
	}
}

// Append stores one validated frame of raw PCM data.
func (r *Recorder) Append(data []byte) error {
	if err := ValidatePCM(data); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("recorder is frozen, session has ended")
	}

	r.frames = append(r.frames, data...)
	r.frameCount++
	r.lastUpdate = time.Now()

	return nil
}

// Freeze marks the recording complete. Further appends fail; the recorded
// audio becomes an immutable artifact for the alignment pass.
func (r *Recorder) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frozen = true
}

// Bytes returns a copy of the recorded PCM data.
func (r *Recorder) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]byte, len(r.frames))
	copy(out, r.frames)

	return out
}

// Duration returns the recorded audio duration.
func (r *Recorder) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Duration(r.frames, r.sampleRate)
}

// LastUpdate returns the time of the most recent append.
func (r *Recorder) LastUpdate() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastUpdate
}

// SaveWAV writes the recording as a WAV file into dir and returns the path.
// File names follow the recording_<timestamp>.wav convention.
func (r *Recorder) SaveWAV(dir string) (string, error) {
	r.mu.RLock()
	pcm := make([]byte, len(r.frames))
	copy(pcm, r.frames)
	r.mu.RUnlock()

	if len(pcm) == 0 {
		return "", fmt.Errorf("no audio recorded")
	}

	wav, err := EncodeWAV(pcm, r.sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode recording: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording dir: %w", err)
	}

	name := fmt.Sprintf("recording_%s.wav", time.Now().Format("20060102_150405"))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return "", fmt.Errorf("failed to write recording: %w", err)
	}

	return path, nil
}

// GetStats returns current recorder statistics
func (r *Recorder) GetStats() RecorderStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RecorderStats{
		FrameCount: r.frameCount,
		TotalBytes: len(r.frames),
		Duration:   Duration(r.frames, r.sampleRate).Seconds(),
		Frozen:     r.frozen,
	}
}
