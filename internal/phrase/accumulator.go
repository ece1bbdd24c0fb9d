package phrase

import (
	"sync"
	"time"
)

// State represents the lifecycle state of a phrase
type State int

const (
	StateAccumulating State = iota
	StateComplete
)

// Phrase holds the accumulated audio for one ongoing or completed utterance.
type Phrase struct {
	Bytes          []byte
	StartTime      time.Time
	LastUpdateTime time.Time
	State          State
}

// Duration returns the audio duration of the phrase at the given sample rate
// for 16-bit mono PCM.
func (p *Phrase) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}

	return time.Duration(float64(len(p.Bytes)/2) / float64(sampleRate) * float64(time.Second))
}

// Accumulator turns a continuous byte stream into discrete phrases. Incoming
// payloads are appended to the active phrase; a debounced silence timeout or
// an explicit boundary signal completes the phrase and starts a fresh one.
type Accumulator struct {
	current *Phrase

	// Statistics
	phrasesCompleted uint64
	bytesAccumulated uint64

	mu sync.Mutex
}

// AccumulatorStats represents accumulator statistics for monitoring
type AccumulatorStats struct {
	PhrasesCompleted uint64 `json:"phrases_completed"`
	BytesAccumulated uint64 `json:"bytes_accumulated"`
	CurrentBytes     int    `json:"current_bytes"`
}

// NewAccumulator creates an accumulator with an empty active phrase.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		current: &Phrase{State: StateAccumulating},
	}
}

// Append adds a payload to the active phrase. The first payload of a fresh
// phrase sets its start time; every payload advances the last-update time.
func (a *Accumulator) Append(payload []byte, now time.Time) {
	if len(payload) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.current.Bytes) == 0 {
		a.current.StartTime = now
	}

	a.current.Bytes = append(a.current.Bytes, payload...)
	a.current.LastUpdateTime = now
	a.bytesAccumulated += uint64(len(payload))
}

// CheckTimeout completes the active phrase when more than timeout has passed
// since the last append and the buffer is non-empty. A fresh empty phrase
// begins immediately with startTime = now. Returns the completed phrase, or
// nil when nothing fired.
func (a *Accumulator) CheckTimeout(now time.Time, timeout time.Duration) *Phrase {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.current.Bytes) == 0 {
		return nil
	}

	if now.Sub(a.current.LastUpdateTime) <= timeout {
		return nil
	}

	return a.completeLocked(now)
}

// Finalize completes the active phrase unconditionally (VAD boundary or
// session end). Returns nil when the buffer is empty.
func (a *Accumulator) Finalize(now time.Time) *Phrase {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.current.Bytes) == 0 {
		return nil
	}

	return a.completeLocked(now)
}

// completeLocked transitions the active phrase to Complete and starts a new
// empty one. Caller holds a.mu.
func (a *Accumulator) completeLocked(now time.Time) *Phrase {
	done := a.current
	done.State = StateComplete

	a.current = &Phrase{State: StateAccumulating, StartTime: now}
	a.phrasesCompleted++

	return done
}

// Current returns a snapshot of the active phrase's bytes and timing. The
// returned slice is a copy so callers can hand it to a transcription call
// while appends continue.
func (a *Accumulator) Current() Phrase {
	a.mu.Lock()
	defer a.mu.Unlock()

	bytes := make([]byte, len(a.current.Bytes))
	copy(bytes, a.current.Bytes)

	return Phrase{
		Bytes:          bytes,
		StartTime:      a.current.StartTime,
		LastUpdateTime: a.current.LastUpdateTime,
		State:          a.current.State,
	}
}

// HasAudio reports whether the active phrase contains any audio.
func (a *Accumulator) HasAudio() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return len(a.current.Bytes) > 0
}

// GetStats returns current accumulator statistics
func (a *Accumulator) GetStats() AccumulatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	return AccumulatorStats{
		PhrasesCompleted: a.phrasesCompleted,
		BytesAccumulated: a.bytesAccumulated,
		CurrentBytes:     len(a.current.Bytes),
	}
}
