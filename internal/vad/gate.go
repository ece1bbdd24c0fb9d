package vad

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// aggressiveness maps the 0-3 setting to a normalized energy threshold.
// Higher levels require more energy to count a frame as speech.
var aggressivenessThresholds = [4]float32{0.02, 0.04, 0.08, 0.15}

// Gate classifies fixed-duration PCM frames as speech or silence and emits
// an explicit phrase-boundary signal once consecutive silence exceeds the
// configured duration while speech was previously active. It lets a session
// end a phrase faster than the pure timeout heuristic.
type Gate struct {
	threshold     float32
	frameSamples  int // samples per frame (e.g. 480 for 30ms at 16kHz)
	sampleRate    int
	silenceFrames int // consecutive silence frames before a boundary fires

	// Classification state
	remainder    []byte // partial frame carried between Feed calls
	lastResult   float32
	smoothing    float32
	speaking     bool
	silenceCount int

	// Statistics
	totalFrames  uint64
	speechFrames uint64
	boundaries   uint64

	mu sync.Mutex
}

// Config contains gate configuration.
type Config struct {
	Aggressiveness  int
	FrameDuration   time.Duration
	SilenceDuration time.Duration
	SampleRate      int
}

// GateStats represents gate statistics
type GateStats struct {
	TotalFrames      uint64  `json:"total_frames"`
	SpeechFrames     uint64  `json:"speech_frames"`
	SpeechPercentage float64 `json:"speech_percentage"`
	Boundaries       uint64  `json:"boundaries"`
	Speaking         bool    `json:"speaking"`
}

// NewGate creates a new voice activity gate.
func NewGate(cfg Config) (*Gate, error) {
	if cfg.Aggressiveness < 0 || cfg.Aggressiveness > 3 {
		return nil, fmt.Errorf("aggressiveness must be between 0 and 3, got %d", cfg.Aggressiveness)
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	if cfg.FrameDuration <= 0 {
		return nil, fmt.Errorf("frame duration must be positive, got %v", cfg.FrameDuration)
	}

	if cfg.SilenceDuration <= 0 {
		return nil, fmt.Errorf("silence duration must be positive, got %v", cfg.SilenceDuration)
	}

	frameSamples := int(float64(cfg.SampleRate) * cfg.FrameDuration.Seconds())
	if frameSamples <= 0 {
		return nil, fmt.Errorf("frame duration %v too short for sample rate %d", cfg.FrameDuration, cfg.SampleRate)
	}

	silenceFrames := int(cfg.SilenceDuration / cfg.FrameDuration)
	if silenceFrames < 1 {
		silenceFrames = 1
	}

	return &Gate{
		threshold:     aggressivenessThresholds[cfg.Aggressiveness],
		frameSamples:  frameSamples,
		sampleRate:    cfg.SampleRate,
		silenceFrames: silenceFrames,
		smoothing:     0.3, // light smoothing so single noisy frames don't flip the state
	}, nil
}

// Feed consumes an arbitrary-size PCM payload, slicing it into whole frames
// and classifying each. It returns true when a phrase boundary fired within
// the payload. A partial trailing frame is carried over to the next call.
func (g *Gate) Feed(data []byte) (bool, error) {
	if len(data)%2 != 0 {
		return false, fmt.Errorf("payload length must be even, got %d bytes", len(data))
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.remainder = append(g.remainder, data...)

	frameBytes := g.frameSamples * 2
	boundary := false

	for len(g.remainder) >= frameBytes {
		frame := g.remainder[:frameBytes]
		g.remainder = g.remainder[frameBytes:]

		if g.classifyFrame(frame) {
			boundary = true
		}
	}

	return boundary, nil
}

// classifyFrame runs one frame through the energy classifier and advances the
// speaking/silence state machine. Returns true when this frame completes the
// silence run that ends an utterance. Caller holds g.mu.
func (g *Gate) classifyFrame(frame []byte) bool {
	energy := normalizedEnergy(frame)

	// Exponential smoothing, matching the window-to-window continuity the
	// model-based detectors exhibit.
	if g.totalFrames > 0 {
		energy = g.smoothing*energy + (1-g.smoothing)*g.lastResult
	}
	g.lastResult = energy

	isSpeech := energy >= g.threshold

	g.totalFrames++
	if isSpeech {
		g.speechFrames++
	}

	if isSpeech {
		g.speaking = true
		g.silenceCount = 0
		return false
	}

	if !g.speaking {
		return false
	}

	g.silenceCount++
	if g.silenceCount < g.silenceFrames {
		return false
	}

	// Enough silence after speech: the utterance is over.
	g.speaking = false
	g.silenceCount = 0
	g.boundaries++

	return true
}

// normalizedEnergy computes RMS energy of a PCM-16 frame scaled to 0..1.
func normalizedEnergy(frame []byte) float32 {
	numSamples := len(frame) / 2
	if numSamples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < numSamples; i++ {
		s := float64(int16(frame[i*2]) | int16(frame[i*2+1])<<8)
		sum += s * s
	}

	rms := math.Sqrt(sum / float64(numSamples))

	normalized := rms / 32768.0
	if normalized > 1.0 {
		normalized = 1.0
	}

	return float32(normalized)
}

// Speaking reports whether the gate currently considers speech active.
func (g *Gate) Speaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.speaking
}

// Reset clears classification state and statistics.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.remainder = nil
	g.lastResult = 0
	g.speaking = false
	g.silenceCount = 0
	g.totalFrames = 0
	g.speechFrames = 0
	g.boundaries = 0
}

// FrameSamples returns the number of samples per classification frame.
func (g *Gate) FrameSamples() int {
	return g.frameSamples
}

// GetStats returns current gate statistics
func (g *Gate) GetStats() GateStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	speechPercentage := float64(0)
	if g.totalFrames > 0 {
		speechPercentage = float64(g.speechFrames) / float64(g.totalFrames) * 100
	}

	return GateStats{
		TotalFrames:      g.totalFrames,
		SpeechFrames:     g.speechFrames,
		SpeechPercentage: speechPercentage,
		Boundaries:       g.boundaries,
		Speaking:         g.speaking,
	}
}
