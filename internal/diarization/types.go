package diarization

import (
	"context"
	"fmt"
)

// SpeakerSegment is one diarized span of audio attributed to a speaker.
// Times are seconds from the start of the audio.
type SpeakerSegment struct {
	SpeakerID string  `json:"speaker_id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s SpeakerSegment) Duration() float64 {
	return s.End - s.Start
}

// Diarizer identifies speaker segments in an audio recording.
type Diarizer interface {
	Diarize(ctx context.Context, wav []byte, sampleRate int, opts Options) ([]SpeakerSegment, error)
}

// Options controls a single diarization request.
type Options struct {
	Language    string
	MinSpeakers int
	MaxSpeakers int
}

// Error represents a diarization failure
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("diarization: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("diarization: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
