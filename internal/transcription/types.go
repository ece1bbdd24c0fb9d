package transcription

import (
	"context"
	"fmt"
)

// Chunk is one word or segment of transcribed text with timing. End is nil
// only for the last chunk of a transcript; the model leaves the final chunk
// open-ended.
type Chunk struct {
	Text  string   `json:"text"`
	Start float64  `json:"start"`
	End   *float64 `json:"end,omitempty"`
}

// Result is the outcome of one transcription call.
type Result struct {
	Text   string  `json:"text"`
	Chunks []Chunk `json:"chunks,omitempty"`
}

// Transcriber is the capability interface implemented by the external
// speech-to-text engine. Implementations must be safe for concurrent
// read-only use across sessions.
type Transcriber interface {
	// Transcribe converts normalized float samples to text with per-chunk
	// timestamps. Samples are 16-bit PCM values divided by 32768.
	Transcribe(ctx context.Context, samples []float32, sampleRate int, language string) (*Result, error)

	// TranscribeFile transcribes a finished audio artifact by path, returning
	// word-level timestamps for the alignment pass.
	TranscribeFile(ctx context.Context, audioPath string, language string) (*Result, error)
}

// Error is a transcription failure from the upstream model or its transport.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transcription failed: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("transcription failed: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
