package align

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/KyleGal/live-translation-api/internal/audio"
	"github.com/KyleGal/live-translation-api/internal/diarization"
	"github.com/KyleGal/live-translation-api/internal/metrics"
	"github.com/KyleGal/live-translation-api/internal/transcription"
)

// Pipeline runs the post-session diarization and alignment pass over a
// finished recording. It only operates on immutable artifacts; the live
// session must have fully stopped before Process is called.
type Pipeline struct {
	transcriber transcription.Transcriber
	diarizer    diarization.Diarizer
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Result is the outcome of one batch alignment run.
type Result struct {
	Turns         []SpeakerTurn `json:"turns"`
	Transcription string        `json:"transcription"`
	NumSpeakers   int           `json:"num_speakers"`
	Duration      time.Duration `json:"duration"`
}

// NewPipeline creates a batch alignment pipeline
func NewPipeline(transcriber transcription.Transcriber, diarizer diarization.Diarizer, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		diarizer:    diarizer,
		metrics:     m,
		logger:      logger,
	}
}

// Process diarizes and transcribes the WAV file at wavPath, then aligns the
// two outputs into ordered speaker turns.
//
// A diarization failure aborts the run and is surfaced unretried; blind
// retry of an expensive diarization call is the caller's decision, not ours.
func (p *Pipeline) Process(ctx context.Context, wavPath string, language string, minSpeakers, maxSpeakers int) (*Result, error) {
	startTime := time.Now()

	wav, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, &Error{Message: "failed to read audio file", Cause: err}
	}

	_, sampleRate, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, &Error{Message: "invalid audio file", Cause: err}
	}

	p.logger.Info("Starting batch alignment",
		slog.String("path", wavPath),
		slog.Int("min_speakers", minSpeakers),
		slog.Int("max_speakers", maxSpeakers))

	if p.metrics != nil {
		p.metrics.RecordDiarizationRequest()
	}

	diarizeStart := time.Now()
	segments, err := p.diarizer.Diarize(ctx, wav, sampleRate, diarization.Options{
		Language:    language,
		MinSpeakers: minSpeakers,
		MaxSpeakers: maxSpeakers,
	})
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordDiarizationFailure(time.Since(diarizeStart).Seconds())
		}
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.RecordDiarizationSuccess(time.Since(diarizeStart).Seconds())
	}

	if len(segments) == 0 {
		return nil, &diarization.Error{Message: "no speaker segments detected"}
	}

	transcript, err := p.transcriber.TranscribeFile(ctx, wavPath, language)
	if err != nil {
		return nil, err
	}

	turns := Align(transcript.Chunks, segments)
	if len(turns) == 0 && len(transcript.Chunks) > 0 {
		// Degenerate: transcript exists but nothing overlapped any segment.
		return nil, &Error{Message: "no transcript chunk overlaps any speaker segment"}
	}

	speakers := make(map[string]struct{})
	for _, t := range turns {
		speakers[t.SpeakerID] = struct{}{}
	}

	duration := time.Since(startTime)
	p.logger.Info("Batch alignment complete",
		slog.Int("turns", len(turns)),
		slog.Int("speakers", len(speakers)),
		slog.Duration("duration", duration))

	return &Result{
		Turns:         turns,
		Transcription: transcript.Text,
		NumSpeakers:   len(speakers),
		Duration:      duration,
	}, nil
}
