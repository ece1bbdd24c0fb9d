package align

import (
	"fmt"
	"strings"

	"github.com/KyleGal/live-translation-api/internal/diarization"
	"github.com/KyleGal/live-translation-api/internal/transcription"
)

// SpeakerTurn is one merged run of speech by a single speaker.
type SpeakerTurn struct {
	SpeakerID string  `json:"speaker_id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
}

// Error represents an alignment failure
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("alignment: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("alignment: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Align assigns each transcript chunk to the speaker segment with maximal
// temporal overlap, then merges consecutive same-speaker assignments into
// turns.
//
// Transcript chunk boundaries and diarization boundaries come from
// independent models, so overlap maximization fuses them without assuming
// either windowing is authoritative for the other. Segment bounds are the
// ground truth for speaker timing, so matched tuples carry the segment's
// start and end, not the chunk's.
func Align(chunks []transcription.Chunk, segments []diarization.SpeakerSegment) []SpeakerTurn {
	if len(chunks) == 0 || len(segments) == 0 {
		return nil
	}

	// The trailing chunk may arrive with no end timestamp. Substitute the
	// last segment's end so every chunk has a finite interval.
	fallback := segments[len(segments)-1]

	var provisional []SpeakerTurn

	for _, chunk := range chunks {
		start := chunk.Start
		end := fallback.End
		if chunk.End != nil {
			end = *chunk.End
		}

		match, ok := findBestMatch(start, end, segments)
		if !ok {
			// No positive overlap anywhere. Dropping is better than guessing
			// a speaker.
			continue
		}

		provisional = append(provisional, SpeakerTurn{
			SpeakerID: match.SpeakerID,
			Start:     match.Start,
			End:       match.End,
			Text:      chunk.Text,
		})
	}

	return mergeConsecutive(provisional)
}

// findBestMatch returns the segment with the largest strictly positive
// overlap with [start, end). Ties go to the earlier segment in iteration
// order, which keeps the result stable across runs.
func findBestMatch(start, end float64, segments []diarization.SpeakerSegment) (diarization.SpeakerSegment, bool) {
	var best diarization.SpeakerSegment
	bestOverlap := 0.0
	found := false

	for _, seg := range segments {
		overlapStart := start
		if seg.Start > overlapStart {
			overlapStart = seg.Start
		}
		overlapEnd := end
		if seg.End < overlapEnd {
			overlapEnd = seg.End
		}

		overlap := overlapEnd - overlapStart
		if overlap > bestOverlap {
			best = seg
			bestOverlap = overlap
			found = true
		}
	}

	return best, found
}

// mergeConsecutive collapses adjacent tuples sharing a speaker into single
// turns: first start, latest end, text concatenated in order.
func mergeConsecutive(turns []SpeakerTurn) []SpeakerTurn {
	if len(turns) == 0 {
		return nil
	}

	merged := make([]SpeakerTurn, 0, len(turns))
	current := turns[0]
	texts := []string{current.Text}

	for _, t := range turns[1:] {
		if t.SpeakerID == current.SpeakerID {
			if t.End > current.End {
				current.End = t.End
			}
			texts = append(texts, t.Text)
			continue
		}

		current.Text = joinText(texts)
		merged = append(merged, current)
		current = t
		texts = []string{t.Text}
	}

	current.Text = joinText(texts)
	merged = append(merged, current)

	return merged
}

func joinText(parts []string) string {
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return strings.Join(trimmed, " ")
}
