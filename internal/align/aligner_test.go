package align

import (
	"testing"

	"github.com/KyleGal/live-translation-api/internal/diarization"
	"github.com/KyleGal/live-translation-api/internal/transcription"
)

func chunk(text string, start, end float64) transcription.Chunk {
	return transcription.Chunk{Text: text, Start: start, End: &end}
}

func openChunk(text string, start float64) transcription.Chunk {
	return transcription.Chunk{Text: text, Start: start, End: nil}
}

func segment(speaker string, start, end float64) diarization.SpeakerSegment {
	return diarization.SpeakerSegment{SpeakerID: speaker, Start: start, End: end}
}

func TestAlignEmptyInputs(t *testing.T) {
	if turns := Align(nil, []diarization.SpeakerSegment{segment("A", 0, 1)}); turns != nil {
		t.Error("Expected nil for empty chunks")
	}
	if turns := Align([]transcription.Chunk{chunk("hi", 0, 1)}, nil); turns != nil {
		t.Error("Expected nil for empty segments")
	}
}

func TestAlignMergesConsecutiveSameSpeaker(t *testing.T) {
	chunks := []transcription.Chunk{
		chunk("hi", 0, 1),
		chunk("there", 1, 2),
		chunk("bob", 2.5, 3.5),
	}
	segments := []diarization.SpeakerSegment{
		segment("A", 0, 2),
		segment("B", 2, 4),
	}

	turns := Align(chunks, segments)

	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}

	if turns[0].SpeakerID != "A" || turns[0].Start != 0 || turns[0].End != 2 {
		t.Errorf("Unexpected first turn: %+v", turns[0])
	}
	if turns[0].Text != "hi there" {
		t.Errorf("Expected merged text 'hi there', got %q", turns[0].Text)
	}

	if turns[1].SpeakerID != "B" || turns[1].Start != 2 || turns[1].End != 4 {
		t.Errorf("Unexpected second turn: %+v", turns[1])
	}
	if turns[1].Text != "bob" {
		t.Errorf("Expected text 'bob', got %q", turns[1].Text)
	}
}

func TestAlignUsesSegmentBounds(t *testing.T) {
	// The chunk is a narrow slice of a wide segment; the turn must carry the
	// segment's bounds, not the chunk's.
	chunks := []transcription.Chunk{chunk("word", 1.2, 1.4)}
	segments := []diarization.SpeakerSegment{segment("A", 0, 5)}

	turns := Align(chunks, segments)
	if len(turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(turns))
	}
	if turns[0].Start != 0 || turns[0].End != 5 {
		t.Errorf("Expected segment bounds [0, 5], got [%f, %f]", turns[0].Start, turns[0].End)
	}
}

func TestAlignNilEndUsesLastSegmentFallback(t *testing.T) {
	chunks := []transcription.Chunk{
		chunk("hello", 0, 1),
		openChunk("world", 2.5),
	}
	segments := []diarization.SpeakerSegment{
		segment("A", 0, 2),
		segment("B", 2, 4),
	}

	turns := Align(chunks, segments)

	if len(turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(turns))
	}

	// The open-ended chunk takes the last segment's end (4.0), so its
	// interval [2.5, 4] overlaps B and attributes to it.
	if turns[1].SpeakerID != "B" {
		t.Errorf("Expected open-ended chunk attributed to B, got %s", turns[1].SpeakerID)
	}
	if turns[1].Text != "world" {
		t.Errorf("Expected text 'world', got %q", turns[1].Text)
	}
}

func TestAlignDropsChunksWithoutOverlap(t *testing.T) {
	chunks := []transcription.Chunk{
		chunk("kept", 0, 1),
		chunk("dropped", 10, 11),
	}
	segments := []diarization.SpeakerSegment{segment("A", 0, 2)}

	turns := Align(chunks, segments)

	if len(turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(turns))
	}
	if turns[0].Text != "kept" {
		t.Errorf("Expected only the overlapping chunk, got %q", turns[0].Text)
	}
}

func TestAlignZeroLengthOverlapIsNotACandidate(t *testing.T) {
	// The chunk touches the segment boundary exactly; a zero-length overlap
	// must not attribute.
	chunks := []transcription.Chunk{chunk("edge", 2, 3)}
	segments := []diarization.SpeakerSegment{segment("A", 0, 2)}

	if turns := Align(chunks, segments); len(turns) != 0 {
		t.Errorf("Expected no turns for zero-length overlap, got %d", len(turns))
	}
}

func TestAlignMaximalOverlapWins(t *testing.T) {
	// The chunk overlaps A for 0.5s and B for 1.5s.
	chunks := []transcription.Chunk{chunk("mostly b", 1.5, 3.5)}
	segments := []diarization.SpeakerSegment{
		segment("A", 0, 2),
		segment("B", 2, 4),
	}

	turns := Align(chunks, segments)
	if len(turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(turns))
	}
	if turns[0].SpeakerID != "B" {
		t.Errorf("Expected B (larger overlap), got %s", turns[0].SpeakerID)
	}
}

func TestAlignTiesGoToFirstSeen(t *testing.T) {
	// Equal 1s overlap with both segments; the earlier one wins.
	chunks := []transcription.Chunk{chunk("tie", 1, 3)}
	segments := []diarization.SpeakerSegment{
		segment("A", 0, 2),
		segment("B", 2, 4),
	}

	turns := Align(chunks, segments)
	if len(turns) != 1 {
		t.Fatalf("Expected 1 turn, got %d", len(turns))
	}
	if turns[0].SpeakerID != "A" {
		t.Errorf("Expected first-seen segment A on a tie, got %s", turns[0].SpeakerID)
	}
}

func TestAlignAlternatingSpeakers(t *testing.T) {
	chunks := []transcription.Chunk{
		chunk("one", 0, 1),
		chunk("two", 2, 3),
		chunk("three", 4, 5),
	}
	segments := []diarization.SpeakerSegment{
		segment("A", 0, 1.5),
		segment("B", 1.5, 3.5),
		segment("A", 3.5, 5),
	}

	turns := Align(chunks, segments)

	if len(turns) != 3 {
		t.Fatalf("Expected 3 turns, got %d", len(turns))
	}
	expected := []string{"A", "B", "A"}
	for i, want := range expected {
		if turns[i].SpeakerID != want {
			t.Errorf("Turn %d: expected speaker %s, got %s", i, want, turns[i].SpeakerID)
		}
	}
}

func TestMergeConsecutiveIsIdempotent(t *testing.T) {
	turns := []SpeakerTurn{
		{SpeakerID: "A", Start: 0, End: 1, Text: "one"},
		{SpeakerID: "A", Start: 0, End: 2, Text: "two"},
		{SpeakerID: "B", Start: 2, End: 3, Text: "three"},
		{SpeakerID: "B", Start: 2, End: 4, Text: "four"},
		{SpeakerID: "A", Start: 4, End: 5, Text: "five"},
	}

	merged := mergeConsecutive(turns)
	if len(merged) != 3 {
		t.Fatalf("Expected 3 merged turns, got %d", len(merged))
	}

	// A merged list has no adjacent same-speaker turns left, so merging it
	// again must return it unchanged.
	again := mergeConsecutive(merged)
	if len(again) != len(merged) {
		t.Fatalf("Second merge changed turn count: %d vs %d", len(again), len(merged))
	}
	for i := range merged {
		if again[i] != merged[i] {
			t.Errorf("Turn %d changed on re-merge: %+v vs %+v", i, again[i], merged[i])
		}
	}
}

func TestAlignMergeTakesLatestEnd(t *testing.T) {
	// Two chunks map onto two different segments of the same speaker; the
	// merged turn spans the first start to the latest end.
	chunks := []transcription.Chunk{
		chunk("first", 0, 1),
		chunk("second", 3, 4),
	}
	segments := []diarization.SpeakerSegment{
		segment("A", 0, 2),
		segment("A", 2.5, 4.5),
	}

	turns := Align(chunks, segments)

	if len(turns) != 1 {
		t.Fatalf("Expected 1 merged turn, got %d", len(turns))
	}
	if turns[0].Start != 0 || turns[0].End != 4.5 {
		t.Errorf("Expected merged bounds [0, 4.5], got [%f, %f]", turns[0].Start, turns[0].End)
	}
	if turns[0].Text != "first second" {
		t.Errorf("Expected concatenated text, got %q", turns[0].Text)
	}
}
