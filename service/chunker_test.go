package service

import (
	"reflect"
	"strings"
	"testing"
)

func TestChunkTextShortTextSingleChunk(t *testing.T) {
	text := "Section 24 of the Hindu Marriage Act provides for interim maintenance."

	chunks := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for short text, got %d", len(chunks))
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
	if chunks[0].Start != 0 {
		t.Errorf("expected start 0, got %d", chunks[0].Start)
	}
	if chunks[0].Content != text {
		t.Errorf("expected content to equal input text")
	}
}

func TestChunkTextWindowBoundaries(t *testing.T) {
	// 3000 characters with size 1200 and overlap 180 advances by 1020:
	// windows start at 0, 1020 and 2040.
	text := strings.Repeat("a", 3000)

	chunks := ChunkText(text, 1200, 180)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantStarts := []int{0, 1020, 2040}
	wantLens := []int{1200, 1200, 960}
	for i, chunk := range chunks {
		if chunk.Start != wantStarts[i] {
			t.Errorf("chunk %d: expected start %d, got %d", i, wantStarts[i], chunk.Start)
		}
		if len(chunk.Content) != wantLens[i] {
			t.Errorf("chunk %d: expected length %d, got %d", i, wantLens[i], len(chunk.Content))
		}
		if chunk.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, chunk.Index)
		}
	}
}

func TestChunkTextOverlapSharesText(t *testing.T) {
	var sb strings.Builder
	for i := 0; sb.Len() < 2500; i++ {
		sb.WriteString("maintenance ")
	}
	text := sb.String()

	chunks := ChunkText(text, 1200, 180)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}

	// The tail of chunk 0 and the head of chunk 1 come from the same
	// 180-character region of the source. Trimming only strips the very
	// edges, so a generous middle slice of the region must appear in both.
	if chunks[1].Start != 1020 {
		t.Fatalf("expected second chunk to start at 1020, got %d", chunks[1].Start)
	}
	shared := text[1030:1190]
	if !strings.Contains(chunks[0].Content, shared) {
		t.Errorf("expected first chunk to contain the overlap region")
	}
	if !strings.Contains(chunks[1].Content, shared) {
		t.Errorf("expected second chunk to contain the overlap region")
	}
}

func TestChunkTextDeterministic(t *testing.T) {
	text := strings.Repeat("The Family Court may award interim maintenance. ", 100)

	first := ChunkText(text, 1200, 180)
	second := ChunkText(text, 1200, 180)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical output for identical input")
	}
}

func TestChunkTextDropsEmptyWindows(t *testing.T) {
	// A window of pure whitespace trims to nothing and is dropped; indexes
	// stay dense over the surviving chunks.
	text := strings.Repeat("b", 100) + strings.Repeat(" ", 100) + strings.Repeat("c", 50)

	chunks := ChunkText(text, 100, 0)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks after dropping the whitespace window, got %d", len(chunks))
	}
	if chunks[0].Index != 0 || chunks[1].Index != 1 {
		t.Errorf("expected dense indexes 0,1; got %d,%d", chunks[0].Index, chunks[1].Index)
	}
	if chunks[1].Start != 200 {
		t.Errorf("expected surviving chunk to start at 200, got %d", chunks[1].Start)
	}
}

func TestChunkTextDefaultsApplied(t *testing.T) {
	text := strings.Repeat("x", 1500)

	chunks := ChunkText(text, 0, -5)

	// chunkSize 0 falls back to the default window
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks with default size, got %d", len(chunks))
	}
	if chunks[1].Start != DefaultChunkSize {
		t.Errorf("expected second chunk to start at %d with zero overlap, got %d", DefaultChunkSize, chunks[1].Start)
	}
}

func TestChunkTextOverlapClampedBelowSize(t *testing.T) {
	text := strings.Repeat("y", 50)

	// overlap >= chunkSize would never advance; it must be clamped
	chunks := ChunkText(text, 10, 10)

	if len(chunks) == 0 {
		t.Fatal("expected chunks, got none")
	}
	last := chunks[len(chunks)-1]
	if last.Start+len(last.Content) > len(text) {
		t.Errorf("last chunk extends past the text")
	}
	if len(chunks) != 41 {
		// step is clamped to 1, windows start at 0..40
		t.Errorf("expected 41 chunks with step 1, got %d", len(chunks))
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("z", 1200), 300},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}
