package service

import (
	"strings"
)

const (
	// DefaultChunkSize is the default chunk window in characters
	DefaultChunkSize = 1200
	// DefaultChunkOverlap is the default overlap between consecutive chunks
	DefaultChunkOverlap = 180
)

// TextChunk is one window of document text produced by the chunker
type TextChunk struct {
	Index   int    // zero-based sequence index within the document
	Start   int    // character offset of the window start in the source text
	Content string // trimmed window text
}

// ChunkText splits text into overlapping fixed-size windows. The window is
// chunkSize characters and advances by chunkSize-overlap each step, so
// consecutive chunks share a controlled overlap and no context is lost at
// boundaries. Windows that are empty after trimming are dropped. Text shorter
// than chunkSize yields exactly one chunk.
//
// Output is fully deterministic for identical inputs, which keeps re-ingestion
// of the same text reproducing the same chunk boundaries.
func ChunkText(text string, chunkSize, overlap int) []TextChunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	step := chunkSize - overlap
	chunks := make([]TextChunk, 0)

	for start := 0; ; start += step {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			chunks = append(chunks, TextChunk{
				Index:   len(chunks),
				Start:   start,
				Content: content,
			})
		}

		if end >= len(text) {
			break
		}
	}

	return chunks
}

// EstimateTokens gives a rough token count for a chunk, used for budgeting
// downstream prompt sizes. Roughly 4 characters per token.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
