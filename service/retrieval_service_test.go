package service

import (
	"testing"

	"counselbrief-backend/models"
	"counselbrief-backend/repository"

	"github.com/google/uuid"
)

func testChunk(id uuid.UUID, text string) models.Chunk {
	return models.Chunk{
		ID:         id,
		DocumentID: uuid.New(),
		Text:       text,
		Provisions: []string{"CrPC_125"},
		Posture:    "interim maintenance",
		CourtLevel: "high_court",
		Primary:    true,
	}
}

func TestFuseCandidatesMergesBothPaths(t *testing.T) {
	shared := uuid.New()
	lexOnly := uuid.New()
	vecOnly := uuid.New()

	lexical := []repository.LexicalResult{
		{Chunk: testChunk(shared, "shared chunk"), Score: 0.9},
		{Chunk: testChunk(lexOnly, "lexical only"), Score: 0.5},
	}
	vector := []repository.VectorResult{
		{Chunk: testChunk(shared, "shared chunk"), Similarity: 0.82},
		{Chunk: testChunk(vecOnly, "vector only"), Similarity: 0.75},
	}

	merged := FuseCandidates(lexical, vector)

	if len(merged) != 3 {
		t.Fatalf("expected 3 merged candidates, got %d", len(merged))
	}

	byID := make(map[uuid.UUID]models.Candidate, len(merged))
	for _, cand := range merged {
		byID[cand.ChunkID] = cand
	}

	sharedCand, ok := byID[shared]
	if !ok {
		t.Fatal("shared chunk missing from merged set")
	}
	if !sharedCand.FromLexical || !sharedCand.FromVector {
		t.Errorf("shared chunk must carry both provenance flags, got lexical=%v vector=%v",
			sharedCand.FromLexical, sharedCand.FromVector)
	}
	if sharedCand.LexicalRank != 1 {
		t.Errorf("expected lexical rank 1 for shared chunk, got %d", sharedCand.LexicalRank)
	}
	if sharedCand.Similarity != 0.82 {
		t.Errorf("expected similarity 0.82 for shared chunk, got %v", sharedCand.Similarity)
	}

	lexCand := byID[lexOnly]
	if !lexCand.FromLexical || lexCand.FromVector {
		t.Errorf("lexical-only chunk has wrong provenance: lexical=%v vector=%v",
			lexCand.FromLexical, lexCand.FromVector)
	}
	if lexCand.LexicalRank != 2 {
		t.Errorf("expected lexical rank 2, got %d", lexCand.LexicalRank)
	}

	vecCand := byID[vecOnly]
	if vecCand.FromLexical || !vecCand.FromVector {
		t.Errorf("vector-only chunk has wrong provenance: lexical=%v vector=%v",
			vecCand.FromLexical, vecCand.FromVector)
	}
}

func TestFuseCandidatesNoScoreArithmetic(t *testing.T) {
	id := uuid.New()

	lexical := []repository.LexicalResult{
		{Chunk: testChunk(id, "chunk"), Score: 3.5},
	}
	vector := []repository.VectorResult{
		{Chunk: testChunk(id, "chunk"), Similarity: 0.6},
	}

	merged := FuseCandidates(lexical, vector)

	if len(merged) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(merged))
	}
	// Raw signals are carried through untouched; no fused score exists yet
	if merged[0].Similarity != 0.6 {
		t.Errorf("similarity must pass through unchanged, got %v", merged[0].Similarity)
	}
	if merged[0].RelevanceScore != 0 {
		t.Errorf("relevance score must be unset before re-ranking, got %v", merged[0].RelevanceScore)
	}
}

func TestFuseCandidatesEmptyPaths(t *testing.T) {
	if got := FuseCandidates(nil, nil); len(got) != 0 {
		t.Errorf("expected empty result for empty inputs, got %d", len(got))
	}

	id := uuid.New()
	vector := []repository.VectorResult{
		{Chunk: testChunk(id, "only vector"), Similarity: 0.4},
	}
	merged := FuseCandidates(nil, vector)
	if len(merged) != 1 {
		t.Fatalf("expected 1 candidate from vector-only input, got %d", len(merged))
	}
	if merged[0].FromLexical {
		t.Errorf("vector-only candidate must not be flagged lexical")
	}
}

func TestFuseCandidatesCopiesChunkFields(t *testing.T) {
	id := uuid.New()
	direction := "pro_claimant"
	chunk := testChunk(id, "holding text")
	chunk.HoldingDirection = &direction

	merged := FuseCandidates([]repository.LexicalResult{{Chunk: chunk, Score: 1}}, nil)

	if len(merged) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(merged))
	}
	cand := merged[0]
	if cand.DocumentID != chunk.DocumentID {
		t.Errorf("document ID not carried over")
	}
	if cand.Text != "holding text" {
		t.Errorf("text not carried over")
	}
	if cand.HoldingDirection == nil || *cand.HoldingDirection != "pro_claimant" {
		t.Errorf("holding direction not carried over")
	}
	if !cand.Primary || cand.CourtLevel != "high_court" {
		t.Errorf("metadata not carried over")
	}
}
