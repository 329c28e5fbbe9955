package service

import (
	"context"
	"errors"
	"log"
	"sync"

	"counselbrief-backend/models"
	"counselbrief-backend/repository"

	"github.com/google/uuid"
)

// SearchLimit is the per-path candidate ceiling for lexical and vector search
const SearchLimit = 50

// ErrRetrievalFailed indicates both retrieval paths were unavailable
var ErrRetrievalFailed = errors.New("failed to retrieve candidates")

// RetrievalService runs hybrid lexical + vector search and fuses the results
type RetrievalService struct {
	chunkRepo *repository.ChunkRepository
	embedder  *EmbeddingClient
	scorer    RelevanceScorer
}

// RetrievalServiceOption is a functional option for RetrievalService
type RetrievalServiceOption func(*RetrievalService)

// RetrievalWithChunkRepository sets the chunk repository
func RetrievalWithChunkRepository(repo *repository.ChunkRepository) RetrievalServiceOption {
	return func(s *RetrievalService) {
		s.chunkRepo = repo
	}
}

// RetrievalWithEmbeddingClient sets the embedding client
func RetrievalWithEmbeddingClient(client *EmbeddingClient) RetrievalServiceOption {
	return func(s *RetrievalService) {
		s.embedder = client
	}
}

// RetrievalWithScorer sets the relevance scorer
func RetrievalWithScorer(scorer RelevanceScorer) RetrievalServiceOption {
	return func(s *RetrievalService) {
		s.scorer = scorer
	}
}

// NewRetrievalService creates a new retrieval service
func NewRetrievalService(opts ...RetrievalServiceOption) *RetrievalService {
	s := &RetrievalService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RetrieveRequest represents a hybrid retrieval request
type RetrieveRequest struct {
	UserQuery   string
	Norm        models.NormalizedQuery
	TargetForum string
	TopK        int
}

// RetrievalStats reports per-stage candidate counts
type RetrievalStats struct {
	Bm25Count   int `json:"bm25_count"`
	VectorCount int `json:"vector_count"`
	MergedCount int `json:"merged_count"`
	FinalCount  int `json:"final_count"`
}

// RetrieveResult represents the re-ranked top-K candidates plus stage stats
type RetrieveResult struct {
	Candidates []models.Candidate
	Stats      RetrievalStats
}

// Retrieve embeds the query, runs lexical and vector search in parallel,
// fuses the candidate sets and re-ranks. Either search path failing degrades
// to empty results for that path; only both failing is an error.
func (s *RetrievalService) Retrieve(ctx context.Context, req RetrieveRequest) (*RetrieveResult, error) {
	if s.chunkRepo == nil {
		return nil, errors.New("chunk repository not set")
	}
	if s.embedder == nil {
		return nil, errors.New("embedding client not set")
	}

	// Embedding is a sequential prerequisite of the vector path only; a
	// failure here leaves lexical search to carry the query alone.
	queryEmbedding, embedErr := s.embedder.EmbedQuery(ctx, req.UserQuery)
	if embedErr != nil {
		log.Printf("Warning: failed to embed query, continuing with lexical search only: %v", embedErr)
	}

	var (
		wg         sync.WaitGroup
		lexical    []repository.LexicalResult
		vector     []repository.VectorResult
		lexicalErr error
		vectorErr  error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		lexical, lexicalErr = s.chunkRepo.SearchLexical(ctx, req.UserQuery, SearchLimit)
		if lexicalErr != nil {
			log.Printf("Warning: lexical search failed, treating as zero results: %v", lexicalErr)
			lexical = nil
		}
	}()

	if embedErr == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vector, vectorErr = s.chunkRepo.SearchVector(ctx, queryEmbedding, SearchLimit)
			if vectorErr != nil {
				log.Printf("Warning: vector search failed, treating as zero results: %v", vectorErr)
				vector = nil
			}
		}()
	}

	wg.Wait()

	if lexicalErr != nil && (embedErr != nil || vectorErr != nil) {
		return nil, ErrRetrievalFailed
	}

	merged := FuseCandidates(lexical, vector)
	ranked := Rerank(ctx, s.scorer, req.Norm, req.TargetForum, merged, req.TopK)

	return &RetrieveResult{
		Candidates: ranked,
		Stats: RetrievalStats{
			Bm25Count:   len(lexical),
			VectorCount: len(vector),
			MergedCount: len(merged),
			FinalCount:  len(ranked),
		},
	}, nil
}

// FuseCandidates merges the lexical and vector result lists into a single
// deduplicated candidate set keyed by chunk ID, tagging each candidate with
// the path(s) that surfaced it. No score arithmetic happens here; relevance
// judgment is deferred entirely to the re-ranker, so output order is
// arbitrary.
func FuseCandidates(lexical []repository.LexicalResult, vector []repository.VectorResult) []models.Candidate {
	byID := make(map[uuid.UUID]*models.Candidate, len(lexical)+len(vector))
	order := make([]uuid.UUID, 0, len(lexical)+len(vector))

	for i, result := range lexical {
		cand, ok := byID[result.Chunk.ID]
		if !ok {
			cand = candidateFromChunk(result.Chunk)
			byID[result.Chunk.ID] = cand
			order = append(order, result.Chunk.ID)
		}
		cand.FromLexical = true
		cand.LexicalRank = i + 1
	}

	for _, result := range vector {
		cand, ok := byID[result.Chunk.ID]
		if !ok {
			cand = candidateFromChunk(result.Chunk)
			byID[result.Chunk.ID] = cand
			order = append(order, result.Chunk.ID)
		}
		cand.FromVector = true
		cand.Similarity = result.Similarity
	}

	merged := make([]models.Candidate, 0, len(order))
	for _, id := range order {
		merged = append(merged, *byID[id])
	}

	return merged
}

// candidateFromChunk copies the chunk fields a candidate carries
func candidateFromChunk(chunk models.Chunk) *models.Candidate {
	return &models.Candidate{
		ChunkID:          chunk.ID,
		DocumentID:       chunk.DocumentID,
		Text:             chunk.Text,
		Provisions:       chunk.Provisions,
		Posture:          chunk.Posture,
		HoldingDirection: chunk.HoldingDirection,
		CourtLevel:       chunk.CourtLevel,
		Primary:          chunk.Primary,
	}
}
