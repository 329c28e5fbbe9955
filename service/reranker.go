package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"unicode/utf8"

	"counselbrief-backend/models"

	"github.com/google/uuid"
)

const (
	// RerankTopK is the number of candidates returned after re-ranking
	RerankTopK = 12

	// RerankExcerptLength bounds the excerpt sent per candidate to cap token cost
	RerankExcerptLength = 500

	// maxRelevanceScore is the top of the scoring rubric's 0-5 scale
	maxRelevanceScore = 5.0
)

// RelevanceScorer assigns a 0-5 relevance score per candidate. The live
// implementation calls the completion service and is not deterministic across
// invocations; tests substitute a deterministic stub so the fusion and sort
// logic stays unit-testable.
type RelevanceScorer interface {
	ScoreCandidates(
		ctx context.Context,
		norm models.NormalizedQuery,
		targetForum string,
		candidates []models.Candidate,
	) (map[uuid.UUID]float64, error)
}

// GeminiScorer scores candidates with a completion call against an explicit
// rubric, requesting a strict JSON array of {id, score} pairs.
type GeminiScorer struct {
	completions CompletionClient
}

// NewGeminiScorer creates a new Gemini-backed relevance scorer
func NewGeminiScorer(completions CompletionClient) *GeminiScorer {
	return &GeminiScorer{completions: completions}
}

// ScoreCandidates implements RelevanceScorer
func (s *GeminiScorer) ScoreCandidates(
	ctx context.Context,
	norm models.NormalizedQuery,
	targetForum string,
	candidates []models.Candidate,
) (map[uuid.UUID]float64, error) {
	if s.completions == nil {
		return nil, errors.New("completion client not set")
	}
	if len(candidates) == 0 {
		return map[uuid.UUID]float64{}, nil
	}

	var listing strings.Builder
	for _, cand := range candidates {
		excerpt := truncateExcerpt(cand.Text, RerankExcerptLength)
		direction := "unknown"
		if cand.HoldingDirection != nil {
			direction = *cand.HoldingDirection
		}
		listing.WriteString(fmt.Sprintf(
			"ID: %s\nCOURT: %s | POSTURE: %s | HOLDING: %s | PROVISIONS: %s | PRIMARY: %v\nEXCERPT: %s\n\n",
			cand.ChunkID, cand.CourtLevel, cand.Posture, direction,
			strings.Join(cand.Provisions, ", "), cand.Primary, excerpt,
		))
	}

	prompt := fmt.Sprintf(`You are an Indian family-law research associate scoring search results.

USER ISSUE:
- Party seeking relief: %s
- Party responding: %s
- Relief sought: %s
- Target forum: %s
- Implicated provisions: %s

CANDIDATES:
%s
SCORING RUBRIC (score each candidate 0-5):
- Procedural posture match with the user's issue
- Relevance of the provisions and forum to the target forum
- Holding direction relative to the position of the party seeking relief
- Authority level of the court (supreme_court > high_court > family_court > commentary)
- Factual similarity to the user's situation

Return ONLY a JSON array of {"id": "<candidate id>", "score": <0-5>} pairs,
one entry per candidate, no markdown, no explanations.`,
		norm.PartySeeking,
		norm.PartyResponding,
		norm.Relief,
		targetForum,
		strings.Join(norm.Provisions, ", "),
		listing.String(),
	)

	response, err := s.completions.Complete(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to score candidates: %w", err)
	}

	jsonStr, err := extractJSONArray(response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scoring response: %w", err)
	}

	var scored []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &scored); err != nil {
		return nil, fmt.Errorf("failed to parse scoring response: %w", err)
	}

	scores := make(map[uuid.UUID]float64, len(scored))
	for _, entry := range scored {
		id, err := uuid.Parse(entry.ID)
		if err != nil {
			continue
		}
		score := entry.Score
		if score < 0 {
			score = 0
		}
		if score > maxRelevanceScore {
			score = maxRelevanceScore
		}
		scores[id] = score
	}

	return scores, nil
}

// Rerank scores the fused candidate set, sorts by score descending and slices
// to the top-K. A scorer failure is never fatal: candidates fall back to their
// vector similarity scaled onto the same 0-5 range, so the lexical-only path
// degrades to rubric-less ordering rather than an error.
func Rerank(
	ctx context.Context,
	scorer RelevanceScorer,
	norm models.NormalizedQuery,
	targetForum string,
	candidates []models.Candidate,
	topK int,
) []models.Candidate {
	if topK <= 0 {
		topK = RerankTopK
	}
	if len(candidates) == 0 {
		return []models.Candidate{}
	}

	var scores map[uuid.UUID]float64
	if scorer != nil {
		var err error
		scores, err = scorer.ScoreCandidates(ctx, norm, targetForum, candidates)
		if err != nil {
			log.Printf("Warning: relevance scoring failed, falling back to vector similarity: %v", err)
			scores = nil
		}
	}

	ranked := make([]models.Candidate, len(candidates))
	copy(ranked, candidates)

	for i := range ranked {
		if score, ok := scores[ranked[i].ChunkID]; ok {
			ranked[i].RelevanceScore = score
		} else {
			ranked[i].RelevanceScore = fallbackScore(ranked[i])
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		}
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		return ranked[i].ChunkID.String() < ranked[j].ChunkID.String()
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

// truncateExcerpt bounds an excerpt to limit bytes without splitting a
// multi-byte rune at the cut point.
func truncateExcerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// fallbackScore maps vector similarity onto the 0-5 rubric scale
func fallbackScore(cand models.Candidate) float64 {
	score := cand.Similarity * maxRelevanceScore
	if score < 0 {
		return 0
	}
	if score > maxRelevanceScore {
		return maxRelevanceScore
	}
	return score
}
