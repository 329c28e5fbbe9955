package models

import (
	"github.com/google/uuid"
)

// Candidate is an ephemeral, per-query record for a chunk under consideration.
// Created fresh for each query and never persisted.
type Candidate struct {
	ChunkID          uuid.UUID `json:"chunk_id"`
	DocumentID       uuid.UUID `json:"document_id"`
	Text             string    `json:"text"`
	Provisions       []string  `json:"provisions"`
	Posture          string    `json:"posture"`
	HoldingDirection *string   `json:"holding_direction,omitempty"`
	CourtLevel       string    `json:"court_level"`
	Primary          bool      `json:"primary"`

	// Provenance: which retrieval path(s) surfaced this chunk
	FromLexical bool `json:"from_lexical"`
	FromVector  bool `json:"from_vector"`

	LexicalRank int     `json:"lexical_rank,omitempty"` // 1-indexed, 0 if not found lexically
	Similarity  float64 `json:"similarity,omitempty"`   // cosine similarity, 0 if not from vector path

	RelevanceScore float64 `json:"relevance_score"` // 0-5, assigned by the re-ranker
	Rank           int     `json:"rank"`            // final 1-indexed position
}
