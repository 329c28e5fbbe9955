package models

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a logical legal source (judgment, statute, commentary).
// Documents are immutable after ingest; a superseding version is ingested as
// a new record.
type Document struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	SourceURL       *string    `json:"source_url,omitempty"`
	Jurisdiction    string     `json:"jurisdiction"`
	CourtLevel      string     `json:"court_level"` // "supreme_court", "high_court", "family_court", "commentary"
	EffectiveDate   *time.Time `json:"effective_date,omitempty"`
	Provisions      []string   `json:"provisions"` // e.g. ["CrPC_125", "HMA_24"]
	Posture         string     `json:"posture"`    // "interim", "final", "appeal"
	Primary         bool       `json:"primary"`    // primary authority (court judgment / statute) vs secondary
	ArchivePath     *string    `json:"archive_path,omitempty"`
	TotalTextLength int        `json:"total_text_length"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Chunk represents a contiguous slice of a document's text, sized for
// embedding. Document metadata is copied down so search can filter without a
// join. Chunk indices are contiguous and zero-based per document; consecutive
// chunks share a controlled character overlap.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	StartPos   int       `json:"start_pos"`
	TokenCount int       `json:"token_count"`

	// Denormalized from the parent document
	Provisions       []string   `json:"provisions"`
	Posture          string     `json:"posture"`
	HoldingDirection *string    `json:"holding_direction,omitempty"` // "pro_claimant", "pro_respondent", "neutral"
	CourtLevel       string     `json:"court_level"`
	EffectiveDate    *time.Time `json:"effective_date,omitempty"`
	Primary          bool       `json:"primary"`

	Embedding []float64 `json:"-"`
}
