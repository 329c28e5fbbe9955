package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"counselbrief-backend/models"
	"counselbrief-backend/repository"
	"counselbrief-backend/storage"

	"github.com/google/uuid"
)

// ChunkInsertBatchSize is the storage-layer ceiling on rows per insert batch
const ChunkInsertBatchSize = 50

var (
	// ErrMissingIngestData indicates the ingest request lacked required fields
	ErrMissingIngestData = errors.New("document title and text are required")
)

// IngestService orchestrates document ingestion: persist metadata, chunk,
// embed, persist chunks, refresh the lexical index.
type IngestService struct {
	docRepo   *repository.DocumentRepository
	chunkRepo *repository.ChunkRepository
	embedder  *EmbeddingClient
	archive   storage.Storage
}

// IngestServiceOption is a functional option for IngestService
type IngestServiceOption func(*IngestService)

// IngestWithDocumentRepository sets the document repository
func IngestWithDocumentRepository(repo *repository.DocumentRepository) IngestServiceOption {
	return func(s *IngestService) {
		s.docRepo = repo
	}
}

// IngestWithChunkRepository sets the chunk repository
func IngestWithChunkRepository(repo *repository.ChunkRepository) IngestServiceOption {
	return func(s *IngestService) {
		s.chunkRepo = repo
	}
}

// IngestWithEmbeddingClient sets the embedding client
func IngestWithEmbeddingClient(client *EmbeddingClient) IngestServiceOption {
	return func(s *IngestService) {
		s.embedder = client
	}
}

// IngestWithArchive sets the raw-text archive storage
func IngestWithArchive(archive storage.Storage) IngestServiceOption {
	return func(s *IngestService) {
		s.archive = archive
	}
}

// NewIngestService creates a new ingest service
func NewIngestService(opts ...IngestServiceOption) *IngestService {
	s := &IngestService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DocumentMeta carries the document-level metadata copied down onto chunks
type DocumentMeta struct {
	Jurisdiction     string
	CourtLevel       string
	Date             *time.Time
	Provisions       []string
	Posture          string
	HoldingDirection *string
	Primary          bool
}

// IngestRequest represents a document ingest request
type IngestRequest struct {
	Title     string
	SourceURL *string
	Text      string
	Meta      DocumentMeta
	ChunkSize int
	Overlap   int
}

// IngestResult reports what a single ingest call produced. On a partial chunk
// insert failure ChunksInserted still carries how many rows landed before the
// failing batch.
type IngestResult struct {
	DocumentID          uuid.UUID
	ChunksCreated       int
	ChunksInserted      int
	EmbeddingsGenerated int
	TotalTextLength     int
	ChunkSize           int
	Overlap             int
	ProcessingTime      time.Duration
	ReplacedDocuments   int64
}

// Ingest runs the full pipeline for one document. Embedding failures abort
// before anything beyond the document row is written (all-or-nothing for
// embeddings); chunk insert failures return the partial count; lexical index
// refresh and raw-text archival failures are logged but never fail the
// ingest, since chunks stay reachable via vector search.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if s.docRepo == nil {
		return nil, errors.New("document repository not set")
	}
	if s.chunkRepo == nil {
		return nil, errors.New("chunk repository not set")
	}
	if s.embedder == nil {
		return nil, errors.New("embedding client not set")
	}

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Text) == "" {
		return nil, ErrMissingIngestData
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	overlap := req.Overlap
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
	}

	started := time.Now()
	result := &IngestResult{
		ChunkSize:       chunkSize,
		Overlap:         overlap,
		TotalTextLength: len(req.Text),
	}

	// Replace-by-source-url: re-ingesting the same source supersedes the
	// previous document rather than duplicating it.
	if req.SourceURL != nil && *req.SourceURL != "" {
		replaced, err := s.docRepo.DeleteBySourceURL(ctx, *req.SourceURL)
		if err != nil {
			return nil, fmt.Errorf("failed to remove superseded document: %w", err)
		}
		if replaced > 0 {
			log.Printf("Replaced %d prior document(s) for source %s", replaced, *req.SourceURL)
		}
		result.ReplacedDocuments = replaced
	}

	doc := &models.Document{
		Title:           req.Title,
		SourceURL:       req.SourceURL,
		Jurisdiction:    req.Meta.Jurisdiction,
		CourtLevel:      req.Meta.CourtLevel,
		EffectiveDate:   req.Meta.Date,
		Provisions:      req.Meta.Provisions,
		Posture:         req.Meta.Posture,
		Primary:         req.Meta.Primary,
		TotalTextLength: len(req.Text),
	}
	if doc.Provisions == nil {
		doc.Provisions = []string{}
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	result.DocumentID = doc.ID

	textChunks := ChunkText(req.Text, chunkSize, overlap)
	result.ChunksCreated = len(textChunks)

	texts := make([]string, len(textChunks))
	for i, tc := range textChunks {
		texts[i] = tc.Content
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	result.EmbeddingsGenerated = len(embeddings)

	chunks := make([]models.Chunk, len(textChunks))
	for i, tc := range textChunks {
		chunks[i] = models.Chunk{
			ID:               uuid.New(),
			DocumentID:       doc.ID,
			ChunkIndex:       tc.Index,
			Text:             tc.Content,
			StartPos:         tc.Start,
			TokenCount:       EstimateTokens(tc.Content),
			Provisions:       doc.Provisions,
			Posture:          doc.Posture,
			HoldingDirection: req.Meta.HoldingDirection,
			CourtLevel:       doc.CourtLevel,
			EffectiveDate:    doc.EffectiveDate,
			Primary:          doc.Primary,
			Embedding:        embeddings[i],
		}
	}

	inserted, err := s.chunkRepo.InsertBatched(ctx, chunks, ChunkInsertBatchSize)
	result.ChunksInserted = inserted
	if err != nil {
		return result, fmt.Errorf("chunk insert failed after %d of %d chunks: %w", inserted, len(chunks), err)
	}

	s.archiveRawText(ctx, doc, req.Text)

	if err := s.chunkRepo.RefreshSearchIndex(ctx); err != nil {
		// Non-fatal: chunks stay retrievable through vector search until
		// the next successful refresh.
		log.Printf("Warning: failed to refresh lexical search index: %v", err)
	}

	result.ProcessingTime = time.Since(started)
	return result, nil
}

// archiveRawText stores the raw document text for later retrieval. Failures
// are logged only.
func (s *IngestService) archiveRawText(ctx context.Context, doc *models.Document, text string) {
	if s.archive == nil {
		return
	}

	path, err := s.archive.Upload(ctx, doc.ID, doc.Title+".txt", strings.NewReader(text))
	if err != nil {
		log.Printf("Warning: failed to archive raw text for document %s: %v", doc.ID, err)
		return
	}

	if err := s.docRepo.UpdateArchivePath(ctx, doc.ID, path); err != nil {
		log.Printf("Warning: failed to record archive path for document %s: %v", doc.ID, err)
	}
}
