package repository

import (
	"context"
	"fmt"
	"strings"

	"counselbrief-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkRepository handles database operations for document chunks
type ChunkRepository struct {
	db *pgxpool.Pool
}

// NewChunkRepository creates a new chunk repository
func NewChunkRepository(db *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var parts []string
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// InsertBatched inserts chunks in sequential batches of batchSize rows to
// respect storage-layer limits. Batch N+1 is not started until batch N
// commits. On failure it returns the number of chunks successfully inserted
// before the failing batch, so callers can report partial progress.
func (r *ChunkRepository) InsertBatched(
	ctx context.Context,
	chunks []models.Chunk,
	batchSize int,
) (int, error) {
	if batchSize <= 0 {
		batchSize = 50
	}

	inserted := 0
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		if err := r.insertBatch(ctx, chunks[start:end]); err != nil {
			return inserted, fmt.Errorf("failed to insert chunk batch starting at %d: %w", start, err)
		}
		inserted = end
	}

	return inserted, nil
}

// insertBatch inserts a single batch of chunks in one transaction
func (r *ChunkRepository) insertBatch(ctx context.Context, chunks []models.Chunk) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO document_chunks (
			id, document_id, chunk_index, chunk_text, start_pos, token_count,
			provisions, posture, holding_direction, court_level, effective_date,
			is_primary, embedding
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::vector
		)`

	for _, chunk := range chunks {
		if len(chunk.Embedding) != 768 {
			return fmt.Errorf("chunk %d embedding must be 768 dimensions, got %d", chunk.ChunkIndex, len(chunk.Embedding))
		}

		_, err = tx.Exec(ctx, query,
			chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Text, chunk.StartPos, chunk.TokenCount,
			chunk.Provisions, chunk.Posture, chunk.HoldingDirection, chunk.CourtLevel, chunk.EffectiveDate,
			chunk.Primary, formatVector(chunk.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

const chunkColumns = `
	c.id, c.document_id, c.chunk_index, c.chunk_text, c.start_pos, c.token_count,
	c.provisions, c.posture, c.holding_direction, c.court_level, c.effective_date,
	c.is_primary`

// scanChunk scans the shared chunk column set plus one trailing score column
func scanChunk(row interface{ Scan(...interface{}) error }, score *float64) (models.Chunk, error) {
	var chunk models.Chunk
	err := row.Scan(
		&chunk.ID,
		&chunk.DocumentID,
		&chunk.ChunkIndex,
		&chunk.Text,
		&chunk.StartPos,
		&chunk.TokenCount,
		&chunk.Provisions,
		&chunk.Posture,
		&chunk.HoldingDirection,
		&chunk.CourtLevel,
		&chunk.EffectiveDate,
		&chunk.Primary,
		score,
	)
	return chunk, err
}

// LexicalResult is a chunk surfaced by full-text search with its rank score
type LexicalResult struct {
	Chunk models.Chunk
	Score float64
}

// SearchLexical performs keyword/full-text search over the lexical search
// index, best match first.
func (r *ChunkRepository) SearchLexical(ctx context.Context, query string, limit int) ([]LexicalResult, error) {
	sql := fmt.Sprintf(`
		SELECT %s,
			ts_rank(s.tsv, websearch_to_tsquery('english', $1)) AS score
		FROM chunk_search_index s
		JOIN document_chunks c ON c.id = s.chunk_id
		WHERE s.tsv @@ websearch_to_tsquery('english', $1)
		ORDER BY score DESC
		LIMIT $2`, chunkColumns)

	rows, err := r.db.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query lexical index: %w", err)
	}
	defer rows.Close()

	var results []LexicalResult
	for rows.Next() {
		var score float64
		chunk, err := scanChunk(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lexical result: %w", err)
		}
		results = append(results, LexicalResult{Chunk: chunk, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lexical results: %w", err)
	}

	return results, nil
}

// VectorResult is a chunk surfaced by nearest-neighbor search with its cosine
// similarity
type VectorResult struct {
	Chunk      models.Chunk
	Similarity float64
}

// SearchVector performs cosine nearest-neighbor search over chunk embeddings,
// highest similarity first.
func (r *ChunkRepository) SearchVector(ctx context.Context, embedding []float64, limit int) ([]VectorResult, error) {
	if len(embedding) != 768 {
		return nil, fmt.Errorf("embedding must be 768 dimensions, got %d", len(embedding))
	}

	vectorStr := formatVector(embedding)

	sql := fmt.Sprintf(`
		SELECT %s,
			1 - (c.embedding <=> $1::vector) AS similarity
		FROM document_chunks c
		ORDER BY c.embedding <=> $1::vector
		LIMIT $2`, chunkColumns)

	rows, err := r.db.Query(ctx, sql, vectorStr, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk embeddings: %w", err)
	}
	defer rows.Close()

	var results []VectorResult
	for rows.Next() {
		var similarity float64
		chunk, err := scanChunk(rows, &similarity)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vector result: %w", err)
		}
		results = append(results, VectorResult{Chunk: chunk, Similarity: similarity})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vector results: %w", err)
	}

	return results, nil
}

// RefreshSearchIndex refreshes the lexical search materialized view so newly
// inserted chunks become keyword-searchable.
func (r *ChunkRepository) RefreshSearchIndex(ctx context.Context) error {
	_, err := r.db.Exec(ctx, "REFRESH MATERIALIZED VIEW CONCURRENTLY chunk_search_index")
	if err != nil {
		return fmt.Errorf("failed to refresh chunk search index: %w", err)
	}
	return nil
}

// CountByDocumentID counts the chunks belonging to a document
func (r *ChunkRepository) CountByDocumentID(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM document_chunks WHERE document_id = $1", documentID).Scan(&count)
	return count, err
}
