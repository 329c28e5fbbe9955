package repository

import (
	"context"

	"counselbrief-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository handles database operations for legal documents
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create creates a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (
			title, source_url, jurisdiction, court_level, effective_date,
			provisions, posture, is_primary, archive_path, total_text_length
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		) RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		doc.Title,
		doc.SourceURL,
		doc.Jurisdiction,
		doc.CourtLevel,
		doc.EffectiveDate,
		doc.Provisions,
		doc.Posture,
		doc.Primary,
		doc.ArchivePath,
		doc.TotalTextLength,
	).Scan(&doc.ID, &doc.CreatedAt)

	return err
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	doc := &models.Document{}
	query := `
		SELECT id, title, source_url, jurisdiction, court_level, effective_date,
			provisions, posture, is_primary, archive_path, total_text_length, created_at
		FROM documents
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&doc.ID,
		&doc.Title,
		&doc.SourceURL,
		&doc.Jurisdiction,
		&doc.CourtLevel,
		&doc.EffectiveDate,
		&doc.Provisions,
		&doc.Posture,
		&doc.Primary,
		&doc.ArchivePath,
		&doc.TotalTextLength,
		&doc.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return doc, nil
}

// CountBySourceURL counts documents sharing a source URL
func (r *DocumentRepository) CountBySourceURL(ctx context.Context, sourceURL string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM documents WHERE source_url = $1", sourceURL).Scan(&count)
	return count, err
}

// DeleteBySourceURL removes any prior document (and its chunks, by cascade)
// that was ingested from the same source URL. Used for replace-by-source-url
// re-ingestion semantics.
func (r *DocumentRepository) DeleteBySourceURL(ctx context.Context, sourceURL string) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM documents WHERE source_url = $1", sourceURL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateArchivePath updates only the archive path after the raw text is stored
func (r *DocumentRepository) UpdateArchivePath(ctx context.Context, id uuid.UUID, archivePath string) error {
	query := `
		UPDATE documents SET
			archive_path = $2
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, archivePath)
	return err
}
