package repository

import (
	"context"
	"fmt"

	"counselbrief-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MatterRepository handles database operations for matters
type MatterRepository struct {
	db *pgxpool.Pool
}

// NewMatterRepository creates a new matter repository
func NewMatterRepository(db *pgxpool.Pool) *MatterRepository {
	return &MatterRepository{db: db}
}

// Create creates a new matter
func (r *MatterRepository) Create(ctx context.Context, matter *models.Matter) error {
	query := `
		INSERT INTO matters (
			status, client_name, opposing_party, jurisdiction, target_forum,
			facts, latest_question
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		) RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		matter.Status,
		matter.ClientName,
		matter.OpposingParty,
		matter.Jurisdiction,
		matter.TargetForum,
		matter.Facts,
		matter.LatestQuestion,
	).Scan(&matter.ID, &matter.CreatedAt, &matter.UpdatedAt)

	return err
}

// GetByID retrieves a matter by ID
func (r *MatterRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Matter, error) {
	matter := &models.Matter{}
	query := `
		SELECT id, status, client_name, opposing_party, jurisdiction, target_forum,
			facts, latest_question, created_at, updated_at, closed_at
		FROM matters
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&matter.ID,
		&matter.Status,
		&matter.ClientName,
		&matter.OpposingParty,
		&matter.Jurisdiction,
		&matter.TargetForum,
		&matter.Facts,
		&matter.LatestQuestion,
		&matter.CreatedAt,
		&matter.UpdatedAt,
		&matter.ClosedAt,
	)

	if err != nil {
		return nil, err
	}

	return matter, nil
}

// Update updates a matter
func (r *MatterRepository) Update(ctx context.Context, matter *models.Matter) error {
	query := `
		UPDATE matters SET
			status = $2,
			client_name = $3,
			opposing_party = $4,
			jurisdiction = $5,
			target_forum = $6,
			facts = $7,
			latest_question = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(
		ctx, query,
		matter.ID,
		matter.Status,
		matter.ClientName,
		matter.OpposingParty,
		matter.Jurisdiction,
		matter.TargetForum,
		matter.Facts,
		matter.LatestQuestion,
	).Scan(&matter.UpdatedAt)

	return err
}

// List retrieves matters, optionally filtered by status
func (r *MatterRepository) List(ctx context.Context, status *models.MatterStatus, limit, offset int) ([]*models.Matter, error) {
	query := `
		SELECT id, status, client_name, opposing_party, jurisdiction, target_forum,
			facts, latest_question, created_at, updated_at, closed_at
		FROM matters`

	args := []interface{}{}
	argIndex := 1

	if status != nil {
		query += fmt.Sprintf(" WHERE status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
		if offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIndex)
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matters []*models.Matter
	for rows.Next() {
		matter := &models.Matter{}
		err := rows.Scan(
			&matter.ID,
			&matter.Status,
			&matter.ClientName,
			&matter.OpposingParty,
			&matter.Jurisdiction,
			&matter.TargetForum,
			&matter.Facts,
			&matter.LatestQuestion,
			&matter.CreatedAt,
			&matter.UpdatedAt,
			&matter.ClosedAt,
		)
		if err != nil {
			return nil, err
		}
		matters = append(matters, matter)
	}

	return matters, rows.Err()
}

// Delete deletes a matter
func (r *MatterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM matters WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
