package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"veritas/internal/domain/evidence"
	"veritas/pkg/errors"
)

// Compile-time check
var _ evidence.Repository = (*EvidenceRepository)(nil)

// EvidenceRepository implements evidence.Repository using sqlx
type EvidenceRepository struct {
	db DBTX
}

// NewEvidenceRepository creates a new evidence repository
func NewEvidenceRepository(db DBTX) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// Create inserts a new evidence item
func (r *EvidenceRepository) Create(ctx context.Context, item *evidence.Item) error {
	query := `
		INSERT INTO evidence_items (
			id, claim_id, submitter_id, content, stance, source_type, source_url,
			base_quality, source_credibility, admin_verified,
			submitter_bet_position, submitter_identity_age_days,
			created_at, reviewed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.ClaimID, item.SubmitterID, item.Content,
		item.Stance, item.SourceType, item.SourceURL,
		item.BaseQuality, item.SourceCredibility, item.AdminVerified,
		item.SubmitterBetPosition, item.SubmitterIdentityAgeDays,
		item.CreatedAt, item.ReviewedAt,
	)

	return err
}

// GetByID retrieves an evidence item by id
func (r *EvidenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*evidence.Item, error) {
	var item evidence.Item

	query := `SELECT * FROM evidence_items WHERE id = $1`

	err := r.db.GetContext(ctx, &item, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "evidence %s", id)
		}
		return nil, err
	}

	return &item, nil
}

// ListByClaim returns every evidence item for a claim, oldest first
func (r *EvidenceRepository) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*evidence.Item, error) {
	var items []*evidence.Item

	query := `
		SELECT * FROM evidence_items
		WHERE claim_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &items, query, claimID)
	if err != nil {
		return nil, err
	}

	return items, nil
}

// UpdateReview applies the one-time admin review pass. Items already reviewed
// are immutable: a second review attempt returns ErrAlreadyExists.
func (r *EvidenceRepository) UpdateReview(ctx context.Context, id uuid.UUID, stance evidence.Stance, sourceType evidence.SourceType, verified bool) error {
	query := `
		UPDATE evidence_items SET
			stance = $1,
			source_type = $2,
			admin_verified = $3,
			reviewed_at = NOW()
		WHERE id = $4 AND reviewed_at IS NULL`

	res, err := r.db.ExecContext(ctx, query, stance, sourceType, verified, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return errors.Wrapf(errors.ErrAlreadyExists, "evidence %s already reviewed", id)
	}

	return nil
}

// CountByClaim returns the number of evidence items for a claim
func (r *EvidenceRepository) CountByClaim(ctx context.Context, claimID uuid.UUID) (int, error) {
	var count int

	query := `SELECT COUNT(*) FROM evidence_items WHERE claim_id = $1`

	err := r.db.GetContext(ctx, &count, query, claimID)
	if err != nil {
		return 0, err
	}

	return count, nil
}
