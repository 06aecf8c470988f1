package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"veritas/internal/domain/dispute"
	"veritas/pkg/errors"
)

// Compile-time check
var _ dispute.Repository = (*DisputeRepository)(nil)

// DisputeRepository implements dispute.Repository using sqlx
type DisputeRepository struct {
	db DBTX
}

// NewDisputeRepository creates a new dispute repository
func NewDisputeRepository(db DBTX) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create files a new dispute
func (r *DisputeRepository) Create(ctx context.Context, d *dispute.Dispute) error {
	query := `
		INSERT INTO disputes (
			id, claim_id, filer_id, reason, status, created_at, resolved_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.ClaimID, d.FilerID, d.Reason, d.Status, d.CreatedAt, d.ResolvedAt,
	)

	return err
}

// GetByID loads a dispute by ID
func (r *DisputeRepository) GetByID(ctx context.Context, id uuid.UUID) (*dispute.Dispute, error) {
	var d dispute.Dispute

	query := `SELECT * FROM disputes WHERE id = $1`

	err := r.db.GetContext(ctx, &d, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "dispute %s", id)
		}
		return nil, err
	}

	return &d, nil
}

// HasActiveDispute reports whether any open dispute blocks the claim
func (r *DisputeRepository) HasActiveDispute(ctx context.Context, claimID uuid.UUID) (bool, error) {
	var count int

	query := `SELECT COUNT(*) FROM disputes WHERE claim_id = $1 AND status = $2`

	err := r.db.GetContext(ctx, &count, query, claimID, dispute.StatusOpen)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// ListByClaim returns all disputes filed against a claim, oldest first
func (r *DisputeRepository) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*dispute.Dispute, error) {
	var disputes []*dispute.Dispute

	query := `
		SELECT * FROM disputes
		WHERE claim_id = $1
		ORDER BY created_at ASC`

	err := r.db.SelectContext(ctx, &disputes, query, claimID)
	if err != nil {
		return nil, err
	}

	return disputes, nil
}

// Resolve closes a dispute as upheld or dismissed
func (r *DisputeRepository) Resolve(ctx context.Context, id uuid.UUID, status dispute.Status) error {
	if status == dispute.StatusOpen {
		return errors.Wrap(errors.ErrInvalidInput, "cannot resolve a dispute to open")
	}

	query := `
		UPDATE disputes SET status = $1, resolved_at = NOW()
		WHERE id = $2 AND status = $3`

	res, err := r.db.ExecContext(ctx, query, status, id, dispute.StatusOpen)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "open dispute %s", id)
	}

	return nil
}
