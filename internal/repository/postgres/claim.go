package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"veritas/internal/domain/claim"
	"veritas/pkg/errors"
)

// Compile-time check
var _ claim.Repository = (*ClaimRepository)(nil)

// ClaimRepository implements claim.Repository using sqlx
type ClaimRepository struct {
	db DBTX
}

// NewClaimRepository creates a new claim repository
func NewClaimRepository(db DBTX) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Create inserts a new claim. The insert is idempotent on claim id: replaying
// the approval event of an already-known claim is a no-op.
func (r *ClaimRepository) Create(ctx context.Context, c *claim.Claim) error {
	query := `
		INSERT INTO claims (
			id, text, status, expires_at, evidence_period_start,
			dispute_window_end, preliminary_outcome, final_outcome,
			confidence_score, resolution_note, failed_attempts,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Text, c.Status, c.ExpiresAt, c.EvidencePeriodStart,
		c.DisputeWindowEnd, c.PreliminaryOutcome, c.FinalOutcome,
		c.ConfidenceScore, c.ResolutionNote, c.FailedAttempts,
		c.CreatedAt, c.UpdatedAt,
	)

	return err
}

// GetByID retrieves a claim by id
func (r *ClaimRepository) GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	var c claim.Claim

	query := `SELECT * FROM claims WHERE id = $1`

	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "claim %s", id)
		}
		return nil, err
	}

	return &c, nil
}

// ListByStatus returns claims in the given status, oldest first
func (r *ClaimRepository) ListByStatus(ctx context.Context, status claim.Status, limit int) ([]*claim.Claim, error) {
	var claims []*claim.Claim

	query := `
		SELECT * FROM claims
		WHERE status = $1
		ORDER BY updated_at ASC
		LIMIT $2`

	err := r.db.SelectContext(ctx, &claims, query, status, limit)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

// ListExpiring returns active claims whose expiry passed at or before now
func (r *ClaimRepository) ListExpiring(ctx context.Context, now time.Time, limit int) ([]*claim.Claim, error) {
	var claims []*claim.Claim

	query := `
		SELECT * FROM claims
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at ASC
		LIMIT $3`

	err := r.db.SelectContext(ctx, &claims, query, claim.StatusActive, now, limit)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

// ListWindowClosed returns disputable claims whose dispute window ended at or before now
func (r *ClaimRepository) ListWindowClosed(ctx context.Context, now time.Time, limit int) ([]*claim.Claim, error) {
	var claims []*claim.Claim

	query := `
		SELECT * FROM claims
		WHERE status = $1 AND dispute_window_end IS NOT NULL AND dispute_window_end <= $2
		ORDER BY dispute_window_end ASC
		LIMIT $3`

	err := r.db.SelectContext(ctx, &claims, query, claim.StatusDisputable, now, limit)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

// ListStale returns open claims whose evidence period started at or before cutoff
func (r *ClaimRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*claim.Claim, error) {
	var claims []*claim.Claim

	query := `
		SELECT * FROM claims
		WHERE status IN ($1, $2, $3, $4)
		  AND expires_at <= $5
		ORDER BY expires_at ASC
		LIMIT $6`

	err := r.db.SelectContext(ctx, &claims, query,
		claim.StatusActive, claim.StatusExpired, claim.StatusDisputable, claim.StatusPendingFinal,
		cutoff, limit)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

// UpdateStatus persists a claim transition guarded by optimistic concurrency:
// the row is written only if the stored status still matches expected.
// A zero-row update means another tick got there first and surfaces as
// ErrStaleState.
func (r *ClaimRepository) UpdateStatus(ctx context.Context, c *claim.Claim, expected claim.Status) error {
	query := `
		UPDATE claims SET
			status = $1,
			evidence_period_start = $2,
			dispute_window_end = $3,
			preliminary_outcome = $4,
			final_outcome = $5,
			confidence_score = $6,
			resolution_note = $7,
			updated_at = $8
		WHERE id = $9 AND status = $10`

	res, err := r.db.ExecContext(ctx, query,
		c.Status, c.EvidencePeriodStart, c.DisputeWindowEnd,
		c.PreliminaryOutcome, c.FinalOutcome, c.ConfidenceScore,
		c.ResolutionNote, c.UpdatedAt,
		c.ID, expected,
	)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrStaleState, "claim %s no longer %s", c.ID, expected)
	}

	return nil
}

// RecordFailedAttempt bumps the per-claim transition failure counter
func (r *ClaimRepository) RecordFailedAttempt(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int

	query := `
		UPDATE claims SET failed_attempts = failed_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_attempts`

	err := r.db.GetContext(ctx, &attempts, query, id)
	if err != nil {
		return 0, err
	}

	return attempts, nil
}
