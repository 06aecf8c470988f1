package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"veritas/internal/domain/claim"
)

// Compile-time check
var _ claim.LedgerReader = (*StakeRepository)(nil)

// StakeRepository reads the stake ledger written by the external betting
// service. The resolution engine never writes stake rows.
type StakeRepository struct {
	db DBTX
}

// NewStakeRepository creates a new stake ledger reader
func NewStakeRepository(db DBTX) *StakeRepository {
	return &StakeRepository{db: db}
}

// StakeTotals returns the total YES and NO stake on a claim
func (r *StakeRepository) StakeTotals(ctx context.Context, claimID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	var totals struct {
		Yes decimal.Decimal `db:"yes_total"`
		No  decimal.Decimal `db:"no_total"`
	}

	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE position = 'YES'), 0) AS yes_total,
			COALESCE(SUM(amount) FILTER (WHERE position = 'NO'), 0) AS no_total
		FROM stakes
		WHERE claim_id = $1`

	err := r.db.GetContext(ctx, &totals, query, claimID)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	return totals.Yes, totals.No, nil
}

// UniqueParticipantCount returns the number of distinct bettors on a claim
func (r *StakeRepository) UniqueParticipantCount(ctx context.Context, claimID uuid.UUID) (int, error) {
	var count int

	query := `SELECT COUNT(DISTINCT bettor_id) FROM stakes WHERE claim_id = $1`

	err := r.db.GetContext(ctx, &count, query, claimID)
	if err != nil {
		return 0, err
	}

	return count, nil
}
