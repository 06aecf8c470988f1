package clickhouse

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"veritas/internal/domain/resolution"
	"veritas/pkg/errors"
)

// Compile-time check
var _ resolution.AuditRepository = (*AuditRepository)(nil)

// AuditRepository implements resolution.AuditRepository for ClickHouse.
// Aggregation results are immutable audit rows keyed by (claim_id, computed_at);
// the ReplacingMergeTree table absorbs replayed inserts, making Store idempotent.
type AuditRepository struct {
	conn driver.Conn
}

// NewAuditRepository creates a new aggregation audit repository
func NewAuditRepository(conn driver.Conn) *AuditRepository {
	return &AuditRepository{conn: conn}
}

// Store persists one aggregation pass
func (r *AuditRepository) Store(ctx context.Context, result *resolution.Result) error {
	contributions, err := json.Marshal(result.Contributions)
	if err != nil {
		return errors.Wrap(err, "marshal contributions")
	}

	query := `
		INSERT INTO aggregation_results (
			claim_id, computed_at, final_confidence, recommended_outcome,
			strategy, evidence_consensus, alignment_bonus,
			suspect_manipulation, contributions, explanation, warnings
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`

	err = r.conn.Exec(ctx, query,
		result.ClaimID.String(),
		result.ComputedAt,
		result.FinalConfidence,
		result.RecommendedOutcome.String(),
		result.Strategy.String(),
		result.EvidenceConsensus,
		result.AlignmentBonus,
		result.SuspectManipulation,
		string(contributions),
		result.Explanation,
		result.Warnings,
	)

	if err != nil {
		return errors.Wrap(err, "failed to store aggregation result")
	}

	return nil
}

// ListByClaim returns the aggregation history for a claim, newest first
func (r *AuditRepository) ListByClaim(ctx context.Context, claimID uuid.UUID, limit int) ([]*resolution.Result, error) {
	query := `
		SELECT
			claim_id, computed_at, final_confidence, recommended_outcome,
			strategy, evidence_consensus, alignment_bonus,
			suspect_manipulation, contributions, explanation, warnings
		FROM aggregation_results
		WHERE claim_id = ?
		ORDER BY computed_at DESC
		LIMIT ?
	`

	rows, err := r.conn.Query(ctx, query, claimID.String(), limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query aggregation results")
	}
	defer rows.Close()

	var results []*resolution.Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// Latest returns the most recent aggregation result for a claim
func (r *AuditRepository) Latest(ctx context.Context, claimID uuid.UUID) (*resolution.Result, error) {
	results, err := r.ListByClaim(ctx, claimID, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no aggregation results for claim %s", claimID)
	}
	return results[0], nil
}

type resultScanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row resultScanner) (*resolution.Result, error) {
	var (
		result        resolution.Result
		claimID       string
		computedAt    time.Time
		outcome       string
		strategy      string
		contributions string
	)

	err := row.Scan(
		&claimID,
		&computedAt,
		&result.FinalConfidence,
		&outcome,
		&strategy,
		&result.EvidenceConsensus,
		&result.AlignmentBonus,
		&result.SuspectManipulation,
		&contributions,
		&result.Explanation,
		&result.Warnings,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan aggregation result")
	}

	id, err := uuid.Parse(claimID)
	if err != nil {
		return nil, errors.Wrap(err, "parse claim id")
	}
	result.ClaimID = id
	result.ComputedAt = computedAt
	result.RecommendedOutcome = resolution.Recommendation(outcome)
	result.Strategy = resolution.Strategy(strategy)

	if err := json.Unmarshal([]byte(contributions), &result.Contributions); err != nil {
		return nil, errors.Wrap(err, "unmarshal contributions")
	}

	return &result, nil
}
