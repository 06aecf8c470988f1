package resolution

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Recommendation is the aggregated direction of one resolution attempt
type Recommendation string

const (
	RecommendYes       Recommendation = "YES"
	RecommendNo        Recommendation = "NO"
	RecommendUncertain Recommendation = "UNCERTAIN"
)

// String returns string representation
func (r Recommendation) String() string {
	return string(r)
}

// Contribution is one signal's share of the final confidence
type Contribution struct {
	Kind        SourceKind `json:"kind"`
	Weight      float64    `json:"weight"`
	Probability float64    `json:"probability"`
	Points      float64    `json:"points"` // weight x probability x 100
	Quality     int        `json:"quality"`
	Degraded    bool       `json:"degraded"` // source failed or had no data
}

// Result is the immutable audit record of one aggregation pass.
type Result struct {
	ClaimID    uuid.UUID `json:"claim_id"`
	ComputedAt time.Time `json:"computed_at"`

	FinalConfidence    float64        `json:"final_confidence"` // 0-100
	RecommendedOutcome Recommendation `json:"recommended_outcome"`
	Strategy           Strategy       `json:"strategy"`

	EvidenceConsensus float64        `json:"evidence_consensus"`
	Contributions     []Contribution `json:"contributions"`

	// AlignmentBonus is the extra confidence granted when all three signals
	// independently point the same way, scaled by their data volume
	AlignmentBonus float64 `json:"alignment_bonus"`

	SuspectManipulation bool `json:"suspect_manipulation"`

	Explanation string   `json:"explanation"`
	Warnings    []string `json:"warnings"`
}

// Contribution lookup by kind; returns zero value when absent
func (r *Result) ContributionFor(kind SourceKind) Contribution {
	for _, c := range r.Contributions {
		if c.Kind == kind {
			return c
		}
	}
	return Contribution{}
}

// AuditRepository persists aggregation results as immutable audit rows keyed
// by (claim_id, computed_at).
type AuditRepository interface {
	Store(ctx context.Context, result *Result) error
	ListByClaim(ctx context.Context, claimID uuid.UUID, limit int) ([]*Result, error)
	Latest(ctx context.Context, claimID uuid.UUID) (*Result, error)
}
