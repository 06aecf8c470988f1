package events

import (
	"time"

	"github.com/google/uuid"

	"veritas/internal/domain/claim"
	"veritas/internal/domain/resolution"
)

// ClaimTransitionedEvent is emitted on every successful status transition.
type ClaimTransitionedEvent struct {
	ClaimID    uuid.UUID    `json:"claim_id"`
	FromStatus claim.Status `json:"from_status"`
	ToStatus   claim.Status `json:"to_status"`
	Outcome    string       `json:"outcome,omitempty"`
	Confidence *float64     `json:"confidence,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	Forced     bool         `json:"forced"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// AggregationCompletedEvent is emitted after every aggregation pass,
// successful or not enough to resolve.
type AggregationCompletedEvent struct {
	ClaimID             uuid.UUID                 `json:"claim_id"`
	FinalConfidence     float64                   `json:"final_confidence"`
	RecommendedOutcome  resolution.Recommendation `json:"recommended_outcome"`
	Strategy            resolution.Strategy       `json:"strategy"`
	SuspectManipulation bool                      `json:"suspect_manipulation"`
	Warnings            []string                  `json:"warnings,omitempty"`
	ComputedAt          time.Time                 `json:"computed_at"`
}

// EvidenceSubmittedEvent is emitted when a new evidence item lands.
type EvidenceSubmittedEvent struct {
	EvidenceID uuid.UUID `json:"evidence_id"`
	ClaimID    uuid.UUID `json:"claim_id"`
	Stance     string    `json:"stance"`
	SourceType string    `json:"source_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EvidenceReviewedEvent is emitted when an admin review pass amends an item.
type EvidenceReviewedEvent struct {
	EvidenceID uuid.UUID `json:"evidence_id"`
	ClaimID    uuid.UUID `json:"claim_id"`
	Stance     string    `json:"stance"`
	SourceType string    `json:"source_type"`
	Verified   bool      `json:"verified"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DisputeFiledEvent is emitted when a challenge lands against a claim's
// preliminary outcome.
type DisputeFiledEvent struct {
	DisputeID  uuid.UUID `json:"dispute_id"`
	ClaimID    uuid.UUID `json:"claim_id"`
	FilerID    uuid.UUID `json:"filer_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DisputeResolvedEvent is emitted when an admin closes a dispute.
type DisputeResolvedEvent struct {
	DisputeID  uuid.UUID `json:"dispute_id"`
	ClaimID    uuid.UUID `json:"claim_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// WorkerFailedEvent is emitted when a claim exhausts its transition retries.
type WorkerFailedEvent struct {
	Worker     string    `json:"worker"`
	ClaimID    uuid.UUID `json:"claim_id"`
	Attempts   int       `json:"attempts"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
