package claim

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Claim is the unit of resolution: a proposition whose truth the engine settles.
type Claim struct {
	ID   uuid.UUID `db:"id"`
	Text string    `db:"text"`

	Status Status `db:"status"`

	// Lifecycle timestamps
	ExpiresAt           time.Time  `db:"expires_at"`
	EvidencePeriodStart time.Time  `db:"evidence_period_start"`
	DisputeWindowEnd    *time.Time `db:"dispute_window_end"`

	// Outcomes. PreliminaryOutcome is set when the claim becomes disputable,
	// FinalOutcome only when it is resolved.
	PreliminaryOutcome *Outcome         `db:"preliminary_outcome"`
	FinalOutcome       *Outcome         `db:"final_outcome"`
	ConfidenceScore    *decimal.Decimal `db:"confidence_score"` // 0-100

	// Terminal bookkeeping
	ResolutionNote string `db:"resolution_note"`
	FailedAttempts int    `db:"failed_attempts"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Outcome is a binary resolution outcome
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// Valid checks if outcome is valid
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// String returns string representation
func (o Outcome) String() string {
	return string(o)
}

// Status defines claim lifecycle status
type Status string

const (
	// StatusActive means betting is open and the claim has not expired
	StatusActive Status = "active"

	// StatusExpired means the expiry passed but no preliminary outcome exists yet
	StatusExpired Status = "expired"

	// StatusDisputable means a preliminary outcome is set and the dispute window is open
	StatusDisputable Status = "disputable"

	// StatusPendingFinal means the dispute window closed with no open dispute
	StatusPendingFinal Status = "pending_final"

	// StatusResolved is terminal: final outcome committed
	StatusResolved Status = "resolved"

	// StatusRefunded is terminal: stakes returned, no outcome
	StatusRefunded Status = "refunded"

	// StatusFlaggedForReview halts automation pending a human decision
	StatusFlaggedForReview Status = "flagged_for_review"
)

// Valid checks if status is valid
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusDisputable, StatusPendingFinal,
		StatusResolved, StatusRefunded, StatusFlaggedForReview:
		return true
	}
	return false
}

// String returns string representation
func (s Status) String() string {
	return string(s)
}

// Terminal returns true for states that reject all further transitions
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRefunded
}

// Open returns true for states still eligible for automated transitions
func (s Status) Open() bool {
	switch s {
	case StatusActive, StatusExpired, StatusDisputable, StatusPendingFinal:
		return true
	}
	return false
}

// HasExpired reports whether the claim passed its expiry at the given instant
func (c *Claim) HasExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// DisputeWindowClosed reports whether the dispute window has elapsed.
// Returns false when no window is open.
func (c *Claim) DisputeWindowClosed(now time.Time) bool {
	if c.DisputeWindowEnd == nil {
		return false
	}
	return !now.Before(*c.DisputeWindowEnd)
}

// EvidencePeriodElapsed reports whether the claim has sat unresolved longer than
// the maximum evidence-collection period
func (c *Claim) EvidencePeriodElapsed(now time.Time, maxPeriod time.Duration) bool {
	start := c.EvidencePeriodStart
	if start.IsZero() {
		start = c.ExpiresAt
	}
	return now.Sub(start) > maxPeriod
}
