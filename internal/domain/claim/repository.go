package claim

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for claim data access
type Repository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)

	// ListByStatus returns claims in the given status, oldest first
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Claim, error)

	// ListExpiring returns active claims whose expiry passed at or before now
	ListExpiring(ctx context.Context, now time.Time, limit int) ([]*Claim, error)

	// ListWindowClosed returns disputable claims whose dispute window ended at or before now
	ListWindowClosed(ctx context.Context, now time.Time, limit int) ([]*Claim, error)

	// ListStale returns open claims whose evidence period started at or before cutoff
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*Claim, error)

	// UpdateStatus persists the claim only if its stored status still equals
	// expected. Returns ErrStaleState on a concurrent change - callers treat
	// that as a skipped tick, not a failure.
	UpdateStatus(ctx context.Context, c *Claim, expected Status) error

	// RecordFailedAttempt bumps the per-claim transition failure counter and
	// returns the new count.
	RecordFailedAttempt(ctx context.Context, id uuid.UUID) (int, error)
}

// LedgerReader exposes the stake state of the external betting ledger. The
// engine only reads; stake rows are written by the betting service.
type LedgerReader interface {
	StakeTotals(ctx context.Context, claimID uuid.UUID) (yes, no decimal.Decimal, err error)
	UniqueParticipantCount(ctx context.Context, claimID uuid.UUID) (int, error)
}
