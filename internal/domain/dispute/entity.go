package dispute

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Dispute is a challenge filed against a claim's preliminary outcome during
// its dispute window.
type Dispute struct {
	ID      uuid.UUID `db:"id"`
	ClaimID uuid.UUID `db:"claim_id"`
	FilerID uuid.UUID `db:"filer_id"`

	Reason string `db:"reason"`
	Status Status `db:"status"`

	CreatedAt  time.Time  `db:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}

// Status defines dispute lifecycle status
type Status string

const (
	StatusOpen      Status = "open"
	StatusUpheld    Status = "upheld"
	StatusDismissed Status = "dismissed"
)

// Valid checks if status is valid
func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusUpheld || s == StatusDismissed
}

// String returns string representation
func (s Status) String() string {
	return string(s)
}

// Active reports whether the dispute still blocks automated resolution
func (s Status) Active() bool {
	return s == StatusOpen
}

// Registry is the read side the resolution engine depends on: it only ever
// asks whether an open dispute blocks a claim.
type Registry interface {
	HasActiveDispute(ctx context.Context, claimID uuid.UUID) (bool, error)
}

// Repository defines the interface for dispute data access
type Repository interface {
	Registry

	Create(ctx context.Context, d *Dispute) error
	GetByID(ctx context.Context, id uuid.UUID) (*Dispute, error)
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Dispute, error)

	// Resolve closes an open dispute as upheld or dismissed. Disputes already
	// closed return ErrNotFound.
	Resolve(ctx context.Context, id uuid.UUID, status Status) error
}
