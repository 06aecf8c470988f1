package evidence

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for evidence data access
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// ListByClaim returns every evidence item for a claim, oldest first
	ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*Item, error)

	// UpdateReview applies the one-time admin review pass: it may revise stance
	// and source type and marks the item verified. Items already reviewed are
	// immutable and return ErrAlreadyExists.
	UpdateReview(ctx context.Context, id uuid.UUID, stance Stance, sourceType SourceType, verified bool) error

	// CountByClaim returns the number of evidence items for a claim
	CountByClaim(ctx context.Context, claimID uuid.UUID) (int, error)
}
