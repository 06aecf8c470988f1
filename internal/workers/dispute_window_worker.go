package workers

import (
	"context"
	"time"

	"veritas/internal/domain/claim"
	resolutionsvc "veritas/internal/services/resolution"
)

// DisputeWindowWorker is the slow lane of the resolution monitor: it closes
// elapsed dispute windows and finalizes pending claims through a full
// aggregation pass. Claims with open disputes are parked for manual review by
// the service.
type DisputeWindowWorker struct {
	*BaseWorker
	claims      claim.Repository
	svc         *resolutionsvc.Service
	concurrency int
}

// NewDisputeWindowWorker creates a new dispute window worker
func NewDisputeWindowWorker(claims claim.Repository, svc *resolutionsvc.Service, interval time.Duration, concurrency int, enabled bool) *DisputeWindowWorker {
	return &DisputeWindowWorker{
		BaseWorker:  NewBaseWorker("dispute_window", interval, enabled),
		claims:      claims,
		svc:         svc,
		concurrency: concurrency,
	}
}

// Run closes elapsed dispute windows, then finalizes pending claims
func (w *DisputeWindowWorker) Run(ctx context.Context) error {
	start := time.Now()
	now := time.Now().UTC()

	closable, err := w.claims.ListWindowClosed(ctx, now, batchLimit)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return err
	}

	closed, closeFailed := processClaims(ctx, w.Log(), closable, w.concurrency,
		func(ctx context.Context, c *claim.Claim) error {
			return w.svc.CloseDisputeWindow(ctx, c, now)
		})

	pending, err := w.claims.ListByStatus(ctx, claim.StatusPendingFinal, batchLimit)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return err
	}

	resolved, finalizeFailed := processClaims(ctx, w.Log(), pending, w.concurrency,
		func(ctx context.Context, c *claim.Claim) error {
			return w.svc.FinalizeClaim(ctx, c, time.Now().UTC())
		})

	if closed+resolved+closeFailed+finalizeFailed > 0 {
		w.Log().Infow("Dispute window pass completed",
			"windows_closed", closed,
			"resolved", resolved,
			"failed", closeFailed+finalizeFailed,
			"duration", time.Since(start),
		)
	}

	w.RecordRun(time.Since(start))
	return nil
}
