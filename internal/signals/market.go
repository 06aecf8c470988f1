package signals

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"veritas/internal/domain/claim"
	"veritas/internal/domain/resolution"
	"veritas/pkg/errors"
	"veritas/pkg/logger"
)

// MarketSource derives a signal from aggregate stake on a claim: the implied
// probability of YES is the YES share of total staked volume.
type MarketSource struct {
	ledger claim.LedgerReader
	log    *logger.Logger
}

// NewMarketSource creates a market signal source over the betting ledger.
func NewMarketSource(ledger claim.LedgerReader) *MarketSource {
	return &MarketSource{
		ledger: ledger,
		log:    logger.Get().With("signal", "market"),
	}
}

// Kind returns the source kind
func (s *MarketSource) Kind() resolution.SourceKind {
	return resolution.SourceMarket
}

// Evaluate computes the market-implied probability for the claim. A market
// with zero staked volume yields the neutral score plus a warning rather than
// an error: an empty market is a valid, if uninformative, observation.
func (s *MarketSource) Evaluate(ctx context.Context, c *claim.Claim) (resolution.SignalScore, error) {
	yes, no, err := s.ledger.StakeTotals(ctx, c.ID)
	if err != nil {
		return resolution.SignalScore{}, errors.Wrap(err, "read stake totals")
	}

	total := yes.Add(no)
	if total.IsZero() {
		return resolution.Neutral(resolution.SourceMarket, "no stake on market"), nil
	}

	participants, err := s.ledger.UniqueParticipantCount(ctx, c.ID)
	if err != nil {
		return resolution.SignalScore{}, errors.Wrap(err, "count participants")
	}

	impliedYes, _ := yes.Div(total).Float64()

	score := resolution.SignalScore{
		Kind:       resolution.SourceMarket,
		Score:      totalFloat(total),
		Percentage: impliedYes * 100,
		Quality:    participants,
	}
	if participants < 5 {
		score.Warnings = append(score.Warnings,
			fmt.Sprintf("thin market: only %d unique participants", participants))
	}

	return score, nil
}

func totalFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
