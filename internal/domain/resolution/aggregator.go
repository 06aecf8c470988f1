package resolution

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxAlignmentBonus caps the extra confidence granted for full signal alignment
const maxAlignmentBonus = 5.0

// Consensus measures how strongly the evidence pool agrees with the market's
// direction: 1.0 is full agreement, 0.0 full disagreement. evidenceProb is the
// pool's weighted P(YES), so agreement with a YES-leaning market is the YES
// share itself and agreement with a NO-leaning market its complement. Without
// evidence the market stands unchallenged and consensus defaults to 1.0.
func Consensus(marketProb, evidenceProb float64, hasEvidence bool) float64 {
	if !hasEvidence {
		return 1.0
	}
	if marketProb >= 0.5 {
		return evidenceProb
	}
	return 1 - evidenceProb
}

// Aggregator combines the three weighted signals into one confidence score
// and recommendation. It is deterministic: identical inputs always produce
// identical results, and the only timestamp involved is the snapshot time
// recorded on the audit record.
type Aggregator struct {
	selector          *Selector
	manipulationGap   float64
	minEvidenceVolume int
}

// NewAggregator constructs a confidence aggregator. manipulationGap is the
// market-vs-evidence probability divergence that raises the manipulation flag;
// minEvidenceVolume is the evidence count below which divergence is ignored.
func NewAggregator(selector *Selector, manipulationGap float64, minEvidenceVolume int) *Aggregator {
	return &Aggregator{
		selector:          selector,
		manipulationGap:   manipulationGap,
		minEvidenceVolume: minEvidenceVolume,
	}
}

// Aggregate runs one full aggregation pass over the three signal scores.
// Evidence with zero volume inherits the market's probability - an
// unchallenged market is trusted rather than diluted toward a coin flip.
func (a *Aggregator) Aggregate(claimID uuid.UUID, market, evid, external SignalScore, at time.Time) *Result {
	pMarket := clamp01(market.Probability())
	pExternal := clamp01(external.Probability())

	warnings := collectWarnings(market, evid, external)

	evidenceDegraded := evid.Quality == 0
	pEvidence := clamp01(evid.Probability())
	if evidenceDegraded {
		pEvidence = pMarket
	}

	consensus := Consensus(pMarket, clamp01(evid.Probability()), !evidenceDegraded)

	strategy, weights, rationale := a.selector.Select(consensus, evid.Quality)

	contributions := []Contribution{
		{Kind: SourceMarket, Weight: weights.Market, Probability: pMarket,
			Points: weights.Market * pMarket * 100, Quality: market.Quality, Degraded: market.Quality == 0},
		{Kind: SourceEvidence, Weight: weights.Evidence, Probability: pEvidence,
			Points: weights.Evidence * pEvidence * 100, Quality: evid.Quality, Degraded: evidenceDegraded},
		{Kind: SourceExternal, Weight: weights.External, Probability: pExternal,
			Points: weights.External * pExternal * 100, Quality: external.Quality, Degraded: external.Quality == 0},
	}

	confidence := 0.0
	for _, c := range contributions {
		confidence += c.Points
	}

	suspect := !evidenceDegraded &&
		evid.Quality >= a.minEvidenceVolume &&
		math.Abs(pMarket-pEvidence) > a.manipulationGap
	if suspect {
		warnings = append(warnings, fmt.Sprintf(
			"market-evidence divergence %.2f exceeds %.2f across %d items; possible manipulation",
			math.Abs(pMarket-pEvidence), a.manipulationGap, evid.Quality))
	}

	bonus := a.alignmentBonus(contributions)
	if bonus > 0 {
		if pMarket >= 0.5 {
			confidence = math.Min(100, confidence+bonus)
		} else {
			confidence = math.Max(0, confidence-bonus)
		}
	}
	confidence = math.Min(100, math.Max(0, confidence))

	recommendation := RecommendNo
	if confidence >= 50 {
		recommendation = RecommendYes
	}

	result := &Result{
		ClaimID:             claimID,
		ComputedAt:          at,
		FinalConfidence:     confidence,
		RecommendedOutcome:  recommendation,
		Strategy:            strategy,
		EvidenceConsensus:   consensus,
		Contributions:       contributions,
		AlignmentBonus:      bonus,
		SuspectManipulation: suspect,
		Warnings:            warnings,
	}
	result.Explanation = a.explain(result, rationale)
	return result
}

// alignmentBonus grants extra confidence when all three signals independently
// point the same way, scaled by the thinnest signal's data volume. Any
// degraded signal disqualifies the bonus.
func (a *Aggregator) alignmentBonus(contributions []Contribution) float64 {
	yes, no := 0, 0
	minQuality := math.MaxInt
	for _, c := range contributions {
		if c.Degraded {
			return 0
		}
		if c.Probability >= 0.5 {
			yes++
		} else {
			no++
		}
		if c.Quality < minQuality {
			minQuality = c.Quality
		}
	}
	if yes != len(contributions) && no != len(contributions) {
		return 0
	}
	return math.Min(maxAlignmentBonus, float64(minQuality))
}

func (a *Aggregator) explain(r *Result, rationale string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "strategy %s: %s. ", r.Strategy, rationale)
	for _, c := range r.Contributions {
		fmt.Fprintf(&b, "%s %.0f%% of weight at P(YES)=%.2f contributes %.1f points",
			c.Kind, c.Weight*100, c.Probability, c.Points)
		if c.Degraded {
			b.WriteString(" (degraded)")
		}
		b.WriteString(". ")
	}
	if r.AlignmentBonus > 0 {
		fmt.Fprintf(&b, "All signals aligned: +%.1f alignment bonus. ", r.AlignmentBonus)
	}
	if r.SuspectManipulation {
		b.WriteString("Market and evidence diverge sharply; flagged for manipulation review. ")
	}
	fmt.Fprintf(&b, "Final confidence %.1f, recommending %s.", r.FinalConfidence, r.RecommendedOutcome)

	return b.String()
}

func collectWarnings(scores ...SignalScore) []string {
	var warnings []string
	for _, s := range scores {
		warnings = append(warnings, s.Warnings...)
	}
	return warnings
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
