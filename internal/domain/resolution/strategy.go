package resolution

import "fmt"

// Strategy names the weighting regime the adaptive selector chose
type Strategy string

const (
	// StrategyMarketValidated applies when evidence agrees with the market:
	// uncontested markets are efficient, so they get the dominant weight
	StrategyMarketValidated Strategy = "market_validated"

	// StrategyEvidenceContradicts applies when credible evidence runs against
	// the crowd - the textbook signature of market manipulation - so the
	// market's voice shrinks and independent verification leads
	StrategyEvidenceContradicts Strategy = "evidence_contradicts"

	// StrategyStandard is the balanced default for mixed signals
	StrategyStandard Strategy = "standard"
)

// String returns string representation
func (s Strategy) String() string {
	return string(s)
}

// Weights is the per-signal weight triple of one aggregation pass.
// A well-formed triple sums to 1.0 within floating-point epsilon.
type Weights struct {
	Market   float64
	Evidence float64
	External float64
}

// Sum returns the total of the three weights
func (w Weights) Sum() float64 {
	return w.Market + w.Evidence + w.External
}

var strategyWeights = map[Strategy]Weights{
	StrategyMarketValidated:     {Market: 0.60, Evidence: 0.10, External: 0.30},
	StrategyEvidenceContradicts: {Market: 0.20, Evidence: 0.30, External: 0.50},
	StrategyStandard:            {Market: 0.35, Evidence: 0.25, External: 0.40},
}

// Selector picks the weighting strategy from the evidence-market consensus.
// It is a pure function of its inputs and holds only threshold configuration.
type Selector struct {
	consensusHigh float64
	consensusLow  float64
}

// NewSelector constructs a strategy selector with the given consensus
// thresholds (defaults 0.8 and 0.2).
func NewSelector(consensusHigh, consensusLow float64) *Selector {
	return &Selector{
		consensusHigh: consensusHigh,
		consensusLow:  consensusLow,
	}
}

// Select chooses the strategy for the given evidence-market consensus and
// evidence volume, returning the strategy, its weight triple and a
// human-readable rationale.
func (s *Selector) Select(consensus float64, evidenceCount int) (Strategy, Weights, string) {
	switch {
	case evidenceCount == 0 || consensus >= s.consensusHigh:
		return StrategyMarketValidated, strategyWeights[StrategyMarketValidated],
			fmt.Sprintf("evidence consensus %.2f confirms the market (%d items); trusting market efficiency", consensus, evidenceCount)

	case consensus <= s.consensusLow:
		return StrategyEvidenceContradicts, strategyWeights[StrategyEvidenceContradicts],
			fmt.Sprintf("evidence consensus %.2f contradicts the market across %d items; reducing market weight", consensus, evidenceCount)

	default:
		return StrategyStandard, strategyWeights[StrategyStandard],
			fmt.Sprintf("mixed signals at consensus %.2f (%d items); balanced weighting", consensus, evidenceCount)
	}
}
