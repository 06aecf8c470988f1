package resolution

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAggregatorForTest() *Aggregator {
	return NewAggregator(NewSelector(0.8, 0.2), 0.30, 3)
}

func score(kind SourceKind, percentage float64, quality int) SignalScore {
	return SignalScore{Kind: kind, Percentage: percentage, Quality: quality}
}

func TestAggregator_DegradedEvidenceInheritsMarket(t *testing.T) {
	agg := newAggregatorForTest()
	claimID := uuid.New()
	now := time.Now()

	market := score(SourceMarket, 70, 42)
	evid := Neutral(SourceEvidence, "no evidence submitted")
	external := score(SourceExternal, 50, 4)

	result := agg.Aggregate(claimID, market, evid, external, now)

	// No evidence means the market stands unchallenged:
	// 60% x 70 + 10% x 70 (inherited) + 30% x 50 = 64
	assert.InDelta(t, 64.0, result.FinalConfidence, 1e-9)
	assert.Equal(t, RecommendYes, result.RecommendedOutcome)
	assert.Equal(t, StrategyMarketValidated, result.Strategy)
	assert.InDelta(t, 1.0, result.EvidenceConsensus, 1e-9)
	assert.False(t, result.SuspectManipulation)
	assert.Zero(t, result.AlignmentBonus, "degraded signal disqualifies the bonus")

	evidContribution := result.ContributionFor(SourceEvidence)
	require.Equal(t, SourceEvidence, evidContribution.Kind)
	assert.True(t, evidContribution.Degraded)
	assert.InDelta(t, 0.70, evidContribution.Probability, 1e-9, "degraded evidence inherits market probability")

	assert.Contains(t, result.Warnings, "no evidence submitted")
}

func TestAggregator_EvidenceContradictsMarket(t *testing.T) {
	agg := newAggregatorForTest()
	now := time.Now()

	// Market says 90% YES but five credible items say 20% YES. The selector
	// cuts the market weight and the divergence raises the manipulation flag.
	market := score(SourceMarket, 90, 120)
	evid := score(SourceEvidence, 20, 5)
	external := score(SourceExternal, 30, 6)

	result := agg.Aggregate(uuid.New(), market, evid, external, now)

	assert.Equal(t, StrategyEvidenceContradicts, result.Strategy)
	assert.InDelta(t, 0.20, result.EvidenceConsensus, 1e-9)
	assert.True(t, result.SuspectManipulation)

	// 20% x 90 + 30% x 20 + 50% x 30 = 39
	assert.InDelta(t, 39.0, result.FinalConfidence, 1e-9)
	assert.Equal(t, RecommendNo, result.RecommendedOutcome)
	assert.Zero(t, result.AlignmentBonus, "signals on both sides get no bonus")
}

func TestAggregator_ManipulationFlagRequiresVolume(t *testing.T) {
	agg := newAggregatorForTest()
	now := time.Now()

	market := score(SourceMarket, 90, 120)
	external := score(SourceExternal, 30, 6)

	t.Run("two items stay below the volume floor", func(t *testing.T) {
		evid := score(SourceEvidence, 20, 2)
		result := agg.Aggregate(uuid.New(), market, evid, external, now)
		assert.False(t, result.SuspectManipulation)
	})

	t.Run("three items trip the flag", func(t *testing.T) {
		evid := score(SourceEvidence, 20, 3)
		result := agg.Aggregate(uuid.New(), market, evid, external, now)
		assert.True(t, result.SuspectManipulation)
	})

	t.Run("divergence within the gap does not trip", func(t *testing.T) {
		evid := score(SourceEvidence, 65, 5)
		result := agg.Aggregate(uuid.New(), market, evid, external, now)
		assert.False(t, result.SuspectManipulation)
	})
}

func TestAggregator_AlignmentBonus(t *testing.T) {
	agg := newAggregatorForTest()
	now := time.Now()

	t.Run("aligned yes signals push confidence up", func(t *testing.T) {
		market := score(SourceMarket, 90, 50)
		evid := score(SourceEvidence, 80, 8)
		external := score(SourceExternal, 85, 3)

		result := agg.Aggregate(uuid.New(), market, evid, external, now)

		// consensus 0.8 validates the market: 60% x 90 + 10% x 80 + 30% x 85 = 87.5,
		// bonus capped by the thinnest signal (3 articles)
		assert.InDelta(t, 3.0, result.AlignmentBonus, 1e-9)
		assert.InDelta(t, 90.5, result.FinalConfidence, 1e-9)
		assert.Equal(t, RecommendYes, result.RecommendedOutcome)
	})

	t.Run("aligned no signals push confidence down", func(t *testing.T) {
		market := score(SourceMarket, 20, 50)
		evid := score(SourceEvidence, 10, 8)
		external := score(SourceExternal, 20, 6)

		result := agg.Aggregate(uuid.New(), market, evid, external, now)

		// consensus 1 - 0.1 = 0.9 validates the market:
		// 60% x 20 + 10% x 10 + 30% x 20 = 19, minus the capped bonus 5
		assert.InDelta(t, 5.0, result.AlignmentBonus, 1e-9)
		assert.InDelta(t, 14.0, result.FinalConfidence, 1e-9)
		assert.Equal(t, RecommendNo, result.RecommendedOutcome)
	})

	t.Run("any degraded signal disqualifies the bonus", func(t *testing.T) {
		market := score(SourceMarket, 90, 50)
		evid := score(SourceEvidence, 80, 8)
		external := Neutral(SourceExternal, "search unavailable")

		result := agg.Aggregate(uuid.New(), market, evid, external, now)
		assert.Zero(t, result.AlignmentBonus)
	})
}

func TestAggregator_Deterministic(t *testing.T) {
	agg := newAggregatorForTest()
	claimID := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	market := score(SourceMarket, 72, 30)
	evid := score(SourceEvidence, 64, 4)
	external := score(SourceExternal, 58, 7)

	first := agg.Aggregate(claimID, market, evid, external, at)
	second := agg.Aggregate(claimID, market, evid, external, at)

	assert.Equal(t, first, second, "identical inputs must produce identical results")
}

func TestAggregator_ConfidenceBounds(t *testing.T) {
	agg := newAggregatorForTest()
	now := time.Now()

	t.Run("out-of-range probabilities are clamped", func(t *testing.T) {
		market := score(SourceMarket, 150, 10)
		evid := score(SourceEvidence, -20, 5)
		external := score(SourceExternal, 120, 5)

		result := agg.Aggregate(uuid.New(), market, evid, external, now)
		assert.GreaterOrEqual(t, result.FinalConfidence, 0.0)
		assert.LessOrEqual(t, result.FinalConfidence, 100.0)
	})

	t.Run("all signals at full yes stay at the cap", func(t *testing.T) {
		market := score(SourceMarket, 100, 500)
		evid := score(SourceEvidence, 100, 50)
		external := score(SourceExternal, 100, 20)

		result := agg.Aggregate(uuid.New(), market, evid, external, now)
		assert.InDelta(t, 100.0, result.FinalConfidence, 1e-9)
		assert.Equal(t, RecommendYes, result.RecommendedOutcome)
	})
}

func TestAggregator_RecommendationThreshold(t *testing.T) {
	agg := newAggregatorForTest()
	now := time.Now()

	// Uniform probability p across all signals yields confidence near 100p
	// regardless of strategy, so the threshold sits at p = 0.5.
	buildAt := func(percentage float64) *Result {
		market := score(SourceMarket, percentage, 10)
		evid := score(SourceEvidence, percentage, 1)
		external := score(SourceExternal, percentage, 1)
		return agg.Aggregate(uuid.New(), market, evid, external, now)
	}

	atThreshold := buildAt(50)
	assert.Equal(t, RecommendYes, atThreshold.RecommendedOutcome, "confidence of exactly 50 recommends YES")

	below := buildAt(40)
	assert.Equal(t, RecommendNo, below.RecommendedOutcome)
}

func TestAggregator_ExplanationMentionsEverySignal(t *testing.T) {
	agg := newAggregatorForTest()

	market := score(SourceMarket, 90, 120)
	evid := score(SourceEvidence, 20, 5)
	external := score(SourceExternal, 30, 6)

	result := agg.Aggregate(uuid.New(), market, evid, external, time.Now())

	for _, kind := range []SourceKind{SourceMarket, SourceEvidence, SourceExternal} {
		assert.Contains(t, result.Explanation, kind.String())
	}
	assert.Contains(t, result.Explanation, result.Strategy.String())
	assert.Contains(t, result.Explanation, "manipulation")
}
