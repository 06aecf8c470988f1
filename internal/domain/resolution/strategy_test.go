package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelector_Select(t *testing.T) {
	selector := NewSelector(0.8, 0.2)

	tests := []struct {
		name          string
		consensus     float64
		evidenceCount int
		want          Strategy
		wantWeights   Weights
	}{
		{
			name:          "high consensus validates the market",
			consensus:     0.85,
			evidenceCount: 10,
			want:          StrategyMarketValidated,
			wantWeights:   Weights{Market: 0.60, Evidence: 0.10, External: 0.30},
		},
		{
			name:          "consensus exactly at the high threshold",
			consensus:     0.8,
			evidenceCount: 10,
			want:          StrategyMarketValidated,
			wantWeights:   Weights{Market: 0.60, Evidence: 0.10, External: 0.30},
		},
		{
			name:          "no evidence trusts the market regardless of consensus",
			consensus:     0.0,
			evidenceCount: 0,
			want:          StrategyMarketValidated,
			wantWeights:   Weights{Market: 0.60, Evidence: 0.10, External: 0.30},
		},
		{
			name:          "low consensus cuts the market down",
			consensus:     0.1,
			evidenceCount: 5,
			want:          StrategyEvidenceContradicts,
			wantWeights:   Weights{Market: 0.20, Evidence: 0.30, External: 0.50},
		},
		{
			name:          "consensus exactly at the low threshold",
			consensus:     0.2,
			evidenceCount: 5,
			want:          StrategyEvidenceContradicts,
			wantWeights:   Weights{Market: 0.20, Evidence: 0.30, External: 0.50},
		},
		{
			name:          "mixed signals use the balanced default",
			consensus:     0.5,
			evidenceCount: 5,
			want:          StrategyStandard,
			wantWeights:   Weights{Market: 0.35, Evidence: 0.25, External: 0.40},
		},
		{
			name:          "just above the low threshold is still standard",
			consensus:     0.21,
			evidenceCount: 3,
			want:          StrategyStandard,
			wantWeights:   Weights{Market: 0.35, Evidence: 0.25, External: 0.40},
		},
		{
			name:          "just below the high threshold is still standard",
			consensus:     0.79,
			evidenceCount: 3,
			want:          StrategyStandard,
			wantWeights:   Weights{Market: 0.35, Evidence: 0.25, External: 0.40},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy, weights, rationale := selector.Select(tt.consensus, tt.evidenceCount)

			assert.Equal(t, tt.want, strategy)
			assert.Equal(t, tt.wantWeights, weights)
			assert.NotEmpty(t, rationale)
		})
	}
}

func TestStrategyWeights_SumToOne(t *testing.T) {
	for strategy, weights := range strategyWeights {
		assert.InDelta(t, 1.0, weights.Sum(), 1e-9, "strategy %s", strategy)
	}
}

func TestConsensus(t *testing.T) {
	tests := []struct {
		name         string
		marketProb   float64
		evidenceProb float64
		hasEvidence  bool
		want         float64
	}{
		{"no evidence defaults to full agreement", 0.3, 0.0, false, 1.0},
		{"yes market with yes evidence agrees", 0.7, 0.9, true, 0.9},
		{"yes market with no evidence disagrees", 0.7, 0.1, true, 0.1},
		{"no market with no evidence agrees", 0.3, 0.1, true, 0.9},
		{"no market with yes evidence disagrees", 0.3, 0.9, true, 0.1},
		{"coin flip market reads as yes side", 0.5, 0.6, true, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Consensus(tt.marketProb, tt.evidenceProb, tt.hasEvidence)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
