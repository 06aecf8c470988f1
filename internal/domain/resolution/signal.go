package resolution

import (
	"context"

	"veritas/internal/domain/claim"
)

// SourceKind identifies one of the three independent signal sources
type SourceKind string

const (
	SourceMarket   SourceKind = "market"
	SourceEvidence SourceKind = "evidence"
	SourceExternal SourceKind = "external"
)

// String returns string representation
func (k SourceKind) String() string {
	return string(k)
}

// SignalScore is the normalized output of one signal source for one claim.
type SignalScore struct {
	Kind SourceKind

	// Score is the raw source-specific score
	Score float64

	// Percentage is the implied probability of YES, 0-100
	Percentage float64

	// Quality is the source's self-reported data volume: article count for the
	// external signal, unique participants for the market signal, item count
	// for the evidence signal. Zero means the score is a guess.
	Quality int

	// Warnings describe low-confidence conditions, e.g. "no evidence submitted"
	Warnings []string
}

// Probability returns the implied probability of YES in [0,1]
func (s SignalScore) Probability() float64 {
	return s.Percentage / 100
}

// Neutral returns the degraded score a source falls back to when it has no
// data or failed: a 50% coin flip carrying the given warning.
func Neutral(kind SourceKind, warning string) SignalScore {
	return SignalScore{
		Kind:       kind,
		Score:      0,
		Percentage: 50,
		Quality:    0,
		Warnings:   []string{warning},
	}
}

// Source evaluates one signal for a claim. Implementations must return an
// error rather than fabricating data; the aggregation service owns the
// neutral-fallback policy.
type Source interface {
	Kind() SourceKind
	Evaluate(ctx context.Context, c *claim.Claim) (SignalScore, error)
}
