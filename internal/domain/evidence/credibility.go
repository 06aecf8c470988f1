package evidence

import "fmt"

// Credibility model constants. Contrarian evidence - submitted against the
// submitter's own stake - carries the strongest bonus because the submitter has
// no self-interested reason to mislead.
const (
	contrarianMultiplier = 2.5
	adminVerifiedBonus   = 1.10
	youngIdentityPenalty = 0.5
	poolSybilPenalty     = 0.5
)

// sourceTypeMultipliers maps source categories to their fixed credibility factor
var sourceTypeMultipliers = map[SourceType]float64{
	SourceAcademic:   1.0,
	SourceGovernment: 1.0,
	SourceExpert:     0.9,
	SourceNews:       0.8,
	SourceBlog:       0.5,
	SourceSocial:     0.5,
	SourceAnonymous:  0.3,
	SourceOther:      0.7,
}

// Scorer computes effective evidence weights. It holds only policy knobs and is
// safe for concurrent use.
type Scorer struct {
	youngIdentityDays  int
	youngIdentityShare float64
}

// NewScorer constructs a credibility scorer. youngIdentityDays is the identity
// age below which the Sybil penalty applies; youngIdentityShare is the fraction
// of a pool that may be young before the whole pool is penalized.
func NewScorer(youngIdentityDays int, youngIdentityShare float64) *Scorer {
	return &Scorer{
		youngIdentityDays:  youngIdentityDays,
		youngIdentityShare: youngIdentityShare,
	}
}

// ItemWeight returns the effective weight of a single item:
// base_quality x source_credibility x credibility multipliers x identity age factor.
// The result is never negative; disagreement is expressed through the separate
// yes/no accumulators in ScorePool, never through negative weights.
func (s *Scorer) ItemWeight(item *Item) float64 {
	if item == nil {
		return 0
	}

	weight := item.BaseQuality * item.SourceCredibility

	mult, ok := sourceTypeMultipliers[item.SourceType]
	if !ok {
		mult = sourceTypeMultipliers[SourceOther]
	}
	weight *= mult

	if s.isContrarian(item) {
		weight *= contrarianMultiplier
	}
	if item.AdminVerified {
		weight *= adminVerifiedBonus
	}
	if s.isYoungIdentity(item) {
		weight *= youngIdentityPenalty
	}

	if weight < 0 {
		return 0
	}
	return weight
}

// PoolScore is the credibility-weighted aggregate of one claim's evidence set.
type PoolScore struct {
	WeightedYes float64
	WeightedNo  float64

	Items           int
	YoungSubmitters int

	// SybilPenalized is set when the young-identity share of the pool crossed
	// the threshold and the whole pool was halved
	SybilPenalized bool

	Warnings []string
}

// Total returns the sum of directional weights
func (p PoolScore) Total() float64 {
	return p.WeightedYes + p.WeightedNo
}

// ScorePool weighs a claim's full evidence set. Neutral items contribute to the
// item count but to neither accumulator. If more than the configured share of
// submissions comes from young identities, the whole pool is halved and a Sybil
// warning is attached - the defense against burst-created accounts flooding a
// single resolution window.
func (s *Scorer) ScorePool(items []*Item) PoolScore {
	var pool PoolScore
	pool.Items = len(items)

	for _, item := range items {
		w := s.ItemWeight(item)
		if s.isYoungIdentity(item) {
			pool.YoungSubmitters++
		}

		switch item.Stance {
		case StanceSupportsYes:
			pool.WeightedYes += w
		case StanceSupportsNo:
			pool.WeightedNo += w
		}
	}

	if pool.Items == 0 {
		pool.Warnings = append(pool.Warnings, "no evidence submitted")
		return pool
	}

	youngShare := float64(pool.YoungSubmitters) / float64(pool.Items)
	if youngShare > s.youngIdentityShare {
		pool.WeightedYes *= poolSybilPenalty
		pool.WeightedNo *= poolSybilPenalty
		pool.SybilPenalized = true
		pool.Warnings = append(pool.Warnings, fmt.Sprintf(
			"possible sybil attack: %d of %d submissions from identities younger than %d days",
			pool.YoungSubmitters, pool.Items, s.youngIdentityDays))
	}

	return pool
}

func (s *Scorer) isContrarian(item *Item) bool {
	switch {
	case item.SubmitterBetPosition == BetYes && item.Stance == StanceSupportsNo:
		return true
	case item.SubmitterBetPosition == BetNo && item.Stance == StanceSupportsYes:
		return true
	}
	return false
}

func (s *Scorer) isYoungIdentity(item *Item) bool {
	return item.SubmitterIdentityAgeDays < s.youngIdentityDays
}
