package evidence

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item is one user-submitted piece of evidence attached to a claim.
type Item struct {
	ID          uuid.UUID `db:"id"`
	ClaimID     uuid.UUID `db:"claim_id"`
	SubmitterID uuid.UUID `db:"submitter_id"`

	Content    string     `db:"content"`
	Stance     Stance     `db:"stance"`
	SourceType SourceType `db:"source_type"`
	SourceURL  string     `db:"source_url"`

	// BaseQuality is the submitter-independent quality score, 0-5
	BaseQuality float64 `db:"base_quality"`

	// SourceCredibility is the per-source trust score, 0-1
	SourceCredibility float64 `db:"source_credibility"`

	AdminVerified bool `db:"admin_verified"`

	// SubmitterBetPosition is the submitter's own stake side, used to detect
	// contrarian evidence
	SubmitterBetPosition BetPosition `db:"submitter_bet_position"`

	// SubmitterIdentityAgeDays feeds the Sybil penalty
	SubmitterIdentityAgeDays int `db:"submitter_identity_age_days"`

	CreatedAt  time.Time  `db:"created_at"`
	ReviewedAt *time.Time `db:"reviewed_at"`
}

// Stance is the closed set of positions an evidence item can take on a claim
type Stance string

const (
	StanceSupportsYes Stance = "supports_yes"
	StanceSupportsNo  Stance = "supports_no"
	StanceNeutral     Stance = "neutral"
)

// Valid checks if stance is valid
func (s Stance) Valid() bool {
	return s == StanceSupportsYes || s == StanceSupportsNo || s == StanceNeutral
}

// String returns string representation
func (s Stance) String() string {
	return string(s)
}

// NormalizeStance converts the legacy string encodings that accumulated at the
// submission boundary into the closed Stance set. It is the only place legacy
// spellings are accepted; everything past ingest works with Stance values.
func NormalizeStance(raw string) (Stance, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "supports_yes", "supporting_yes", "supporting", "yes", "support":
		return StanceSupportsYes, true
	case "supports_no", "supporting_no", "opposing", "no", "refute", "refuting":
		return StanceSupportsNo, true
	case "neutral", "unclear", "mixed", "":
		return StanceNeutral, true
	}
	return StanceNeutral, false
}

// SourceType classifies where an evidence item came from
type SourceType string

const (
	SourceAcademic   SourceType = "academic"
	SourceGovernment SourceType = "government"
	SourceNews       SourceType = "news"
	SourceExpert     SourceType = "expert"
	SourceSocial     SourceType = "social"
	SourceBlog       SourceType = "blog"
	SourceAnonymous  SourceType = "anonymous"
	SourceOther      SourceType = "other"
)

// Valid checks if source type is valid
func (t SourceType) Valid() bool {
	switch t {
	case SourceAcademic, SourceGovernment, SourceNews, SourceExpert,
		SourceSocial, SourceBlog, SourceAnonymous, SourceOther:
		return true
	}
	return false
}

// String returns string representation
func (t SourceType) String() string {
	return string(t)
}

// BetPosition is the submitter's own side of the market, if any
type BetPosition string

const (
	BetYes  BetPosition = "YES"
	BetNo   BetPosition = "NO"
	BetNone BetPosition = "NONE"
)

// String returns string representation
func (p BetPosition) String() string {
	return string(p)
}
