package claim

import (
	"time"

	"github.com/shopspring/decimal"

	"veritas/pkg/errors"
)

// Rules carries the policy constants the state machine enforces.
type Rules struct {
	// DisputeWindow is the fixed period a preliminary outcome stays challengeable
	DisputeWindow time.Duration

	// MaxEvidencePeriod bounds how long a claim may stay unresolved before refund
	MaxEvidencePeriod time.Duration

	// MinConfidence is the floor below which a stale claim refunds instead of resolving
	MinConfidence decimal.Decimal

	// AutoResolveFloor is the minimum confidence for automated final resolution
	AutoResolveFloor decimal.Decimal
}

// Transition describes one proposed status change with everything its guards need.
type Transition struct {
	To Status
	At time.Time

	// Set for Expired -> Disputable
	PreliminaryOutcome *Outcome

	// Set for PendingFinal -> Resolved
	FinalOutcome *Outcome
	Confidence   *decimal.Decimal

	// Reason is mandatory for FlaggedForReview and Refunded
	Reason string

	// HasActiveDispute gates dispute-window closure
	HasActiveDispute bool

	// AdminOverride bypasses the confidence floor and unlocks the exit from
	// FlaggedForReview, never the structural guards
	AdminOverride bool
}

// Machine validates and applies claim lifecycle transitions. It is the single
// writer of claim status: every mutation, automated or admin-forced, goes through
// Apply. The machine holds no mutable state of its own.
type Machine struct {
	rules Rules
}

// NewMachine constructs a state machine with the given policy rules.
func NewMachine(rules Rules) *Machine {
	return &Machine{rules: rules}
}

// Apply checks the transition guards against the claim's current state and, when
// they pass, mutates the claim in place. The caller persists the claim with a
// compare-and-swap on the prior status; Apply itself never touches storage.
func (m *Machine) Apply(c *Claim, t Transition) error {
	if c == nil {
		return errors.ErrInvalidInput
	}
	if c.Status.Terminal() {
		return errors.Wrapf(errors.ErrClaimTerminal, "claim %s is %s", c.ID, c.Status)
	}
	if !t.To.Valid() {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown status %q", t.To)
	}

	switch t.To {
	case StatusExpired:
		return m.expire(c, t)
	case StatusDisputable:
		return m.openDisputeWindow(c, t)
	case StatusPendingFinal:
		return m.closeDisputeWindow(c, t)
	case StatusResolved:
		return m.resolve(c, t)
	case StatusRefunded:
		return m.refund(c, t)
	case StatusFlaggedForReview:
		return m.flag(c, t)
	default:
		return errors.Wrapf(errors.ErrInvalidTransition, "%s -> %s", c.Status, t.To)
	}
}

func (m *Machine) expire(c *Claim, t Transition) error {
	if c.Status != StatusActive {
		return errors.Wrapf(errors.ErrInvalidTransition, "%s -> expired", c.Status)
	}
	if !c.HasExpired(t.At) {
		return errors.Wrapf(errors.ErrInvalidTransition, "claim %s not yet expired", c.ID)
	}

	c.Status = StatusExpired
	c.EvidencePeriodStart = c.ExpiresAt
	c.UpdatedAt = t.At
	return nil
}

func (m *Machine) openDisputeWindow(c *Claim, t Transition) error {
	if c.Status != StatusExpired {
		return errors.Wrapf(errors.ErrInvalidTransition, "%s -> disputable", c.Status)
	}
	if t.PreliminaryOutcome == nil || !t.PreliminaryOutcome.Valid() {
		return errors.Wrap(errors.ErrInvalidInput, "disputable requires a preliminary outcome")
	}

	end := t.At.Add(m.rules.DisputeWindow)
	c.Status = StatusDisputable
	c.PreliminaryOutcome = t.PreliminaryOutcome
	c.DisputeWindowEnd = &end
	c.UpdatedAt = t.At
	return nil
}

func (m *Machine) closeDisputeWindow(c *Claim, t Transition) error {
	if c.Status != StatusDisputable {
		return errors.Wrapf(errors.ErrInvalidTransition, "%s -> pending_final", c.Status)
	}
	if c.DisputeWindowEnd == nil {
		return errors.Wrapf(errors.ErrMissingTimestamp, "claim %s disputable without window end", c.ID)
	}
	if !c.DisputeWindowClosed(t.At) {
		return errors.Wrapf(errors.ErrInvalidTransition, "dispute window still open until %s", c.DisputeWindowEnd)
	}
	if t.HasActiveDispute {
		return errors.Wrapf(errors.ErrActiveDispute, "claim %s", c.ID)
	}

	c.Status = StatusPendingFinal
	c.UpdatedAt = t.At
	return nil
}

func (m *Machine) resolve(c *Claim, t Transition) error {
	// Flagged claims have no automated exit; an admin decision is the only
	// way out, and it still passes every remaining guard.
	fromFlagged := c.Status == StatusFlaggedForReview && t.AdminOverride
	if c.Status != StatusPendingFinal && !fromFlagged {
		return errors.Wrapf(errors.ErrInvalidTransition, "%s -> resolved", c.Status)
	}
	if t.HasActiveDispute {
		return errors.Wrapf(errors.ErrActiveDispute, "claim %s", c.ID)
	}
	if t.FinalOutcome == nil || !t.FinalOutcome.Valid() {
		return errors.Wrap(errors.ErrInvalidInput, "resolved requires a final outcome")
	}
	if t.Confidence == nil {
		return errors.Wrap(errors.ErrInvalidInput, "resolved requires a confidence score")
	}
	if t.Confidence.LessThan(m.rules.AutoResolveFloor) && !t.AdminOverride {
		return errors.Wrapf(errors.ErrConfidenceTooLow,
			"confidence %s below floor %s", t.Confidence, m.rules.AutoResolveFloor)
	}

	c.Status = StatusResolved
	c.FinalOutcome = t.FinalOutcome
	c.ConfidenceScore = t.Confidence
	c.ResolutionNote = t.Reason
	c.DisputeWindowEnd = nil
	c.UpdatedAt = t.At
	return nil
}

func (m *Machine) refund(c *Claim, t Transition) error {
	fromFlagged := c.Status == StatusFlaggedForReview && t.AdminOverride
	if !c.Status.Open() && !fromFlagged {
		return errors.Wrapf(errors.ErrInvalidTransition, "%s -> refunded", c.Status)
	}
	if !c.EvidencePeriodElapsed(t.At, m.rules.MaxEvidencePeriod) {
		return errors.Wrapf(errors.ErrInvalidTransition, "claim %s evidence period still running", c.ID)
	}
	if c.ConfidenceScore != nil && !c.ConfidenceScore.LessThan(m.rules.MinConfidence) {
		return errors.Wrapf(errors.ErrInvalidTransition,
			"claim %s reached confidence %s, refund not permitted", c.ID, c.ConfidenceScore)
	}
	if t.Reason == "" {
		return errors.Wrap(errors.ErrInvalidInput, "refund requires a reason")
	}

	c.Status = StatusRefunded
	c.ResolutionNote = t.Reason
	c.DisputeWindowEnd = nil
	c.UpdatedAt = t.At
	return nil
}

func (m *Machine) flag(c *Claim, t Transition) error {
	// Any non-terminal state may be flagged: open disputes at window close and
	// claims that exhausted their transition retries both land here.
	if t.Reason == "" {
		return errors.Wrap(errors.ErrInvalidInput, "flagging requires a reason")
	}

	c.Status = StatusFlaggedForReview
	c.ResolutionNote = t.Reason
	c.DisputeWindowEnd = nil
	c.UpdatedAt = t.At
	return nil
}
