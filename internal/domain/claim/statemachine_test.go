package claim

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/pkg/errors"
)

func testRules() Rules {
	return Rules{
		DisputeWindow:     72 * time.Hour,
		MaxEvidencePeriod: 30 * 24 * time.Hour,
		MinConfidence:     decimal.NewFromInt(80),
		AutoResolveFloor:  decimal.NewFromInt(60),
	}
}

func newActiveClaim(expiresAt time.Time) *Claim {
	return &Claim{
		ID:        uuid.New(),
		Text:      "Team A wins the final",
		Status:    StatusActive,
		ExpiresAt: expiresAt,
		CreatedAt: expiresAt.Add(-24 * time.Hour),
	}
}

func outcomePtr(o Outcome) *Outcome {
	return &o
}

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestMachine_Expire(t *testing.T) {
	machine := NewMachine(testRules())
	now := time.Now()

	t.Run("active claim past expiry transitions", func(t *testing.T) {
		c := newActiveClaim(now.Add(-time.Minute))

		err := machine.Apply(c, Transition{To: StatusExpired, At: now})
		require.NoError(t, err)

		assert.Equal(t, StatusExpired, c.Status)
		assert.Equal(t, c.ExpiresAt, c.EvidencePeriodStart, "evidence period starts at expiry")
		assert.Equal(t, now, c.UpdatedAt)
	})

	t.Run("claim before expiry is rejected", func(t *testing.T) {
		c := newActiveClaim(now.Add(time.Hour))

		err := machine.Apply(c, Transition{To: StatusExpired, At: now})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)
		assert.Equal(t, StatusActive, c.Status, "claim must be untouched on rejection")
	})

	t.Run("expiry exactly at the deadline counts", func(t *testing.T) {
		c := newActiveClaim(now)

		err := machine.Apply(c, Transition{To: StatusExpired, At: now})
		require.NoError(t, err)
		assert.Equal(t, StatusExpired, c.Status)
	})

	t.Run("non-active claim cannot expire", func(t *testing.T) {
		c := newActiveClaim(now.Add(-time.Minute))
		c.Status = StatusDisputable

		err := machine.Apply(c, Transition{To: StatusExpired, At: now})
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	})
}

func TestMachine_OpenDisputeWindow(t *testing.T) {
	machine := NewMachine(testRules())
	now := time.Now()

	t.Run("expired claim becomes disputable with preliminary outcome", func(t *testing.T) {
		c := newActiveClaim(now.Add(-time.Hour))
		c.Status = StatusExpired

		err := machine.Apply(c, Transition{
			To:                 StatusDisputable,
			At:                 now,
			PreliminaryOutcome: outcomePtr(OutcomeYes),
		})
		require.NoError(t, err)

		assert.Equal(t, StatusDisputable, c.Status)
		require.NotNil(t, c.PreliminaryOutcome)
		assert.Equal(t, OutcomeYes, *c.PreliminaryOutcome)
		require.NotNil(t, c.DisputeWindowEnd)
		assert.Equal(t, now.Add(72*time.Hour), *c.DisputeWindowEnd)
	})

	t.Run("missing preliminary outcome is rejected", func(t *testing.T) {
		c := newActiveClaim(now.Add(-time.Hour))
		c.Status = StatusExpired

		err := machine.Apply(c, Transition{To: StatusDisputable, At: now})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("active claim cannot skip expiry", func(t *testing.T) {
		c := newActiveClaim(now.Add(time.Hour))

		err := machine.Apply(c, Transition{
			To:                 StatusDisputable,
			At:                 now,
			PreliminaryOutcome: outcomePtr(OutcomeNo),
		})
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	})
}

func TestMachine_CloseDisputeWindow(t *testing.T) {
	machine := NewMachine(testRules())
	now := time.Now()

	disputableClaim := func(windowEnd time.Time) *Claim {
		c := newActiveClaim(now.Add(-100 * time.Hour))
		c.Status = StatusDisputable
		c.PreliminaryOutcome = outcomePtr(OutcomeYes)
		c.DisputeWindowEnd = &windowEnd
		return c
	}

	t.Run("closed window moves to pending final", func(t *testing.T) {
		c := disputableClaim(now.Add(-time.Minute))

		err := machine.Apply(c, Transition{To: StatusPendingFinal, At: now})
		require.NoError(t, err)
		assert.Equal(t, StatusPendingFinal, c.Status)
	})

	t.Run("window still open is rejected", func(t *testing.T) {
		c := disputableClaim(now.Add(time.Hour))

		err := machine.Apply(c, Transition{To: StatusPendingFinal, At: now})
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	})

	t.Run("active dispute blocks closure", func(t *testing.T) {
		c := disputableClaim(now.Add(-time.Minute))

		err := machine.Apply(c, Transition{To: StatusPendingFinal, At: now, HasActiveDispute: true})
		assert.ErrorIs(t, err, errors.ErrActiveDispute)
		assert.Equal(t, StatusDisputable, c.Status)
	})

	t.Run("disputable claim without window end is a data error", func(t *testing.T) {
		c := disputableClaim(now)
		c.DisputeWindowEnd = nil

		err := machine.Apply(c, Transition{To: StatusPendingFinal, At: now})
		assert.ErrorIs(t, err, errors.ErrMissingTimestamp)
	})
}

func TestMachine_Resolve(t *testing.T) {
	machine := NewMachine(testRules())
	now := time.Now()

	pendingClaim := func() *Claim {
		end := now.Add(-time.Hour)
		c := newActiveClaim(now.Add(-200 * time.Hour))
		c.Status = StatusPendingFinal
		c.PreliminaryOutcome = outcomePtr(OutcomeYes)
		c.DisputeWindowEnd = &end
		return c
	}

	t.Run("resolves with outcome and confidence", func(t *testing.T) {
		c := pendingClaim()

		err := machine.Apply(c, Transition{
			To:           StatusResolved,
			At:           now,
			FinalOutcome: outcomePtr(OutcomeNo),
			Confidence:   decimalPtr(85),
			Reason:       "evidence contradicts market",
		})
		require.NoError(t, err)

		assert.Equal(t, StatusResolved, c.Status)
		require.NotNil(t, c.FinalOutcome)
		assert.Equal(t, OutcomeNo, *c.FinalOutcome)
		assert.True(t, c.ConfidenceScore.Equal(decimal.NewFromInt(85)))
		assert.Nil(t, c.DisputeWindowEnd, "window cleared on resolution")
	})

	t.Run("confidence below floor is rejected", func(t *testing.T) {
		c := pendingClaim()

		err := machine.Apply(c, Transition{
			To:           StatusResolved,
			At:           now,
			FinalOutcome: outcomePtr(OutcomeYes),
			Confidence:   decimalPtr(45),
		})
		assert.ErrorIs(t, err, errors.ErrConfidenceTooLow)
		assert.Equal(t, StatusPendingFinal, c.Status)
	})

	t.Run("admin override bypasses the confidence floor", func(t *testing.T) {
		c := pendingClaim()

		err := machine.Apply(c, Transition{
			To:            StatusResolved,
			At:            now,
			FinalOutcome:  outcomePtr(OutcomeYes),
			Confidence:    decimalPtr(45),
			AdminOverride: true,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusResolved, c.Status)
	})

	t.Run("admin override does not bypass structural guards", func(t *testing.T) {
		c := pendingClaim()
		c.Status = StatusActive

		err := machine.Apply(c, Transition{
			To:            StatusResolved,
			At:            now,
			FinalOutcome:  outcomePtr(OutcomeYes),
			Confidence:    decimalPtr(99),
			AdminOverride: true,
		})
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	})

	t.Run("active dispute blocks resolution", func(t *testing.T) {
		c := pendingClaim()

		err := machine.Apply(c, Transition{
			To:               StatusResolved,
			At:               now,
			FinalOutcome:     outcomePtr(OutcomeYes),
			Confidence:       decimalPtr(90),
			HasActiveDispute: true,
		})
		assert.ErrorIs(t, err, errors.ErrActiveDispute)
	})

	t.Run("missing outcome or confidence is rejected", func(t *testing.T) {
		c := pendingClaim()

		err := machine.Apply(c, Transition{To: StatusResolved, At: now, Confidence: decimalPtr(90)})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)

		err = machine.Apply(c, Transition{To: StatusResolved, At: now, FinalOutcome: outcomePtr(OutcomeYes)})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestMachine_Refund(t *testing.T) {
	rules := testRules()
	machine := NewMachine(rules)
	now := time.Now()

	staleClaim := func() *Claim {
		c := newActiveClaim(now.Add(-40 * 24 * time.Hour))
		c.Status = StatusExpired
		c.EvidencePeriodStart = c.ExpiresAt
		return c
	}

	t.Run("stale low-confidence claim refunds", func(t *testing.T) {
		c := staleClaim()

		err := machine.Apply(c, Transition{To: StatusRefunded, At: now, Reason: "resolution stalled"})
		require.NoError(t, err)

		assert.Equal(t, StatusRefunded, c.Status)
		assert.Equal(t, "resolution stalled", c.ResolutionNote)
	})

	t.Run("evidence period still running blocks refund", func(t *testing.T) {
		c := newActiveClaim(now.Add(-time.Hour))
		c.Status = StatusExpired
		c.EvidencePeriodStart = c.ExpiresAt

		err := machine.Apply(c, Transition{To: StatusRefunded, At: now, Reason: "stalled"})
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	})

	t.Run("confidence at or above minimum blocks refund", func(t *testing.T) {
		c := staleClaim()
		c.ConfidenceScore = decimalPtr(80)

		err := machine.Apply(c, Transition{To: StatusRefunded, At: now, Reason: "stalled"})
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	})

	t.Run("refund without reason is rejected", func(t *testing.T) {
		c := staleClaim()

		err := machine.Apply(c, Transition{To: StatusRefunded, At: now})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("zero evidence period start falls back to expiry", func(t *testing.T) {
		c := staleClaim()
		c.EvidencePeriodStart = time.Time{}

		err := machine.Apply(c, Transition{To: StatusRefunded, At: now, Reason: "stalled"})
		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, c.Status)
	})
}

func TestMachine_Flag(t *testing.T) {
	machine := NewMachine(testRules())
	now := time.Now()

	t.Run("any open state can be flagged with a reason", func(t *testing.T) {
		for _, status := range []Status{StatusActive, StatusExpired, StatusDisputable, StatusPendingFinal} {
			c := newActiveClaim(now.Add(-time.Hour))
			c.Status = status

			err := machine.Apply(c, Transition{To: StatusFlaggedForReview, At: now, Reason: "retries exhausted"})
			require.NoError(t, err, "status %s", status)
			assert.Equal(t, StatusFlaggedForReview, c.Status)
			assert.Equal(t, "retries exhausted", c.ResolutionNote)
		}
	})

	t.Run("flagging without reason is rejected", func(t *testing.T) {
		c := newActiveClaim(now.Add(-time.Hour))

		err := machine.Apply(c, Transition{To: StatusFlaggedForReview, At: now})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestMachine_AdminExitFromFlagged(t *testing.T) {
	machine := NewMachine(testRules())
	now := time.Now()

	newFlaggedClaim := func() *Claim {
		c := newActiveClaim(now.Add(-40 * 24 * time.Hour))
		c.Status = StatusFlaggedForReview
		c.EvidencePeriodStart = c.ExpiresAt
		c.ResolutionNote = "dispute filed after window close"
		return c
	}

	t.Run("admin resolves a flagged claim", func(t *testing.T) {
		c := newFlaggedClaim()

		err := machine.Apply(c, Transition{
			To:            StatusResolved,
			At:            now,
			FinalOutcome:  outcomePtr(OutcomeYes),
			Confidence:    decimalPtr(95),
			Reason:        "manual review upheld the preliminary outcome",
			AdminOverride: true,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusResolved, c.Status)
		assert.Equal(t, OutcomeYes, *c.FinalOutcome)
	})

	t.Run("admin refunds a stale flagged claim", func(t *testing.T) {
		c := newFlaggedClaim()

		err := machine.Apply(c, Transition{
			To:            StatusRefunded,
			At:            now,
			Reason:        "manual review found the claim unresolvable",
			AdminOverride: true,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, c.Status)
		assert.Equal(t, "manual review found the claim unresolvable", c.ResolutionNote)
	})

	t.Run("without override flagged stays a dead end", func(t *testing.T) {
		c := newFlaggedClaim()

		err := machine.Apply(c, Transition{
			To:           StatusResolved,
			At:           now,
			FinalOutcome: outcomePtr(OutcomeYes),
			Confidence:   decimalPtr(95),
		})
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)

		err = machine.Apply(c, Transition{To: StatusRefunded, At: now, Reason: "stale"})
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)
		assert.Equal(t, StatusFlaggedForReview, c.Status)
	})

	t.Run("override does not skip the remaining resolve guards", func(t *testing.T) {
		c := newFlaggedClaim()

		err := machine.Apply(c, Transition{
			To:            StatusResolved,
			At:            now,
			Confidence:    decimalPtr(95),
			AdminOverride: true,
		})
		assert.ErrorIs(t, err, errors.ErrInvalidInput, "final outcome still required")

		err = machine.Apply(c, Transition{
			To:               StatusResolved,
			At:               now,
			FinalOutcome:     outcomePtr(OutcomeYes),
			Confidence:       decimalPtr(95),
			HasActiveDispute: true,
			AdminOverride:    true,
		})
		assert.ErrorIs(t, err, errors.ErrActiveDispute)
	})

	t.Run("override does not skip the remaining refund guards", func(t *testing.T) {
		c := newFlaggedClaim()
		c.EvidencePeriodStart = now.Add(-time.Hour)

		err := machine.Apply(c, Transition{
			To:            StatusRefunded,
			At:            now,
			Reason:        "too early",
			AdminOverride: true,
		})
		assert.ErrorIs(t, err, errors.ErrInvalidTransition, "evidence period still running")
	})
}

func TestMachine_TerminalStatesRejectEverything(t *testing.T) {
	machine := NewMachine(testRules())
	now := time.Now()

	targets := []Status{
		StatusExpired, StatusDisputable, StatusPendingFinal,
		StatusResolved, StatusRefunded, StatusFlaggedForReview,
	}

	for _, terminal := range []Status{StatusResolved, StatusRefunded} {
		for _, to := range targets {
			c := newActiveClaim(now.Add(-time.Hour))
			c.Status = terminal

			err := machine.Apply(c, Transition{To: to, At: now, Reason: "any"})
			assert.ErrorIs(t, err, errors.ErrClaimTerminal, "%s -> %s", terminal, to)
		}
	}
}

func TestMachine_InvalidInput(t *testing.T) {
	machine := NewMachine(testRules())

	err := machine.Apply(nil, Transition{To: StatusExpired, At: time.Now()})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	c := newActiveClaim(time.Now())
	err = machine.Apply(c, Transition{To: Status("bogus"), At: time.Now()})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestStatus_Predicates(t *testing.T) {
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusRefunded.Terminal())
	assert.False(t, StatusFlaggedForReview.Terminal())

	assert.True(t, StatusActive.Open())
	assert.True(t, StatusPendingFinal.Open())
	assert.False(t, StatusFlaggedForReview.Open())
	assert.False(t, StatusResolved.Open())
}
