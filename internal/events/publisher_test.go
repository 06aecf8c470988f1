package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/adapters/kafka"
	"veritas/internal/domain/claim"
	"veritas/internal/domain/resolution"
	"veritas/pkg/errors"
)

type recordingBroker struct {
	topics []string
	err    error
}

func (b *recordingBroker) Publish(_ context.Context, topic, _ string, _ interface{}) error {
	if b.err != nil {
		return b.err
	}
	b.topics = append(b.topics, topic)
	return nil
}

type recordingSink struct {
	topics []string
}

func (s *recordingSink) Broadcast(topic string, _ interface{}) {
	s.topics = append(s.topics, topic)
}

func TestPublishTransition_TopicRouting(t *testing.T) {
	tests := []struct {
		name      string
		toStatus  claim.Status
		wantTopic string
	}{
		{"expired goes to the transition topic", claim.StatusExpired, kafka.TopicClaimTransitioned},
		{"disputable goes to the transition topic", claim.StatusDisputable, kafka.TopicClaimTransitioned},
		{"resolved has its own topic", claim.StatusResolved, kafka.TopicClaimResolved},
		{"refunded has its own topic", claim.StatusRefunded, kafka.TopicClaimRefunded},
		{"flagged has its own topic", claim.StatusFlaggedForReview, kafka.TopicClaimFlagged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := &recordingBroker{}
			publisher := NewPublisher(broker)

			err := publisher.PublishTransition(context.Background(), ClaimTransitionedEvent{
				ClaimID:    uuid.New(),
				FromStatus: claim.StatusActive,
				ToStatus:   tt.toStatus,
				OccurredAt: time.Now().UTC(),
			})
			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantTopic}, broker.topics)
		})
	}
}

func TestPublishAggregation_ManipulationFanOut(t *testing.T) {
	t.Run("clean pass publishes once", func(t *testing.T) {
		broker := &recordingBroker{}
		publisher := NewPublisher(broker)

		err := publisher.PublishAggregation(context.Background(), AggregationCompletedEvent{
			ClaimID:            uuid.New(),
			FinalConfidence:    64,
			RecommendedOutcome: resolution.RecommendYes,
			Strategy:           resolution.StrategyMarketValidated,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{kafka.TopicAggregationCompleted}, broker.topics)
	})

	t.Run("suspect pass also hits the alert topic", func(t *testing.T) {
		broker := &recordingBroker{}
		publisher := NewPublisher(broker)

		err := publisher.PublishAggregation(context.Background(), AggregationCompletedEvent{
			ClaimID:             uuid.New(),
			FinalConfidence:     39,
			RecommendedOutcome:  resolution.RecommendNo,
			Strategy:            resolution.StrategyEvidenceContradicts,
			SuspectManipulation: true,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{kafka.TopicAggregationCompleted, kafka.TopicManipulationSuspect}, broker.topics)
	})
}

func TestPublish_SinksSeeEveryEvent(t *testing.T) {
	broker := &recordingBroker{}
	sink := &recordingSink{}
	publisher := NewPublisher(broker, sink)

	require.NoError(t, publisher.PublishEvidenceSubmitted(context.Background(), EvidenceSubmittedEvent{
		EvidenceID: uuid.New(),
		ClaimID:    uuid.New(),
		Stance:     "supports_yes",
	}))
	require.NoError(t, publisher.PublishWorkerFailed(context.Background(), WorkerFailedEvent{
		Worker:   "dispute_window",
		ClaimID:  uuid.New(),
		Attempts: 3,
	}))

	assert.Equal(t, []string{kafka.TopicEvidenceSubmitted, kafka.TopicWorkerFailed}, sink.topics)
	assert.Equal(t, sink.topics, broker.topics)
}

func TestPublish_BrokerErrorSurfaces(t *testing.T) {
	broker := &recordingBroker{err: errors.ErrInternal}
	sink := &recordingSink{}
	publisher := NewPublisher(broker, sink)

	err := publisher.PublishEvidenceReviewed(context.Background(), EvidenceReviewedEvent{
		EvidenceID: uuid.New(),
		ClaimID:    uuid.New(),
	})
	require.Error(t, err)

	// sinks broadcast before the broker write, so the live stream still sees it
	assert.Len(t, sink.topics, 1)
}
