package events

import (
	"context"

	"veritas/internal/adapters/kafka"
	"veritas/internal/domain/claim"
	"veritas/pkg/logger"
)

// Sink receives a local copy of every published event, e.g. a websocket
// fan-out for live subscribers. Sinks must not block.
type Sink interface {
	Broadcast(topic string, event interface{})
}

// Broker is the outbound message contract, satisfied by kafka.Producer.
type Broker interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Publisher publishes resolution events to Kafka. Every state transition and
// aggregation pass is emitted as a structured event so collaborators (admin
// surfaces, notification services) observe the engine without coupling to its
// logging backend.
type Publisher struct {
	producer Broker
	sinks    []Sink
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer Broker, sinks ...Sink) *Publisher {
	return &Publisher{
		producer: producer,
		sinks:    sinks,
		log:      logger.Get().With("component", "event_publisher"),
	}
}

// PublishTransition publishes a claim status transition
func (p *Publisher) PublishTransition(ctx context.Context, event ClaimTransitionedEvent) error {
	topic := kafka.TopicClaimTransitioned
	switch event.ToStatus {
	case claim.StatusResolved:
		topic = kafka.TopicClaimResolved
	case claim.StatusRefunded:
		topic = kafka.TopicClaimRefunded
	case claim.StatusFlaggedForReview:
		topic = kafka.TopicClaimFlagged
	}
	return p.publish(ctx, topic, event.ClaimID.String(), event)
}

// PublishAggregation publishes a completed aggregation pass. Results that
// suspect manipulation additionally go to the alert topic.
func (p *Publisher) PublishAggregation(ctx context.Context, event AggregationCompletedEvent) error {
	if err := p.publish(ctx, kafka.TopicAggregationCompleted, event.ClaimID.String(), event); err != nil {
		return err
	}
	if event.SuspectManipulation {
		return p.publish(ctx, kafka.TopicManipulationSuspect, event.ClaimID.String(), event)
	}
	return nil
}

// PublishEvidenceSubmitted publishes a new evidence submission
func (p *Publisher) PublishEvidenceSubmitted(ctx context.Context, event EvidenceSubmittedEvent) error {
	return p.publish(ctx, kafka.TopicEvidenceSubmitted, event.ClaimID.String(), event)
}

// PublishEvidenceReviewed publishes an admin evidence review
func (p *Publisher) PublishEvidenceReviewed(ctx context.Context, event EvidenceReviewedEvent) error {
	return p.publish(ctx, kafka.TopicEvidenceReviewed, event.ClaimID.String(), event)
}

// PublishDisputeFiled publishes a newly filed dispute
func (p *Publisher) PublishDisputeFiled(ctx context.Context, event DisputeFiledEvent) error {
	return p.publish(ctx, kafka.TopicDisputeFiled, event.ClaimID.String(), event)
}

// PublishDisputeResolved publishes a closed dispute
func (p *Publisher) PublishDisputeResolved(ctx context.Context, event DisputeResolvedEvent) error {
	return p.publish(ctx, kafka.TopicDisputeResolved, event.ClaimID.String(), event)
}

// PublishWorkerFailed publishes a retry-exhaustion failure
func (p *Publisher) PublishWorkerFailed(ctx context.Context, event WorkerFailedEvent) error {
	return p.publish(ctx, kafka.TopicWorkerFailed, event.ClaimID.String(), event)
}

func (p *Publisher) publish(ctx context.Context, topic string, key string, event interface{}) error {
	for _, sink := range p.sinks {
		sink.Broadcast(topic, event)
	}

	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		p.log.Errorw("Failed to publish event", "topic", topic, "key", key, "error", err)
		return err
	}
	return nil
}
